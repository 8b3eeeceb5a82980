package rediscache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/ssriya/grader/core"
	"github.com/ssriya/grader/core/gradebook"
	"github.com/ssriya/grader/core/grading"
)

// newTestCache connects to REDIS_ADDR, skipping the test when it is not set.
func newTestCache(t *testing.T) gradebook.ReportCache {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client, err := NewClient(context.Background(), core.CacheConfig{RedisAddr: addr, RedisDB: 15})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewReportCache(client, time.Minute)
}

func TestReportKey(t *testing.T) {
	if got, want := reportKey("cls-1"), "grader:report:cls-1"; got != want {
		t.Errorf("reportKey() = %q, want %q", got, want)
	}
}

func TestReportCache(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	classID := core.NewID("cls")

	_, ok, err := c.GetClassReport(ctx, classID)
	require.NoError(t, err)
	assert.False(t, ok, "empty cache hit")

	rpt := gradebook.ClassReport{
		ClassID:   classID,
		ClassName: "Algebra I",
		Students: []gradebook.StudentStanding{
			{StudentID: "stu-1", Grade: null.Float64From(88.5), Letter: grading.LetterB},
			{StudentID: "stu-2", Letter: grading.NoGrade},
		},
		Average:       null.Float64From(88.5),
		AverageLetter: grading.LetterB,
	}
	require.NoError(t, c.SetClassReport(ctx, rpt))

	got, ok, err := c.GetClassReport(ctx, classID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rpt.ClassName, got.ClassName)
	assert.Equal(t, rpt.Students, got.Students)
	assert.False(t, got.Students[1].Grade.Valid)

	require.NoError(t, c.Invalidate(ctx, classID))
	_, ok, err = c.GetClassReport(ctx, classID)
	require.NoError(t, err)
	assert.False(t, ok, "hit after invalidation")
}
