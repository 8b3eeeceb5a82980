package logsvc

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/ssriya/grader/core"
	"github.com/ssriya/grader/core/user"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewRollbarLogger(log.New(&buf, "", 0), &core.Config{Env: "TEST"})
	l.Enable(true) // no token: stays disabled

	usr := user.User{ID: "usr-1", Name: "Ms. Johnson", Email: "teacher@demo"}
	l.Warn("reading report cache", errors.New("connection refused"), usr, map[string]interface{}{"class_id": "cls-1"})

	out := buf.String()
	for _, want := range []string{"[WARN] reading report cache", "connection refused", "class_id:cls-1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output = %q, want it to contain %q", out, want)
		}
	}
	if strings.Contains(out, "teacher@demo") {
		t.Errorf("output = %q, user should not be printed", out)
	}
}
