package echoapi_test

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"github.com/xuri/excelize/v2"

	. "github.com/ssriya/grader/apps/api/echo"
	"github.com/ssriya/grader/core/gradebook"
	"github.com/ssriya/grader/core/grading"
)

type gradedClass struct {
	*fixture
	homework grading.Assignment
	test     grading.Assignment
}

// setupGraded gives the fixture class a Homework (40%) and a Tests (60%) category with
// one assignment each. Alice scores 90/100 and 40/50, for a final 84.
func setupGraded(t *testing.T) *gradedClass {
	t.Helper()
	f := setup(t)
	ctx := context.Background()
	svc := f.svc

	hw, err := svc.AddCategory(ctx, f.class.ID, gradebook.NewCategory{Name: "Homework", Weight: 0.4})
	require.NoError(t, err)
	tests, err := svc.AddCategory(ctx, f.class.ID, gradebook.NewCategory{Name: "Tests", Weight: 0.6})
	require.NoError(t, err)

	g := &gradedClass{fixture: f}
	g.homework, err = svc.AddAssignment(ctx, f.class.ID, gradebook.NewAssignment{
		CategoryID: hw.ID, Title: "HW1", Points: 100, DueDate: "2025-01-10",
	})
	require.NoError(t, err)
	g.test, err = svc.AddAssignment(ctx, f.class.ID, gradebook.NewAssignment{
		CategoryID: tests.ID, Title: "T1", Points: 50, DueDate: "2025-01-20",
	})
	require.NoError(t, err)

	for asgID, score := range map[string]float64{g.homework.ID: 90, g.test.ID: 40} {
		_, err = svc.SetGrade(ctx, f.class.ID, gradebook.SetGrade{
			AssignmentID: asgID, StudentID: f.alice.ID, Score: null.Float64From(score),
		})
		require.NoError(t, err)
	}
	return g
}

func Test_gradesApi_setGrade(t *testing.T) {
	g := setupGraded(t)
	token := g.token(t, g.teacher)

	tests := []struct {
		name      string
		body      interface{}
		wantCode  int
		wantField string
	}{
		{"update score", map[string]interface{}{"assignment_id": g.homework.ID, "student_id": g.alice.ID, "score": 70}, http.StatusOK, ""},
		{"clear score", map[string]interface{}{"assignment_id": g.test.ID, "student_id": g.alice.ID, "score": nil}, http.StatusOK, ""},
		{"unknown assignment", map[string]interface{}{"assignment_id": "asg-unknown", "student_id": g.alice.ID, "score": 10}, http.StatusBadRequest, "assignment_id"},
		{"not enrolled", map[string]interface{}{"assignment_id": g.homework.ID, "student_id": g.bob.ID, "score": 10}, http.StatusBadRequest, "student_id"},
		{"missing student", map[string]interface{}{"assignment_id": g.homework.ID, "score": 10}, http.StatusBadRequest, "student_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := g.do(t, http.MethodPut, g.classPath("/grades"), token, tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantField != "" {
				var fields map[string]string
				decode(t, rec, &fields)
				assert.Contains(t, fields, tt.wantField)
			}
		})
	}

	t.Run("students cannot grade", func(t *testing.T) {
		body := map[string]interface{}{"assignment_id": g.homework.ID, "student_id": g.alice.ID, "score": 100}
		rec := g.do(t, http.MethodPut, g.classPath("/grades"), g.token(t, g.alice), body)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("report follows the new scores", func(t *testing.T) {
		// 70% homework only, the empty Tests category is left out
		rpt, err := g.svc.StudentReport(context.Background(), g.class.ID, g.alice.ID)
		require.NoError(t, err)
		require.True(t, rpt.Grade.Valid)
		assert.InDelta(t, 70, rpt.Grade.Float64, 1e-9)
		assert.Equal(t, grading.LetterC, rpt.Letter)
	})
}

func Test_gradesApi_classReport(t *testing.T) {
	g := setupGraded(t)
	_, err := g.svc.Enroll(context.Background(), g.class.ID, gradebook.Enroll{StudentEmail: g.bob.Email})
	require.NoError(t, err)

	rec := g.do(t, http.MethodGet, g.classPath("/report"), g.token(t, g.teacher), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var rpt gradebook.ClassReport
	decode(t, rec, &rpt)
	assert.Equal(t, g.class.ID, rpt.ClassID)
	assert.Equal(t, 2, rpt.StudentCount)
	assert.Equal(t, 2, rpt.AssignmentCount)
	assert.True(t, rpt.WeightsBalanced)

	grades := make(map[string]gradebook.StudentStanding, len(rpt.Students))
	for _, st := range rpt.Students {
		grades[st.StudentID] = st
	}
	require.Contains(t, grades, g.alice.ID)
	assert.InDelta(t, 84, grades[g.alice.ID].Grade.Float64, 1e-9)
	assert.Equal(t, grading.LetterB, grades[g.alice.ID].Letter)

	// bob has no grades yet
	require.Contains(t, grades, g.bob.ID)
	assert.False(t, grades[g.bob.ID].Grade.Valid)
	assert.Equal(t, grading.NoGrade, grades[g.bob.ID].Letter)

	// ungraded students are left out of the average
	require.True(t, rpt.Average.Valid)
	assert.InDelta(t, 84, rpt.Average.Float64, 1e-9)
}

func Test_gradesApi_studentReport(t *testing.T) {
	g := setupGraded(t)
	_, err := g.svc.Enroll(context.Background(), g.class.ID, gradebook.Enroll{StudentEmail: g.bob.Email})
	require.NoError(t, err)
	path := g.classPath("/students/" + g.alice.ID + "/report")

	tests := []struct {
		name     string
		token    string
		wantCode int
	}{
		{"owner", g.token(t, g.teacher), http.StatusOK},
		{"self", g.token(t, g.alice), http.StatusOK},
		{"classmate", g.token(t, g.bob), http.StatusForbidden},
		{"other teacher", g.token(t, g.other), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := g.do(t, http.MethodGet, path, tt.token, nil)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				return
			}

			var rpt gradebook.StudentReport
			decode(t, rec, &rpt)
			assert.Equal(t, g.alice.ID, rpt.StudentID)
			assert.InDelta(t, 84, rpt.Grade.Float64, 1e-9)
			assert.Equal(t, grading.LetterB, rpt.Letter)
			require.Len(t, rpt.Assignments, 2)
			require.Len(t, rpt.Categories, 2)
		})
	}

	t.Run("not enrolled", func(t *testing.T) {
		rec := g.do(t, http.MethodGet, g.classPath("/students/usr-unknown/report"), g.token(t, g.teacher), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_gradesApi_estimate(t *testing.T) {
	f := setup(t)
	token := f.token(t, f.alice)

	tests := []struct {
		name         string
		body         map[string]interface{}
		wantRequired float64
		wantOutlook  string
	}{
		{"achievable", map[string]interface{}{"current": 80, "desired": 90, "remaining_weight": 0.5}, 100, OutlookAchievable},
		{"unachievable", map[string]interface{}{"current": 50, "desired": 90, "remaining_weight": 0.25}, 210, OutlookUnachievable},
		{"exceeded", map[string]interface{}{"current": 100, "desired": 40, "remaining_weight": 0.5}, -20, OutlookExceeded},
		{"no current grade", map[string]interface{}{"desired": 45, "remaining_weight": 0.5}, 90, OutlookAchievable},
		{"whole grade remaining", map[string]interface{}{"current": 10, "desired": 75, "remaining_weight": 1}, 75, OutlookAchievable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/v1/estimate", token, tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var resp EstimateResponse
			decode(t, rec, &resp)
			assert.InDelta(t, tt.wantRequired, resp.Required, 1e-9)
			assert.Equal(t, tt.wantOutlook, resp.Outlook)
		})
	}

	t.Run("no remaining weight", func(t *testing.T) {
		body := map[string]interface{}{"current": 80, "desired": 90, "remaining_weight": 0}
		rec := f.do(t, http.MethodPost, "/v1/estimate", token, body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var herr httpErr
		decode(t, rec, &herr)
		assert.Equal(t, grading.ErrNoRemainingWeight.Error(), herr.Error)
	})

	t.Run("remaining weight out of range", func(t *testing.T) {
		body := map[string]interface{}{"current": 80, "desired": 90, "remaining_weight": 1.5}
		rec := f.do(t, http.MethodPost, "/v1/estimate", token, body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var fields map[string]string
		decode(t, rec, &fields)
		assert.Contains(t, fields, "remaining_weight")
	})

	t.Run("requires a token", func(t *testing.T) {
		body := map[string]interface{}{"current": 80, "desired": 90, "remaining_weight": 0.5}
		rec := f.do(t, http.MethodPost, "/v1/estimate", "", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func Test_gradesApi_classEstimate(t *testing.T) {
	g := setupGraded(t)
	body := map[string]interface{}{"desired": 90, "remaining_weight": 0.5}

	t.Run("student estimates from their grade", func(t *testing.T) {
		// student_id is ignored for students
		body := map[string]interface{}{"student_id": g.bob.ID, "desired": 90, "remaining_weight": 0.5}
		rec := g.do(t, http.MethodPost, g.classPath("/estimate"), g.token(t, g.alice), body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp EstimateResponse
		decode(t, rec, &resp)
		require.True(t, resp.Current.Valid)
		assert.InDelta(t, 84, resp.Current.Float64, 1e-9)
		assert.InDelta(t, 96, resp.Required, 1e-9)
		assert.Equal(t, OutlookAchievable, resp.Outlook)
	})

	t.Run("teacher names the student", func(t *testing.T) {
		body := map[string]interface{}{"student_id": g.alice.ID, "desired": 90, "remaining_weight": 0.5}
		rec := g.do(t, http.MethodPost, g.classPath("/estimate"), g.token(t, g.teacher), body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp EstimateResponse
		decode(t, rec, &resp)
		assert.InDelta(t, 96, resp.Required, 1e-9)
	})

	t.Run("teacher without student", func(t *testing.T) {
		rec := g.do(t, http.MethodPost, g.classPath("/estimate"), g.token(t, g.teacher), body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var fields map[string]string
		decode(t, rec, &fields)
		assert.Contains(t, fields, "student_id")
	})

	t.Run("student not enrolled", func(t *testing.T) {
		body := map[string]interface{}{"student_id": g.bob.ID, "desired": 90, "remaining_weight": 0.5}
		rec := g.do(t, http.MethodPost, g.classPath("/estimate"), g.token(t, g.teacher), body)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("outsider", func(t *testing.T) {
		rec := g.do(t, http.MethodPost, g.classPath("/estimate"), g.token(t, g.bob), body)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_gradesApi_importAndExport(t *testing.T) {
	g := setupGraded(t)
	token := g.token(t, g.teacher)

	_, err := g.svc.Enroll(context.Background(), g.class.ID, gradebook.Enroll{StudentEmail: g.bob.Email})
	require.NoError(t, err)

	t.Run("import", func(t *testing.T) {
		file := workbook(t, [][]interface{}{
			{"Email", "HW1", "t1", "Project"},
			{g.bob.Email, 80, 45, ""},
			{"nobody@school.test", 10, 10, ""},
		})
		rec := g.upload(t, g.classPath("/grades/import"), token, file)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res gradebook.ImportResult
		decode(t, rec, &res)
		// bob's two scores; nobody's rows and the unknown Project column are skipped
		assert.Equal(t, 2, res.Imported)
		assert.Equal(t, 4, res.Skipped)
		assert.Len(t, res.Errors, 4)

		rpt, err := g.svc.StudentReport(context.Background(), g.class.ID, g.bob.ID)
		require.NoError(t, err)
		// 0.4*80 + 0.6*90
		assert.InDelta(t, 86, rpt.Grade.Float64, 1e-9)
	})

	t.Run("invalid score", func(t *testing.T) {
		file := workbook(t, [][]interface{}{
			{"Email", "HW1"},
			{g.bob.Email, "ninety"},
		})
		rec := g.upload(t, g.classPath("/grades/import"), token, file)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var fields map[string]string
		decode(t, rec, &fields)
		assert.Contains(t, fields, "file")
	})

	t.Run("not a workbook", func(t *testing.T) {
		rec := g.upload(t, g.classPath("/grades/import"), token, bytes.NewBufferString("email,score"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("export", func(t *testing.T) {
		rec := g.do(t, http.MethodGet, g.classPath("/gradebook.xlsx"), token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

		book, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		defer func() { _ = book.Close() }()

		rows, err := book.GetRows("Gradebook")
		require.NoError(t, err)
		// header, two students, class average
		require.Len(t, rows, 4)
		assert.Equal(t, []string{"Student", "Email", "HW1 (100 pts)", "T1 (50 pts)", "Percent", "Letter"}, rows[0])
		assert.Equal(t, "Class average", rows[3][0])
	})

	t.Run("students cannot export", func(t *testing.T) {
		rec := g.do(t, http.MethodGet, g.classPath("/gradebook.xlsx"), g.token(t, g.alice), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
