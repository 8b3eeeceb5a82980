package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssriya/grader/core/gradebook"
	"github.com/ssriya/grader/core/grading"
	"github.com/ssriya/grader/core/user"
	testutil "github.com/ssriya/grader/tests"
)

func Test_classApi_access(t *testing.T) {
	f := setup(t)
	update := gradebook.UpdateClass{Name: "Algebra II", Section: "Period 2"}

	tests := []struct {
		name     string
		method   string
		path     string
		token    string
		body     interface{}
		wantCode int
	}{
		{"no token", http.MethodGet, f.classPath(""), "", nil, http.StatusUnauthorized},
		{"owner reads", http.MethodGet, f.classPath(""), f.token(t, f.teacher), nil, http.StatusOK},
		{"enrolled student reads", http.MethodGet, f.classPath(""), f.token(t, f.alice), nil, http.StatusOK},
		{"enrolled student reads categories", http.MethodGet, f.classPath("/categories"), f.token(t, f.alice), nil, http.StatusOK},
		{"enrolled student cannot list roster", http.MethodGet, f.classPath("/students"), f.token(t, f.alice), nil, http.StatusForbidden},
		{"enrolled student cannot update", http.MethodPut, f.classPath(""), f.token(t, f.alice), update, http.StatusForbidden},
		{"enrolled student cannot see report", http.MethodGet, f.classPath("/report"), f.token(t, f.alice), nil, http.StatusForbidden},
		{"other student", http.MethodGet, f.classPath(""), f.token(t, f.bob), nil, http.StatusNotFound},
		{"other teacher", http.MethodGet, f.classPath(""), f.token(t, f.other), nil, http.StatusNotFound},
		{"other teacher cannot update", http.MethodPut, f.classPath(""), f.token(t, f.other), update, http.StatusNotFound},
		{"unknown class", http.MethodGet, "/v1/classes/cls-unknown", f.token(t, f.teacher), nil, http.StatusNotFound},
		{"owner updates", http.MethodPut, f.classPath(""), f.token(t, f.teacher), update, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func Test_classApi_queryAndCreate(t *testing.T) {
	f := setup(t)

	t.Run("student cannot create", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/v1/classes", f.token(t, f.alice), gradebook.NewClass{Name: "Art"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("blank name", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/v1/classes", f.token(t, f.teacher), gradebook.NewClass{Name: "   "})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var fields map[string]string
		decode(t, rec, &fields)
		assert.Contains(t, fields, "name")
	})

	t.Run("teacher creates and lists", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/v1/classes", f.token(t, f.teacher), gradebook.NewClass{Name: " Biology ", Section: "Period 3"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var cls gradebook.Class
		decode(t, rec, &cls)
		assert.Equal(t, "Biology", cls.Name)
		assert.Equal(t, f.teacher.ID, cls.TeacherID)

		rec = f.do(t, http.MethodGet, "/v1/classes", f.token(t, f.teacher), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var classes []gradebook.Class
		decode(t, rec, &classes)
		assert.Len(t, classes, 2)
	})

	t.Run("student lists attended classes", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/classes", f.token(t, f.alice), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var classes []gradebook.StudentClass
		decode(t, rec, &classes)
		require.Len(t, classes, 1)
		assert.Equal(t, f.class.ID, classes[0].ID)
		assert.Equal(t, grading.NoGrade, classes[0].Letter)
	})
}

func Test_classApi_roster(t *testing.T) {
	f := setup(t)
	token := f.token(t, f.teacher)

	t.Run("enroll", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, f.classPath("/students"), token, gradebook.Enroll{StudentEmail: " BOB@school.test "})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = f.do(t, http.MethodGet, f.classPath("/students"), token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var roster []gradebook.RosterEntry
		decode(t, rec, &roster)
		require.Len(t, roster, 2)
		assert.Equal(t, "Alice Smith", roster[0].Name)
		assert.Equal(t, "Bob Wilson", roster[1].Name)
	})

	tests := []struct {
		name  string
		email string
	}{
		{"already enrolled", f.alice.Email},
		{"unknown student", "nobody@school.test"},
		{"teacher account", f.other.Email},
		{"not an email", "bob"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, f.classPath("/students"), token, gradebook.Enroll{StudentEmail: tt.email})
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			var fields map[string]string
			decode(t, rec, &fields)
			assert.Contains(t, fields, "student_email")
		})
	}

	t.Run("unenroll", func(t *testing.T) {
		rec := f.do(t, http.MethodDelete, f.classPath("/students/"+f.bob.ID), token, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = f.do(t, http.MethodDelete, f.classPath("/students/"+f.bob.ID), token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("import roster", func(t *testing.T) {
		carol := testutil.CreateUser(t, f.users, "Carol Davis", "carol@school.test", "", user.RoleStudent)

		file := workbook(t, [][]interface{}{
			{"Email", "Name"},
			{f.bob.Email, "Bob Wilson"},
			{"CAROL@school.test", carol.Name},
			{f.alice.Email, "Alice Smith"},
			{"nobody@school.test", "Unknown"},
			{"", "no email"},
		})
		rec := f.upload(t, f.classPath("/students/import"), token, file)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res gradebook.ImportResult
		decode(t, rec, &res)
		assert.Equal(t, 2, res.Imported)
		assert.Equal(t, 2, res.Skipped)
		assert.Len(t, res.Errors, 2)
	})

	t.Run("import without file", func(t *testing.T) {
		rec := f.upload(t, f.classPath("/students/import"), token, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var fields map[string]string
		decode(t, rec, &fields)
		assert.Equal(t, "this field is required", fields["file"])
	})
}

func Test_classApi_categoriesAndAssignments(t *testing.T) {
	f := setup(t)
	token := f.token(t, f.teacher)

	rec := f.do(t, http.MethodPost, f.classPath("/categories"), token, gradebook.NewCategory{Name: "Homework", Weight: 0.4})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var hw grading.Category
	decode(t, rec, &hw)

	t.Run("weight out of range", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, f.classPath("/categories"), token, gradebook.NewCategory{Name: "Tests", Weight: 1.5})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var fields map[string]string
		decode(t, rec, &fields)
		assert.Contains(t, fields, "weight")
	})

	t.Run("unbalanced weights are reported", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, f.classPath("/categories"), token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var list gradebook.CategoryList
		decode(t, rec, &list)
		assert.Len(t, list.Categories, 1)
		assert.InDelta(t, 0.4, list.TotalWeight, 1e-9)
		assert.False(t, list.WeightsBalanced)
	})

	t.Run("update category", func(t *testing.T) {
		rec := f.do(t, http.MethodPut, f.classPath("/categories/"+hw.ID), token, gradebook.UpdateCategory{Name: "Homework", Weight: 1})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var cat grading.Category
		decode(t, rec, &cat)
		assert.Equal(t, 1.0, cat.Weight)

		rec = f.do(t, http.MethodPut, f.classPath("/categories/cat-unknown"), token, gradebook.UpdateCategory{Name: "X", Weight: 1})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	var asg grading.Assignment
	t.Run("add assignment", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, f.classPath("/assignments"), token, gradebook.NewAssignment{
			CategoryID: hw.ID, Title: "HW 1", Points: 10, DueDate: "2025-01-15",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &asg)
		assert.Equal(t, hw.ID, asg.CategoryID)

		rec = f.do(t, http.MethodPost, f.classPath("/assignments"), token, gradebook.NewAssignment{
			CategoryID: hw.ID, Title: "HW 2", Points: 0, DueDate: "15/01/2025",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var fields map[string]string
		decode(t, rec, &fields)
		assert.Contains(t, fields, "points")
		assert.Contains(t, fields, "due_date")
	})

	t.Run("students see assignments", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, f.classPath("/assignments"), f.token(t, f.alice), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var asgs []grading.Assignment
		decode(t, rec, &asgs)
		assert.Len(t, asgs, 1)
	})

	t.Run("category in use", func(t *testing.T) {
		rec := f.do(t, http.MethodDelete, f.classPath("/categories/"+hw.ID), token, nil)
		require.Equal(t, http.StatusConflict, rec.Code)
		var herr httpErr
		decode(t, rec, &herr)
		assert.Equal(t, gradebook.ErrCategoryInUse.Error(), herr.Error)
	})

	t.Run("delete assignment then category", func(t *testing.T) {
		rec := f.do(t, http.MethodDelete, f.classPath("/assignments/"+asg.ID), token, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)
		rec = f.do(t, http.MethodDelete, f.classPath("/categories/"+hw.ID), token, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func Test_classApi_attendance(t *testing.T) {
	f := setup(t)
	token := f.token(t, f.teacher)

	rec := f.do(t, http.MethodPut, f.classPath("/attendance"), token, gradebook.MarkAttendance{
		StudentID: f.alice.ID, Date: "2025-01-15", Status: "Absent",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	tests := []struct {
		name      string
		body      gradebook.MarkAttendance
		wantField string
	}{
		{"bad status", gradebook.MarkAttendance{StudentID: f.alice.ID, Date: "2025-01-15", Status: "sick"}, "status"},
		{"bad date", gradebook.MarkAttendance{StudentID: f.alice.ID, Date: "Jan 15", Status: "late"}, "date"},
		{"not enrolled", gradebook.MarkAttendance{StudentID: f.bob.ID, Date: "2025-01-15", Status: "late"}, "student_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPut, f.classPath("/attendance"), token, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			var fields map[string]string
			decode(t, rec, &fields)
			assert.Contains(t, fields, tt.wantField)
		})
	}

	t.Run("by date", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, f.classPath("/attendance?date=2025-01-15"), token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var entries []gradebook.AttendanceEntry
		decode(t, rec, &entries)
		require.Len(t, entries, 1)
		assert.Equal(t, gradebook.StatusAbsent, entries[0].Status)

		// no record means present
		rec = f.do(t, http.MethodGet, f.classPath("/attendance?date=2025-01-16"), token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		decode(t, rec, &entries)
		require.Len(t, entries, 1)
		assert.Equal(t, gradebook.StatusPresent, entries[0].Status)

		rec = f.do(t, http.MethodGet, f.classPath("/attendance?date=yesterday"), token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("summary", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, f.classPath("/attendance/summary"), token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var summary []gradebook.AttendanceSummary
		decode(t, rec, &summary)
		require.Len(t, summary, 1)
		assert.Equal(t, 1, summary[0].Absent)
		assert.Equal(t, 1, summary[0].Total)
	})
}

func Test_classApi_materialsAndDelete(t *testing.T) {
	f := setup(t)
	token := f.token(t, f.teacher)

	rec := f.do(t, http.MethodPost, f.classPath("/materials"), token, gradebook.NewMaterial{
		Title: "Chapter 1 Notes", URL: "https://school.test/ch1.pdf",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var mat gradebook.Material
	decode(t, rec, &mat)

	rec = f.do(t, http.MethodPost, f.classPath("/materials"), token, gradebook.NewMaterial{Title: "Bad", URL: "not a url"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, f.classPath("/materials"), f.token(t, f.alice), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var materials []gradebook.Material
	decode(t, rec, &materials)
	assert.Len(t, materials, 1)

	rec = f.do(t, http.MethodDelete, f.classPath("/materials/"+mat.ID), token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodDelete, f.classPath("/materials/"+mat.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, f.classPath(""), token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodGet, f.classPath(""), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
