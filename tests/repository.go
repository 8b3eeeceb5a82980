package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/ssriya/grader/core/gradebook"
	"github.com/ssriya/grader/core/grading"
	"github.com/ssriya/grader/core/user"
)

// RepositoryFactory returns fresh, empty repositories sharing one store.
type RepositoryFactory func(t *testing.T) (gradebook.Repository, user.Repository)

// RunRepositoryTests checks the behaviour every repository implementation must share.
func RunRepositoryTests(t *testing.T, newRepos RepositoryFactory) {
	t.Run("users", func(t *testing.T) { testUserRepository(t, newRepos) })
	t.Run("classes", func(t *testing.T) { testClasses(t, newRepos) })
	t.Run("cascades", func(t *testing.T) { testCascades(t, newRepos) })
	t.Run("upserts", func(t *testing.T) { testUpserts(t, newRepos) })
	t.Run("snapshot", func(t *testing.T) { testSnapshot(t, newRepos) })
}

func testUserRepository(t *testing.T, newRepos RepositoryFactory) {
	ctx := context.Background()
	_, users := newRepos(t)

	alice := CreateUser(t, users, "Alice Smith", "student@demo", "secret-pwd", user.RoleStudent)
	bob := CreateUser(t, users, "Bob Wilson", "bob@demo", "", user.RoleStudent)

	assert.Equal(t, user.ErrEmailExists, users.CheckEmailUniqueness(ctx, "student@demo"))
	assert.NoError(t, users.CheckEmailUniqueness(ctx, "student@demo", alice))
	assert.NoError(t, users.CheckEmailUniqueness(ctx, "carol@demo"))

	got, err := users.GetUserByEmail(ctx, "student@demo")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.Equal(t, []string{user.RoleStudent}, got.Roles)
	assert.NoError(t, got.CheckPassword("secret-pwd"))

	_, err = users.GetUserByID(ctx, "usr-missing")
	assert.Equal(t, user.ErrNotFound, err)

	found, err := users.QueryUsersByIDs(ctx, bob.ID, alice.ID, "usr-missing")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	bob.Name = "Robert Wilson"
	bob.Roles = []string{user.RoleStudent, user.RoleAdmin}
	bob.UpdatedAt = time.Now().UTC()
	updated, err := users.UpdateUser(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, "Robert Wilson", updated.Name)
	assert.True(t, updated.IsAdmin())
}

func testClasses(t *testing.T, newRepos RepositoryFactory) {
	ctx := context.Background()
	repo, _ := newRepos(t)

	now := time.Now().UTC().Truncate(time.Second)
	algebra, err := repo.CreateClass(ctx, gradebook.Class{ID: "cls-1", TeacherID: "tch-1", Name: "Algebra I", CreatedAt: now})
	require.NoError(t, err)
	_, err = repo.CreateClass(ctx, gradebook.Class{ID: "cls-2", TeacherID: "tch-1", Name: "Biology", CreatedAt: now.Add(time.Minute)})
	require.NoError(t, err)

	got, err := repo.GetClass(ctx, "cls-1")
	require.NoError(t, err)
	assert.Equal(t, algebra.Name, got.Name)
	assert.True(t, algebra.CreatedAt.Equal(got.CreatedAt), "CreatedAt = %v, want %v", got.CreatedAt, algebra.CreatedAt)

	_, err = repo.GetClass(ctx, "cls-missing")
	assert.Equal(t, gradebook.ErrClassNotFound, err)

	classes, err := repo.QueryClassesByTeacher(ctx, "tch-1")
	require.NoError(t, err)
	require.Len(t, classes, 2)
	assert.Equal(t, "cls-1", classes[0].ID)

	_, err = repo.CreateEnrollment(ctx, grading.Enrollment{ID: "enr-1", ClassID: "cls-2", StudentID: "stu-1"})
	require.NoError(t, err)
	_, err = repo.CreateEnrollment(ctx, grading.Enrollment{ID: "enr-2", ClassID: "cls-2", StudentID: "stu-1"})
	assert.Equal(t, gradebook.ErrAlreadyEnrolled, err)

	classes, err = repo.QueryClassesByStudent(ctx, "stu-1")
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, "cls-2", classes[0].ID)

	algebra.Section = "Period 2"
	updated, err := repo.UpdateClass(ctx, algebra)
	require.NoError(t, err)
	assert.Equal(t, "Period 2", updated.Section)

	assert.Equal(t, gradebook.ErrNotEnrolled, repo.DeleteEnrollment(ctx, "cls-1", "stu-1"))
	assert.NoError(t, repo.DeleteEnrollment(ctx, "cls-2", "stu-1"))
	_, err = repo.GetEnrollment(ctx, "cls-2", "stu-1")
	assert.Equal(t, gradebook.ErrNotEnrolled, err)
}

// seedClass creates cls-1 with one category, one assignment, one graded student,
// one attendance record and one material.
func seedClass(t *testing.T, repo gradebook.Repository) {
	ctx := context.Background()
	_, err := repo.CreateClass(ctx, gradebook.Class{ID: "cls-1", TeacherID: "tch-1", Name: "Algebra I", CreatedAt: time.Now().UTC()})
	require.NoError(t, err)
	_, err = repo.CreateEnrollment(ctx, grading.Enrollment{ID: "enr-1", ClassID: "cls-1", StudentID: "stu-1"})
	require.NoError(t, err)
	_, err = repo.CreateCategory(ctx, grading.Category{ID: "cat-1", ClassID: "cls-1", Name: "Homework", Weight: 1})
	require.NoError(t, err)
	_, err = repo.CreateAssignment(ctx, grading.Assignment{ID: "asg-1", ClassID: "cls-1", CategoryID: "cat-1", Title: "HW 1", Points: 10})
	require.NoError(t, err)
	_, err = repo.UpsertGrade(ctx, grading.Grade{ID: "gr-1", AssignmentID: "asg-1", StudentID: "stu-1", Score: null.Float64From(9)})
	require.NoError(t, err)
	_, err = repo.UpsertAttendance(ctx, gradebook.Attendance{ID: "att-1", ClassID: "cls-1", StudentID: "stu-1", Date: "2025-01-15", Status: gradebook.StatusLate})
	require.NoError(t, err)
	_, err = repo.CreateMaterial(ctx, gradebook.Material{ID: "sm-1", ClassID: "cls-1", Title: "Notes", URL: "#", UploadDate: time.Now().UTC()})
	require.NoError(t, err)
}

func testCascades(t *testing.T, newRepos RepositoryFactory) {
	ctx := context.Background()

	t.Run("delete assignment", func(t *testing.T) {
		repo, _ := newRepos(t)
		seedClass(t, repo)

		n, err := repo.CountAssignmentsByCategory(ctx, "cat-1")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		require.NoError(t, repo.DeleteAssignment(ctx, "asg-1"))
		grades, err := repo.QueryGrades(ctx, "cls-1")
		require.NoError(t, err)
		assert.Empty(t, grades)
		assert.Equal(t, gradebook.ErrAssignmentNotFound, repo.DeleteAssignment(ctx, "asg-1"))

		require.NoError(t, repo.DeleteCategory(ctx, "cat-1"))
		assert.Equal(t, gradebook.ErrCategoryNotFound, repo.DeleteCategory(ctx, "cat-1"))
	})

	t.Run("delete class", func(t *testing.T) {
		repo, _ := newRepos(t)
		seedClass(t, repo)

		require.NoError(t, repo.DeleteClass(ctx, "cls-1"))
		assert.Equal(t, gradebook.ErrClassNotFound, repo.DeleteClass(ctx, "cls-1"))

		enrs, err := repo.QueryEnrollments(ctx, "cls-1")
		require.NoError(t, err)
		assert.Empty(t, enrs)
		cats, err := repo.QueryCategories(ctx, "cls-1")
		require.NoError(t, err)
		assert.Empty(t, cats)
		_, err = repo.GetAssignment(ctx, "asg-1")
		assert.Equal(t, gradebook.ErrAssignmentNotFound, err)
		atts, err := repo.QueryAttendance(ctx, "cls-1", "")
		require.NoError(t, err)
		assert.Empty(t, atts)
		_, err = repo.GetMaterial(ctx, "sm-1")
		assert.Equal(t, gradebook.ErrMaterialNotFound, err)

		snap, err := repo.LoadSnapshot(ctx, "cls-1")
		require.NoError(t, err)
		assert.Empty(t, snap.Grades)
	})
}

func testUpserts(t *testing.T, newRepos RepositoryFactory) {
	ctx := context.Background()
	repo, _ := newRepos(t)
	seedClass(t, repo)

	grd, err := repo.UpsertGrade(ctx, grading.Grade{ID: "gr-2", AssignmentID: "asg-1", StudentID: "stu-1", Score: null.Float64{}})
	require.NoError(t, err)
	assert.Equal(t, "gr-1", grd.ID, "upsert keeps the existing record")
	assert.False(t, grd.Score.Valid)

	grades, err := repo.QueryGrades(ctx, "cls-1")
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.False(t, grades[0].Score.Valid)

	att, err := repo.UpsertAttendance(ctx, gradebook.Attendance{ID: "att-2", ClassID: "cls-1", StudentID: "stu-1", Date: "2025-01-15", Status: gradebook.StatusAbsent})
	require.NoError(t, err)
	assert.Equal(t, "att-1", att.ID)
	assert.Equal(t, gradebook.StatusAbsent, att.Status)

	_, err = repo.UpsertAttendance(ctx, gradebook.Attendance{ID: "att-3", ClassID: "cls-1", StudentID: "stu-1", Date: "2025-01-16", Status: gradebook.StatusPresent})
	require.NoError(t, err)

	onDay, err := repo.QueryAttendance(ctx, "cls-1", "2025-01-16")
	require.NoError(t, err)
	assert.Len(t, onDay, 1)
	all, err := repo.QueryAttendance(ctx, "cls-1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	cat, err := repo.UpdateCategory(ctx, grading.Category{ID: "cat-1", Name: "Homework", Weight: 0.4})
	require.NoError(t, err)
	assert.Equal(t, 0.4, cat.Weight)
	assert.Equal(t, "cls-1", cat.ClassID)
}

func testSnapshot(t *testing.T, newRepos RepositoryFactory) {
	ctx := context.Background()
	repo, _ := newRepos(t)
	seedClass(t, repo)

	// records of another class must stay out of the snapshot
	_, err := repo.CreateClass(ctx, gradebook.Class{ID: "cls-2", TeacherID: "tch-1", Name: "Biology", CreatedAt: time.Now().UTC()})
	require.NoError(t, err)
	_, err = repo.CreateCategory(ctx, grading.Category{ID: "cat-2", ClassID: "cls-2", Name: "Labs", Weight: 1})
	require.NoError(t, err)
	_, err = repo.CreateAssignment(ctx, grading.Assignment{ID: "asg-2", ClassID: "cls-2", CategoryID: "cat-2", Title: "Lab 1", Points: 50})
	require.NoError(t, err)
	_, err = repo.UpsertGrade(ctx, grading.Grade{ID: "gr-2", AssignmentID: "asg-2", StudentID: "stu-1", Score: null.Float64From(45)})
	require.NoError(t, err)

	snap, err := repo.LoadSnapshot(ctx, "cls-1")
	require.NoError(t, err)
	assert.Len(t, snap.Categories, 1)
	assert.Len(t, snap.Assignments, 1)
	assert.Len(t, snap.Grades, 1)
	assert.Len(t, snap.Enrollments, 1)

	grade := grading.StudentGrade("stu-1", "cls-1", snap)
	require.True(t, grade.Valid)
	assert.InDelta(t, 90.0, grade.Float64, 1e-9)
}
