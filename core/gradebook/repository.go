package gradebook

import (
	"context"
	"errors"

	"github.com/ssriya/grader/core/grading"
	"github.com/ssriya/grader/core/user"
)

var (
	// errors
	ErrClassNotFound      = errors.New("class not found")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrMaterialNotFound   = errors.New("material not found")
	ErrStudentNotFound    = errors.New("student not found")
	ErrNotEnrolled        = errors.New("student is not enrolled in this class")
	ErrAlreadyEnrolled    = errors.New("student already enrolled")
	ErrCategoryInUse      = errors.New("cannot delete category with existing assignments")
	ErrNonFiniteScore     = errors.New("score must be a finite number")
)

type (
	// Repository persists gradebook records. Implementations must be safe for concurrent use.
	Repository interface {
		CreateClass(ctx context.Context, cls Class) (Class, error)
		GetClass(ctx context.Context, id string) (Class, error)
		QueryClassesByTeacher(ctx context.Context, teacherID string) ([]Class, error)
		QueryClassesByStudent(ctx context.Context, studentID string) ([]Class, error)
		UpdateClass(ctx context.Context, cls Class) (Class, error)
		// DeleteClass removes the class and everything attached to it.
		DeleteClass(ctx context.Context, id string) error

		CreateEnrollment(ctx context.Context, enr grading.Enrollment) (grading.Enrollment, error)
		GetEnrollment(ctx context.Context, classID, studentID string) (grading.Enrollment, error)
		QueryEnrollments(ctx context.Context, classID string) ([]grading.Enrollment, error)
		DeleteEnrollment(ctx context.Context, classID, studentID string) error

		CreateCategory(ctx context.Context, cat grading.Category) (grading.Category, error)
		GetCategory(ctx context.Context, id string) (grading.Category, error)
		QueryCategories(ctx context.Context, classID string) ([]grading.Category, error)
		UpdateCategory(ctx context.Context, cat grading.Category) (grading.Category, error)
		DeleteCategory(ctx context.Context, id string) error
		CountAssignmentsByCategory(ctx context.Context, categoryID string) (int, error)

		CreateAssignment(ctx context.Context, asg grading.Assignment) (grading.Assignment, error)
		GetAssignment(ctx context.Context, id string) (grading.Assignment, error)
		QueryAssignments(ctx context.Context, classID string) ([]grading.Assignment, error)
		// DeleteAssignment removes the assignment and its grades.
		DeleteAssignment(ctx context.Context, id string) error

		// UpsertGrade creates or replaces the grade of (AssignmentID, StudentID).
		UpsertGrade(ctx context.Context, grd grading.Grade) (grading.Grade, error)
		QueryGrades(ctx context.Context, classID string) ([]grading.Grade, error)

		// UpsertAttendance creates or replaces the record of (ClassID, StudentID, Date).
		UpsertAttendance(ctx context.Context, att Attendance) (Attendance, error)
		// QueryAttendance lists a class's records on date, or all of them if date is empty.
		QueryAttendance(ctx context.Context, classID, date string) ([]Attendance, error)

		CreateMaterial(ctx context.Context, mat Material) (Material, error)
		GetMaterial(ctx context.Context, id string) (Material, error)
		QueryMaterials(ctx context.Context, classID string) ([]Material, error)
		DeleteMaterial(ctx context.Context, id string) error

		// LoadSnapshot returns a consistent copy of the records the aggregator reads for a class.
		LoadSnapshot(ctx context.Context, classID string) (grading.Snapshot, error)
	}

	// StudentDirectory resolves the users behind enrollments. Satisfied by *user.Service.
	StudentDirectory interface {
		GetByEmail(ctx context.Context, email string) (user.User, error)
		QueryByIDs(ctx context.Context, ids ...string) ([]user.User, error)
		Save(ctx context.Context, usr user.User) (user.User, error)
	}

	// ReportCache keeps computed class reports between mutations.
	ReportCache interface {
		GetClassReport(ctx context.Context, classID string) (ClassReport, bool, error)
		SetClassReport(ctx context.Context, rpt ClassReport) error
		Invalidate(ctx context.Context, classID string) error
	}
)
