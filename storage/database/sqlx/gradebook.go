package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/ssriya/grader/core/gradebook"
	"github.com/ssriya/grader/core/grading"
)

const (
	classColumns      = "id, teacher_id, name, section, created_at"
	enrollmentColumns = "id, class_id, student_id"
	categoryColumns   = "id, class_id, name, weight"
	assignmentColumns = "id, class_id, category_id, title, points, due_date"
	gradeColumns      = "id, assignment_id, student_id, score"
	attendanceColumns = "id, class_id, student_id, date, status"
	materialColumns   = "id, class_id, title, description, url, upload_date"
)

type gradebookRepository struct {
	db           *sqlx.DB
	snapshotOpts *sql.TxOptions
}

func NewGradebookRepository(db *sqlx.DB) gradebook.Repository {
	repo := &gradebookRepository{db: db}
	if db.DriverName() == "postgres" {
		repo.snapshotOpts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return repo
}

// seqOf numbers a new row of table after the existing ones so listings keep insertion order.
func seqOf(table string) string {
	return "(SELECT COALESCE(MAX(seq), 0) + 1 FROM " + table + ")"
}

// get selects one row into dest, mapping sql.ErrNoRows to notFound.
func get(ctx context.Context, db sqlx.ExtContext, notFound error, dest interface{}, query string, args ...interface{}) error {
	if err := sqlx.GetContext(ctx, db, dest, db.Rebind(query), args...); err != nil {
		if err == sql.ErrNoRows && notFound != nil {
			return notFound
		}
		return errors.Wrap(err, "selecting row")
	}
	return nil
}

func selectAll(ctx context.Context, db sqlx.ExtContext, dest interface{}, query string, args ...interface{}) error {
	if err := sqlx.SelectContext(ctx, db, dest, db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "selecting rows")
	}
	return nil
}

// Classes

func (repo *gradebookRepository) CreateClass(ctx context.Context, cls gradebook.Class) (gradebook.Class, error) {
	_, err := exec(ctx, repo.db,
		"INSERT INTO classes ("+classColumns+") VALUES (?, ?, ?, ?, ?)",
		cls.ID, cls.TeacherID, cls.Name, cls.Section, cls.CreatedAt,
	)
	if err != nil {
		return gradebook.Class{}, errors.Wrap(err, "inserting class")
	}
	return cls, nil
}

func (repo *gradebookRepository) GetClass(ctx context.Context, id string) (gradebook.Class, error) {
	var cls gradebook.Class
	err := get(ctx, repo.db, gradebook.ErrClassNotFound, &cls, "SELECT "+classColumns+" FROM classes WHERE id = ?", id)
	cls.CreatedAt = cls.CreatedAt.UTC()
	return cls, err
}

func (repo *gradebookRepository) queryClasses(ctx context.Context, query string, args ...interface{}) ([]gradebook.Class, error) {
	classes := make([]gradebook.Class, 0)
	if err := selectAll(ctx, repo.db, &classes, query, args...); err != nil {
		return nil, err
	}
	for i := range classes {
		classes[i].CreatedAt = classes[i].CreatedAt.UTC()
	}
	return classes, nil
}

func (repo *gradebookRepository) QueryClassesByTeacher(ctx context.Context, teacherID string) ([]gradebook.Class, error) {
	return repo.queryClasses(ctx,
		"SELECT "+classColumns+" FROM classes WHERE teacher_id = ? ORDER BY created_at, id", teacherID,
	)
}

func (repo *gradebookRepository) QueryClassesByStudent(ctx context.Context, studentID string) ([]gradebook.Class, error) {
	return repo.queryClasses(ctx,
		`SELECT c.id, c.teacher_id, c.name, c.section, c.created_at FROM classes c
		JOIN enrollments e ON e.class_id = c.id
		WHERE e.student_id = ? ORDER BY c.created_at, c.id`, studentID,
	)
}

func (repo *gradebookRepository) UpdateClass(ctx context.Context, cls gradebook.Class) (gradebook.Class, error) {
	n, err := exec(ctx, repo.db, "UPDATE classes SET name = ?, section = ? WHERE id = ?", cls.Name, cls.Section, cls.ID)
	if err != nil {
		return gradebook.Class{}, errors.Wrap(err, "updating class")
	}
	if n == 0 {
		return gradebook.Class{}, gradebook.ErrClassNotFound
	}
	return repo.GetClass(ctx, cls.ID)
}

func (repo *gradebookRepository) DeleteClass(ctx context.Context, id string) error {
	return withTx(ctx, repo.db, nil, func(tx *sqlx.Tx) error {
		n, err := exec(ctx, tx, "DELETE FROM classes WHERE id = ?", id)
		if err != nil {
			return errors.Wrap(err, "deleting class")
		}
		if n == 0 {
			return gradebook.ErrClassNotFound
		}
		cascade := []string{
			"DELETE FROM grades WHERE assignment_id IN (SELECT id FROM assignments WHERE class_id = ?)",
			"DELETE FROM assignments WHERE class_id = ?",
			"DELETE FROM categories WHERE class_id = ?",
			"DELETE FROM enrollments WHERE class_id = ?",
			"DELETE FROM attendance WHERE class_id = ?",
			"DELETE FROM materials WHERE class_id = ?",
		}
		for _, q := range cascade {
			if _, err = exec(ctx, tx, q, id); err != nil {
				return errors.Wrap(err, "deleting class records")
			}
		}
		return nil
	})
}

// Enrollments

func (repo *gradebookRepository) CreateEnrollment(ctx context.Context, enr grading.Enrollment) (grading.Enrollment, error) {
	err := withTx(ctx, repo.db, nil, func(tx *sqlx.Tx) error {
		var count int
		err := get(ctx, tx, nil, &count,
			"SELECT COUNT(*) FROM enrollments WHERE class_id = ? AND student_id = ?", enr.ClassID, enr.StudentID,
		)
		if err != nil {
			return err
		}
		if count > 0 {
			return gradebook.ErrAlreadyEnrolled
		}
		_, err = exec(ctx, tx,
			"INSERT INTO enrollments (id, class_id, student_id, seq) VALUES (?, ?, ?, "+seqOf("enrollments")+")",
			enr.ID, enr.ClassID, enr.StudentID,
		)
		return errors.Wrap(err, "inserting enrollment")
	})
	if err != nil {
		return grading.Enrollment{}, err
	}
	return enr, nil
}

func (repo *gradebookRepository) GetEnrollment(ctx context.Context, classID, studentID string) (grading.Enrollment, error) {
	var enr grading.Enrollment
	err := get(ctx, repo.db, gradebook.ErrNotEnrolled, &enr,
		"SELECT "+enrollmentColumns+" FROM enrollments WHERE class_id = ? AND student_id = ?", classID, studentID,
	)
	return enr, err
}

func (repo *gradebookRepository) QueryEnrollments(ctx context.Context, classID string) ([]grading.Enrollment, error) {
	return queryEnrollments(ctx, repo.db, classID)
}

func queryEnrollments(ctx context.Context, db sqlx.ExtContext, classID string) ([]grading.Enrollment, error) {
	enrs := make([]grading.Enrollment, 0)
	err := selectAll(ctx, db, &enrs, "SELECT "+enrollmentColumns+" FROM enrollments WHERE class_id = ? ORDER BY seq", classID)
	return enrs, err
}

func (repo *gradebookRepository) DeleteEnrollment(ctx context.Context, classID, studentID string) error {
	n, err := exec(ctx, repo.db, "DELETE FROM enrollments WHERE class_id = ? AND student_id = ?", classID, studentID)
	if err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	if n == 0 {
		return gradebook.ErrNotEnrolled
	}
	return nil
}

// Categories

func (repo *gradebookRepository) CreateCategory(ctx context.Context, cat grading.Category) (grading.Category, error) {
	_, err := exec(ctx, repo.db,
		"INSERT INTO categories (id, class_id, name, weight, seq) VALUES (?, ?, ?, ?, "+seqOf("categories")+")",
		cat.ID, cat.ClassID, cat.Name, cat.Weight,
	)
	if err != nil {
		return grading.Category{}, errors.Wrap(err, "inserting category")
	}
	return cat, nil
}

func (repo *gradebookRepository) GetCategory(ctx context.Context, id string) (grading.Category, error) {
	var cat grading.Category
	err := get(ctx, repo.db, gradebook.ErrCategoryNotFound, &cat, "SELECT "+categoryColumns+" FROM categories WHERE id = ?", id)
	return cat, err
}

func (repo *gradebookRepository) QueryCategories(ctx context.Context, classID string) ([]grading.Category, error) {
	return queryCategories(ctx, repo.db, classID)
}

func queryCategories(ctx context.Context, db sqlx.ExtContext, classID string) ([]grading.Category, error) {
	cats := make([]grading.Category, 0)
	err := selectAll(ctx, db, &cats, "SELECT "+categoryColumns+" FROM categories WHERE class_id = ? ORDER BY seq", classID)
	return cats, err
}

func (repo *gradebookRepository) UpdateCategory(ctx context.Context, cat grading.Category) (grading.Category, error) {
	n, err := exec(ctx, repo.db, "UPDATE categories SET name = ?, weight = ? WHERE id = ?", cat.Name, cat.Weight, cat.ID)
	if err != nil {
		return grading.Category{}, errors.Wrap(err, "updating category")
	}
	if n == 0 {
		return grading.Category{}, gradebook.ErrCategoryNotFound
	}
	return repo.GetCategory(ctx, cat.ID)
}

func (repo *gradebookRepository) DeleteCategory(ctx context.Context, id string) error {
	n, err := exec(ctx, repo.db, "DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "deleting category")
	}
	if n == 0 {
		return gradebook.ErrCategoryNotFound
	}
	return nil
}

func (repo *gradebookRepository) CountAssignmentsByCategory(ctx context.Context, categoryID string) (int, error) {
	var count int
	err := get(ctx, repo.db, nil, &count, "SELECT COUNT(*) FROM assignments WHERE category_id = ?", categoryID)
	return count, err
}

// Assignments

func (repo *gradebookRepository) CreateAssignment(ctx context.Context, asg grading.Assignment) (grading.Assignment, error) {
	_, err := exec(ctx, repo.db,
		"INSERT INTO assignments (id, class_id, category_id, title, points, due_date, seq) VALUES (?, ?, ?, ?, ?, ?, "+
			seqOf("assignments")+")",
		asg.ID, asg.ClassID, asg.CategoryID, asg.Title, asg.Points, asg.DueDate,
	)
	if err != nil {
		return grading.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return asg, nil
}

func (repo *gradebookRepository) GetAssignment(ctx context.Context, id string) (grading.Assignment, error) {
	var asg grading.Assignment
	err := get(ctx, repo.db, gradebook.ErrAssignmentNotFound, &asg,
		"SELECT "+assignmentColumns+" FROM assignments WHERE id = ?", id,
	)
	return asg, err
}

func (repo *gradebookRepository) QueryAssignments(ctx context.Context, classID string) ([]grading.Assignment, error) {
	return queryAssignments(ctx, repo.db, classID)
}

func queryAssignments(ctx context.Context, db sqlx.ExtContext, classID string) ([]grading.Assignment, error) {
	asgs := make([]grading.Assignment, 0)
	err := selectAll(ctx, db, &asgs, "SELECT "+assignmentColumns+" FROM assignments WHERE class_id = ? ORDER BY seq", classID)
	return asgs, err
}

func (repo *gradebookRepository) DeleteAssignment(ctx context.Context, id string) error {
	return withTx(ctx, repo.db, nil, func(tx *sqlx.Tx) error {
		n, err := exec(ctx, tx, "DELETE FROM assignments WHERE id = ?", id)
		if err != nil {
			return errors.Wrap(err, "deleting assignment")
		}
		if n == 0 {
			return gradebook.ErrAssignmentNotFound
		}
		_, err = exec(ctx, tx, "DELETE FROM grades WHERE assignment_id = ?", id)
		return errors.Wrap(err, "deleting grades")
	})
}

// Grades

func (repo *gradebookRepository) UpsertGrade(ctx context.Context, grd grading.Grade) (grading.Grade, error) {
	var saved grading.Grade
	err := get(ctx, repo.db, nil, &saved,
		`INSERT INTO grades (`+gradeColumns+`) VALUES (?, ?, ?, ?)
		ON CONFLICT (assignment_id, student_id) DO UPDATE SET score = excluded.score
		RETURNING `+gradeColumns,
		grd.ID, grd.AssignmentID, grd.StudentID, grd.Score,
	)
	if err != nil {
		return grading.Grade{}, errors.Wrap(err, "upserting grade")
	}
	return saved, nil
}

func (repo *gradebookRepository) QueryGrades(ctx context.Context, classID string) ([]grading.Grade, error) {
	return queryGrades(ctx, repo.db, classID)
}

func queryGrades(ctx context.Context, db sqlx.ExtContext, classID string) ([]grading.Grade, error) {
	grades := make([]grading.Grade, 0)
	err := selectAll(ctx, db, &grades,
		`SELECT g.id, g.assignment_id, g.student_id, g.score FROM grades g
		JOIN assignments a ON a.id = g.assignment_id
		WHERE a.class_id = ? ORDER BY a.seq, g.student_id`, classID,
	)
	return grades, err
}

// Attendance

func (repo *gradebookRepository) UpsertAttendance(ctx context.Context, att gradebook.Attendance) (gradebook.Attendance, error) {
	var saved gradebook.Attendance
	err := get(ctx, repo.db, nil, &saved,
		`INSERT INTO attendance (`+attendanceColumns+`) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (class_id, student_id, date) DO UPDATE SET status = excluded.status
		RETURNING `+attendanceColumns,
		att.ID, att.ClassID, att.StudentID, att.Date, att.Status,
	)
	if err != nil {
		return gradebook.Attendance{}, errors.Wrap(err, "upserting attendance")
	}
	return saved, nil
}

func (repo *gradebookRepository) QueryAttendance(ctx context.Context, classID, date string) ([]gradebook.Attendance, error) {
	q := "SELECT " + attendanceColumns + " FROM attendance WHERE class_id = ?"
	args := []interface{}{classID}
	if date != "" {
		q += " AND date = ?"
		args = append(args, date)
	}
	records := make([]gradebook.Attendance, 0)
	err := selectAll(ctx, repo.db, &records, q+" ORDER BY date, student_id", args...)
	return records, err
}

// Materials

func (repo *gradebookRepository) CreateMaterial(ctx context.Context, mat gradebook.Material) (gradebook.Material, error) {
	_, err := exec(ctx, repo.db,
		"INSERT INTO materials ("+materialColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		mat.ID, mat.ClassID, mat.Title, mat.Description, mat.URL, mat.UploadDate,
	)
	if err != nil {
		return gradebook.Material{}, errors.Wrap(err, "inserting material")
	}
	return mat, nil
}

func (repo *gradebookRepository) GetMaterial(ctx context.Context, id string) (gradebook.Material, error) {
	var mat gradebook.Material
	err := get(ctx, repo.db, gradebook.ErrMaterialNotFound, &mat, "SELECT "+materialColumns+" FROM materials WHERE id = ?", id)
	mat.UploadDate = mat.UploadDate.UTC()
	return mat, err
}

func (repo *gradebookRepository) QueryMaterials(ctx context.Context, classID string) ([]gradebook.Material, error) {
	mats := make([]gradebook.Material, 0)
	if err := selectAll(ctx, repo.db, &mats,
		"SELECT "+materialColumns+" FROM materials WHERE class_id = ? ORDER BY upload_date, id", classID,
	); err != nil {
		return nil, err
	}
	for i := range mats {
		mats[i].UploadDate = mats[i].UploadDate.UTC()
	}
	return mats, nil
}

func (repo *gradebookRepository) DeleteMaterial(ctx context.Context, id string) error {
	n, err := exec(ctx, repo.db, "DELETE FROM materials WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "deleting material")
	}
	if n == 0 {
		return gradebook.ErrMaterialNotFound
	}
	return nil
}

// LoadSnapshot reads a class's records in one transaction.
func (repo *gradebookRepository) LoadSnapshot(ctx context.Context, classID string) (grading.Snapshot, error) {
	var snap grading.Snapshot
	err := withTx(ctx, repo.db, repo.snapshotOpts, func(tx *sqlx.Tx) error {
		var err error
		if snap.Categories, err = queryCategories(ctx, tx, classID); err != nil {
			return err
		}
		if snap.Assignments, err = queryAssignments(ctx, tx, classID); err != nil {
			return err
		}
		if snap.Grades, err = queryGrades(ctx, tx, classID); err != nil {
			return err
		}
		snap.Enrollments, err = queryEnrollments(ctx, tx, classID)
		return err
	})
	return snap, err
}
