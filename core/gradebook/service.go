// Package gradebook manages classes and their records, and reports grades computed by
// package grading.
package gradebook

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/ssriya/grader/core"
	"github.com/ssriya/grader/core/grading"
	"github.com/ssriya/grader/core/user"
)

type Service struct {
	repo     Repository
	students StudentDirectory
	cache    ReportCache
	logger   core.Logger
}

func NewService(repo Repository, students StudentDirectory, cache ReportCache, logger core.Logger) *Service {
	return &Service{
		repo:     repo,
		students: students,
		cache:    cache,
		logger:   logger,
	}
}

// invalidate drops the cached report of a class. Failures only cost a recomputation.
func (svc *Service) invalidate(ctx context.Context, classID string) {
	if err := svc.cache.Invalidate(ctx, classID); err != nil {
		svc.logger.Warn("invalidating report cache", err, map[string]interface{}{"class_id": classID})
	}
}

// Classes

func (svc *Service) CreateClass(ctx context.Context, teacherID string, nc NewClass) (Class, error) {
	return svc.repo.CreateClass(ctx, Class{
		ID:        core.NewID("cls"),
		TeacherID: teacherID,
		Name:      nc.Name,
		Section:   nc.Section,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) GetClass(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClass(ctx, id)
}

func (svc *Service) TeacherClasses(ctx context.Context, teacherID string) ([]Class, error) {
	return svc.repo.QueryClassesByTeacher(ctx, teacherID)
}

func (svc *Service) UpdateClass(ctx context.Context, id string, uc UpdateClass) (Class, error) {
	cls, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		return Class{}, err
	}
	cls.Name = uc.Name
	cls.Section = uc.Section
	if cls, err = svc.repo.UpdateClass(ctx, cls); err != nil {
		return Class{}, err
	}
	svc.invalidate(ctx, id)
	return cls, nil
}

// DeleteClass deletes the class with its enrollments, categories, assignments, grades,
// attendance and materials.
func (svc *Service) DeleteClass(ctx context.Context, id string) error {
	if err := svc.repo.DeleteClass(ctx, id); err != nil {
		return err
	}
	svc.invalidate(ctx, id)
	return nil
}

// Roster

type RosterEntry struct {
	EnrollmentID string `json:"enrollment_id"`
	StudentID    string `json:"student_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
}

// Enroll adds the student with the given email to a class.
func (svc *Service) Enroll(ctx context.Context, classID string, e Enroll) (grading.Enrollment, error) {
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		return grading.Enrollment{}, err
	}

	usr, err := svc.students.GetByEmail(ctx, e.StudentEmail)
	if err != nil || !usr.IsStudent() {
		if err == nil || errors.Cause(err) == user.ErrNotFound {
			return grading.Enrollment{}, core.NewValidationError(
				ErrStudentNotFound, core.FieldError{Field: "student_email", Error: ErrStudentNotFound.Error()},
			)
		}
		return grading.Enrollment{}, errors.Wrap(err, "finding student")
	}

	if _, err = svc.repo.GetEnrollment(ctx, classID, usr.ID); err == nil {
		return grading.Enrollment{}, core.NewValidationError(
			ErrAlreadyEnrolled, core.FieldError{Field: "student_email", Error: ErrAlreadyEnrolled.Error()},
		)
	} else if err != ErrNotEnrolled {
		return grading.Enrollment{}, errors.Wrap(err, "checking enrollment")
	}

	enr, err := svc.repo.CreateEnrollment(ctx, grading.Enrollment{
		ID:        core.NewID("enr"),
		ClassID:   classID,
		StudentID: usr.ID,
	})
	if err != nil {
		return grading.Enrollment{}, err
	}
	svc.invalidate(ctx, classID)
	return enr, nil
}

// EnrollMany enrolls every student email of an imported roster. Unknown students and
// existing enrollments are skipped and reported.
func (svc *Service) EnrollMany(ctx context.Context, classID string, emails []string) (ImportResult, error) {
	res := ImportResult{Errors: make([]string, 0)}
	for _, email := range emails {
		_, err := svc.Enroll(ctx, classID, Enroll{StudentEmail: core.CleanString(email, true /* lower */)})
		if err != nil {
			var vErr *core.ValidationError
			if !errors.As(err, &vErr) {
				return res, err
			}
			res.Skipped++
			res.Errors = append(res.Errors, email+": "+vErr.Error())
			continue
		}
		res.Imported++
	}
	return res, nil
}

func (svc *Service) Unenroll(ctx context.Context, classID, studentID string) error {
	if err := svc.repo.DeleteEnrollment(ctx, classID, studentID); err != nil {
		return err
	}
	svc.invalidate(ctx, classID)
	return nil
}

func (svc *Service) IsEnrolled(ctx context.Context, classID, studentID string) (bool, error) {
	if _, err := svc.repo.GetEnrollment(ctx, classID, studentID); err != nil {
		if err == ErrNotEnrolled {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (svc *Service) Roster(ctx context.Context, classID string) ([]RosterEntry, error) {
	enrs, err := svc.repo.QueryEnrollments(ctx, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	students, err := svc.studentsByID(ctx, enrs)
	if err != nil {
		return nil, err
	}

	roster := make([]RosterEntry, 0, len(enrs))
	for _, enr := range enrs {
		usr := students[enr.StudentID]
		roster = append(roster, RosterEntry{
			EnrollmentID: enr.ID,
			StudentID:    enr.StudentID,
			Name:         usr.Name,
			Email:        usr.Email,
		})
	}
	return roster, nil
}

func (svc *Service) studentsByID(ctx context.Context, enrs []grading.Enrollment) (map[string]user.User, error) {
	ids := make([]string, 0, len(enrs))
	for _, enr := range enrs {
		ids = append(ids, enr.StudentID)
	}
	users, err := svc.students.QueryByIDs(ctx, ids...)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	byID := make(map[string]user.User, len(users))
	for _, usr := range users {
		byID[usr.ID] = usr
	}
	return byID, nil
}

// Categories

type CategoryList struct {
	Categories      []grading.Category `json:"categories"`
	TotalWeight     float64            `json:"total_weight"`
	WeightsBalanced bool               `json:"weights_balanced"`
}

func (svc *Service) Categories(ctx context.Context, classID string) (CategoryList, error) {
	cats, err := svc.repo.QueryCategories(ctx, classID)
	if err != nil {
		return CategoryList{}, err
	}
	snap := grading.Snapshot{Categories: cats}
	return CategoryList{
		Categories:      cats,
		TotalWeight:     grading.TotalWeight(classID, snap),
		WeightsBalanced: grading.WeightsBalanced(classID, snap),
	}, nil
}

func (svc *Service) AddCategory(ctx context.Context, classID string, nc NewCategory) (grading.Category, error) {
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		return grading.Category{}, err
	}
	cat, err := svc.repo.CreateCategory(ctx, grading.Category{
		ID:      core.NewID("cat"),
		ClassID: classID,
		Name:    nc.Name,
		Weight:  nc.Weight,
	})
	if err != nil {
		return grading.Category{}, err
	}
	svc.invalidate(ctx, classID)
	return cat, nil
}

func (svc *Service) UpdateCategory(ctx context.Context, classID, id string, uc UpdateCategory) (grading.Category, error) {
	cat, err := svc.classCategory(ctx, classID, id)
	if err != nil {
		return grading.Category{}, err
	}
	cat.Name = uc.Name
	cat.Weight = uc.Weight
	if cat, err = svc.repo.UpdateCategory(ctx, cat); err != nil {
		return grading.Category{}, err
	}
	svc.invalidate(ctx, classID)
	return cat, nil
}

// DeleteCategory refuses to delete a category that still holds assignments.
func (svc *Service) DeleteCategory(ctx context.Context, classID, id string) error {
	if _, err := svc.classCategory(ctx, classID, id); err != nil {
		return err
	}
	n, err := svc.repo.CountAssignmentsByCategory(ctx, id)
	if err != nil {
		return errors.Wrap(err, "counting assignments")
	}
	if n > 0 {
		return ErrCategoryInUse
	}
	if err = svc.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	svc.invalidate(ctx, classID)
	return nil
}

func (svc *Service) classCategory(ctx context.Context, classID, id string) (grading.Category, error) {
	cat, err := svc.repo.GetCategory(ctx, id)
	if err != nil {
		return grading.Category{}, err
	}
	if cat.ClassID != classID {
		return grading.Category{}, ErrCategoryNotFound
	}
	return cat, nil
}

// Assignments

func (svc *Service) Assignments(ctx context.Context, classID string) ([]grading.Assignment, error) {
	return svc.repo.QueryAssignments(ctx, classID)
}

func (svc *Service) AddAssignment(ctx context.Context, classID string, na NewAssignment) (grading.Assignment, error) {
	if _, err := svc.classCategory(ctx, classID, na.CategoryID); err != nil {
		if err == ErrCategoryNotFound {
			return grading.Assignment{}, core.NewValidationError(
				err, core.FieldError{Field: "category_id", Error: err.Error()},
			)
		}
		return grading.Assignment{}, err
	}
	asg, err := svc.repo.CreateAssignment(ctx, grading.Assignment{
		ID:         core.NewID("asg"),
		ClassID:    classID,
		CategoryID: na.CategoryID,
		Title:      na.Title,
		Points:     na.Points,
		DueDate:    na.DueDate,
	})
	if err != nil {
		return grading.Assignment{}, err
	}
	svc.invalidate(ctx, classID)
	return asg, nil
}

// DeleteAssignment deletes the assignment and its grades.
func (svc *Service) DeleteAssignment(ctx context.Context, classID, id string) error {
	asg, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		return err
	}
	if asg.ClassID != classID {
		return ErrAssignmentNotFound
	}
	if err = svc.repo.DeleteAssignment(ctx, id); err != nil {
		return err
	}
	svc.invalidate(ctx, classID)
	return nil
}

// Grades

// SetGrade records (or clears, with a null score) a student's score on an assignment.
func (svc *Service) SetGrade(ctx context.Context, classID string, sg SetGrade) (grading.Grade, error) {
	asg, err := svc.repo.GetAssignment(ctx, sg.AssignmentID)
	if err != nil || asg.ClassID != classID {
		if err == nil || err == ErrAssignmentNotFound {
			return grading.Grade{}, core.NewValidationError(
				ErrAssignmentNotFound, core.FieldError{Field: "assignment_id", Error: ErrAssignmentNotFound.Error()},
			)
		}
		return grading.Grade{}, err
	}
	if _, err = svc.repo.GetEnrollment(ctx, classID, sg.StudentID); err != nil {
		if err == ErrNotEnrolled {
			return grading.Grade{}, core.NewValidationError(
				err, core.FieldError{Field: "student_id", Error: err.Error()},
			)
		}
		return grading.Grade{}, err
	}

	grd, err := svc.repo.UpsertGrade(ctx, grading.Grade{
		ID:           core.NewID("gr"),
		AssignmentID: sg.AssignmentID,
		StudentID:    sg.StudentID,
		Score:        sg.Score,
	})
	if err != nil {
		return grading.Grade{}, err
	}
	svc.invalidate(ctx, classID)
	return grd, nil
}

// ImportGrades sets many grades at once, matching rows by student email and assignment title.
// Rows that do not match an enrolled student or an assignment of the class are skipped.
func (svc *Service) ImportGrades(ctx context.Context, classID string, rows []GradeRow) (ImportResult, error) {
	res := ImportResult{Errors: make([]string, 0)}
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		return res, err
	}

	asgs, err := svc.repo.QueryAssignments(ctx, classID)
	if err != nil {
		return res, errors.Wrap(err, "querying assignments")
	}
	asgByTitle := make(map[string]grading.Assignment, len(asgs))
	for _, asg := range asgs {
		asgByTitle[core.CleanString(asg.Title, true /* lower */)] = asg
	}
	roster, err := svc.Roster(ctx, classID)
	if err != nil {
		return res, err
	}
	studentByEmail := make(map[string]string, len(roster))
	for _, entry := range roster {
		studentByEmail[core.CleanString(entry.Email, true /* lower */)] = entry.StudentID
	}

	skip := func(row GradeRow, reason string) {
		res.Skipped++
		res.Errors = append(res.Errors, row.StudentEmail+" / "+row.AssignmentTitle+": "+reason)
	}
	for _, row := range rows {
		studentID, ok := studentByEmail[core.CleanString(row.StudentEmail, true /* lower */)]
		if !ok {
			skip(row, ErrNotEnrolled.Error())
			continue
		}
		asg, ok := asgByTitle[core.CleanString(row.AssignmentTitle, true /* lower */)]
		if !ok {
			skip(row, ErrAssignmentNotFound.Error())
			continue
		}
		if row.Score.Valid && (math.IsNaN(row.Score.Float64) || math.IsInf(row.Score.Float64, 0)) {
			skip(row, ErrNonFiniteScore.Error())
			continue
		}
		_, err = svc.repo.UpsertGrade(ctx, grading.Grade{
			ID:           core.NewID("gr"),
			AssignmentID: asg.ID,
			StudentID:    studentID,
			Score:        row.Score,
		})
		if err != nil {
			return res, errors.Wrap(err, "saving grade")
		}
		res.Imported++
	}
	if res.Imported > 0 {
		svc.invalidate(ctx, classID)
	}
	return res, nil
}

// Attendance

type AttendanceEntry struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Date      string `json:"date"`
	Status    string `json:"status"`
}

type AttendanceSummary struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Present   int    `json:"present"`
	Absent    int    `json:"absent"`
	Late      int    `json:"late"`
	Total     int    `json:"total"`
}

func (svc *Service) MarkAttendance(ctx context.Context, classID string, ma MarkAttendance) (Attendance, error) {
	if _, err := svc.repo.GetEnrollment(ctx, classID, ma.StudentID); err != nil {
		if err == ErrNotEnrolled {
			return Attendance{}, core.NewValidationError(
				err, core.FieldError{Field: "student_id", Error: err.Error()},
			)
		}
		return Attendance{}, err
	}
	return svc.repo.UpsertAttendance(ctx, Attendance{
		ID:        core.NewID("att"),
		ClassID:   classID,
		StudentID: ma.StudentID,
		Date:      ma.Date,
		Status:    ma.Status,
	})
}

// AttendanceOn lists every enrolled student's status on date. Students without a record
// are present.
func (svc *Service) AttendanceOn(ctx context.Context, classID, date string) ([]AttendanceEntry, error) {
	roster, err := svc.Roster(ctx, classID)
	if err != nil {
		return nil, err
	}
	records, err := svc.repo.QueryAttendance(ctx, classID, date)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	statuses := make(map[string]string, len(records))
	for _, att := range records {
		statuses[att.StudentID] = att.Status
	}

	entries := make([]AttendanceEntry, 0, len(roster))
	for _, student := range roster {
		status, ok := statuses[student.StudentID]
		if !ok {
			status = StatusPresent
		}
		entries = append(entries, AttendanceEntry{
			StudentID: student.StudentID,
			Name:      student.Name,
			Date:      date,
			Status:    status,
		})
	}
	return entries, nil
}

// AttendanceSummary counts the recorded statuses of every enrolled student.
func (svc *Service) AttendanceSummary(ctx context.Context, classID string) ([]AttendanceSummary, error) {
	roster, err := svc.Roster(ctx, classID)
	if err != nil {
		return nil, err
	}
	records, err := svc.repo.QueryAttendance(ctx, classID, "")
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}

	summaries := make([]AttendanceSummary, 0, len(roster))
	for _, student := range roster {
		sum := AttendanceSummary{StudentID: student.StudentID, Name: student.Name}
		for _, att := range records {
			if att.StudentID != student.StudentID {
				continue
			}
			switch att.Status {
			case StatusPresent:
				sum.Present++
			case StatusAbsent:
				sum.Absent++
			case StatusLate:
				sum.Late++
			}
			sum.Total++
		}
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

// Materials

func (svc *Service) Materials(ctx context.Context, classID string) ([]Material, error) {
	return svc.repo.QueryMaterials(ctx, classID)
}

func (svc *Service) AddMaterial(ctx context.Context, classID string, nm NewMaterial) (Material, error) {
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		return Material{}, err
	}
	return svc.repo.CreateMaterial(ctx, Material{
		ID:          core.NewID("sm"),
		ClassID:     classID,
		Title:       nm.Title,
		Description: nm.Description,
		URL:         nm.URL,
		UploadDate:  time.Now().UTC(),
	})
}

func (svc *Service) DeleteMaterial(ctx context.Context, classID, id string) error {
	mat, err := svc.repo.GetMaterial(ctx, id)
	if err != nil {
		return err
	}
	if mat.ClassID != classID {
		return ErrMaterialNotFound
	}
	return svc.repo.DeleteMaterial(ctx, id)
}
