package gradebook

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/ssriya/grader/core/grading"
)

type (
	StudentStanding struct {
		StudentID string         `json:"student_id"`
		Name      string         `json:"name"`
		Email     string         `json:"email"`
		Grade     null.Float64   `json:"grade"`
		Letter    grading.Letter `json:"letter"`
	}

	ClassReport struct {
		ClassID         string            `json:"class_id"`
		ClassName       string            `json:"class_name"`
		Students        []StudentStanding `json:"students"`
		Average         null.Float64      `json:"average"`
		AverageLetter   grading.Letter    `json:"average_letter"`
		StudentCount    int               `json:"student_count"`
		AssignmentCount int               `json:"assignment_count"`
		TotalWeight     float64           `json:"total_weight"`
		WeightsBalanced bool              `json:"weights_balanced"`
		GeneratedAt     time.Time         `json:"generated_at"`
	}

	AssignmentResult struct {
		AssignmentID string       `json:"assignment_id"`
		CategoryID   string       `json:"category_id"`
		Title        string       `json:"title"`
		Points       float64      `json:"points"`
		DueDate      string       `json:"due_date"`
		Score        null.Float64 `json:"score"`
		Percent      null.Float64 `json:"percent"`
	}

	StudentReport struct {
		ClassID     string                   `json:"class_id"`
		ClassName   string                   `json:"class_name"`
		StudentID   string                   `json:"student_id"`
		Grade       null.Float64             `json:"grade"`
		Letter      grading.Letter           `json:"letter"`
		Categories  []grading.CategoryResult `json:"categories"`
		Assignments []AssignmentResult       `json:"assignments"`
	}

	// StudentClass is a class seen from an enrolled student.
	StudentClass struct {
		Class
		Grade  null.Float64   `json:"grade"`
		Letter grading.Letter `json:"letter"`
	}

	// Gradebook is the full grid of a class: one row per student, one column per assignment.
	Gradebook struct {
		Report      ClassReport
		Assignments []grading.Assignment
		// Scores is keyed by student ID, then assignment ID.
		Scores map[string]map[string]null.Float64
	}

	EstimateResult struct {
		Current         null.Float64 `json:"current"`
		Desired         float64      `json:"desired"`
		RemainingWeight float64      `json:"remaining_weight"`
		Required        float64      `json:"required"`
	}
)

// ClassReport computes the grade of every enrolled student and the class average.
// Reports are served from the cache until the class is modified.
func (svc *Service) ClassReport(ctx context.Context, classID string) (ClassReport, error) {
	if rpt, ok, err := svc.cache.GetClassReport(ctx, classID); err != nil {
		svc.logger.Warn("reading report cache", err, map[string]interface{}{"class_id": classID})
	} else if ok {
		return rpt, nil
	}

	cls, err := svc.repo.GetClass(ctx, classID)
	if err != nil {
		return ClassReport{}, err
	}
	snap, err := svc.repo.LoadSnapshot(ctx, classID)
	if err != nil {
		return ClassReport{}, errors.Wrap(err, "loading snapshot")
	}
	rpt, err := svc.buildClassReport(ctx, cls, snap)
	if err != nil {
		return ClassReport{}, err
	}

	if err = svc.cache.SetClassReport(ctx, rpt); err != nil {
		svc.logger.Warn("writing report cache", err, map[string]interface{}{"class_id": classID})
	}
	return rpt, nil
}

// buildClassReport computes a class report from one snapshot of the class.
func (svc *Service) buildClassReport(ctx context.Context, cls Class, snap grading.Snapshot) (ClassReport, error) {
	students, err := svc.studentsByID(ctx, snap.Enrollments)
	if err != nil {
		return ClassReport{}, err
	}

	rpt := ClassReport{
		ClassID:         cls.ID,
		ClassName:       cls.Name,
		Students:        make([]StudentStanding, 0, len(snap.Enrollments)),
		StudentCount:    len(snap.Enrollments),
		AssignmentCount: len(snap.Assignments),
		TotalWeight:     grading.TotalWeight(cls.ID, snap),
		WeightsBalanced: grading.WeightsBalanced(cls.ID, snap),
		GeneratedAt:     time.Now().UTC(),
	}
	for _, enr := range snap.Enrollments {
		grade := grading.StudentGrade(enr.StudentID, cls.ID, snap)
		usr := students[enr.StudentID]
		rpt.Students = append(rpt.Students, StudentStanding{
			StudentID: enr.StudentID,
			Name:      usr.Name,
			Email:     usr.Email,
			Grade:     grade,
			Letter:    grading.LetterGrade(grade),
		})
	}
	rpt.Average = grading.ClassAverage(cls.ID, snap)
	rpt.AverageLetter = grading.LetterGrade(rpt.Average)
	return rpt, nil
}

// StudentReport details how a student's grade in a class is made up.
func (svc *Service) StudentReport(ctx context.Context, classID, studentID string) (StudentReport, error) {
	cls, err := svc.repo.GetClass(ctx, classID)
	if err != nil {
		return StudentReport{}, err
	}
	if _, err = svc.repo.GetEnrollment(ctx, classID, studentID); err != nil {
		return StudentReport{}, err
	}
	snap, err := svc.repo.LoadSnapshot(ctx, classID)
	if err != nil {
		return StudentReport{}, errors.Wrap(err, "loading snapshot")
	}

	grade := grading.StudentGrade(studentID, classID, snap)
	rpt := StudentReport{
		ClassID:     cls.ID,
		ClassName:   cls.Name,
		StudentID:   studentID,
		Grade:       grade,
		Letter:      grading.LetterGrade(grade),
		Categories:  grading.CategoryBreakdown(studentID, classID, snap),
		Assignments: make([]AssignmentResult, 0, len(snap.Assignments)),
	}
	for _, asg := range snap.Assignments {
		score := grading.AssignmentScore(asg.ID, studentID, snap)
		rpt.Assignments = append(rpt.Assignments, AssignmentResult{
			AssignmentID: asg.ID,
			CategoryID:   asg.CategoryID,
			Title:        asg.Title,
			Points:       asg.Points,
			DueDate:      asg.DueDate,
			Score:        score,
			Percent:      grading.AssignmentPercent(asg, score),
		})
	}
	return rpt, nil
}

// StudentClasses lists the classes a student is enrolled in with their current grade.
func (svc *Service) StudentClasses(ctx context.Context, studentID string) ([]StudentClass, error) {
	classes, err := svc.repo.QueryClassesByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	res := make([]StudentClass, 0, len(classes))
	for _, cls := range classes {
		snap, err := svc.repo.LoadSnapshot(ctx, cls.ID)
		if err != nil {
			return nil, errors.Wrap(err, "loading snapshot")
		}
		grade := grading.StudentGrade(studentID, cls.ID, snap)
		res = append(res, StudentClass{Class: cls, Grade: grade, Letter: grading.LetterGrade(grade)})
	}
	return res, nil
}

// Gradebook returns the class report with every recorded score. Both are read from the
// same snapshot, never from the report cache.
func (svc *Service) Gradebook(ctx context.Context, classID string) (Gradebook, error) {
	cls, err := svc.repo.GetClass(ctx, classID)
	if err != nil {
		return Gradebook{}, err
	}
	snap, err := svc.repo.LoadSnapshot(ctx, classID)
	if err != nil {
		return Gradebook{}, errors.Wrap(err, "loading snapshot")
	}
	rpt, err := svc.buildClassReport(ctx, cls, snap)
	if err != nil {
		return Gradebook{}, err
	}

	scores := make(map[string]map[string]null.Float64, len(snap.Enrollments))
	for _, enr := range snap.Enrollments {
		row := make(map[string]null.Float64, len(snap.Assignments))
		for _, asg := range snap.Assignments {
			row[asg.ID] = grading.AssignmentScore(asg.ID, enr.StudentID, snap)
		}
		scores[enr.StudentID] = row
	}
	return Gradebook{Report: rpt, Assignments: snap.Assignments, Scores: scores}, nil
}

// Estimate computes the score a student needs on the remaining work of a class to reach
// the desired grade, starting from their current grade.
func (svc *Service) Estimate(ctx context.Context, classID, studentID string, est Estimate) (EstimateResult, error) {
	if _, err := svc.repo.GetEnrollment(ctx, classID, studentID); err != nil {
		return EstimateResult{}, err
	}
	snap, err := svc.repo.LoadSnapshot(ctx, classID)
	if err != nil {
		return EstimateResult{}, errors.Wrap(err, "loading snapshot")
	}
	return EstimateFrom(grading.StudentGrade(studentID, classID, snap), est)
}

// EstimateFrom is Estimate for an arbitrary current grade.
func EstimateFrom(current null.Float64, est Estimate) (EstimateResult, error) {
	required, err := grading.EstimateRequiredScore(current, est.Desired, est.RemainingWeight)
	if err != nil {
		return EstimateResult{}, err
	}
	return EstimateResult{
		Current:         current,
		Desired:         est.Desired,
		RemainingWeight: est.RemainingWeight,
		Required:        required,
	}, nil
}
