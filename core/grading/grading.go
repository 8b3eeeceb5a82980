package grading

import (
	"math"

	"github.com/volatiletech/null/v8"
)

// weightTolerance is how far category weights may drift from 1.0 and still count as balanced.
const weightTolerance = 0.01

// CategoryResult is one category's contribution to a student's grade.
type CategoryResult struct {
	CategoryID string       `json:"category_id"`
	Name       string       `json:"name"`
	Weight     float64      `json:"weight"`
	Earned     float64      `json:"earned"`
	Possible   float64      `json:"possible"`
	Graded     int          `json:"graded"`
	Percent    null.Float64 `json:"percent"`
	// Counted is false when the category has no graded work; its weight is then left out
	// of the weighted average instead of counting as zero.
	Counted bool `json:"counted"`
}

// CategoryBreakdown returns the per-category results of a student in a class,
// in the order the categories appear in the snapshot.
func CategoryBreakdown(studentID, classID string, snap Snapshot) []CategoryResult {
	grades := snap.gradeIndex()
	assignments := snap.classAssignments(classID)

	categories := snap.classCategories(classID)
	results := make([]CategoryResult, 0, len(categories))
	for _, cat := range categories {
		res := CategoryResult{CategoryID: cat.ID, Name: cat.Name, Weight: cat.Weight}
		for _, asg := range assignments {
			if asg.CategoryID != cat.ID {
				continue
			}
			score, ok := grades[gradeKey{asg.ID, studentID}]
			if !ok || !score.Valid {
				continue
			}
			res.Earned += score.Float64
			res.Possible += asg.Points
			res.Graded++
		}
		if res.Possible > 0 {
			res.Percent = null.Float64From(res.Earned / res.Possible * 100)
			res.Counted = true
		}
		results = append(results, res)
	}
	return results
}

// StudentGrade returns the weighted percentage of a student in a class.
// Only categories holding graded work are averaged; the result is absent (invalid)
// when no category has any, or when their weights sum to zero or less.
func StudentGrade(studentID, classID string, snap Snapshot) null.Float64 {
	var weightedSum, weightTotal float64
	for _, res := range CategoryBreakdown(studentID, classID, snap) {
		if !res.Counted {
			continue
		}
		weightedSum += (res.Earned / res.Possible) * res.Weight
		weightTotal += res.Weight
	}
	if weightTotal <= 0 {
		return null.Float64{}
	}
	return null.Float64From((weightedSum / weightTotal) * 100)
}

// ClassAverage returns the unweighted mean of the computable grades of the students
// enrolled in a class. Students without a grade are skipped.
func ClassAverage(classID string, snap Snapshot) null.Float64 {
	var sum float64
	var count int
	for _, enr := range snap.classEnrollments(classID) {
		grade := StudentGrade(enr.StudentID, classID, snap)
		if !grade.Valid {
			continue
		}
		sum += grade.Float64
		count++
	}
	if count == 0 {
		return null.Float64{}
	}
	return null.Float64From(sum / float64(count))
}

// AssignmentScore returns the raw score of a student on an assignment.
func AssignmentScore(assignmentID, studentID string, snap Snapshot) null.Float64 {
	score, ok := snap.gradeIndex()[gradeKey{assignmentID, studentID}]
	if !ok {
		return null.Float64{}
	}
	return score
}

// AssignmentPercent converts a score on an assignment to a percentage.
func AssignmentPercent(asg Assignment, score null.Float64) null.Float64 {
	if !score.Valid || asg.Points <= 0 {
		return null.Float64{}
	}
	return null.Float64From(score.Float64 / asg.Points * 100)
}

// TotalWeight sums the weights of a class's categories.
func TotalWeight(classID string, snap Snapshot) float64 {
	var total float64
	for _, cat := range snap.classCategories(classID) {
		total += cat.Weight
	}
	return total
}

// WeightsBalanced reports whether a class's category weights sum to 1.0.
func WeightsBalanced(classID string, snap Snapshot) bool {
	return math.Abs(TotalWeight(classID, snap)-1) <= weightTolerance
}
