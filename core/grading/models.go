// Package grading computes weighted grades from a snapshot of gradebook records.
//
// Every function is pure: it reads the Snapshot it is handed and nothing else. Callers
// that share a record store between goroutines must pass a copy taken under a read lock
// (see gradebook.Repository.LoadSnapshot).
package grading

import "github.com/volatiletech/null/v8"

// Category is a weighted grouping of assignments within one class.
// Weights nominally sum to 1.0 per class; this is not enforced.
type Category struct {
	ID      string  `json:"id" db:"id"`
	ClassID string  `json:"class_id" db:"class_id"`
	Name    string  `json:"name" db:"name"`
	Weight  float64 `json:"weight" db:"weight"`
}

// Assignment belongs to one class and exactly one category of that class.
type Assignment struct {
	ID         string  `json:"id" db:"id"`
	ClassID    string  `json:"class_id" db:"class_id"`
	CategoryID string  `json:"category_id" db:"category_id"`
	Title      string  `json:"title" db:"title"`
	Points     float64 `json:"points" db:"points"`
	DueDate    string  `json:"due_date" db:"due_date"` // YYYY-MM-DD
}

// Grade links one assignment to one student. An invalid Score means "ungraded".
type Grade struct {
	ID           string       `json:"id" db:"id"`
	AssignmentID string       `json:"assignment_id" db:"assignment_id"`
	StudentID    string       `json:"student_id" db:"student_id"`
	Score        null.Float64 `json:"score" db:"score"`
}

// Enrollment links one student to one class.
type Enrollment struct {
	ID        string `json:"id" db:"id"`
	ClassID   string `json:"class_id" db:"class_id"`
	StudentID string `json:"student_id" db:"student_id"`
}

// Snapshot is the complete, consistent set of records for one computation.
// Collections may hold records of other classes; they are filtered by class ID.
type Snapshot struct {
	Categories  []Category
	Assignments []Assignment
	Grades      []Grade
	Enrollments []Enrollment
}

type gradeKey struct {
	assignmentID string
	studentID    string
}

// gradeIndex maps (assignment, student) to a score. Later records win on duplicate pairs.
func (s Snapshot) gradeIndex() map[gradeKey]null.Float64 {
	idx := make(map[gradeKey]null.Float64, len(s.Grades))
	for _, g := range s.Grades {
		idx[gradeKey{g.AssignmentID, g.StudentID}] = g.Score
	}
	return idx
}

func (s Snapshot) classCategories(classID string) []Category {
	cats := make([]Category, 0)
	for _, c := range s.Categories {
		if c.ClassID == classID {
			cats = append(cats, c)
		}
	}
	return cats
}

func (s Snapshot) classAssignments(classID string) []Assignment {
	asgs := make([]Assignment, 0)
	for _, a := range s.Assignments {
		if a.ClassID == classID {
			asgs = append(asgs, a)
		}
	}
	return asgs
}

func (s Snapshot) classEnrollments(classID string) []Enrollment {
	enrs := make([]Enrollment, 0)
	for _, e := range s.Enrollments {
		if e.ClassID == classID {
			enrs = append(enrs, e)
		}
	}
	return enrs
}
