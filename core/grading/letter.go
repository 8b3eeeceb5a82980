package grading

import "github.com/volatiletech/null/v8"

// Letter is a letter grade, or NoGrade when no percentage could be computed.
type Letter string

const (
	LetterA Letter = "A"
	LetterB Letter = "B"
	LetterC Letter = "C"
	LetterD Letter = "D"
	LetterF Letter = "F"
	NoGrade Letter = "-"
)

var letterThresholds = []struct {
	min    float64
	letter Letter
}{
	{90, LetterA},
	{80, LetterB},
	{70, LetterC},
	{60, LetterD},
}

// LetterGrade maps a percentage to a letter using inclusive lower bounds 90/80/70/60.
func LetterGrade(percent null.Float64) Letter {
	if !percent.Valid {
		return NoGrade
	}
	for _, th := range letterThresholds {
		if percent.Float64 >= th.min {
			return th.letter
		}
	}
	return LetterF
}

// IsLetter reports whether l is one of A, B, C, D or F.
func (l Letter) IsLetter() bool {
	switch l {
	case LetterA, LetterB, LetterC, LetterD, LetterF:
		return true
	}
	return false
}
