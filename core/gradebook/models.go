package gradebook

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/ssriya/grader/core"
)

// Attendance statuses
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
)

var AllStatuses = []string{StatusPresent, StatusAbsent, StatusLate}

type (
	Class struct {
		ID        string    `json:"id" db:"id"`
		TeacherID string    `json:"teacher_id" db:"teacher_id"`
		Name      string    `json:"name" db:"name"`
		Section   string    `json:"section" db:"section"`
		CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	}

	Attendance struct {
		ID        string `json:"id" db:"id"`
		ClassID   string `json:"class_id" db:"class_id"`
		StudentID string `json:"student_id" db:"student_id"`
		Date      string `json:"date" db:"date"` // YYYY-MM-DD
		Status    string `json:"status" db:"status"`
	}

	Material struct {
		ID          string    `json:"id" db:"id"`
		ClassID     string    `json:"class_id" db:"class_id"`
		Title       string    `json:"title" db:"title"`
		Description string    `json:"description" db:"description"`
		URL         string    `json:"url" db:"url"`
		UploadDate  time.Time `json:"upload_date" db:"upload_date"` // UTC
	}
)

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name    string `json:"name" validate:"required,notblank"`
	Section string `json:"section"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Section = core.CleanString(nc.Section)
	return validate.Struct(nc)
}

// UpdateClass contains information needed to update a Class.
type UpdateClass struct {
	Name    string `json:"name" validate:"required,notblank"`
	Section string `json:"section"`
}

func (uc *UpdateClass) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	uc.Section = core.CleanString(uc.Section)
	return validate.Struct(uc)
}

// NewCategory contains information needed to add a Category to a Class.
// Weight is a fraction of the final grade, e.g. 0.3 for 30%.
type NewCategory struct {
	Name   string  `json:"name" validate:"required,notblank"`
	Weight float64 `json:"weight" validate:"gte=0,lte=1"`
}

func (nc *NewCategory) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

type UpdateCategory struct {
	Name   string  `json:"name" validate:"required,notblank"`
	Weight float64 `json:"weight" validate:"gte=0,lte=1"`
}

func (uc *UpdateCategory) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	return validate.Struct(uc)
}

type NewAssignment struct {
	CategoryID string  `json:"category_id" validate:"required"`
	Title      string  `json:"title" validate:"required,notblank"`
	Points     float64 `json:"points" validate:"gt=0"`
	DueDate    string  `json:"due_date" validate:"isodate"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.CategoryID = core.CleanString(na.CategoryID)
	na.Title = core.CleanString(na.Title)
	na.DueDate = core.CleanString(na.DueDate)
	return validate.Struct(na)
}

// SetGrade records a score. A null Score marks the assignment as ungraded.
type SetGrade struct {
	AssignmentID string       `json:"assignment_id" validate:"required"`
	StudentID    string       `json:"student_id" validate:"required"`
	Score        null.Float64 `json:"score" validate:"omitempty,finitescore"`
}

func (sg *SetGrade) Validate(validate *validator.Validate) error {
	sg.AssignmentID = core.CleanString(sg.AssignmentID)
	sg.StudentID = core.CleanString(sg.StudentID)
	return validate.Struct(sg)
}

type Enroll struct {
	StudentEmail string `json:"student_email" validate:"required,email"`
}

func (e *Enroll) Validate(validate *validator.Validate) error {
	e.StudentEmail = core.CleanString(e.StudentEmail, true /* lower */)
	return validate.Struct(e)
}

type MarkAttendance struct {
	StudentID string `json:"student_id" validate:"required"`
	Date      string `json:"date" validate:"required,isodate"`
	Status    string `json:"status" validate:"required,attendancestatus"`
}

func (ma *MarkAttendance) Validate(validate *validator.Validate) error {
	ma.StudentID = core.CleanString(ma.StudentID)
	ma.Date = core.CleanString(ma.Date)
	ma.Status = core.CleanString(ma.Status, true /* lower */)
	return validate.Struct(ma)
}

type NewMaterial struct {
	Title       string `json:"title" validate:"required,notblank"`
	Description string `json:"description"`
	URL         string `json:"url" validate:"required,url"`
}

func (nm *NewMaterial) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	nm.Description = core.CleanString(nm.Description)
	nm.URL = core.CleanString(nm.URL)
	return validate.Struct(nm)
}

// Estimate asks for the score needed on the remaining work to reach a desired grade.
type Estimate struct {
	Desired         float64 `json:"desired" validate:"gte=0"`
	RemainingWeight float64 `json:"remaining_weight" validate:"gte=0,lte=1"`
}

func (e *Estimate) Validate(validate *validator.Validate) error {
	return validate.Struct(e)
}

// RosterRow is one student of an imported roster.
type RosterRow struct {
	Email string
	Name  string
}

// GradeRow is one imported score, keyed the way a teacher reads a spreadsheet.
type GradeRow struct {
	StudentEmail    string
	AssignmentTitle string
	Score           null.Float64
}

// ImportResult summarises a bulk import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}
