package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/colegio/core"
)

// Statuses
const (
	StatusPresent = "PRESENTE"
	StatusAbsent  = "AUSENTE"
	StatusLate    = "TARDE"
	StatusExcused = "JUSTIFICADO"
)

var Statuses = []string{StatusPresent, StatusAbsent, StatusLate, StatusExcused}

// IsStatus reports whether s is a known attendance status.
func IsStatus(s string) bool {
	for _, status := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// Record is the attendance of one student on one day; there is at most one Record per student and date.
type Record struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	CourseID   string    `json:"course_id"`
	Date       string    `json:"date"` // YYYY-MM-DD
	Status     string    `json:"status"`
	Note       string    `json:"note"`
	RecordedBy string    `json:"recorded_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Entry is the status of one student in a NewSheet.
type Entry struct {
	StudentID string `json:"student_id" validate:"required"`
	Status    string `json:"status" validate:"required,attstatus"`
	Note      string `json:"note" validate:"max=500"`
}

// NewSheet is the same-day attendance of a course.
type NewSheet struct {
	CourseID string  `json:"course_id" validate:"required"`
	Date     string  `json:"date" validate:"omitempty,isodate"`
	Records  []Entry `json:"records" validate:"required,min=1,dive"`
}

// Validate cleans the sheet and checks its fields; Date defaults to today and cannot be in the future.
func (ns *NewSheet) Validate(validate *validator.Validate) error {
	ns.CourseID = core.CleanString(ns.CourseID)
	ns.Date = core.CleanString(ns.Date)
	if ns.Date == "" {
		ns.Date = core.Today()
	}
	for i := range ns.Records {
		ns.Records[i].StudentID = core.CleanString(ns.Records[i].StudentID)
		ns.Records[i].Status = core.CleanString(ns.Records[i].Status)
		ns.Records[i].Note = core.CleanString(ns.Records[i].Note)
	}

	if err := validate.Struct(ns); err != nil {
		return err
	}
	if ns.Date > core.Today() {
		return core.NewValidationError(ErrFutureDate, core.FieldError{Field: "date", Error: ErrFutureDate.Error()})
	}
	return nil
}

type QueryFilter struct {
	CourseID   string
	StudentIDs []string
	Date       string
	From       string
	To         string
}
