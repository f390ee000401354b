package course

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/colegio/core"
)

// Shifts (turnos)
const (
	ShiftMorning   = "MAÑANA"
	ShiftAfternoon = "TARDE"
	ShiftNight     = "NOCHE"
)

var Shifts = []string{ShiftMorning, ShiftAfternoon, ShiftNight}

// Course is a grade/section pair taught during a shift of a school year.
type Course struct {
	ID           string    `json:"id"`
	Grade        string    `json:"grade"`
	Section      string    `json:"section"`
	Shift        string    `json:"shift"`
	Year         int       `json:"year"`
	TeacherID    string    `json:"teacher_id"`
	TeacherName  string    `json:"teacher_name"`  // read-only
	StudentCount int       `json:"student_count"` // read-only
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Label returns the human name of the course, e.g. "3° B - MAÑANA".
func (c Course) Label() string {
	return fmt.Sprintf("%s %s - %s", c.Grade, c.Section, c.Shift)
}

type NewCourse struct {
	Grade     string `json:"grade" validate:"required,max=50"`
	Section   string `json:"section" validate:"required,max=10"`
	Shift     string `json:"shift" validate:"required,shift"`
	Year      int    `json:"year" validate:"omitempty,min=2000,max=2100"`
	TeacherID string `json:"teacher_id" validate:"omitempty,uuid"`
}

func (nc *NewCourse) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nc.Grade = core.CleanString(nc.Grade)
	nc.Section = core.CleanString(nc.Section)
	nc.Shift = core.CleanString(nc.Shift)
	nc.TeacherID = core.CleanString(nc.TeacherID)
	if nc.Year == 0 {
		nc.Year = core.NowFunc().Year()
	}

	if err := validate.Struct(nc); err != nil {
		return err
	}
	c := Course{Grade: nc.Grade, Section: nc.Section, Shift: nc.Shift, Year: nc.Year, TeacherID: nc.TeacherID}
	return svc.CheckCourse(ctx, c)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
// A nil TeacherID keeps the current teacher; an empty one unassigns it.
type UpdateCourse struct {
	Grade     string  `json:"grade" validate:"max=50"`
	Section   string  `json:"section" validate:"max=10"`
	Shift     string  `json:"shift" validate:"omitempty,shift"`
	Year      int     `json:"year" validate:"omitempty,min=2000,max=2100"`
	TeacherID *string `json:"teacher_id" validate:"omitempty"`
}

func (uc *UpdateCourse) Validate(ctx context.Context, orig Course, validate *validator.Validate, svc Service) error {
	if grade := core.CleanString(uc.Grade); grade != "" {
		uc.Grade = grade
	} else {
		uc.Grade = orig.Grade
	}
	if section := core.CleanString(uc.Section); section != "" {
		uc.Section = section
	} else {
		uc.Section = orig.Section
	}
	if shift := core.CleanString(uc.Shift); shift != "" {
		uc.Shift = shift
	} else {
		uc.Shift = orig.Shift
	}
	if uc.Year == 0 {
		uc.Year = orig.Year
	}
	if uc.TeacherID == nil {
		uc.TeacherID = &orig.TeacherID
	} else {
		tid := core.CleanString(*uc.TeacherID)
		uc.TeacherID = &tid
	}

	if err := validate.Struct(uc); err != nil {
		return err
	}
	c := Course{
		ID:        orig.ID,
		Grade:     uc.Grade,
		Section:   uc.Section,
		Shift:     uc.Shift,
		Year:      uc.Year,
		TeacherID: *uc.TeacherID,
	}
	return svc.CheckCourse(ctx, c)
}

type QueryFilter struct {
	TeacherID string `query:"teacher_id"`
	Year      int    `query:"year"`
}
