package student

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/colegio/core"
)

// Student (estudiante) is a person enrolled in the school.
// CourseID, TutorID and UserID are optional links to the student's course, tutor account and own account.
type Student struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	DNI       string    `json:"dni"`
	CourseID  string    `json:"course_id"`
	TutorID   string    `json:"tutor_id"`
	UserID    string    `json:"user_id"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName returns "LastName, FirstName", the order students are listed in.
func (s Student) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.LastName + ", " + s.FirstName
}

// ByName sorts students by last name then first name.
type ByName []Student

func (a ByName) Len() int      { return len(a) }
func (a ByName) Swap(i, j int) { a[i], a[j] = a[j], a[i] }
func (a ByName) Less(i, j int) bool {
	return strings.ToLower(a[i].FullName()) < strings.ToLower(a[j].FullName())
}

type NewStudent struct {
	FirstName string `json:"first_name" validate:"required,max=150"`
	LastName  string `json:"last_name" validate:"required,max=150"`
	DNI       string `json:"dni" validate:"required,dni"`
	CourseID  string `json:"course_id" validate:"omitempty,uuid"`
	TutorID   string `json:"tutor_id" validate:"omitempty,uuid"`
	UserID    string `json:"user_id" validate:"omitempty,uuid"`
}

func (ns *NewStudent) clean() {
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.DNI = core.CleanString(ns.DNI)
	ns.CourseID = core.CleanString(ns.CourseID)
	ns.TutorID = core.CleanString(ns.TutorID)
	ns.UserID = core.CleanString(ns.UserID)
}

func (ns *NewStudent) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	ns.clean()
	if err := validate.Struct(ns); err != nil {
		return err
	}
	s := Student{
		FirstName: ns.FirstName,
		LastName:  ns.LastName,
		DNI:       ns.DNI,
		CourseID:  ns.CourseID,
		TutorID:   ns.TutorID,
		UserID:    ns.UserID,
	}
	return svc.CheckStudent(ctx, s)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Nil links are kept; empty ones are removed.
type UpdateStudent struct {
	FirstName string  `json:"first_name" validate:"max=150"`
	LastName  string  `json:"last_name" validate:"max=150"`
	DNI       string  `json:"dni" validate:"omitempty,dni"`
	CourseID  *string `json:"course_id"`
	TutorID   *string `json:"tutor_id"`
	UserID    *string `json:"user_id"`
	IsActive  *bool   `json:"is_active"`
}

func (us *UpdateStudent) Validate(ctx context.Context, orig Student, validate *validator.Validate, svc Service) error {
	keep := func(val, origVal string) string {
		if val = core.CleanString(val); val != "" {
			return val
		}
		return origVal
	}
	link := func(val *string, origVal string) *string {
		if val == nil {
			return &origVal
		}
		v := core.CleanString(*val)
		return &v
	}
	us.FirstName = keep(us.FirstName, orig.FirstName)
	us.LastName = keep(us.LastName, orig.LastName)
	us.DNI = keep(us.DNI, orig.DNI)
	us.CourseID = link(us.CourseID, orig.CourseID)
	us.TutorID = link(us.TutorID, orig.TutorID)
	us.UserID = link(us.UserID, orig.UserID)

	if err := validate.Struct(us); err != nil {
		return err
	}
	s := Student{
		ID:        orig.ID,
		FirstName: us.FirstName,
		LastName:  us.LastName,
		DNI:       us.DNI,
		CourseID:  *us.CourseID,
		TutorID:   *us.TutorID,
		UserID:    *us.UserID,
	}
	return svc.CheckStudent(ctx, s)
}

type QueryFilter struct {
	Search   string   `query:"search"`
	CourseID string   `query:"course_id"`
	TutorID  string   `query:"tutor_id"`
	UserID   string   `query:"user_id"`
	IsActive *bool    `query:"is_active"`
	IDs      []string `query:"id"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
