package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/colegio/core"
	"github.com/trezcool/colegio/core/user"
)

var (
	// errors
	ErrNotFound       = errors.New("course not found")
	ErrCourseExists   = errors.New("this course already exists for the year")
	ErrNotATeacher    = errors.New("the selected user is not an active teacher")
	ErrCourseNotEmpty = errors.New("the course still has students")
)

type (
	Repository interface {
		// CheckCourseUniqueness returns ErrCourseExists if another course has the same grade, section, shift and year.
		CheckCourseUniqueness(ctx context.Context, c Course) error
		CreateCourse(ctx context.Context, c Course) (Course, error)
		// QueryCourses returns courses with their teacher name and student count, sorted by year, grade and section.
		QueryCourses(ctx context.Context, filter QueryFilter) ([]Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		DeleteCourse(ctx context.Context, id string) error
	}

	Service interface {
		// CheckCourse validates the uniqueness of c and its teacher assignment.
		CheckCourse(ctx context.Context, c Course) error
		Create(ctx context.Context, nc NewCourse) (Course, error)
		Query(ctx context.Context, filter QueryFilter) ([]Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		Update(ctx context.Context, c Course, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, c Course) error
	}

	service struct {
		repo   Repository
		usrSvc user.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrSvc user.Service) Service {
	return &service{repo: repo, usrSvc: usrSvc}
}

func (svc *service) CheckCourse(ctx context.Context, c Course) error {
	if err := svc.repo.CheckCourseUniqueness(ctx, c); err != nil {
		if errors.Cause(err) == ErrCourseExists {
			return core.NewValidationError(err, core.FieldError{Field: "section", Error: err.Error()})
		}
		return errors.Wrap(err, "checking course uniqueness")
	}

	if c.TeacherID != "" {
		teacher, err := svc.usrSvc.GetByID(ctx, c.TeacherID)
		if err != nil && errors.Cause(err) != user.ErrNotFound {
			return errors.Wrap(err, "finding teacher")
		}
		if err != nil || !teacher.IsTeacher() || !teacher.IsActive {
			return core.NewValidationError(ErrNotATeacher, core.FieldError{Field: "teacher_id", Error: ErrNotATeacher.Error()})
		}
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	c := Course{
		Grade:     nc.Grade,
		Section:   nc.Section,
		Shift:     nc.Shift,
		Year:      nc.Year,
		TeacherID: nc.TeacherID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	c, err := svc.repo.CreateCourse(ctx, c)
	if err != nil {
		return Course{}, errors.Wrap(err, "creating course")
	}
	// reload the read-only projections
	return svc.repo.GetCourse(ctx, c.ID)
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, filter)
}

func (svc *service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *service) Update(ctx context.Context, c Course, uc UpdateCourse) (Course, error) {
	c.Grade = uc.Grade
	c.Section = uc.Section
	c.Shift = uc.Shift
	c.Year = uc.Year
	if uc.TeacherID != nil {
		c.TeacherID = *uc.TeacherID
	}
	c.UpdatedAt = time.Now().UTC()
	if _, err := svc.repo.UpdateCourse(ctx, c); err != nil {
		return Course{}, errors.Wrap(err, "updating course")
	}
	return svc.repo.GetCourse(ctx, c.ID)
}

// Delete removes c; courses with enrolled students cannot be deleted.
func (svc *service) Delete(ctx context.Context, c Course) error {
	if c.StudentCount > 0 {
		return core.NewValidationError(ErrCourseNotEmpty)
	}
	return svc.repo.DeleteCourse(ctx, c.ID)
}
