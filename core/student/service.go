package student

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/colegio/core"
	"github.com/trezcool/colegio/core/course"
	"github.com/trezcool/colegio/core/user"
)

var (
	// errors
	ErrNotFound       = errors.New("student not found")
	ErrDNIExists      = errors.New("a student with this DNI already exists")
	ErrUserLinked     = errors.New("this account is already linked to another student")
	ErrCourseNotFound = errors.New("course not found")
	ErrNotATutor      = errors.New("the selected user is not an active tutor")
	ErrNotAStudent    = errors.New("the selected user is not an active student account")
)

type (
	Repository interface {
		// CheckStudentUniqueness returns ErrDNIExists or ErrUserLinked if a student other than s already
		// owns its DNI or user account.
		CheckStudentUniqueness(ctx context.Context, s Student) error
		CreateStudent(ctx context.Context, s Student) (Student, error)
		// QueryStudents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of FirstName, LastName or DNI.
		QueryStudents(ctx context.Context, filter QueryFilter) ([]Student, error)
		GetStudent(ctx context.Context, id string) (Student, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		DeleteStudent(ctx context.Context, id string) error
	}

	Service interface {
		// CheckStudent validates the uniqueness of s and its course, tutor and user links.
		CheckStudent(ctx context.Context, s Student) error
		Create(ctx context.Context, ns NewStudent) (Student, error)
		// Query returns students sorted by name.
		Query(ctx context.Context, filter QueryFilter) ([]Student, error)
		GetByID(ctx context.Context, id string) (Student, error)
		ByCourse(ctx context.Context, courseID string) ([]Student, error)
		ByTutor(ctx context.Context, tutorID string) ([]Student, error)
		ByUser(ctx context.Context, userID string) (Student, error)
		Update(ctx context.Context, s Student, us UpdateStudent) (Student, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		repo      Repository
		courseSvc course.Service
		usrSvc    user.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, courseSvc course.Service, usrSvc user.Service) Service {
	return &service{repo: repo, courseSvc: courseSvc, usrSvc: usrSvc}
}

func (svc *service) CheckStudent(ctx context.Context, s Student) error {
	if err := svc.repo.CheckStudentUniqueness(ctx, s); err != nil {
		switch errors.Cause(err) {
		case ErrDNIExists:
			return core.NewValidationError(err, core.FieldError{Field: "dni", Error: err.Error()})
		case ErrUserLinked:
			return core.NewValidationError(err, core.FieldError{Field: "user_id", Error: err.Error()})
		default:
			return errors.Wrap(err, "checking student uniqueness")
		}
	}

	if s.CourseID != "" {
		if _, err := svc.courseSvc.GetByID(ctx, s.CourseID); err != nil {
			if errors.Cause(err) != course.ErrNotFound {
				return errors.Wrap(err, "finding course")
			}
			return core.NewValidationError(ErrCourseNotFound, core.FieldError{Field: "course_id", Error: ErrCourseNotFound.Error()})
		}
	}

	checkUser := func(id, field string, errWrongRole error, hasRole func(u *user.User) bool) error {
		if id == "" {
			return nil
		}
		usr, err := svc.usrSvc.GetByID(ctx, id)
		if err != nil && errors.Cause(err) != user.ErrNotFound {
			return errors.Wrap(err, "finding user")
		}
		if err != nil || !usr.IsActive || !hasRole(&usr) {
			return core.NewValidationError(errWrongRole, core.FieldError{Field: field, Error: errWrongRole.Error()})
		}
		return nil
	}
	if err := checkUser(s.TutorID, "tutor_id", ErrNotATutor, (*user.User).IsTutor); err != nil {
		return err
	}
	return checkUser(s.UserID, "user_id", ErrNotAStudent, (*user.User).IsStudent)
}

func (svc *service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	now := time.Now().UTC()
	s := Student{
		FirstName: ns.FirstName,
		LastName:  ns.LastName,
		DNI:       ns.DNI,
		CourseID:  ns.CourseID,
		TutorID:   ns.TutorID,
		UserID:    ns.UserID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s, err := svc.repo.CreateStudent(ctx, s)
	return s, errors.Wrap(err, "creating student")
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Student, error) {
	students, err := svc.repo.QueryStudents(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	sort.Stable(ByName(students))
	return students, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *service) ByCourse(ctx context.Context, courseID string) ([]Student, error) {
	return svc.Query(ctx, QueryFilter{CourseID: courseID})
}

func (svc *service) ByTutor(ctx context.Context, tutorID string) ([]Student, error) {
	return svc.Query(ctx, QueryFilter{TutorID: tutorID})
}

func (svc *service) ByUser(ctx context.Context, userID string) (Student, error) {
	students, err := svc.repo.QueryStudents(ctx, QueryFilter{UserID: userID})
	if err != nil {
		return Student{}, errors.Wrap(err, "querying students")
	}
	if len(students) == 0 {
		return Student{}, ErrNotFound
	}
	return students[0], nil
}

func (svc *service) Update(ctx context.Context, s Student, us UpdateStudent) (Student, error) {
	s.FirstName = us.FirstName
	s.LastName = us.LastName
	s.DNI = us.DNI
	if us.CourseID != nil {
		s.CourseID = *us.CourseID
	}
	if us.TutorID != nil {
		s.TutorID = *us.TutorID
	}
	if us.UserID != nil {
		s.UserID = *us.UserID
	}
	if us.IsActive != nil {
		s.IsActive = *us.IsActive
	}
	s.UpdatedAt = time.Now().UTC()
	s, err := svc.repo.UpdateStudent(ctx, s)
	return s, errors.Wrap(err, "updating student")
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteStudent(ctx, id)
}
