package echoapi

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/colegio/core/course"
	"github.com/trezcool/colegio/core/student"
	"github.com/trezcool/colegio/core/user"
)

// Row level access rules shared by the student, course and attendance endpoints.

func isCourseTeacher(usr user.User, c course.Course) bool {
	return usr.IsTeacher() && c.TeacherID != "" && c.TeacherID == usr.ID
}

func canViewCourse(usr user.User, c course.Course) bool {
	return usr.IsAdmin() || isCourseTeacher(usr, c)
}

// canViewStudent lets through admins, the student's own account, their tutor and the teacher of their course.
func (s *Server) canViewStudent(ctx context.Context, usr user.User, st student.Student) (bool, error) {
	switch {
	case usr.IsAdmin():
		return true, nil
	case usr.IsStudent() && st.UserID == usr.ID:
		return true, nil
	case usr.IsTutor() && st.TutorID == usr.ID:
		return true, nil
	case usr.IsTeacher() && st.CourseID != "":
		c, err := s.deps.CourseSvc.GetByID(ctx, st.CourseID)
		if err != nil {
			if errors.Cause(err) == course.ErrNotFound {
				return false, nil
			}
			return false, errors.Wrap(err, "finding student course")
		}
		return isCourseTeacher(usr, c), nil
	}
	return false, nil
}

// courseMiddleware loads the Course of the `:id` path param as the context "object".
// Only admins and the course teacher get through.
func (s *Server) courseMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		c, err := s.deps.CourseSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == course.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding course by ID")
		}
		usr, err := getContextUser(ctx, s.deps.UserSvc)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		if !canViewCourse(usr, c) {
			return errHttpForbidden
		}
		ctx.Set("object", c)
		return next(ctx)
	}
}

// studentMiddleware loads the Student of the `:id` path param as the context "object".
// Only users allowed to view the student get through.
func (s *Server) studentMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		rctx := ctx.Request().Context()
		st, err := s.deps.StudentSvc.GetByID(rctx, ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == student.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding student by ID")
		}
		usr, err := getContextUser(ctx, s.deps.UserSvc)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		ok, err := s.canViewStudent(rctx, usr, st)
		if err != nil {
			return err
		}
		if !ok {
			return errHttpForbidden
		}
		ctx.Set("object", st)
		return next(ctx)
	}
}

// selfOrAdminMiddleware only lets admins and the user of the `:id` path param through.
func (s *Server) selfOrAdminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, err := getContextUser(ctx, s.deps.UserSvc)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		if usr.IsAdmin() || usr.ID == ctx.Param("id") {
			return next(ctx)
		}
		return errHttpForbidden
	}
}

func ctxObjectCourse(ctx echo.Context) (course.Course, error) {
	c, ok := ctx.Get("object").(course.Course)
	if !ok {
		return course.Course{}, errors.Wrap(errObjNotFoundInCtx, "retrieving course from context")
	}
	return c, nil
}

func ctxObjectStudent(ctx echo.Context) (student.Student, error) {
	st, ok := ctx.Get("object").(student.Student)
	if !ok {
		return student.Student{}, errors.Wrap(errObjNotFoundInCtx, "retrieving student from context")
	}
	return st, nil
}
