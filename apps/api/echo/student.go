package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/colegio/core/student"
	"github.com/trezcool/colegio/core/user"
)

func (s *Server) registerStudentAPI(g *echo.Group) {
	admin := adminMiddleware()

	g.GET("/getAll", s.queryStudents, familyMiddleware(user.FamilyAdmin, user.FamilyTeacher))
	g.GET("/grado/:id", s.queryCourseStudents, s.courseMiddleware)
	g.GET("/tutor/:id", s.queryTutorStudents, s.selfOrAdminMiddleware)
	g.POST("/add", s.createStudent, admin)

	g.GET("/:id", s.retrieveStudent, s.studentMiddleware)
	g.PUT("/update/:id", s.updateStudent, admin, s.studentMiddleware)
	g.DELETE("/delete/:id", s.destroyStudent, admin, s.studentMiddleware)
}

// Handlers

func (s *Server) queryStudents(ctx echo.Context) error {
	filter := new(student.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return respondList(ctx, []student.Student{})
	}
	filter.Clean()

	students, err := s.deps.StudentSvc.Query(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return respondList(ctx, students)
}

func (s *Server) queryCourseStudents(ctx echo.Context) error {
	c, err := ctxObjectCourse(ctx)
	if err != nil {
		return err
	}
	students, err := s.deps.StudentSvc.ByCourse(ctx.Request().Context(), c.ID)
	if err != nil {
		return errors.Wrap(err, "querying course students")
	}
	return respondList(ctx, students)
}

func (s *Server) queryTutorStudents(ctx echo.Context) error {
	students, err := s.deps.StudentSvc.ByTutor(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying tutor students")
	}
	return respondList(ctx, students)
}

func (s *Server) retrieveStudent(ctx echo.Context) error {
	st, err := ctxObjectStudent(ctx)
	if err != nil {
		return err
	}
	return respondData(ctx, http.StatusOK, st)
}

func (s *Server) createStudent(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(ctx.Request().Context(), s.deps.Validate, s.deps.StudentSvc); err != nil {
		return err
	}

	st, err := s.deps.StudentSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return respondData(ctx, http.StatusCreated, st)
}

func (s *Server) updateStudent(ctx echo.Context) error {
	st, err := ctxObjectStudent(ctx)
	if err != nil {
		return err
	}

	var data student.UpdateStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err = data.Validate(ctx.Request().Context(), st, s.deps.Validate, s.deps.StudentSvc); err != nil {
		return err
	}

	st, err = s.deps.StudentSvc.Update(ctx.Request().Context(), st, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return respondData(ctx, http.StatusOK, st)
}

func (s *Server) destroyStudent(ctx echo.Context) error {
	st, err := ctxObjectStudent(ctx)
	if err != nil {
		return err
	}
	if err = s.deps.StudentSvc.Delete(ctx.Request().Context(), st.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return respondMessage(ctx, http.StatusOK, "student deleted")
}
