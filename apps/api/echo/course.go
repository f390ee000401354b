package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/colegio/core/course"
)

func (s *Server) registerCourseAPI(g *echo.Group) {
	admin := adminMiddleware()

	g.GET("/getAll", s.queryCourses, admin)
	g.GET("/docente/:id", s.queryTeacherCourses, s.selfOrAdminMiddleware)
	g.GET("/turnos", s.queryShifts)
	g.POST("/add", s.createCourse, admin)

	g.GET("/:id", s.retrieveCourse, s.courseMiddleware)
	g.PUT("/update/:id", s.updateCourse, admin, s.courseMiddleware)
	g.DELETE("/delete/:id", s.destroyCourse, admin, s.courseMiddleware)
}

// Handlers

func (s *Server) queryCourses(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return respondList(ctx, []course.Course{})
	}

	courses, err := s.deps.CourseSvc.Query(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return respondList(ctx, courses)
}

func (s *Server) queryTeacherCourses(ctx echo.Context) error {
	filter := course.QueryFilter{TeacherID: ctx.Param("id")}
	courses, err := s.deps.CourseSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying teacher courses")
	}
	return respondList(ctx, courses)
}

func (s *Server) queryShifts(ctx echo.Context) error {
	return respondList(ctx, course.Shifts)
}

func (s *Server) retrieveCourse(ctx echo.Context) error {
	c, err := ctxObjectCourse(ctx)
	if err != nil {
		return err
	}
	return respondData(ctx, http.StatusOK, c)
}

func (s *Server) createCourse(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(ctx.Request().Context(), s.deps.Validate, s.deps.CourseSvc); err != nil {
		return err
	}

	c, err := s.deps.CourseSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return respondData(ctx, http.StatusCreated, c)
}

func (s *Server) updateCourse(ctx echo.Context) error {
	c, err := ctxObjectCourse(ctx)
	if err != nil {
		return err
	}

	var data course.UpdateCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err = data.Validate(ctx.Request().Context(), c, s.deps.Validate, s.deps.CourseSvc); err != nil {
		return err
	}

	c, err = s.deps.CourseSvc.Update(ctx.Request().Context(), c, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return respondData(ctx, http.StatusOK, c)
}

func (s *Server) destroyCourse(ctx echo.Context) error {
	c, err := ctxObjectCourse(ctx)
	if err != nil {
		return err
	}
	if err = s.deps.CourseSvc.Delete(ctx.Request().Context(), c); err != nil {
		return err
	}
	return respondMessage(ctx, http.StatusOK, "course deleted")
}
