package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/colegio/core"
	"github.com/trezcool/colegio/core/attendance"
	"github.com/trezcool/colegio/core/course"
	"github.com/trezcool/colegio/core/user"
)

type AttendanceResponse struct {
	Date    string              `json:"date"`
	Records []attendance.Record `json:"records"`
}

type StudentSummaryResponse struct {
	attendance.Range
	attendance.Summary
}

type CourseSummaryResponse struct {
	attendance.Range
	Course    course.Course        `json:"course"`
	Summaries []attendance.Summary `json:"summaries"`
}

func (s *Server) registerAttendanceAPI(g *echo.Group) {
	g.POST("/add", s.recordAttendance, familyMiddleware(user.FamilyAdmin, user.FamilyTeacher))
	g.GET("/estados", s.queryStatuses)
	g.GET("/grado/:id", s.queryCourseAttendance, s.courseMiddleware)
	g.GET("/estudiante/:id", s.queryStudentAttendance, s.studentMiddleware)
	g.GET("/resumen/grado/:id", s.courseSummary, s.courseMiddleware)
	g.GET("/resumen/estudiante/:id", s.studentSummary, s.studentMiddleware)
}

// Handlers

func (s *Server) recordAttendance(ctx echo.Context) error {
	var data attendance.NewSheet
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSheet")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	c, err := s.deps.CourseSvc.GetByID(rctx, data.CourseID)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "course_id", Error: err.Error()})
		}
		return errors.Wrap(err, "finding course")
	}

	usr, err := getContextUser(ctx, s.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !canViewCourse(usr, c) {
		return errHttpForbidden
	}

	recs, err := s.deps.AttendanceSvc.Record(rctx, usr, c, data)
	if err != nil {
		return err
	}
	if s.deps.Metrics != nil {
		for _, rec := range recs {
			s.deps.Metrics.AttendanceRecorded(rec.Status)
		}
	}
	return respondData(ctx, http.StatusCreated, AttendanceResponse{Date: data.Date, Records: recs})
}

func (s *Server) queryStatuses(ctx echo.Context) error {
	return respondList(ctx, attendance.Statuses)
}

func (s *Server) queryCourseAttendance(ctx echo.Context) error {
	c, err := ctxObjectCourse(ctx)
	if err != nil {
		return err
	}
	date, err := bindDate(ctx)
	if err != nil {
		return err
	}

	recs, err := s.deps.AttendanceSvc.ByCourseAndDate(ctx.Request().Context(), c.ID, date)
	if err != nil {
		return errors.Wrap(err, "querying course attendance")
	}
	if recs == nil {
		recs = []attendance.Record{}
	}
	return respondData(ctx, http.StatusOK, AttendanceResponse{Date: date, Records: recs})
}

func (s *Server) queryStudentAttendance(ctx echo.Context) error {
	st, err := ctxObjectStudent(ctx)
	if err != nil {
		return err
	}
	rng, err := bindRange(ctx, true)
	if err != nil {
		return err
	}

	recs, err := s.deps.AttendanceSvc.ByStudent(ctx.Request().Context(), st.ID, rng)
	if err != nil {
		return errors.Wrap(err, "querying student attendance")
	}
	return respondList(ctx, recs)
}

func (s *Server) courseSummary(ctx echo.Context) error {
	c, err := ctxObjectCourse(ctx)
	if err != nil {
		return err
	}
	rng, err := bindRange(ctx, false)
	if err != nil {
		return err
	}

	sums, err := s.deps.AttendanceSvc.CourseSummary(ctx.Request().Context(), c, rng)
	if err != nil {
		return errors.Wrap(err, "summarizing course attendance")
	}
	return respondData(ctx, http.StatusOK, CourseSummaryResponse{Range: rng, Course: c, Summaries: sums})
}

func (s *Server) studentSummary(ctx echo.Context) error {
	st, err := ctxObjectStudent(ctx)
	if err != nil {
		return err
	}
	rng, err := bindRange(ctx, false)
	if err != nil {
		return err
	}

	sum, err := s.deps.AttendanceSvc.StudentSummary(ctx.Request().Context(), st, rng)
	if err != nil {
		return errors.Wrap(err, "summarizing student attendance")
	}
	return respondData(ctx, http.StatusOK, StudentSummaryResponse{Range: rng, Summary: sum})
}
