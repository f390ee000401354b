package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/trezcool/colegio/core/attendance"
	"github.com/trezcool/colegio/core/course"
)

const attendancePath = "/asistencia"

type (
	// DaySheet is the attendance of a course on one day.
	DaySheet struct {
		Date    string              `json:"date"`
		Records []attendance.Record `json:"records"`
	}

	StudentSummary struct {
		attendance.Range
		attendance.Summary
	}

	CourseSummary struct {
		attendance.Range
		Course    course.Course        `json:"course"`
		Summaries []attendance.Summary `json:"summaries"`
	}

	// Attendance is the attendance (asistencia) module.
	Attendance struct{ c *Client }
)

func (c *Client) Attendance() Attendance { return Attendance{c} }

func rangeValues(rng attendance.Range) url.Values {
	q := make(url.Values)
	if rng.From != "" {
		q.Set("desde", rng.From)
	}
	if rng.To != "" {
		q.Set("hasta", rng.To)
	}
	return q
}

// Record submits the attendance of a course for one day; records already taken that day are updated.
func (m Attendance) Record(ctx context.Context, sheet attendance.NewSheet) (DaySheet, error) {
	day, err := sendData[DaySheet](ctx, m.c, http.MethodPost, attendancePath+"/add", sheet, attendancePath)
	return day, errors.Wrap(err, "recording attendance")
}

func (m Attendance) Statuses(ctx context.Context) ([]string, error) {
	statuses, err := getList[string](ctx, m.c, attendancePath+"/estados", nil)
	return statuses, errors.Wrap(err, "querying attendance statuses")
}

// ByCourse returns the attendance of a course on date; an empty date means today.
func (m Attendance) ByCourse(ctx context.Context, courseID, date string) (DaySheet, error) {
	var q url.Values
	if date != "" {
		q = url.Values{"fecha": {date}}
	}
	day, err := getData[DaySheet](ctx, m.c, attendancePath+"/grado/"+url.PathEscape(courseID), q)
	if day.Records == nil {
		day.Records = []attendance.Record{}
	}
	return day, errors.Wrap(err, "querying course attendance")
}

// ByStudent returns the attendance history of a student; a zero rng means the whole history.
func (m Attendance) ByStudent(ctx context.Context, studentID string, rng attendance.Range) ([]attendance.Record, error) {
	recs, err := getList[attendance.Record](ctx, m.c, attendancePath+"/estudiante/"+url.PathEscape(studentID), rangeValues(rng))
	return recs, errors.Wrap(err, "querying student attendance")
}

func (m Attendance) CourseSummary(ctx context.Context, courseID string, rng attendance.Range) (CourseSummary, error) {
	sum, err := getData[CourseSummary](ctx, m.c, attendancePath+"/resumen/grado/"+url.PathEscape(courseID), rangeValues(rng))
	return sum, errors.Wrap(err, "summarizing course attendance")
}

func (m Attendance) StudentSummary(ctx context.Context, studentID string, rng attendance.Range) (StudentSummary, error) {
	sum, err := getData[StudentSummary](ctx, m.c, attendancePath+"/resumen/estudiante/"+url.PathEscape(studentID), rangeValues(rng))
	return sum, errors.Wrap(err, "summarizing student attendance")
}
