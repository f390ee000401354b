package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/colegio/core/course"
)

const coursesPath = "/curso"

// Courses is the courses (grado y sección) module.
type Courses struct{ c *Client }

func (c *Client) Courses() Courses { return Courses{c} }

func (m Courses) Query(ctx context.Context, filter course.QueryFilter) ([]course.Course, error) {
	q := make(url.Values)
	if filter.TeacherID != "" {
		q.Set("teacher_id", filter.TeacherID)
	}
	if filter.Year != 0 {
		q.Set("year", strconv.Itoa(filter.Year))
	}
	courses, err := getList[course.Course](ctx, m.c, coursesPath+"/getAll", q)
	return courses, errors.Wrap(err, "querying courses")
}

// ByTeacher lists the courses of a teacher (docente).
func (m Courses) ByTeacher(ctx context.Context, teacherID string) ([]course.Course, error) {
	courses, err := getList[course.Course](ctx, m.c, coursesPath+"/docente/"+url.PathEscape(teacherID), nil)
	return courses, errors.Wrap(err, "querying teacher courses")
}

// Shifts lists the shifts (turnos) a course may have.
func (m Courses) Shifts(ctx context.Context) ([]string, error) {
	shifts, err := getList[string](ctx, m.c, coursesPath+"/turnos", nil)
	return shifts, errors.Wrap(err, "querying shifts")
}

func (m Courses) Get(ctx context.Context, id string) (course.Course, error) {
	c, err := getData[course.Course](ctx, m.c, coursesPath+"/"+url.PathEscape(id), nil)
	return c, errors.Wrap(err, "getting course")
}

func (m Courses) Create(ctx context.Context, data course.NewCourse) (course.Course, error) {
	c, err := sendData[course.Course](ctx, m.c, http.MethodPost, coursesPath+"/add", data, coursesPath)
	return c, errors.Wrap(err, "creating course")
}

func (m Courses) Update(ctx context.Context, id string, data course.UpdateCourse) (course.Course, error) {
	c, err := sendData[course.Course](ctx, m.c, http.MethodPut, coursesPath+"/update/"+url.PathEscape(id), data, coursesPath)
	return c, errors.Wrap(err, "updating course")
}

// Delete removes a course; the API refuses to delete a course that still has students.
func (m Courses) Delete(ctx context.Context, id string) error {
	_, err := sendMessage(ctx, m.c, http.MethodDelete, coursesPath+"/delete/"+url.PathEscape(id), nil, nil, coursesPath)
	return errors.Wrap(err, "deleting course")
}
