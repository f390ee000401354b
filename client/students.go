package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/trezcool/colegio/core/student"
)

const studentsPath = "/estudiante"

// Students is the student records module.
type Students struct{ c *Client }

func (c *Client) Students() Students { return Students{c} }

func (m Students) Query(ctx context.Context, search string) ([]student.Student, error) {
	var q url.Values
	if search != "" {
		q = url.Values{"search": {search}}
	}
	sts, err := getList[student.Student](ctx, m.c, studentsPath+"/getAll", q)
	return sts, errors.Wrap(err, "querying students")
}

// ByCourse lists the students of a course (grado).
func (m Students) ByCourse(ctx context.Context, courseID string) ([]student.Student, error) {
	sts, err := getList[student.Student](ctx, m.c, studentsPath+"/grado/"+url.PathEscape(courseID), nil)
	return sts, errors.Wrap(err, "querying course students")
}

// ByTutor lists the children of a tutor.
func (m Students) ByTutor(ctx context.Context, tutorID string) ([]student.Student, error) {
	sts, err := getList[student.Student](ctx, m.c, studentsPath+"/tutor/"+url.PathEscape(tutorID), nil)
	return sts, errors.Wrap(err, "querying tutor students")
}

func (m Students) Get(ctx context.Context, id string) (student.Student, error) {
	st, err := getData[student.Student](ctx, m.c, studentsPath+"/"+url.PathEscape(id), nil)
	return st, errors.Wrap(err, "getting student")
}

func (m Students) Create(ctx context.Context, form StudentForm) (student.Student, error) {
	if err := form.Validate(); err != nil {
		return student.Student{}, err
	}
	st, err := sendData[student.Student](ctx, m.c, http.MethodPost, studentsPath+"/add", form.newStudent(), studentsPath, coursesPath)
	return st, errors.Wrap(err, "creating student")
}

func (m Students) Update(ctx context.Context, id string, data student.UpdateStudent) (student.Student, error) {
	st, err := sendData[student.Student](
		ctx, m.c, http.MethodPut, studentsPath+"/update/"+url.PathEscape(id), data, studentsPath, coursesPath, profilePath,
	)
	return st, errors.Wrap(err, "updating student")
}

func (m Students) Delete(ctx context.Context, id string) error {
	_, err := sendMessage(ctx, m.c, http.MethodDelete, studentsPath+"/delete/"+url.PathEscape(id), nil, nil, studentsPath, coursesPath)
	return errors.Wrap(err, "deleting student")
}
