package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/colegio/core/course"
)

func (env *apiEnv) reloadCourse(t *testing.T, c course.Course) course.Course {
	t.Helper()
	c, err := env.CourseRepo.GetCourse(context.Background(), c.ID)
	require.NoError(t, err)
	return c
}

func Test_courseApi_query(t *testing.T) {
	env := setup(t)
	sc := newSchool(t, env)

	crs := env.reloadCourse(t, sc.course)
	other := env.reloadCourse(t, sc.otherCourse)
	adminToken := getToken(t, env.app, sc.admin)
	teacherToken := getToken(t, env.app, sc.teacher)

	assert.Equal(t, "Docente", crs.TeacherName)
	assert.Equal(t, 2, crs.StudentCount)

	env.runTests(t, []httpTest{
		{name: "admin required", path: "/curso/getAll", token: teacherToken, wantCode: http.StatusForbidden, wantData: errEnvelope(t, msgForbidden)},
		{name: "get all", path: "/curso/getAll", token: adminToken, wantData: listEnvelope(t, crs, other)},
		{name: "filter by teacher", path: "/curso/getAll?teacher_id=" + sc.otherTeacher.ID, token: adminToken, wantData: listEnvelope(t, other)},
		{name: "filter by year", path: "/curso/getAll?year=2023", token: adminToken, wantData: listEnvelope[course.Course](t)},
		{name: "teacher (themselves)", path: "/curso/docente/" + sc.teacher.ID, token: teacherToken, wantData: listEnvelope(t, crs)},
		{name: "teacher (someone else)", path: "/curso/docente/" + sc.otherTeacher.ID, token: teacherToken, wantCode: http.StatusForbidden, wantData: errEnvelope(t, msgForbidden)},
		{name: "teacher (admin)", path: "/curso/docente/" + sc.otherTeacher.ID, token: adminToken, wantData: listEnvelope(t, other)},
		{name: "retrieve (its teacher)", path: "/curso/" + crs.ID, token: teacherToken, wantData: dataEnvelope(t, crs)},
		{name: "retrieve (other teacher)", path: "/curso/" + other.ID, token: teacherToken, wantCode: http.StatusForbidden, wantData: errEnvelope(t, msgForbidden)},
		{name: "retrieve (tutor)", path: "/curso/" + crs.ID, token: getToken(t, env.app, sc.tutor), wantCode: http.StatusForbidden, wantData: errEnvelope(t, msgForbidden)},
		{name: "shifts", path: "/curso/turnos", token: teacherToken, wantData: listEnvelope(t, course.Shifts...)},
	})
}

func Test_courseApi_create(t *testing.T) {
	env := setup(t)
	sc := newSchool(t, env)
	token := getToken(t, env.app, sc.admin)

	t.Run("invalid input", func(t *testing.T) {
		rec, resp := env.do(t, http.MethodPost, "/curso/add", token, marchallObj(t, course.NewCourse{Grade: "5°", Shift: "lol"}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var fields map[string]string
		require.NoError(t, json.Unmarshal(resp.Data, &fields))
		assert.Contains(t, fields, "section")
		assert.Contains(t, fields, "shift")
	})

	env.runTests(t, []httpTest{
		{
			name: "duplicate", method: http.MethodPost, path: "/curso/add", token: token,
			body:     marchallObj(t, course.NewCourse{Grade: "3°", Section: "A", Shift: course.ShiftMorning, Year: 2024}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]interface{}{
				"estado": false, "message": course.ErrCourseExists.Error(), "data": map[string]string{"section": course.ErrCourseExists.Error()},
			}),
		},
		{
			name: "teacher must be a teacher", method: http.MethodPost, path: "/curso/add", token: token,
			body:     marchallObj(t, course.NewCourse{Grade: "5°", Section: "A", Shift: course.ShiftMorning, Year: 2024, TeacherID: sc.tutor.ID}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]interface{}{
				"estado": false, "message": course.ErrNotATeacher.Error(), "data": map[string]string{"teacher_id": course.ErrNotATeacher.Error()},
			}),
		},
	})

	t.Run("created", func(t *testing.T) {
		data := course.NewCourse{Grade: "3°", Section: "A", Shift: course.ShiftNight, Year: 2024, TeacherID: sc.otherTeacher.ID}
		rec, resp := env.do(t, http.MethodPost, "/curso/add", token, marchallObj(t, data))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var c course.Course
		require.NoError(t, json.Unmarshal(resp.Data, &c))
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, course.ShiftNight, c.Shift)
		assert.Equal(t, "Otro Docente", c.TeacherName)
		assert.Zero(t, c.StudentCount)
	})
}

func Test_courseApi_updateAndDelete(t *testing.T) {
	env := setup(t)
	sc := newSchool(t, env)
	token := getToken(t, env.app, sc.admin)

	t.Run("admin required", func(t *testing.T) {
		rec, _ := env.do(t, http.MethodPut, "/curso/update/"+sc.course.ID, getToken(t, env.app, sc.teacher), marchallObj(t, course.UpdateCourse{}))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("update", func(t *testing.T) {
		data := course.UpdateCourse{Section: "C", TeacherID: &sc.otherTeacher.ID}
		rec, resp := env.do(t, http.MethodPut, "/curso/update/"+sc.course.ID, token, marchallObj(t, data))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var c course.Course
		require.NoError(t, json.Unmarshal(resp.Data, &c))
		assert.Equal(t, "3°", c.Grade)
		assert.Equal(t, "C", c.Section)
		assert.Equal(t, sc.otherTeacher.ID, c.TeacherID)
		assert.Equal(t, 2, c.StudentCount)
	})

	t.Run("cannot delete a course with students", func(t *testing.T) {
		rec, resp := env.do(t, http.MethodDelete, "/curso/delete/"+sc.course.ID, token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, course.ErrCourseNotEmpty.Error(), resp.Message)
	})

	t.Run("delete", func(t *testing.T) {
		empty := env.reloadCourse(t, sc.otherCourse)
		require.NoError(t, env.StudentRepo.DeleteStudent(context.Background(), sc.mamani.ID))

		rec, resp := env.do(t, http.MethodDelete, "/curso/delete/"+empty.ID, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "course deleted", resp.Message)

		rec, _ = env.do(t, http.MethodGet, "/curso/"+empty.ID, token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
