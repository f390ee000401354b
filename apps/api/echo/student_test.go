package echoapi_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/colegio/core/course"
	"github.com/trezcool/colegio/core/student"
	"github.com/trezcool/colegio/core/user"
	testutil "github.com/trezcool/colegio/tests"
)

const unknownID = "00000000-0000-0000-0000-000000000000"

// school is a small fixture: two courses with their teachers, one tutor with one child and one student account.
type school struct {
	admin, teacher, otherTeacher, tutor, otherTutor, account user.User
	course, otherCourse                                    course.Course
	quispe, alvarez, mamani                                student.Student
}

func newSchool(t *testing.T, env *apiEnv) school {
	t.Helper()
	var sc school
	sc.admin = testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@test.pe", "", []string{user.RoleAdmin}, true)
	sc.teacher = testutil.CreateUser(t, env.UserRepo, "Docente", "docente", "docente@test.pe", "", []string{user.RoleTeacher}, true)
	sc.otherTeacher = testutil.CreateUser(t, env.UserRepo, "Otro Docente", "docente2", "docente2@test.pe", "", []string{user.RoleTeacher}, true)
	sc.tutor = testutil.CreateUser(t, env.UserRepo, "Tutora", "tutora", "tutora@test.pe", "", []string{user.RoleTutor}, true)
	sc.otherTutor = testutil.CreateUser(t, env.UserRepo, "Otro Tutor", "tutor2", "tutor2@test.pe", "", []string{user.RoleTutor}, true)
	sc.account = testutil.CreateUser(t, env.UserRepo, "Ana", "ana", "ana@test.pe", "", []string{user.RoleStudent}, true)

	sc.course = testutil.CreateCourse(t, env.CourseRepo, "3°", "A", course.ShiftMorning, 2024, sc.teacher.ID)
	sc.otherCourse = testutil.CreateCourse(t, env.CourseRepo, "4°", "B", course.ShiftAfternoon, 2024, sc.otherTeacher.ID)

	sc.quispe = testutil.CreateStudent(t, env.StudentRepo, "Ana", "Quispe", "12345678", sc.course.ID, sc.tutor.ID, sc.account.ID)
	sc.alvarez = testutil.CreateStudent(t, env.StudentRepo, "Luis", "Alvarez", "23456789", sc.course.ID, "", "")
	sc.mamani = testutil.CreateStudent(t, env.StudentRepo, "Rosa", "Mamani", "34567890", sc.otherCourse.ID, sc.otherTutor.ID, "")
	return sc
}

func Test_studentApi_query(t *testing.T) {
	env := setup(t)
	sc := newSchool(t, env)

	adminToken := getToken(t, env.app, sc.admin)
	teacherToken := getToken(t, env.app, sc.teacher)
	tutorToken := getToken(t, env.app, sc.tutor)

	env.runTests(t, []httpTest{
		{name: "auth required", path: "/estudiante/getAll", wantCode: http.StatusUnauthorized, wantData: errEnvelope(t, msgMissingToken)},
		{name: "tutors cannot list", path: "/estudiante/getAll", token: tutorToken, wantCode: http.StatusForbidden, wantData: errEnvelope(t, msgForbidden)},
		{name: "get all (admin)", path: "/estudiante/getAll", token: adminToken, wantData: listEnvelope(t, sc.alvarez, sc.mamani, sc.quispe)},
		{name: "get all (teacher)", path: "/estudiante/getAll", token: teacherToken, wantData: listEnvelope(t, sc.alvarez, sc.mamani, sc.quispe)},
		{name: "search by name", path: "/estudiante/getAll?search=QUIS", token: adminToken, wantData: listEnvelope(t, sc.quispe)},
		{name: "search by dni", path: "/estudiante/getAll?search=2345", token: adminToken, wantData: listEnvelope(t, sc.alvarez, sc.quispe)},

		{name: "course (admin)", path: "/estudiante/grado/" + sc.otherCourse.ID, token: adminToken, wantData: listEnvelope(t, sc.mamani)},
		{name: "course (its teacher)", path: "/estudiante/grado/" + sc.course.ID, token: teacherToken, wantData: listEnvelope(t, sc.alvarez, sc.quispe)},
		{name: "course (other teacher)", path: "/estudiante/grado/" + sc.otherCourse.ID, token: teacherToken, wantCode: http.StatusForbidden, wantData: errEnvelope(t, msgForbidden)},
		{name: "course (unknown)", path: "/estudiante/grado/" + unknownID, token: adminToken, wantCode: http.StatusNotFound, wantData: errEnvelope(t, msgNotFound)},

		{name: "tutor (admin)", path: "/estudiante/tutor/" + sc.otherTutor.ID, token: adminToken, wantData: listEnvelope(t, sc.mamani)},
		{name: "tutor (themselves)", path: "/estudiante/tutor/" + sc.tutor.ID, token: tutorToken, wantData: listEnvelope(t, sc.quispe)},
		{name: "tutor (someone else)", path: "/estudiante/tutor/" + sc.otherTutor.ID, token: tutorToken, wantCode: http.StatusForbidden, wantData: errEnvelope(t, msgForbidden)},
	})
}

func Test_studentApi_retrieve(t *testing.T) {
	env := setup(t)
	sc := newSchool(t, env)

	path := func(s student.Student) string { return "/estudiante/" + s.ID }
	forbidden := errEnvelope(t, msgForbidden)

	env.runTests(t, []httpTest{
		{name: "admin", path: path(sc.mamani), token: getToken(t, env.app, sc.admin), wantData: dataEnvelope(t, sc.mamani)},
		{name: "course teacher", path: path(sc.quispe), token: getToken(t, env.app, sc.teacher), wantData: dataEnvelope(t, sc.quispe)},
		{name: "tutor", path: path(sc.quispe), token: getToken(t, env.app, sc.tutor), wantData: dataEnvelope(t, sc.quispe)},
		{name: "own account", path: path(sc.quispe), token: getToken(t, env.app, sc.account), wantData: dataEnvelope(t, sc.quispe)},
		{name: "other teacher", path: path(sc.quispe), token: getToken(t, env.app, sc.otherTeacher), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "other tutor", path: path(sc.quispe), token: getToken(t, env.app, sc.otherTutor), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "other student", path: path(sc.alvarez), token: getToken(t, env.app, sc.account), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "unknown", path: "/estudiante/" + unknownID, token: getToken(t, env.app, sc.admin), wantCode: http.StatusNotFound, wantData: errEnvelope(t, msgNotFound)},
	})
}

func Test_studentApi_create(t *testing.T) {
	env := setup(t)
	sc := newSchool(t, env)
	token := getToken(t, env.app, sc.admin)

	env.runTests(t, []httpTest{
		{
			name: "admin required", method: http.MethodPost, path: "/estudiante/add", token: getToken(t, env.app, sc.teacher),
			body: marchallObj(t, student.NewStudent{}), wantCode: http.StatusForbidden, wantData: errEnvelope(t, msgForbidden),
		},
		{
			name: "duplicate dni", method: http.MethodPost, path: "/estudiante/add", token: token,
			body:     marchallObj(t, student.NewStudent{FirstName: "Eva", LastName: "Rojas", DNI: sc.quispe.DNI}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]interface{}{
				"estado": false, "message": student.ErrDNIExists.Error(), "data": map[string]string{"dni": student.ErrDNIExists.Error()},
			}),
		},
		{
			name: "wrong tutor", method: http.MethodPost, path: "/estudiante/add", token: token,
			body:     marchallObj(t, student.NewStudent{FirstName: "Eva", LastName: "Rojas", DNI: "45678901", TutorID: sc.teacher.ID}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]interface{}{
				"estado": false, "message": student.ErrNotATutor.Error(), "data": map[string]string{"tutor_id": student.ErrNotATutor.Error()},
			}),
		},
	})

	t.Run("invalid input", func(t *testing.T) {
		rec, resp := env.do(t, http.MethodPost, "/estudiante/add", token, marchallObj(t, student.NewStudent{FirstName: "Eva", DNI: "123"}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"last_name": "this field is required", "dni": "DNI must contain exactly 8 digits"}`, string(resp.Data))
	})

	t.Run("created", func(t *testing.T) {
		data := student.NewStudent{FirstName: " Eva ", LastName: "Rojas", DNI: "45678901", CourseID: sc.course.ID, TutorID: sc.tutor.ID}
		rec, resp := env.do(t, http.MethodPost, "/estudiante/add", token, marchallObj(t, data))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var st student.Student
		require.NoError(t, json.Unmarshal(resp.Data, &st))
		assert.NotEmpty(t, st.ID)
		assert.Equal(t, "Eva", st.FirstName)
		assert.Equal(t, sc.course.ID, st.CourseID)
		assert.True(t, st.IsActive)

		_, resp = env.do(t, http.MethodGet, "/estudiante/tutor/"+sc.tutor.ID, getToken(t, env.app, sc.tutor))
		var children []student.Student
		require.NoError(t, json.Unmarshal(resp.DataIterable, &children))
		assert.Len(t, children, 2)
	})
}

func Test_studentApi_updateAndDelete(t *testing.T) {
	env := setup(t)
	sc := newSchool(t, env)
	token := getToken(t, env.app, sc.admin)

	t.Run("admin required", func(t *testing.T) {
		rec, _ := env.do(t, http.MethodPut, "/estudiante/update/"+sc.quispe.ID, getToken(t, env.app, sc.tutor), marchallObj(t, student.UpdateStudent{}))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("update", func(t *testing.T) {
		noTutor := ""
		data := student.UpdateStudent{LastName: "Quispe Huamán", CourseID: &sc.otherCourse.ID, TutorID: &noTutor}
		rec, resp := env.do(t, http.MethodPut, "/estudiante/update/"+sc.quispe.ID, token, marchallObj(t, data))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var st student.Student
		require.NoError(t, json.Unmarshal(resp.Data, &st))
		assert.Equal(t, "Ana", st.FirstName)
		assert.Equal(t, "Quispe Huamán", st.LastName)
		assert.Equal(t, sc.quispe.DNI, st.DNI)
		assert.Equal(t, sc.otherCourse.ID, st.CourseID)
		assert.Empty(t, st.TutorID)
		assert.Equal(t, sc.account.ID, st.UserID)
	})

	t.Run("update (unknown course)", func(t *testing.T) {
		unknown := unknownID
		rec, resp := env.do(t, http.MethodPut, "/estudiante/update/"+sc.alvarez.ID, token, marchallObj(t, student.UpdateStudent{CourseID: &unknown}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, student.ErrCourseNotFound.Error(), resp.Message)
	})

	t.Run("delete", func(t *testing.T) {
		rec, resp := env.do(t, http.MethodDelete, "/estudiante/delete/"+sc.mamani.ID, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "student deleted", resp.Message)

		rec, _ = env.do(t, http.MethodGet, "/estudiante/"+sc.mamani.ID, token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
