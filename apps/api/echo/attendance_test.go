package echoapi_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/colegio/apps/api/echo"
	"github.com/trezcool/colegio/core/attendance"
	testutil "github.com/trezcool/colegio/tests"
)

func Test_attendanceApi_record(t *testing.T) {
	env := setup(t)
	sc := newSchool(t, env)
	teacherToken := getToken(t, env.app, sc.teacher)

	sheet := func(courseID, date string, entries ...attendance.Entry) []byte {
		return marchallObj(t, attendance.NewSheet{CourseID: courseID, Date: date, Records: entries})
	}
	present := func(id string) attendance.Entry { return attendance.Entry{StudentID: id, Status: attendance.StatusPresent} }

	env.runTests(t, []httpTest{
		{
			name: "teachers only", method: http.MethodPost, path: "/asistencia/add", token: getToken(t, env.app, sc.tutor),
			body: sheet(sc.course.ID, "2024-03-11", present(sc.quispe.ID)), wantCode: http.StatusForbidden, wantData: errEnvelope(t, msgForbidden),
		},
		{
			name: "teacher of another course", method: http.MethodPost, path: "/asistencia/add", token: getToken(t, env.app, sc.otherTeacher),
			body: sheet(sc.course.ID, "2024-03-11", present(sc.quispe.ID)), wantCode: http.StatusForbidden, wantData: errEnvelope(t, msgForbidden),
		},
		{
			name: "unknown course", method: http.MethodPost, path: "/asistencia/add", token: teacherToken,
			body:     sheet(unknownID, "2024-03-11", present(sc.quispe.ID)),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]interface{}{
				"estado": false, "message": "course not found", "data": map[string]string{"course_id": "course not found"},
			}),
		},
		{
			name: "future date", method: http.MethodPost, path: "/asistencia/add", token: teacherToken,
			body:     sheet(sc.course.ID, "2999-01-01", present(sc.quispe.ID)),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]interface{}{
				"estado": false, "message": attendance.ErrFutureDate.Error(), "data": map[string]string{"date": attendance.ErrFutureDate.Error()},
			}),
		},
		{
			name: "student of another course", method: http.MethodPost, path: "/asistencia/add", token: teacherToken,
			body:     sheet(sc.course.ID, "2024-03-11", present(sc.quispe.ID), present(sc.mamani.ID)),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]interface{}{
				"estado": false, "message": attendance.ErrNotInCourse.Error(), "data": map[string]string{"records": attendance.ErrNotInCourse.Error()},
			}),
		},
	})

	t.Run("invalid input", func(t *testing.T) {
		rec, resp := env.do(t, http.MethodPost, "/asistencia/add", teacherToken, sheet(sc.course.ID, "11/03/2024"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var fields map[string]string
		require.NoError(t, json.Unmarshal(resp.Data, &fields))
		assert.Contains(t, fields, "date")
		assert.Contains(t, fields, "records")
	})

	t.Run("recorded", func(t *testing.T) {
		env.Mail.Reset()
		body := sheet(sc.course.ID, "2024-03-11",
			attendance.Entry{StudentID: sc.quispe.ID, Status: attendance.StatusAbsent, Note: "sin aviso"},
			present(sc.alvarez.ID),
		)
		rec, resp := env.do(t, http.MethodPost, "/asistencia/add", teacherToken, body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var data echoapi.AttendanceResponse
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.Equal(t, "2024-03-11", data.Date)
		require.Len(t, data.Records, 2)
		for _, r := range data.Records {
			assert.Equal(t, sc.course.ID, r.CourseID)
			assert.Equal(t, sc.teacher.ID, r.RecordedBy)
		}

		msgs := env.Mail.SentMessages()
		require.Len(t, msgs, 1)
		assert.Equal(t, sc.tutor.Email, msgs[0].To[0].Address)

		req, mrec := newRequest(http.MethodGet, "/metrics")
		env.metrics.Handler().ServeHTTP(mrec, req)
		assert.Contains(t, mrec.Body.String(), `colegio_test_attendance_records_total{status="AUSENTE"} 1`)
		assert.Contains(t, mrec.Body.String(), `colegio_test_attendance_records_total{status="PRESENTE"} 1`)
	})

	t.Run("recorded again", func(t *testing.T) {
		env.Mail.Reset()
		rec, _ := env.do(t, http.MethodPost, "/asistencia/add", getToken(t, env.app, sc.admin),
			sheet(sc.course.ID, "2024-03-11", present(sc.quispe.ID)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Empty(t, env.Mail.SentMessages())

		recs, err := env.AttendanceSvc.ByCourseAndDate(t.Context(), sc.course.ID, "2024-03-11")
		require.NoError(t, err)
		require.Len(t, recs, 2)
		for _, r := range recs {
			assert.Equal(t, attendance.StatusPresent, r.Status)
		}
	})
}

func Test_attendanceApi_query(t *testing.T) {
	env := setup(t)
	sc := newSchool(t, env)

	day1 := testutil.CreateRecords(t, env.AttendanceRepo, sc.course.ID, "2024-03-11", attendance.StatusPresent, sc.quispe.ID, sc.alvarez.ID)
	day2 := testutil.CreateRecords(t, env.AttendanceRepo, sc.course.ID, "2024-03-12", attendance.StatusAbsent, sc.quispe.ID)
	day2 = append(day2, testutil.CreateRecords(t, env.AttendanceRepo, sc.course.ID, "2024-03-12", attendance.StatusLate, sc.alvarez.ID)...)
	april := testutil.CreateRecords(t, env.AttendanceRepo, sc.course.ID, "2024-04-01", attendance.StatusExcused, sc.quispe.ID)

	byStudent := func(recs []attendance.Record, studentID string) attendance.Record {
		for _, r := range recs {
			if r.StudentID == studentID {
				return r
			}
		}
		t.Fatalf("no record of %s", studentID)
		return attendance.Record{}
	}
	sortedDay := func(recs []attendance.Record) []attendance.Record {
		a, b := byStudent(recs, sc.quispe.ID), byStudent(recs, sc.alvarez.ID)
		if a.StudentID > b.StudentID {
			a, b = b, a
		}
		return []attendance.Record{a, b}
	}

	teacherToken := getToken(t, env.app, sc.teacher)
	tutorToken := getToken(t, env.app, sc.tutor)
	march := "desde=2024-03-01&hasta=2024-03-31"

	quispeMarch := attendance.Summary{StudentID: sc.quispe.ID, StudentName: "Quispe, Ana", Percentage: 50}
	quispeMarch.Counts = attendance.Counts{Present: 1, Absent: 1, Total: 2}
	alvarezMarch := attendance.Summary{StudentID: sc.alvarez.ID, StudentName: "Alvarez, Luis", Percentage: 100}
	alvarezMarch.Counts = attendance.Counts{Present: 1, Late: 1, Total: 2}
	marchRange := attendance.Range{From: "2024-03-01", To: "2024-03-31"}

	env.runTests(t, []httpTest{
		// course day
		{
			name: "course day", path: "/asistencia/grado/" + sc.course.ID + "?fecha=2024-03-12", token: teacherToken,
			wantData: dataEnvelope(t, echoapi.AttendanceResponse{Date: "2024-03-12", Records: sortedDay(day2)}),
		},
		{
			name: "course day (other teacher)", path: "/asistencia/grado/" + sc.course.ID + "?fecha=2024-03-12", token: getToken(t, env.app, sc.otherTeacher),
			wantCode: http.StatusForbidden, wantData: errEnvelope(t, msgForbidden),
		},
		{
			name: "course day (no records)", path: "/asistencia/grado/" + sc.course.ID + "?fecha=2024-03-13", token: teacherToken,
			wantData: dataEnvelope(t, echoapi.AttendanceResponse{Date: "2024-03-13", Records: []attendance.Record{}}),
		},
		{
			name: "course day (malformed date)", path: "/asistencia/grado/" + sc.course.ID + "?fecha=13-03-2024", token: teacherToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]interface{}{
				"estado": false, "message": attendance.ErrInvalidDate.Error(), "data": map[string]string{"fecha": attendance.ErrInvalidDate.Error()},
			}),
		},

		// student history
		{
			name: "student history", path: "/asistencia/estudiante/" + sc.quispe.ID, token: tutorToken,
			wantData: listEnvelope(t, byStudent(day1, sc.quispe.ID), byStudent(day2, sc.quispe.ID), april[0]),
		},
		{
			name: "student range", path: "/asistencia/estudiante/" + sc.quispe.ID + "?" + march, token: getToken(t, env.app, sc.account),
			wantData: listEnvelope(t, byStudent(day1, sc.quispe.ID), byStudent(day2, sc.quispe.ID)),
		},
		{
			name: "student range (reversed)", path: "/asistencia/estudiante/" + sc.quispe.ID + "?desde=2024-03-31&hasta=2024-03-01", token: tutorToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]interface{}{
				"estado": false, "message": attendance.ErrInvalidRange.Error(), "data": map[string]string{"hasta": attendance.ErrInvalidRange.Error()},
			}),
		},
		{
			name: "student history (other tutor)", path: "/asistencia/estudiante/" + sc.quispe.ID, token: getToken(t, env.app, sc.otherTutor),
			wantCode: http.StatusForbidden, wantData: errEnvelope(t, msgForbidden),
		},

		// summaries
		{
			name: "course summary", path: "/asistencia/resumen/grado/" + sc.course.ID + "?" + march, token: teacherToken,
			wantData: dataEnvelope(t, echoapi.CourseSummaryResponse{
				Range: marchRange, Course: env.reloadCourse(t, sc.course), Summaries: []attendance.Summary{alvarezMarch, quispeMarch},
			}),
		},
		{
			name: "course summary (range required)", path: "/asistencia/resumen/grado/" + sc.course.ID, token: teacherToken,
			wantCode: http.StatusBadRequest, wantData: errEnvelope(t, attendance.ErrEmptyRange.Error()),
		},
		{
			name: "student summary", path: "/asistencia/resumen/estudiante/" + sc.quispe.ID + "?" + march, token: tutorToken,
			wantData: dataEnvelope(t, echoapi.StudentSummaryResponse{Range: marchRange, Summary: quispeMarch}),
		},
		{
			name: "student summary (no records)", path: "/asistencia/resumen/estudiante/" + sc.mamani.ID + "?" + march, token: getToken(t, env.app, sc.admin),
			wantData: dataEnvelope(t, echoapi.StudentSummaryResponse{Range: marchRange, Summary: attendance.Summary{StudentID: sc.mamani.ID, StudentName: "Mamani, Rosa"}}),
		},
		{
			name: "student summary (range required)", path: "/asistencia/resumen/estudiante/" + sc.quispe.ID + "?desde=2024-03-01", token: tutorToken,
			wantCode: http.StatusBadRequest, wantData: errEnvelope(t, attendance.ErrEmptyRange.Error()),
		},
		{name: "statuses", path: "/asistencia/estados", token: tutorToken, wantData: listEnvelope(t, attendance.Statuses...)},
	})
}
