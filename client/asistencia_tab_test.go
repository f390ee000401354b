package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/colegio/client"
	"github.com/trezcool/colegio/core"
	"github.com/trezcool/colegio/core/attendance"
	"github.com/trezcool/colegio/core/course"
	"github.com/trezcool/colegio/core/student"
)

const tabCourseID = "c1"

type attendanceAPI struct {
	*fakeAPI

	mu      sync.Mutex
	records map[string][]attendance.Record // by student ID
	sheets  []attendance.NewSheet
}

func newAttendanceAPI(t *testing.T) *attendanceAPI {
	t.Helper()
	api := &attendanceAPI{fakeAPI: newFakeAPI(t)}
	api.records = map[string][]attendance.Record{
		"s1": {
			{StudentID: "s1", Date: "2024-03-01", Status: attendance.StatusPresent},
			{StudentID: "s1", Date: "2024-03-02", Status: attendance.StatusAbsent},
			{StudentID: "s1", Date: "2024-03-03", Status: attendance.StatusLate},
			{StudentID: "s1", Date: "2024-03-04", Status: attendance.StatusExcused},
		},
		"s2": {
			{StudentID: "s2", Date: "2024-03-01", Status: attendance.StatusPresent},
			{StudentID: "s2", Date: "2024-03-02", Status: attendance.StatusPresent},
		},
	}
	roster := []student.Student{
		{ID: "s2", FirstName: "Rosa", LastName: "Mamani", CourseID: tabCourseID},
		{ID: "s1", FirstName: "Luis", LastName: "Alvarez", CourseID: tabCourseID},
		{ID: "s3", FirstName: "Ana", LastName: "Quispe", CourseID: tabCourseID},
	}

	api.handle("GET /estudiante/grado/{id}", func(w http.ResponseWriter, r *http.Request) {
		respondList(t, w, roster)
	})
	api.handle("GET /asistencia/estudiante/{id}", func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		defer api.mu.Unlock()
		respondList(t, w, api.records[r.PathValue("id")])
	})
	api.handle("POST /asistencia/add", func(w http.ResponseWriter, r *http.Request) {
		var sheet attendance.NewSheet
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sheet))
		api.mu.Lock()
		defer api.mu.Unlock()
		api.sheets = append(api.sheets, sheet)
		day := client.DaySheet{Date: sheet.Date}
		for _, e := range sheet.Records {
			day.Records = append(day.Records, attendance.Record{
				StudentID: e.StudentID, CourseID: sheet.CourseID, Date: sheet.Date, Status: e.Status, Note: e.Note,
			})
		}
		respondData(t, w, http.StatusCreated, day)
	})
	api.handle("GET /asistencia/resumen/grado/{id}", func(w http.ResponseWriter, r *http.Request) {
		rng := attendance.Range{From: r.URL.Query().Get("desde"), To: r.URL.Query().Get("hasta")}
		respondData(t, w, http.StatusOK, client.CourseSummary{
			Range:  rng,
			Course: course.Course{ID: r.PathValue("id")},
			Summaries: []attendance.Summary{
				{StudentID: "s1", StudentName: "Luis Alvarez", Counts: attendance.Counts{Present: 1, Total: 1}, Percentage: 100},
			},
		})
	})
	return api
}

func loadTab(t *testing.T, api *attendanceAPI) *client.AsistenciaTab {
	t.Helper()
	tab := client.NewAsistenciaTab(api.client(), tabCourseID)
	require.NoError(t, tab.Load(context.Background()))
	return tab
}

func TestAsistenciaTab_Load(t *testing.T) {
	api := newAttendanceAPI(t)
	tab := loadTab(t, api)

	assert.Equal(t, 3, api.hitsOf("GET /asistencia/estudiante/{id}"), "one history per student")
	assert.Equal(t, core.Today(), tab.Date())

	rows := tab.Rows()
	require.Len(t, rows, 3)

	// sorted by last name
	assert.Equal(t, "s1", rows[0].Student.ID)
	assert.Equal(t, "s2", rows[1].Student.ID)
	assert.Equal(t, "s3", rows[2].Student.ID)

	assert.Equal(t, attendance.Counts{Present: 1, Absent: 1, Late: 1, Excused: 1, Total: 4}, rows[0].History.Counts)
	assert.Equal(t, 50, rows[0].History.Percentage)
	assert.Equal(t, 100, rows[1].History.Percentage)
	assert.Equal(t, 0, rows[2].History.Total)
	assert.Equal(t, 0, rows[2].History.Percentage)
}

func TestAsistenciaTab_Form(t *testing.T) {
	api := newAttendanceAPI(t)
	tab := loadTab(t, api)
	ctx := context.Background()

	t.Run("invalid status", func(t *testing.T) {
		assert.Error(t, tab.Mark("s1", "FALTO", ""))
	})

	t.Run("unknown student", func(t *testing.T) {
		assert.Error(t, tab.Mark("s9", attendance.StatusPresent, ""))
	})

	t.Run("future date", func(t *testing.T) {
		tomorrow := time.Now().AddDate(0, 0, 2).Format("2006-01-02")
		assert.Error(t, tab.SetDate(tomorrow))
		assert.Equal(t, attendance.ErrInvalidDate, tab.SetDate("01/03/2024"))
	})

	t.Run("unmarked students", func(t *testing.T) {
		require.NoError(t, tab.Mark("s1", "ausente", "  fiebre "))
		err := tab.Validate()
		fldErrs, ok := err.(client.FormErrors)
		require.True(t, ok)
		assert.Len(t, fldErrs, 2)
		assert.Contains(t, fldErrs, "s2")
		assert.Contains(t, fldErrs, "s3")

		_, err = tab.Submit(ctx)
		assert.Error(t, err)
		assert.Equal(t, 0, api.hitsOf("POST /asistencia/add"))
	})

	t.Run("submitted", func(t *testing.T) {
		require.NoError(t, tab.MarkAll(attendance.StatusPresent))
		require.NoError(t, tab.Validate())

		day, err := tab.Submit(ctx)
		require.NoError(t, err)
		assert.Equal(t, tab.Date(), day.Date)
		assert.Len(t, day.Records, 3)

		require.Len(t, api.sheets, 1)
		sheet := api.sheets[0]
		assert.Equal(t, tabCourseID, sheet.CourseID)
		assert.Equal(t, tab.Date(), sheet.Date)
		marks := make(map[string]attendance.Entry)
		for _, e := range sheet.Records {
			marks[e.StudentID] = e
		}
		assert.Equal(t, attendance.Entry{StudentID: "s1", Status: attendance.StatusAbsent, Note: "fiebre"}, marks["s1"])
		assert.Equal(t, attendance.StatusPresent, marks["s2"].Status)
		assert.Equal(t, attendance.StatusPresent, marks["s3"].Status)

		rows := tab.Rows()
		assert.Equal(t, 5, rows[0].History.Total)
		assert.Equal(t, 40, rows[0].History.Percentage)
		assert.Equal(t, attendance.StatusAbsent, rows[0].Mark.Status)
		assert.Equal(t, 1, rows[2].History.Total)
		assert.Equal(t, 100, rows[2].History.Percentage)
	})

	t.Run("resubmitted", func(t *testing.T) {
		require.NoError(t, tab.Mark("s1", attendance.StatusLate, ""))
		_, err := tab.Submit(ctx)
		require.NoError(t, err)

		rows := tab.Rows()
		assert.Equal(t, 5, rows[0].History.Total, "same day records are replaced")
		assert.Equal(t, 60, rows[0].History.Percentage)
	})

	t.Run("back to a past day", func(t *testing.T) {
		require.NoError(t, tab.SetDate("2024-03-02"))
		rows := tab.Rows()
		assert.Equal(t, attendance.StatusAbsent, rows[0].Mark.Status)
		assert.Equal(t, attendance.StatusPresent, rows[1].Mark.Status)
		assert.Equal(t, client.Mark{}, rows[2].Mark)
	})
}

func TestAsistenciaTab_Summary(t *testing.T) {
	api := newAttendanceAPI(t)
	tab := loadTab(t, api)
	ctx := context.Background()

	tests := []struct {
		name     string
		from, to string
		wantErr  error
	}{
		{name: "empty range", from: "", to: "2024-03-31", wantErr: attendance.ErrEmptyRange},
		{name: "reversed range", from: "2024-03-31", to: "2024-03-01", wantErr: attendance.ErrInvalidRange},
		{name: "malformed", from: "2024-03-01", to: "31/03/2024", wantErr: attendance.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tab.Summary(ctx, tt.from, tt.to)
			assert.Equal(t, tt.wantErr, err)
			_, err = tab.LocalSummary(tt.from, tt.to)
			assert.Equal(t, tt.wantErr, err)
		})
	}
	assert.Equal(t, 0, api.hitsOf("GET /asistencia/resumen/grado/{id}"))

	t.Run("remote", func(t *testing.T) {
		sum, err := tab.Summary(ctx, "2024-03-01", "2024-03-31")
		require.NoError(t, err)
		assert.Equal(t, attendance.Range{From: "2024-03-01", To: "2024-03-31"}, sum.Range)
		assert.Equal(t, tabCourseID, sum.Course.ID)
		require.Len(t, sum.Summaries, 1)
		assert.Equal(t, 100, sum.Summaries[0].Percentage)
	})

	t.Run("local", func(t *testing.T) {
		sums, err := tab.LocalSummary("2024-03-02", "2024-03-03")
		require.NoError(t, err)
		require.Len(t, sums, 3)
		assert.Equal(t, "s1", sums[0].StudentID)
		assert.Equal(t, attendance.Counts{Absent: 1, Late: 1, Total: 2}, sums[0].Counts)
		assert.Equal(t, 50, sums[0].Percentage)
		assert.Equal(t, attendance.Counts{Present: 1, Total: 1}, sums[1].Counts)
		assert.Equal(t, 0, sums[2].Total)
	})
}
