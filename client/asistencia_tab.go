package client

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/colegio/core"
	"github.com/trezcool/colegio/core/attendance"
	"github.com/trezcool/colegio/core/student"
)

const historyFetchLimit = 8

var (
	errEmptyRoster    = errors.New("the course has no students")
	errUnknownStudent = errors.New("the student is not part of the course")
	errInvalidStatus  = errors.New("invalid attendance status")
	errFutureDate     = errors.New("attendance cannot be taken for a future date")
	errUnmarked       = "select an attendance status"
)

type (
	// Mark is the status picked for a student in the day form.
	Mark struct {
		Status string
		Note   string
	}

	// RosterRow is one line of the attendance tab: a student, their historical attendance and today's mark.
	RosterRow struct {
		Student student.Student
		History attendance.Summary
		Mark    Mark
	}

	// AsistenciaTab is the attendance tab of a course: the roster with historical percentages,
	// the form of the day and the range summaries.
	AsistenciaTab struct {
		c        *Client
		courseID string

		mu      sync.RWMutex
		date    string
		roster  []student.Student
		history map[string][]attendance.Record // by student ID
		marks   map[string]Mark                // by student ID
	}
)

// NewAsistenciaTab returns the tab of a course with the form set to today.
func NewAsistenciaTab(c *Client, courseID string) *AsistenciaTab {
	return &AsistenciaTab{
		c:        c,
		courseID: courseID,
		date:     core.Today(),
		history:  make(map[string][]attendance.Record),
		marks:    make(map[string]Mark),
	}
}

// Load fetches the roster, then the whole history of every student in parallel.
// The form is prefilled with the records already taken on the form's date.
func (t *AsistenciaTab) Load(ctx context.Context) error {
	roster, err := t.c.Students().ByCourse(ctx, t.courseID)
	if err != nil {
		return err
	}

	histories := make([][]attendance.Record, len(roster))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(historyFetchLimit)
	for i, st := range roster {
		g.Go(func() error {
			recs, err := t.c.Attendance().ByStudent(gctx, st.ID, attendance.Range{})
			if err != nil {
				return errors.Wrapf(err, "loading history of %s", st.FullName())
			}
			histories[i] = recs
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.roster = roster
	t.history = make(map[string][]attendance.Record, len(roster))
	for i, st := range roster {
		t.history[st.ID] = histories[i]
	}
	t.prefill()
	return nil
}

// prefill resets the form to the records of t.date. t.mu must be held.
func (t *AsistenciaTab) prefill() {
	t.marks = make(map[string]Mark, len(t.roster))
	for _, st := range t.roster {
		for _, rec := range t.history[st.ID] {
			if rec.Date == t.date {
				t.marks[st.ID] = Mark{Status: rec.Status, Note: rec.Note}
				break
			}
		}
	}
}

func (t *AsistenciaTab) Date() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.date
}

// SetDate moves the form to another day; future dates are refused.
func (t *AsistenciaTab) SetDate(date string) error {
	date = core.CleanString(date)
	if !core.IsDate(date) {
		return attendance.ErrInvalidDate
	}
	if date > core.Today() {
		return errFutureDate
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.date = date
	t.prefill()
	return nil
}

// Rows returns the roster sorted by student name, with historical summaries and the current marks.
func (t *AsistenciaTab) Rows() []RosterRow {
	t.mu.RLock()
	defer t.mu.RUnlock()

	summaries := attendance.Summarize(t.allRecords(), t.roster, attendance.Range{})
	byID := make(map[string]student.Student, len(t.roster))
	for _, st := range t.roster {
		byID[st.ID] = st
	}
	rows := make([]RosterRow, len(summaries))
	for i, sum := range summaries {
		rows[i] = RosterRow{Student: byID[sum.StudentID], History: sum, Mark: t.marks[sum.StudentID]}
	}
	return rows
}

func (t *AsistenciaTab) allRecords() []attendance.Record {
	var recs []attendance.Record
	for _, st := range t.roster {
		recs = append(recs, t.history[st.ID]...)
	}
	return recs
}

func (t *AsistenciaTab) inRoster(studentID string) bool {
	for _, st := range t.roster {
		if st.ID == studentID {
			return true
		}
	}
	return false
}

// Mark sets the status of a student in the day form.
func (t *AsistenciaTab) Mark(studentID, status, note string) error {
	status = strings.ToUpper(core.CleanString(status))
	if !attendance.IsStatus(status) {
		return errInvalidStatus
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.inRoster(studentID) {
		return errUnknownStudent
	}
	t.marks[studentID] = Mark{Status: status, Note: core.CleanString(note)}
	return nil
}

// MarkAll sets status for every student not marked yet.
func (t *AsistenciaTab) MarkAll(status string) error {
	status = strings.ToUpper(core.CleanString(status))
	if !attendance.IsStatus(status) {
		return errInvalidStatus
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, st := range t.roster {
		if _, ok := t.marks[st.ID]; !ok {
			t.marks[st.ID] = Mark{Status: status}
		}
	}
	return nil
}

// Validate checks that every student of the roster is marked.
func (t *AsistenciaTab) Validate() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.validate()
}

func (t *AsistenciaTab) validate() error {
	if len(t.roster) == 0 {
		return errEmptyRoster
	}
	fldErrs := make(FormErrors)
	for _, st := range t.roster {
		if mark, ok := t.marks[st.ID]; !ok || !attendance.IsStatus(mark.Status) {
			fldErrs[st.ID] = errUnmarked
		}
	}
	if len(fldErrs) > 0 {
		return fldErrs
	}
	return nil
}

// Submit sends the day form. The saved records are merged into the history.
func (t *AsistenciaTab) Submit(ctx context.Context) (DaySheet, error) {
	t.mu.RLock()
	if err := t.validate(); err != nil {
		t.mu.RUnlock()
		return DaySheet{}, err
	}
	sheet := attendance.NewSheet{CourseID: t.courseID, Date: t.date, Records: make([]attendance.Entry, 0, len(t.roster))}
	for _, st := range t.roster {
		mark := t.marks[st.ID]
		sheet.Records = append(sheet.Records, attendance.Entry{StudentID: st.ID, Status: mark.Status, Note: mark.Note})
	}
	t.mu.RUnlock()

	day, err := t.c.Attendance().Record(ctx, sheet)
	if err != nil {
		return DaySheet{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, rec := range day.Records {
		t.history[rec.StudentID] = upsertRecord(t.history[rec.StudentID], rec)
	}
	return day, nil
}

// upsertRecord replaces the record of rec's date in recs, or adds rec keeping recs sorted by date.
func upsertRecord(recs []attendance.Record, rec attendance.Record) []attendance.Record {
	for i := range recs {
		if recs[i].Date == rec.Date {
			recs[i] = rec
			return recs
		}
	}
	recs = append(recs, rec)
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Date < recs[j].Date })
	return recs
}

// Summary validates the range, then fetches the course summary over it.
func (t *AsistenciaTab) Summary(ctx context.Context, from, to string) (CourseSummary, error) {
	rng, err := attendance.ValidateRange(from, to)
	if err != nil {
		return CourseSummary{}, err
	}
	return t.c.Attendance().CourseSummary(ctx, t.courseID, rng)
}

// LocalSummary summarizes the loaded history over a range without calling the API.
func (t *AsistenciaTab) LocalSummary(from, to string) ([]attendance.Summary, error) {
	rng, err := attendance.ValidateRange(from, to)
	if err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return attendance.Summarize(t.allRecords(), t.roster, rng), nil
}
