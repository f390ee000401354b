package attendance

import (
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/colegio/core"
	"github.com/trezcool/colegio/core/student"
)

var (
	ErrEmptyRange   = errors.New("select both a start date and an end date")
	ErrInvalidRange = errors.New("the end date cannot be before the start date")
	ErrInvalidDate  = errors.New("dates must be formatted as YYYY-MM-DD")
)

// Range is an inclusive range of YYYY-MM-DD dates.
type Range struct {
	From string `json:"desde"`
	To   string `json:"hasta"`
}

// ValidateRange builds a Range, rejecting empty bounds, malformed dates and ends before starts.
func ValidateRange(from, to string) (Range, error) {
	from, to = core.CleanString(from), core.CleanString(to)
	if from == "" || to == "" {
		return Range{}, ErrEmptyRange
	}
	if !core.IsDate(from) || !core.IsDate(to) {
		return Range{}, ErrInvalidDate
	}
	if to < from {
		return Range{}, ErrInvalidRange
	}
	return Range{From: from, To: to}, nil
}

// Contains reports whether date is within r; a zero Range contains every date.
func (r Range) Contains(date string) bool {
	if r.From != "" && date < r.From {
		return false
	}
	return r.To == "" || date <= r.To
}

type Counts struct {
	Present int `json:"presente"`
	Absent  int `json:"ausente"`
	Late    int `json:"tarde"`
	Excused int `json:"justificado"`
	Total   int `json:"total"`
}

// Add counts one occurrence of status; unknown statuses are ignored.
func (c *Counts) Add(status string) {
	switch status {
	case StatusPresent:
		c.Present++
	case StatusAbsent:
		c.Absent++
	case StatusLate:
		c.Late++
	case StatusExcused:
		c.Excused++
	default:
		return
	}
	c.Total++
}

// Attended is the number of days the student showed up, late or not.
func (c Counts) Attended() int {
	return c.Present + c.Late
}

// Percentage returns round(attended/total*100), or 0 when there is nothing to count.
func Percentage(total, attended int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(attended) / float64(total) * 100))
}

// Summary is the attendance of one student over a Range.
type Summary struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	Counts
	Percentage int `json:"percentage"`
}

// Summarize counts the records of every student in [rng.From, rng.To] in a single pass.
// Every student gets a Summary, even without records; records of other students are ignored.
// Summaries are sorted by student name.
func Summarize(records []Record, students []student.Student, rng Range) []Summary {
	summaries := make([]Summary, len(students))
	index := make(map[string]*Summary, len(students))
	for i, s := range students {
		summaries[i] = Summary{StudentID: s.ID, StudentName: s.FullName()}
		index[s.ID] = &summaries[i]
	}

	for _, rec := range records {
		if !rng.Contains(rec.Date) {
			continue
		}
		if sum, ok := index[rec.StudentID]; ok {
			sum.Add(rec.Status)
		}
	}

	for i := range summaries {
		summaries[i].Percentage = Percentage(summaries[i].Total, summaries[i].Attended())
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return strings.ToLower(summaries[i].StudentName) < strings.ToLower(summaries[j].StudentName)
	})
	return summaries
}
