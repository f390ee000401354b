package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/colegio/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) UpsertRecords(_ context.Context, recs []attendance.Record) ([]attendance.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// (student, date) -> record
	existing := make(map[[2]string]*attendance.Record, len(repo.db.attendance))
	for _, r := range repo.db.attendance {
		existing[[2]string{r.StudentID, r.Date}] = r
	}

	saved := make([]attendance.Record, 0, len(recs))
	for _, rec := range recs {
		if r, ok := existing[[2]string{rec.StudentID, rec.Date}]; ok {
			r.CourseID = rec.CourseID
			r.Status = rec.Status
			r.Note = rec.Note
			r.RecordedBy = rec.RecordedBy
			r.UpdatedAt = rec.UpdatedAt
			saved = append(saved, *r)
			continue
		}
		rec.ID = uuid.New().String()
		r := rec
		repo.db.attendance[r.ID] = &r
		existing[[2]string{r.StudentID, r.Date}] = &r
		saved = append(saved, rec)
	}
	return saved, nil
}

func (repo *attendanceRepository) QueryRecords(_ context.Context, filter attendance.QueryFilter) ([]attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var studentIDs map[string]bool
	if filter.StudentIDs != nil {
		studentIDs = make(map[string]bool, len(filter.StudentIDs))
		for _, id := range filter.StudentIDs {
			studentIDs[id] = true
		}
	}
	rng := attendance.Range{From: filter.From, To: filter.To}

	recs := make([]attendance.Record, 0)
	for _, r := range repo.db.attendance {
		if filter.CourseID != "" && r.CourseID != filter.CourseID {
			continue
		}
		if studentIDs != nil && !studentIDs[r.StudentID] {
			continue
		}
		if filter.Date != "" && r.Date != filter.Date {
			continue
		}
		if !rng.Contains(r.Date) {
			continue
		}
		recs = append(recs, *r)
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Date != recs[j].Date {
			return recs[i].Date < recs[j].Date
		}
		return recs[i].StudentID < recs[j].StudentID
	})
	return recs, nil
}
