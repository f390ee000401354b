package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/colegio/core/attendance"
)

const attendanceColumns = `id, student_id, course_id, to_char(date, 'YYYY-MM-DD') AS date, status, note, recorded_by,
	created_at, updated_at`

type attendanceRow struct {
	ID         string      `db:"id"`
	StudentID  string      `db:"student_id"`
	CourseID   string      `db:"course_id"`
	Date       string      `db:"date"`
	Status     string      `db:"status"`
	Note       string      `db:"note"`
	RecordedBy null.String `db:"recorded_by"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo attendanceRepository) fromRow(row attendanceRow) attendance.Record {
	return attendance.Record{
		ID:         row.ID,
		StudentID:  row.StudentID,
		CourseID:   row.CourseID,
		Date:       row.Date,
		Status:     row.Status,
		Note:       row.Note,
		RecordedBy: row.RecordedBy.String,
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
	}
}

// UpsertRecords saves all records in one transaction; an existing (student, date) record is overwritten.
func (repo attendanceRepository) UpsertRecords(ctx context.Context, recs []attendance.Record) (saved []attendance.Record, err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = errors.Wrap(tx.Commit(), "committing attendance")
	}()

	stmt, err := tx.PrepareNamedContext(ctx, `INSERT INTO attendance
			(id, student_id, course_id, date, status, note, recorded_by, created_at, updated_at)
		VALUES (:id, :student_id, :course_id, :date, :status, :note, :recorded_by, :created_at, :updated_at)
		ON CONFLICT (student_id, date) DO UPDATE SET
			course_id = EXCLUDED.course_id, status = EXCLUDED.status, note = EXCLUDED.note,
			recorded_by = EXCLUDED.recorded_by, updated_at = EXCLUDED.updated_at
		RETURNING `+attendanceColumns)
	if err != nil {
		return nil, errors.Wrap(err, "preparing attendance upsert")
	}
	defer func() { _ = stmt.Close() }()

	saved = make([]attendance.Record, 0, len(recs))
	for _, rec := range recs {
		row := attendanceRow{
			ID:         uuid.New().String(),
			StudentID:  rec.StudentID,
			CourseID:   rec.CourseID,
			Date:       rec.Date,
			Status:     rec.Status,
			Note:       rec.Note,
			RecordedBy: nullString(rec.RecordedBy),
			CreatedAt:  rec.CreatedAt.UTC(),
			UpdatedAt:  rec.UpdatedAt.UTC(),
		}
		var out attendanceRow
		if err = stmt.GetContext(ctx, &out, row); err != nil {
			return nil, errors.Wrap(err, "upserting attendance")
		}
		saved = append(saved, repo.fromRow(out))
	}
	return saved, nil
}

func (repo attendanceRepository) QueryRecords(ctx context.Context, filter attendance.QueryFilter) ([]attendance.Record, error) {
	var w where
	if filter.CourseID != "" {
		if !isUUID(filter.CourseID) {
			return []attendance.Record{}, nil
		}
		w.add("course_id = ?", filter.CourseID)
	}
	if filter.StudentIDs != nil {
		ids := make([]string, 0, len(filter.StudentIDs))
		for _, id := range filter.StudentIDs {
			if isUUID(id) {
				ids = append(ids, id)
			}
		}
		w.add("student_id = ANY(?)", pq.Array(ids))
	}
	if filter.Date != "" {
		w.add("date = ?", filter.Date)
	}
	if filter.From != "" {
		w.add("date >= ?", filter.From)
	}
	if filter.To != "" {
		w.add("date <= ?", filter.To)
	}

	var rows []attendanceRow
	q := repo.db.Rebind(`SELECT ` + attendanceColumns + ` FROM attendance` + w.String() + ` ORDER BY date ASC, student_id ASC`)
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	recs := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, repo.fromRow(row))
	}
	return recs, nil
}
