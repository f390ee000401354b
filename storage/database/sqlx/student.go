package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/colegio/core/student"
)

const studentColumns = `id, first_name, last_name, dni, course_id, tutor_id, user_id, is_active, created_at, updated_at`

type studentRow struct {
	ID        string      `db:"id"`
	FirstName string      `db:"first_name"`
	LastName  string      `db:"last_name"`
	DNI       string      `db:"dni"`
	CourseID  null.String `db:"course_id"`
	TutorID   null.String `db:"tutor_id"`
	UserID    null.String `db:"user_id"`
	IsActive  bool        `db:"is_active"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo studentRepository) toRow(s student.Student) studentRow {
	return studentRow{
		ID:        s.ID,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		DNI:       s.DNI,
		CourseID:  nullString(s.CourseID),
		TutorID:   nullString(s.TutorID),
		UserID:    nullString(s.UserID),
		IsActive:  s.IsActive,
		CreatedAt: s.CreatedAt.UTC(),
		UpdatedAt: s.UpdatedAt.UTC(),
	}
}

func (repo studentRepository) fromRow(row studentRow) student.Student {
	return student.Student{
		ID:        row.ID,
		FirstName: row.FirstName,
		LastName:  row.LastName,
		DNI:       row.DNI,
		CourseID:  row.CourseID.String,
		TutorID:   row.TutorID.String,
		UserID:    row.UserID.String,
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func (repo studentRepository) trapUniqueErr(err error, msg string) error {
	if constraint, ok := uniqueViolationConstraint(err); ok {
		if strings.Contains(constraint, "user_id") {
			return student.ErrUserLinked
		}
		return student.ErrDNIExists
	}
	return errors.Wrap(err, msg)
}

func (repo studentRepository) CheckStudentUniqueness(ctx context.Context, s student.Student) error {
	var w where
	w.add("(dni = ? OR (user_id IS NOT NULL AND user_id::text = ?))", s.DNI, s.UserID)
	if s.ID != "" {
		w.add("id <> ?", s.ID)
	}

	var rows []studentRow
	q := repo.db.Rebind(`SELECT ` + studentColumns + ` FROM student` + w.String() + ` LIMIT 2`)
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return errors.Wrap(err, "checking student uniqueness")
	}
	for _, row := range rows {
		if row.DNI == s.DNI {
			return student.ErrDNIExists
		}
		if s.UserID != "" && row.UserID.String == s.UserID {
			return student.ErrUserLinked
		}
	}
	return nil
}

func (repo studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	s.ID = uuid.New().String()
	q := `INSERT INTO student (` + studentColumns + `)
		VALUES (:id, :first_name, :last_name, :dni, :course_id, :tutor_id, :user_id, :is_active, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.toRow(s)); err != nil {
		return student.Student{}, repo.trapUniqueErr(err, "inserting student")
	}
	return s, nil
}

func (repo studentRepository) QueryStudents(ctx context.Context, filter student.QueryFilter) ([]student.Student, error) {
	var w where
	for _, link := range []struct{ col, val string }{
		{"course_id", filter.CourseID},
		{"tutor_id", filter.TutorID},
		{"user_id", filter.UserID},
	} {
		if link.val == "" {
			continue
		}
		if !isUUID(link.val) {
			return []student.Student{}, nil
		}
		w.add(link.col+" = ?", link.val)
	}
	if filter.IDs != nil {
		ids := make([]string, 0, len(filter.IDs))
		for _, id := range filter.IDs {
			if isUUID(id) {
				ids = append(ids, id)
			}
		}
		w.add("id = ANY(?)", pq.Array(ids))
	}
	if filter.IsActive != nil {
		w.add("is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		w.add("(first_name ILIKE ? OR last_name ILIKE ? OR dni LIKE ?)", val, val, val)
	}

	var rows []studentRow
	q := repo.db.Rebind(`SELECT ` + studentColumns + ` FROM student` + w.String() + ` ORDER BY last_name ASC, first_name ASC`)
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, repo.fromRow(row))
	}
	return students, nil
}

func (repo studentRepository) GetStudent(ctx context.Context, id string) (student.Student, error) {
	if !isUUID(id) {
		return student.Student{}, student.ErrNotFound
	}
	var row studentRow
	q := repo.db.Rebind(`SELECT ` + studentColumns + ` FROM student WHERE id = ?`)
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "finding student")
	}
	return repo.fromRow(row), nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	q := `UPDATE student SET first_name = :first_name, last_name = :last_name, dni = :dni, course_id = :course_id,
		tutor_id = :tutor_id, user_id = :user_id, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, repo.toRow(s))
	if err != nil {
		return student.Student{}, repo.trapUniqueErr(err, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return s, nil
}

func (repo studentRepository) DeleteStudent(ctx context.Context, id string) error {
	if !isUUID(id) {
		return student.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`DELETE FROM student WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return student.ErrNotFound
	}
	return nil
}
