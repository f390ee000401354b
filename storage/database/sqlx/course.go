package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/colegio/core/course"
)

const courseSelect = `SELECT c.id, c.grade, c.section, c.shift, c.year, c.teacher_id,
		COALESCE(u.name, '') AS teacher_name,
		(SELECT COUNT(*) FROM student s WHERE s.course_id = c.id) AS student_count,
		c.created_at, c.updated_at
	FROM course c LEFT JOIN "user" u ON u.id = c.teacher_id`

type courseRow struct {
	ID           string      `db:"id"`
	Grade        string      `db:"grade"`
	Section      string      `db:"section"`
	Shift        string      `db:"shift"`
	Year         int         `db:"year"`
	TeacherID    null.String `db:"teacher_id"`
	TeacherName  string      `db:"teacher_name"`
	StudentCount int         `db:"student_count"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo courseRepository) toRow(c course.Course) courseRow {
	return courseRow{
		ID:        c.ID,
		Grade:     c.Grade,
		Section:   c.Section,
		Shift:     c.Shift,
		Year:      c.Year,
		TeacherID: nullString(c.TeacherID),
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	}
}

func (repo courseRepository) fromRow(row courseRow) course.Course {
	return course.Course{
		ID:           row.ID,
		Grade:        row.Grade,
		Section:      row.Section,
		Shift:        row.Shift,
		Year:         row.Year,
		TeacherID:    row.TeacherID.String,
		TeacherName:  row.TeacherName,
		StudentCount: row.StudentCount,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

func (repo courseRepository) trapUniqueErr(err error, msg string) error {
	if _, ok := uniqueViolationConstraint(err); ok {
		return course.ErrCourseExists
	}
	return errors.Wrap(err, msg)
}

func (repo courseRepository) CheckCourseUniqueness(ctx context.Context, c course.Course) error {
	var w where
	w.add("grade = ? AND section = ? AND shift = ? AND year = ?", c.Grade, c.Section, c.Shift, c.Year)
	if c.ID != "" {
		w.add("id <> ?", c.ID)
	}
	var exists bool
	q := repo.db.Rebind(`SELECT EXISTS (SELECT 1 FROM course` + w.String() + `)`)
	if err := repo.db.GetContext(ctx, &exists, q, w.args...); err != nil {
		return errors.Wrap(err, "checking course uniqueness")
	}
	if exists {
		return course.ErrCourseExists
	}
	return nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	c.ID = uuid.New().String()
	q := `INSERT INTO course (id, grade, section, shift, year, teacher_id, created_at, updated_at)
		VALUES (:id, :grade, :section, :shift, :year, :teacher_id, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.toRow(c)); err != nil {
		return course.Course{}, repo.trapUniqueErr(err, "inserting course")
	}
	return c, nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter) ([]course.Course, error) {
	var w where
	if filter.TeacherID != "" {
		if !isUUID(filter.TeacherID) {
			return []course.Course{}, nil
		}
		w.add("c.teacher_id = ?", filter.TeacherID)
	}
	if filter.Year != 0 {
		w.add("c.year = ?", filter.Year)
	}

	var rows []courseRow
	q := repo.db.Rebind(courseSelect + w.String() + ` ORDER BY c.year DESC, c.grade ASC, c.section ASC`)
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, repo.fromRow(row))
	}
	return courses, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	if !isUUID(id) {
		return course.Course{}, course.ErrNotFound
	}
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind(courseSelect+` WHERE c.id = ?`), id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "finding course")
	}
	return repo.fromRow(row), nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	q := `UPDATE course SET grade = :grade, section = :section, shift = :shift, year = :year,
		teacher_id = :teacher_id, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, repo.toRow(c))
	if err != nil {
		return course.Course{}, repo.trapUniqueErr(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return c, nil
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id string) error {
	if !isUUID(id) {
		return course.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`DELETE FROM course WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.ErrNotFound
	}
	return nil
}
