package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/colegio/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

// project fills the read-only fields of c. The caller must hold the lock.
func (repo *courseRepository) project(c course.Course) course.Course {
	c.TeacherName = ""
	if teacher, ok := repo.db.users[c.TeacherID]; ok {
		c.TeacherName = teacher.Name
	}
	c.StudentCount = 0
	for _, s := range repo.db.students {
		if s.CourseID == c.ID {
			c.StudentCount++
		}
	}
	return c
}

func (repo *courseRepository) CheckCourseUniqueness(_ context.Context, c course.Course) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, other := range repo.db.courses {
		if other.ID != c.ID && other.Grade == c.Grade && other.Section == c.Section &&
			other.Shift == c.Shift && other.Year == c.Year {
			return course.ErrCourseExists
		}
	}
	return nil
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = uuid.New().String()
	c.TeacherName, c.StudentCount = "", 0
	repo.db.courses[c.ID] = &c
	return repo.project(c), nil
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter course.QueryFilter) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		if filter.TeacherID != "" && c.TeacherID != filter.TeacherID {
			continue
		}
		if filter.Year != 0 && c.Year != filter.Year {
			continue
		}
		courses = append(courses, repo.project(*c))
	}
	sort.SliceStable(courses, func(i, j int) bool {
		a, b := courses[i], courses[j]
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		if a.Grade != b.Grade {
			return a.Grade < b.Grade
		}
		return a.Section < b.Section
	})
	return courses, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return repo.project(*c), nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[c.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	c.TeacherName, c.StudentCount = "", 0
	repo.db.courses[c.ID] = &c
	return repo.project(c), nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[id]; !ok {
		return course.ErrNotFound
	}
	delete(repo.db.courses, id)

	// mirror ON DELETE SET NULL / CASCADE
	for _, s := range repo.db.students {
		if s.CourseID == id {
			s.CourseID = ""
		}
	}
	for rid, r := range repo.db.attendance {
		if r.CourseID == id {
			delete(repo.db.attendance, rid)
		}
	}
	return nil
}
