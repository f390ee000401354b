// Package inmemdb implements the repositories on top of in-memory maps. Used by tests and local demos.
package inmemdb

import (
	"sync"

	"github.com/trezcool/colegio/core/attendance"
	"github.com/trezcool/colegio/core/course"
	"github.com/trezcool/colegio/core/student"
	"github.com/trezcool/colegio/core/user"
)

type DB struct {
	sync.RWMutex
	users      map[string]*user.User
	courses    map[string]*course.Course
	students   map[string]*student.Student
	attendance map[string]*attendance.Record
}

func Open() *DB {
	return &DB{
		users:      make(map[string]*user.User),
		courses:    make(map[string]*course.Course),
		students:   make(map[string]*student.Student),
		attendance: make(map[string]*attendance.Record),
	}
}

// Reset drops every row.
func (db *DB) Reset() {
	db.Lock()
	defer db.Unlock()
	db.users = make(map[string]*user.User)
	db.courses = make(map[string]*course.Course)
	db.students = make(map[string]*student.Student)
	db.attendance = make(map[string]*attendance.Record)
}
