// Package testutil holds fixtures shared by the tests of every layer.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/colegio/core"
	"github.com/trezcool/colegio/core/attendance"
	"github.com/trezcool/colegio/core/course"
	"github.com/trezcool/colegio/core/student"
	"github.com/trezcool/colegio/core/user"
	emailsvc "github.com/trezcool/colegio/services/email"
	inmemdb "github.com/trezcool/colegio/storage/database/inmem"
)

// Env wires every service on top of a fresh in-memory database.
type Env struct {
	Conf       *core.Config
	DB         *inmemdb.DB
	Mail       *emailsvc.ConsoleServiceMock
	Validate   *validator.Validate
	Translator ut.Translator

	UserRepo       user.Repository
	CourseRepo     course.Repository
	StudentRepo    student.Repository
	AttendanceRepo attendance.Repository

	UserSvc       user.Service
	CourseSvc     course.Service
	StudentSvc    student.Service
	AttendanceSvc attendance.Service
}

func NewEnv(t *testing.T) *Env {
	t.Helper()
	conf := core.NewTestConfig()
	core.ParseEmailTemplates(conf, core.NopLogger{})

	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(core.NopLogger{})
	course.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)

	db := inmemdb.Open()
	env := &Env{
		Conf:           conf,
		DB:             db,
		Mail:           emailsvc.NewConsoleServiceMock(conf),
		Validate:       validate,
		Translator:     translator,
		UserRepo:       inmemdb.NewUserRepository(db),
		CourseRepo:     inmemdb.NewCourseRepository(db),
		StudentRepo:    inmemdb.NewStudentRepository(db),
		AttendanceRepo: inmemdb.NewAttendanceRepository(db),
	}
	env.UserSvc = user.NewServiceMock(env.UserRepo, env.Mail, conf)
	env.CourseSvc = course.NewService(env.CourseRepo, env.UserSvc)
	env.StudentSvc = student.NewService(env.StudentRepo, env.CourseSvc, env.UserSvc)
	env.AttendanceSvc = attendance.NewService(env.AttendanceRepo, env.StudentSvc, env.UserSvc, env.Mail, core.NopLogger{})
	return env
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if usr.Roles == nil {
		usr.Roles = []string{}
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(t *testing.T, repo course.Repository, grade, section, shift string, year int, teacherID string) course.Course {
	t.Helper()
	now := time.Now().UTC()
	c, err := repo.CreateCourse(context.Background(), course.Course{
		Grade:     grade,
		Section:   section,
		Shift:     shift,
		Year:      year,
		TeacherID: teacherID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	if c, err = repo.GetCourse(context.Background(), c.ID); err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}

func CreateStudent(t *testing.T, repo student.Repository, firstName, lastName, dni, courseID, tutorID, userID string) student.Student {
	t.Helper()
	now := time.Now().UTC()
	s, err := repo.CreateStudent(context.Background(), student.Student{
		FirstName: firstName,
		LastName:  lastName,
		DNI:       dni,
		CourseID:  courseID,
		TutorID:   tutorID,
		UserID:    userID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}

// CreateRecords stores one record per student on date, all with status.
func CreateRecords(t *testing.T, repo attendance.Repository, courseID, date, status string, studentIDs ...string) []attendance.Record {
	t.Helper()
	now := time.Now().UTC()
	recs := make([]attendance.Record, 0, len(studentIDs))
	for _, id := range studentIDs {
		recs = append(recs, attendance.Record{
			StudentID: id,
			CourseID:  courseID,
			Date:      date,
			Status:    status,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	saved, err := repo.UpsertRecords(context.Background(), recs)
	if err != nil {
		t.Fatalf("CreateRecords() failed: %v", err)
	}
	return saved
}
