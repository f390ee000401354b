package attendance

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/colegio/core"
	"github.com/trezcool/colegio/core/course"
	"github.com/trezcool/colegio/core/student"
	"github.com/trezcool/colegio/core/user"
)

var (
	// errors
	ErrFutureDate      = errors.New("attendance cannot be recorded for a future date")
	ErrNotInCourse     = errors.New("some students do not belong to the course")
	ErrDuplicateRecord = errors.New("a student appears more than once")
)

type (
	Repository interface {
		// UpsertRecords inserts recs, updating the status, note and author of existing (student, date) records.
		UpsertRecords(ctx context.Context, recs []Record) ([]Record, error)
		// QueryRecords applies AND operation on available QueryFilter fields; results are sorted by date.
		QueryRecords(ctx context.Context, filter QueryFilter) ([]Record, error)
	}

	Service interface {
		// Record saves the same-day attendance of c taken by usr and notifies the tutors of absent students.
		Record(ctx context.Context, usr user.User, c course.Course, ns NewSheet) ([]Record, error)
		ByCourseAndDate(ctx context.Context, courseID, date string) ([]Record, error)
		ByStudent(ctx context.Context, studentID string, rng Range) ([]Record, error)
		CourseSummary(ctx context.Context, c course.Course, rng Range) ([]Summary, error)
		StudentSummary(ctx context.Context, s student.Student, rng Range) (Summary, error)
	}

	service struct {
		repo    Repository
		stdSvc  student.Service
		usrSvc  user.Service
		mailSvc core.EmailService
		logger  core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	stdSvc student.Service,
	usrSvc user.Service,
	mailSvc core.EmailService,
	logger core.Logger,
) Service {
	return &service{
		repo:    repo,
		stdSvc:  stdSvc,
		usrSvc:  usrSvc,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

func (svc *service) Record(ctx context.Context, usr user.User, c course.Course, ns NewSheet) ([]Record, error) {
	roster, err := svc.stdSvc.ByCourse(ctx, c.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying course students")
	}
	enrolled := make(map[string]student.Student, len(roster))
	for _, s := range roster {
		enrolled[s.ID] = s
	}

	now := time.Now().UTC()
	seen := make(map[string]bool, len(ns.Records))
	recs := make([]Record, 0, len(ns.Records))
	for _, entry := range ns.Records {
		if _, ok := enrolled[entry.StudentID]; !ok {
			return nil, core.NewValidationError(ErrNotInCourse, core.FieldError{Field: "records", Error: ErrNotInCourse.Error()})
		}
		if seen[entry.StudentID] {
			return nil, core.NewValidationError(ErrDuplicateRecord, core.FieldError{Field: "records", Error: ErrDuplicateRecord.Error()})
		}
		seen[entry.StudentID] = true
		recs = append(recs, Record{
			StudentID:  entry.StudentID,
			CourseID:   c.ID,
			Date:       ns.Date,
			Status:     entry.Status,
			Note:       entry.Note,
			RecordedBy: usr.ID,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	saved, err := svc.repo.UpsertRecords(ctx, recs)
	if err != nil {
		return nil, errors.Wrap(err, "saving attendance records")
	}

	svc.notifyAbsences(ctx, c, saved, enrolled)
	return saved, nil
}

type absenceNotice struct {
	TutorName   string
	StudentName string
	Date        string
	Course      string
	Note        string
}

// notifyAbsences mails the tutor of every absent student; failures are logged, not returned.
func (svc *service) notifyAbsences(ctx context.Context, c course.Course, recs []Record, enrolled map[string]student.Student) {
	msgs := make([]*core.EmailMessage, 0)
	for _, rec := range recs {
		if rec.Status != StatusAbsent {
			continue
		}
		s := enrolled[rec.StudentID]
		if s.TutorID == "" {
			continue
		}
		tutor, err := svc.usrSvc.GetByID(ctx, s.TutorID)
		if err != nil {
			if errors.Cause(err) != user.ErrNotFound {
				svc.logger.Error(fmt.Sprintf("finding tutor %s: %v", s.TutorID, err), err)
			}
			continue
		}
		if tutor.Email == "" || !tutor.IsActive {
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: tutor.Name, Address: tutor.Email}},
			Subject:      "Aviso de inasistencia",
			TemplateName: "absence_notice",
			TemplateData: absenceNotice{
				TutorName:   tutor.Name,
				StudentName: s.FirstName + " " + s.LastName,
				Date:        rec.Date,
				Course:      c.Label(),
				Note:        rec.Note,
			},
		})
	}
	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
}

func (svc *service) ByCourseAndDate(ctx context.Context, courseID, date string) ([]Record, error) {
	return svc.repo.QueryRecords(ctx, QueryFilter{CourseID: courseID, Date: date})
}

func (svc *service) ByStudent(ctx context.Context, studentID string, rng Range) ([]Record, error) {
	return svc.repo.QueryRecords(ctx, QueryFilter{StudentIDs: []string{studentID}, From: rng.From, To: rng.To})
}

func (svc *service) CourseSummary(ctx context.Context, c course.Course, rng Range) ([]Summary, error) {
	roster, err := svc.stdSvc.ByCourse(ctx, c.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying course students")
	}
	if len(roster) == 0 {
		return []Summary{}, nil
	}
	ids := make([]string, 0, len(roster))
	for _, s := range roster {
		ids = append(ids, s.ID)
	}
	recs, err := svc.repo.QueryRecords(ctx, QueryFilter{StudentIDs: ids, From: rng.From, To: rng.To})
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}
	return Summarize(recs, roster, rng), nil
}

func (svc *service) StudentSummary(ctx context.Context, s student.Student, rng Range) (Summary, error) {
	recs, err := svc.ByStudent(ctx, s.ID, rng)
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying attendance records")
	}
	return Summarize(recs, []student.Student{s}, rng)[0], nil
}
