package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/trezcool/colegio/client"
	"github.com/trezcool/colegio/core/attendance"
	"github.com/trezcool/colegio/core/course"
	"github.com/trezcool/colegio/core/user"
)

// statusKeys are the shortcuts accepted when taking attendance.
var statusKeys = map[string]string{
	"P": attendance.StatusPresent,
	"A": attendance.StatusAbsent,
	"T": attendance.StatusLate,
	"J": attendance.StatusExcused,
}

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
}

func (cli *commandLine) courses(ctx context.Context) error {
	usr, err := cli.session(ctx)
	if err != nil {
		return err
	}

	var courses []course.Course
	switch {
	case usr.HasFamily(user.FamilyAdmin):
		courses, err = cli.c.Courses().Query(ctx, course.QueryFilter{})
	case usr.HasFamily(user.FamilyTeacher):
		courses, err = cli.c.Courses().ByTeacher(ctx, usr.ID)
	default:
		return errors.New("only admins and teachers are in charge of courses")
	}
	if err != nil {
		return err
	}

	tw := newTable(cli.out)
	fmt.Fprintln(tw, "ID\tCOURSE\tSHIFT\tYEAR\tTEACHER\tSTUDENTS")
	for _, c := range courses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%d\n", c.ID, c.Label(), c.Shift, c.Year, c.TeacherName, c.StudentCount)
	}
	return tw.Flush()
}

func (cli *commandLine) loadTab(ctx context.Context, courseID string) (*client.AsistenciaTab, error) {
	if _, err := cli.session(ctx); err != nil {
		return nil, err
	}
	tab := client.NewAsistenciaTab(cli.c, courseID)
	if err := tab.Load(ctx); err != nil {
		return nil, err
	}
	return tab, nil
}

func (cli *commandLine) printRows(tab *client.AsistenciaTab) error {
	tw := newTable(cli.out)
	fmt.Fprintf(tw, "STUDENT\tP\tA\tT\tJ\t%%\t%s\n", tab.Date())
	for _, row := range tab.Rows() {
		h := row.History
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d%%\t%s\n",
			row.Student.FullName(), h.Present, h.Absent, h.Late, h.Excused, h.Percentage, row.Mark.Status)
	}
	return tw.Flush()
}

func (cli *commandLine) roster(ctx context.Context, courseID string) error {
	tab, err := cli.loadTab(ctx, courseID)
	if err != nil {
		return err
	}
	return cli.printRows(tab)
}

// takeAttendance prompts a status for every student; an empty answer keeps the current mark.
func (cli *commandLine) takeAttendance(ctx context.Context, courseID, date, all string) error {
	tab, err := cli.loadTab(ctx, courseID)
	if err != nil {
		return err
	}
	if date != "" {
		if err = tab.SetDate(date); err != nil {
			return err
		}
	}

	fmt.Fprintf(cli.out, "Attendance of %s: [P]resente, [A]usente, [T]arde, [J]ustificado\n", tab.Date())
	for _, row := range tab.Rows() {
		for {
			fmt.Fprintf(cli.out, "%s [%s]: ", row.Student.FullName(), row.Mark.Status)
			line, rErr := cli.in.ReadString('\n')
			answer := strings.ToUpper(strings.TrimSpace(line))
			if answer == "" {
				if rErr != nil && rErr != io.EOF {
					return rErr
				}
				break
			}
			status, ok := statusKeys[answer]
			if !ok {
				status = answer
			}
			if err = tab.Mark(row.Student.ID, status, row.Mark.Note); err == nil {
				break
			}
			fmt.Fprintf(cli.out, "%v\n", err)
			if rErr != nil {
				return err
			}
		}
	}
	if all != "" {
		if status, ok := statusKeys[strings.ToUpper(all)]; ok {
			all = status
		}
		if err = tab.MarkAll(all); err != nil {
			return err
		}
	}

	if err = tab.Validate(); err != nil {
		if fldErrs, ok := err.(client.FormErrors); ok {
			return errors.Errorf("%d student(s) left unmarked", len(fldErrs))
		}
		return err
	}
	day, err := tab.Submit(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d record(s) saved for %s\n", len(day.Records), day.Date)
	return cli.printRows(tab)
}

func (cli *commandLine) summary(ctx context.Context, courseID, from, to string) error {
	if _, err := cli.session(ctx); err != nil {
		return err
	}
	tab := client.NewAsistenciaTab(cli.c, courseID)
	sum, err := tab.Summary(ctx, from, to)
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "%s: %s - %s\n", sum.Course.Label(), sum.From, sum.To)
	tw := newTable(cli.out)
	fmt.Fprintln(tw, "STUDENT\tP\tA\tT\tJ\tTOTAL\t%")
	for _, s := range sum.Summaries {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d%%\n",
			s.StudentName, s.Present, s.Absent, s.Late, s.Excused, s.Total, s.Percentage)
	}
	return tw.Flush()
}
