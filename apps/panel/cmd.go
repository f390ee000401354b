package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/colegio/client"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp        = errors.New("help provided")
	errNotLoggedIn = errors.New("not logged in, run `login` first")
)

type commandLine struct {
	out    io.Writer
	in     *bufio.Reader
	c      *client.Client
	tokens *client.TokenService
	auth   *client.AuthStore
	guard  *client.Guard
}

// newCommandLine wires the client session; redirects are printed, the way a browser would navigate.
func newCommandLine(c *client.Client, store client.TokenStore, in io.Reader, out io.Writer) *commandLine {
	cli := &commandLine{out: out, in: bufio.NewReader(in), c: c, tokens: client.NewTokenService(store)}
	cli.auth = client.NewAuthStore(c, cli.tokens, func(path string) {
		fmt.Fprintf(cli.out, "-> %s\n", path)
	})
	cli.guard = client.NewGuard(cli.auth)
	return cli
}

// errorText renders err for the terminal, with the field messages of rejected forms.
func errorText(err error) string {
	var fields map[string]string
	msg := err.Error()
	switch e := errors.Cause(err).(type) {
	case *client.APIError:
		msg, fields = e.Message, e.Fields
	case client.FormErrors:
		msg, fields = "invalid input", e
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	b.WriteString(msg)
	for _, name := range names {
		fmt.Fprintf(&b, "\n  %s: %s", name, fields[name])
	}
	return b.String()
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -username USERNAME|EMAIL - start a session (the password is prompted)")
	fmt.Fprintln(cli.out, "  logout - end the session")
	fmt.Fprintln(cli.out, "  whoami - show the logged in user")
	fmt.Fprintln(cli.out, "  ir PATH - resolve a dashboard route")
	fmt.Fprintln(cli.out, "  perfil - show the profile and linked students")
	fmt.Fprintln(cli.out, "  cursos - list the courses in charge")
	fmt.Fprintln(cli.out, "  asistencia -curso ID - show the roster with historical attendance")
	fmt.Fprintln(cli.out, "  tomar -curso ID [-fecha YYYY-MM-DD] [-todos STATUS] - take attendance")
	fmt.Fprintln(cli.out, "  resumen -curso ID -desde YYYY-MM-DD -hasta YYYY-MM-DD - attendance summary")
}

func (cli *commandLine) readPassword() (string, error) {
	fmt.Fprint(cli.out, "Password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

// session makes sure a usable session exists before an authed command.
func (cli *commandLine) session(ctx context.Context) (client.SessionUser, error) {
	ok, err := cli.auth.CheckAuth(ctx, false)
	if err != nil {
		return client.SessionUser{}, err
	}
	usr, authed := cli.auth.User()
	if !ok || !authed {
		return client.SessionUser{}, errNotLoggedIn
	}
	return usr, nil
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	loginCmd := flag.NewFlagSet("login", flag.ContinueOnError)
	loginCmd.SetOutput(cli.out)
	loginUname := loginCmd.String("username", "", "The username or email.")

	asistenciaCmd := flag.NewFlagSet("asistencia", flag.ContinueOnError)
	asistenciaCmd.SetOutput(cli.out)
	asistenciaCourse := asistenciaCmd.String("curso", "", "The course ID.")

	tomarCmd := flag.NewFlagSet("tomar", flag.ContinueOnError)
	tomarCmd.SetOutput(cli.out)
	tomarCourse := tomarCmd.String("curso", "", "The course ID.")
	tomarDate := tomarCmd.String("fecha", "", "The day to take attendance of; today by default.")
	tomarAll := tomarCmd.String("todos", "", "Mark every student left unmarked with this status.")

	resumenCmd := flag.NewFlagSet("resumen", flag.ContinueOnError)
	resumenCmd.SetOutput(cli.out)
	resumenCourse := resumenCmd.String("curso", "", "The course ID.")
	resumenFrom := resumenCmd.String("desde", "", "First day of the range.")
	resumenTo := resumenCmd.String("hasta", "", "Last day of the range.")

	switch args[1] {
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loginUname == "" {
			loginCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		return cli.login(ctx, *loginUname, pwd)

	case "logout":
		return cli.auth.Logout()

	case "whoami":
		return cli.whoami(ctx)

	case "ir":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.navigate(ctx, args[2])

	case "perfil":
		return cli.profile(ctx)

	case "cursos":
		return cli.courses(ctx)

	case "asistencia":
		if err := asistenciaCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *asistenciaCourse == "" {
			asistenciaCmd.Usage()
			return errHelp
		}
		return cli.roster(ctx, *asistenciaCourse)

	case "tomar":
		if err := tomarCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tomarCourse == "" {
			tomarCmd.Usage()
			return errHelp
		}
		return cli.takeAttendance(ctx, *tomarCourse, *tomarDate, *tomarAll)

	case "resumen":
		if err := resumenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resumenCourse == "" {
			resumenCmd.Usage()
			return errHelp
		}
		return cli.summary(ctx, *resumenCourse, *resumenFrom, *resumenTo)

	default:
		cli.printUsage()
		return errHelp
	}
}
