package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/trezcool/colegio/client"
)

func (cli *commandLine) login(ctx context.Context, uname, pwd string) error {
	usr, err := cli.auth.Login(ctx, uname, pwd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Welcome %s!\n", usr.Name)
	fmt.Fprintf(cli.out, "-> %s\n", client.HomePath(usr.Role))
	return nil
}

func (cli *commandLine) whoami(ctx context.Context) error {
	usr, err := cli.session(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s <%s> (%s)\n", usr.Name, usr.Email, usr.Username)
	fmt.Fprintf(cli.out, "roles: %s\n", strings.Join(usr.Roles, ", "))
	fmt.Fprintf(cli.out, "home: %s\n", client.HomePath(usr.Role))
	return nil
}

// navigate prints where a navigation to path ends up.
func (cli *commandLine) navigate(ctx context.Context, path string) error {
	if _, err := cli.auth.CheckAuth(ctx, false); err != nil {
		return err
	}
	dec := cli.guard.Resolve(path)
	if dec.Allowed {
		fmt.Fprintf(cli.out, "%s\n", path)
		return nil
	}
	fmt.Fprintf(cli.out, "-> %s\n", dec.Redirect)
	return nil
}

func (cli *commandLine) profile(ctx context.Context) error {
	if _, err := cli.session(ctx); err != nil {
		return err
	}
	prof, err := cli.c.Profile().Get(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s <%s>\n", prof.User.Name, prof.User.Email)
	for _, st := range prof.Students {
		fmt.Fprintf(cli.out, "  %s (DNI %s)\n", st.FullName(), st.DNI)
	}
	return nil
}
