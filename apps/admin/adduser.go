package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/colegio/core"
	"github.com/trezcool/colegio/core/user"
)

var (
	errNoRoles      = errors.New("at least one role is required")
	errInvalidEmail = errors.New("enter a valid email address")

	validate = validator.New()
)

// addUser updates or creates an active user.User holding roles.
// The password policy and the email format are those of the API.
func (cli *commandLine) addUser(name, uname, email, pwd string, roles []string) error {
	if len(roles) == 0 {
		return errNoRoles
	}
	for _, role := range roles {
		if user.RolePriority(role) == 0 {
			return fmt.Errorf("unknown role %q", role)
		}
	}

	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	if email != "" && validate.Var(email, "email") != nil {
		return errInvalidEmail
	}
	now := time.Now().UTC()

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname, email}})
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Username:  uname,
			Email:     email,
			CreatedAt: now,
		}
	}
	if name = core.CleanString(name); name != "" {
		usr.Name = name
	} else if usr.Name == "" {
		usr.Name = uname
	}
	if err = user.ValidatePassword(pwd, usr); err != nil {
		return err
	}
	usr.Roles = roles
	usr.IsActive = true
	usr.UpdatedAt = now
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.usrRepo.UpdateOrCreateUser(ctx, usr)
	return err
}
