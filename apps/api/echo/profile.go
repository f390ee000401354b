package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/colegio/core/student"
	"github.com/trezcool/colegio/core/user"
)

// Profile is the current user with the students linked to them:
// the children of a tutor, or the student record of a student account.
type Profile struct {
	User     user.User         `json:"user"`
	Students []student.Student `json:"students"`
}

func (s *Server) registerProfileAPI(g *echo.Group) {
	g.GET("", s.retrieveProfile)
	g.PUT("", s.updateProfile)
}

func (s *Server) profile(ctx echo.Context, usr user.User) (Profile, error) {
	rctx := ctx.Request().Context()
	prof := Profile{User: usr, Students: []student.Student{}}
	if usr.IsTutor() {
		children, err := s.deps.StudentSvc.ByTutor(rctx, usr.ID)
		if err != nil {
			return Profile{}, errors.Wrap(err, "querying tutor students")
		}
		prof.Students = append(prof.Students, children...)
	}
	if usr.IsStudent() {
		own, err := s.deps.StudentSvc.ByUser(rctx, usr.ID)
		switch errors.Cause(err) {
		case nil:
			prof.Students = append(prof.Students, own)
		case student.ErrNotFound:
		default:
			return Profile{}, errors.Wrap(err, "finding own student record")
		}
	}
	return prof, nil
}

func (s *Server) retrieveProfile(ctx echo.Context) error {
	usr, err := getContextUser(ctx, s.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	prof, err := s.profile(ctx, usr)
	if err != nil {
		return err
	}
	return respondData(ctx, http.StatusOK, prof)
}

func (s *Server) updateProfile(ctx echo.Context) error {
	usr, err := getContextUser(ctx, s.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data user.UpdateProfile
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err = data.Validate(usr, s.deps.Validate); err != nil {
		return err
	}

	usr, err = s.deps.UserSvc.UpdateProfile(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return respondData(ctx, http.StatusOK, usr)
}
