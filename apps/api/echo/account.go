package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/colegio/core"
	"github.com/trezcool/colegio/core/user"
)

const passwordResetSent = "If the email address supplied is associated with an active account on this system, " +
	"an email will arrive in your inbox shortly with instructions to reset your password."

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string     `json:"token"`
		User  *user.User `json:"user,omitempty"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}

func (s *Server) registerAuthAPI(g *echo.Group, authed []echo.MiddlewareFunc) {
	// un-authed endpoints
	// TODO: rate limit `/login` & `/password-reset` per client IP
	g.POST("/login", s.login)
	g.POST("/password-reset", s.resetPassword)
	g.POST("/password-reset-confirm", s.confirmPasswordReset)

	// authed endpoints
	g.POST("/refresh", s.refreshToken, authed...)
	g.GET("/check", s.checkAuth, authed...)
}

func (s *Server) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	usr, token, err := s.auth.authenticate(ctx.Request().Context(), data.Username, data.Password, s.deps.UserSvc)
	if s.deps.Metrics != nil {
		s.deps.Metrics.Login(err == nil)
	}
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	return respondData(ctx, http.StatusOK, LoginResponse{Token: token, User: &usr})
}

func (s *Server) refreshToken(ctx echo.Context) error {
	token, err := s.auth.refreshToken(ctx, s.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return respondData(ctx, http.StatusOK, LoginResponse{Token: token})
}

func (s *Server) checkAuth(ctx echo.Context) error {
	usr, err := getContextUser(ctx, s.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return respondData(ctx, http.StatusOK, usr)
}

func (s *Server) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	err := s.deps.UserSvc.RequestPasswordReset(ctx.Request().Context(), data.Email)
	if !(err == nil || errors.Cause(err) == user.ErrNotFound) {
		// do not return errors to attackers
		s.deps.Logger.Error(fmt.Sprintf("requesting password reset: %v", err), err)
	}
	return respondMessage(ctx, http.StatusOK, passwordResetSent)
}

func (s *Server) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	if err := s.deps.UserSvc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return respondMessage(ctx, http.StatusOK, "Password has been reset with the new password.")
}
