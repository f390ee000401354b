package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/colegio/core"
	"github.com/trezcool/colegio/core/user"
)

const errNoPermsToSetRoles = "not enough rights to set these roles"

type DestroyMultipleRequest struct {
	IDs []string `query:"id"`
}

// registerUserAPI mounts the user administration endpoints; all of them require an admin.
func (s *Server) registerUserAPI(g *echo.Group) {
	g.Use(adminMiddleware())

	g.GET("/getAll", s.queryUsers)
	g.GET("/roles", s.queryRoles)
	g.POST("/add", s.createUser)
	g.DELETE("/delete", s.destroyUsers)

	g.GET("/:id", s.retrieveUser, s.userMiddleware)
	g.PUT("/update/:id", s.updateUser, s.userMiddleware)
	g.DELETE("/delete/:id", s.destroyUser, s.userMiddleware)
}

// userMiddleware loads the User of the `:id` path param as the context "object".
func (s *Server) userMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, err := s.deps.UserSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding user by ID")
		}
		ctx.Set("object", usr)
		return next(ctx)
	}
}

func ctxObjectUser(ctx echo.Context) (user.User, error) {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return user.User{}, errors.Wrap(errObjNotFoundInCtx, "retrieving user from context")
	}
	return usr, nil
}

// Handlers

func (s *Server) createUser(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(ctx.Request().Context(), s.deps.Validate, s.deps.UserSvc); err != nil {
		return err
	}

	// ctxUser cannot set a role > their own max role
	ctxUsr, err := getContextUser(ctx, s.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if user.MaxRolePriority(data.Roles) > user.MaxRolePriority(ctxUsr.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}

	usr, err := s.deps.UserSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return respondData(ctx, http.StatusCreated, usr)
}

func (s *Server) queryUsers(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return respondList(ctx, []user.User{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := s.deps.UserSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return respondList(ctx, users)
}

func (s *Server) queryRoles(ctx echo.Context) error {
	return respondList(ctx, user.Roles)
}

func (s *Server) retrieveUser(ctx echo.Context) error {
	usr, err := ctxObjectUser(ctx)
	if err != nil {
		return err
	}
	return respondData(ctx, http.StatusOK, usr)
}

func (s *Server) updateUser(ctx echo.Context) error {
	usr, err := ctxObjectUser(ctx)
	if err != nil {
		return err
	}

	var data user.UpdateUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err = data.Validate(ctx.Request().Context(), usr, s.deps.Validate, s.deps.UserSvc); err != nil {
		return err
	}

	// ctxUser cannot set a role > their own max role, nor edit a user above them
	ctxUsr, err := getContextUser(ctx, s.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	ctxMax := user.MaxRolePriority(ctxUsr.Roles)
	if usr.ID != ctxUsr.ID && user.MaxRolePriority(usr.Roles) > ctxMax {
		return errHttpForbidden
	}
	if user.MaxRolePriority(data.Roles) > ctxMax {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}

	usr, err = s.deps.UserSvc.Update(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return respondData(ctx, http.StatusOK, usr)
}

func (s *Server) destroyUser(ctx echo.Context) error {
	usr, err := ctxObjectUser(ctx)
	if err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, s.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	// ctxUser cannot delete themselves, nor a User with a max role > theirs
	if usr.ID == ctxUsr.ID || user.MaxRolePriority(usr.Roles) > user.MaxRolePriority(ctxUsr.Roles) {
		return errHttpForbidden
	}

	if err := s.deps.UserSvc.Delete(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return respondMessage(ctx, http.StatusOK, "user deleted")
}

func (s *Server) destroyUsers(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if len(query.IDs) == 0 {
		return respondMessage(ctx, http.StatusOK, "no user deleted")
	}

	ctxUsr, err := getContextUser(ctx, s.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	for _, id := range query.IDs {
		if id == ctxUsr.ID {
			return errHttpForbidden
		}
	}
	targets, err := s.deps.UserSvc.Query(ctx.Request().Context(), &user.QueryFilter{}, nil)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	ctxMax := user.MaxRolePriority(ctxUsr.Roles)
	ids := make(map[string]bool, len(query.IDs))
	for _, id := range query.IDs {
		ids[id] = true
	}
	for _, usr := range targets {
		if ids[usr.ID] && user.MaxRolePriority(usr.Roles) > ctxMax {
			return errHttpForbidden
		}
	}

	if err := s.deps.UserSvc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return respondMessage(ctx, http.StatusOK, "users deleted")
}
