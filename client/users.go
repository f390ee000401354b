package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/colegio/core/user"
)

const usersPath = "/user"

// UserQuery filters `/user/getAll`. Ordering is a comma separated list of fields, "-" first for descending.
type UserQuery struct {
	Search   string
	Roles    []string
	IsActive *bool
	Ordering string
}

func (q UserQuery) values() url.Values {
	vals := make(url.Values)
	if q.Search != "" {
		vals.Set("search", q.Search)
	}
	for _, role := range q.Roles {
		vals.Add("role", role)
	}
	if q.IsActive != nil {
		vals.Set("is_active", strconv.FormatBool(*q.IsActive))
	}
	if q.Ordering != "" {
		vals.Set("ordering", q.Ordering)
	}
	return vals
}

// Users is the user administration module.
type Users struct{ c *Client }

func (c *Client) Users() Users { return Users{c} }

func (m Users) Query(ctx context.Context, q UserQuery) ([]user.User, error) {
	users, err := getList[user.User](ctx, m.c, usersPath+"/getAll", q.values())
	return users, errors.Wrap(err, "querying users")
}

func (m Users) Roles(ctx context.Context) ([]user.Role, error) {
	roles, err := getList[user.Role](ctx, m.c, usersPath+"/roles", nil)
	return roles, errors.Wrap(err, "querying roles")
}

func (m Users) Get(ctx context.Context, id string) (user.User, error) {
	usr, err := getData[user.User](ctx, m.c, usersPath+"/"+url.PathEscape(id), nil)
	return usr, errors.Wrap(err, "getting user")
}

func (m Users) Create(ctx context.Context, form UserForm) (user.User, error) {
	if err := form.Validate(); err != nil {
		return user.User{}, err
	}
	usr, err := sendData[user.User](ctx, m.c, http.MethodPost, usersPath+"/add", form.newUser(), usersPath)
	return usr, errors.Wrap(err, "creating user")
}

func (m Users) Update(ctx context.Context, id string, data user.UpdateUser) (user.User, error) {
	usr, err := sendData[user.User](ctx, m.c, http.MethodPut, usersPath+"/update/"+url.PathEscape(id), data, usersPath, profilePath)
	return usr, errors.Wrap(err, "updating user")
}

func (m Users) Delete(ctx context.Context, id string) error {
	_, err := sendMessage(ctx, m.c, http.MethodDelete, usersPath+"/delete/"+url.PathEscape(id), nil, nil, usersPath)
	return errors.Wrap(err, "deleting user")
}

func (m Users) DeleteMany(ctx context.Context, ids ...string) error {
	_, err := sendMessage(ctx, m.c, http.MethodDelete, usersPath+"/delete", url.Values{"id": ids}, nil, usersPath)
	return errors.Wrap(err, "deleting users")
}
