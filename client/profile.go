package client

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/trezcool/colegio/core/student"
	"github.com/trezcool/colegio/core/user"
)

const profilePath = "/perfil"

// Profile is the logged in user with their linked students.
type Profile struct {
	User     user.User         `json:"user"`
	Students []student.Student `json:"students"`
}

// Profiles is the module of the logged in user's own profile.
type Profiles struct{ c *Client }

func (c *Client) Profile() Profiles { return Profiles{c} }

func (m Profiles) Get(ctx context.Context) (Profile, error) {
	prof, err := getData[Profile](ctx, m.c, profilePath, nil)
	if prof.Students == nil {
		prof.Students = []student.Student{}
	}
	return prof, errors.Wrap(err, "getting profile")
}

func (m Profiles) Update(ctx context.Context, form ProfileForm) (user.User, error) {
	if err := form.Validate(); err != nil {
		return user.User{}, err
	}
	usr, err := sendData[user.User](ctx, m.c, http.MethodPut, profilePath, form.updateProfile(), profilePath, usersPath)
	return usr, errors.Wrap(err, "updating profile")
}
