package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/colegio/client"
	"github.com/trezcool/colegio/core/user"
)

func TestTokenService(t *testing.T) {
	tests := []struct {
		name    string
		token   func(t *testing.T) string
		wantErr error
		want    client.SessionUser
	}{
		{name: "no token", token: func(*testing.T) string { return "" }, wantErr: client.ErrNoToken},
		{
			name:    "expired",
			token:   func(t *testing.T) string { return newToken(t, "u1", user.FamilyTutor, []string{user.RoleTutor}, -time.Minute) },
			wantErr: client.ErrTokenExpired,
		},
		{
			name:  "role from claims",
			token: func(t *testing.T) string { return newToken(t, "u1", user.FamilyTutor, []string{user.RoleTutor}, time.Hour) },
			want: client.SessionUser{
				ID: "u1", Name: "Ana Quispe", Username: "ana", Email: "ana@test.pe",
				Role: user.FamilyTutor, Roles: []string{user.RoleTutor},
			},
		},
		{
			name: "role from roles",
			token: func(t *testing.T) string {
				return newToken(t, "u2", "", []string{user.RoleTeacher, user.RoleAdmin}, time.Hour)
			},
			want: client.SessionUser{
				ID: "u2", Name: "Ana Quispe", Username: "ana", Email: "ana@test.pe",
				Role: user.FamilyAdmin, Roles: []string{user.RoleTeacher, user.RoleAdmin},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := client.NewTokenService(client.NewMemoryTokenStore())
			require.NoError(t, ts.Save(tt.token(t)))

			usr, err := ts.User()
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				assert.False(t, ts.IsAuthenticated())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, usr)
			assert.True(t, ts.IsAuthenticated())
		})
	}

	t.Run("malformed", func(t *testing.T) {
		ts := client.NewTokenService(client.NewMemoryTokenStore())
		require.NoError(t, ts.Save("not.a.jwt"))
		_, err := ts.User()
		assert.Error(t, err)
		assert.False(t, ts.IsAuthenticated())
	})
}

func TestFileTokenStore(t *testing.T) {
	store := client.NewFileTokenStore(filepath.Join(t.TempDir(), "colegio", "token"))

	token, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.Save("abc.def.ghi"))
	token, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
	token, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)
}

type authEnv struct {
	api       *fakeAPI
	c         *client.Client
	tokens    *client.TokenService
	auth      *client.AuthStore
	redirects []string
	revoked   atomic.Bool
}

func setupAuth(t *testing.T) *authEnv {
	t.Helper()
	env := &authEnv{api: newFakeAPI(t)}
	token := newToken(t, "u1", user.FamilyTeacher, []string{user.RoleTeacher}, time.Hour)

	env.api.handle("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var form client.LoginForm
		require.NoError(t, json.NewDecoder(r.Body).Decode(&form))
		if form.Username != "ana" || form.Password != "LolC@t123" {
			respondError(t, w, http.StatusBadRequest, "invalid credentials")
			return
		}
		respondData(t, w, http.StatusOK, client.LoginResponse{Token: token, User: &user.User{ID: "u1"}})
	})
	env.api.handle("GET /auth/check", func(w http.ResponseWriter, r *http.Request) {
		if env.revoked.Load() || r.Header.Get("Authorization") != "Bearer "+token {
			respondError(t, w, http.StatusUnauthorized, "invalid or expired jwt")
			return
		}
		respondData(t, w, http.StatusOK, user.User{ID: "u1"})
	})
	env.api.handle("GET /perfil", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			respondError(t, w, http.StatusUnauthorized, "missing or malformed jwt")
			return
		}
		respondData(t, w, http.StatusOK, client.Profile{User: user.User{ID: "u1", Name: "Ana Quispe"}})
	})

	env.c = env.api.client()
	env.tokens = client.NewTokenService(client.NewMemoryTokenStore())
	env.auth = client.NewAuthStore(env.c, env.tokens, func(path string) {
		env.redirects = append(env.redirects, path)
	})
	return env
}

func TestAuthStore_Login(t *testing.T) {
	env := setupAuth(t)
	ctx := context.Background()

	var notified []*client.SessionUser
	unsubscribe := env.auth.Subscribe(func(usr *client.SessionUser) { notified = append(notified, usr) })
	defer unsubscribe()

	t.Run("invalid form", func(t *testing.T) {
		_, err := env.auth.Login(ctx, " ", "")
		require.Error(t, err)
		fldErrs, ok := err.(client.FormErrors)
		require.True(t, ok)
		assert.Equal(t, "this field is required", fldErrs["username"])
		assert.Equal(t, "this field is required", fldErrs["password"])
		assert.Equal(t, 0, env.api.hitsOf("POST /auth/login"))
	})

	t.Run("invalid credentials", func(t *testing.T) {
		_, err := env.auth.Login(ctx, "ana", "lol")
		require.Error(t, err)
		assert.Equal(t, "invalid credentials", client.ErrorMessage(err))
		assert.False(t, env.auth.IsAuthenticated())
		assert.Empty(t, env.redirects)
	})

	t.Run("logged in", func(t *testing.T) {
		usr, err := env.auth.Login(ctx, " ANA ", "LolC@t123")
		require.NoError(t, err)
		assert.Equal(t, "u1", usr.ID)
		assert.Equal(t, user.FamilyTeacher, usr.Role)

		current, ok := env.auth.User()
		require.True(t, ok)
		assert.Equal(t, usr, current)
		require.Len(t, notified, 1)
		assert.Equal(t, usr, *notified[0])

		prof, err := env.c.Profile().Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Ana Quispe", prof.User.Name)
		assert.NotNil(t, prof.Students)
	})

	t.Run("logout", func(t *testing.T) {
		require.NoError(t, env.auth.Logout())
		assert.False(t, env.auth.IsAuthenticated())
		assert.False(t, env.tokens.IsAuthenticated())
		assert.Equal(t, []string{client.LoginPath}, env.redirects)
		require.Len(t, notified, 2)
		assert.Nil(t, notified[1])
	})
}

func TestAuthStore_Unauthorized(t *testing.T) {
	env := setupAuth(t)
	ctx := context.Background()

	_, err := env.auth.Login(ctx, "ana", "LolC@t123")
	require.NoError(t, err)

	ok, err := env.auth.CheckAuth(ctx, true)
	require.NoError(t, err)
	assert.True(t, ok)

	env.revoked.Store(true)
	ok, err = env.auth.CheckAuth(ctx, true)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.False(t, env.auth.IsAuthenticated())
	assert.False(t, env.tokens.IsAuthenticated(), "a 401 clears the stored token")
	assert.Equal(t, []string{client.LoginPath}, env.redirects)

	_, err = env.c.Profile().Get(ctx)
	assert.True(t, client.IsUnauthorized(err))
	assert.Equal(t, []string{client.LoginPath, client.LoginPath}, env.redirects)
}

func TestAuthStore_CheckAuth(t *testing.T) {
	ctx := context.Background()

	t.Run("no token", func(t *testing.T) {
		env := setupAuth(t)
		ok, err := env.auth.CheckAuth(ctx, false)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("expired token", func(t *testing.T) {
		env := setupAuth(t)
		require.NoError(t, env.tokens.Save(newToken(t, "u1", user.FamilyTeacher, []string{user.RoleTeacher}, -time.Second)))
		ok, err := env.auth.CheckAuth(ctx, false)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 0, env.api.hitsOf("GET /auth/check"))
	})

	t.Run("restored session", func(t *testing.T) {
		store := client.NewMemoryTokenStore()
		require.NoError(t, store.Save(newToken(t, "u3", user.FamilyStudent, []string{user.RoleStudent}, time.Hour)))
		tokens := client.NewTokenService(store)
		auth := client.NewAuthStore(client.New("http://127.0.0.1:1"), tokens, nil)

		usr, ok := auth.User()
		require.True(t, ok)
		assert.Equal(t, "u3", usr.ID)

		ok, err := auth.CheckAuth(ctx, false)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
