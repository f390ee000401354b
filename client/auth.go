package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/colegio/core/user"
)

// LoginPath is where unauthenticated users are sent.
const LoginPath = "/login"

type (
	// LoginResponse is the data of `/auth/login` and `/auth/refresh`.
	LoginResponse struct {
		Token string     `json:"token"`
		User  *user.User `json:"user,omitempty"`
	}

	// AuthListener is told about every session change; usr is nil after a logout.
	AuthListener func(usr *SessionUser)

	// AuthStore holds the session of the dashboards.
	AuthStore struct {
		c        *Client
		tokens   *TokenService
		redirect func(path string)

		mu        sync.RWMutex
		usr       *SessionUser
		listeners map[int]AuthListener
		nextID    int
	}
)

// NewAuthStore wires the session into c: every request carries the stored token,
// and any 401 answer ends the session and calls redirect with LoginPath.
func NewAuthStore(c *Client, tokens *TokenService, redirect func(path string)) *AuthStore {
	if redirect == nil {
		redirect = func(string) {}
	}
	a := &AuthStore{c: c, tokens: tokens, redirect: redirect, listeners: make(map[int]AuthListener)}
	if usr, err := tokens.User(); err == nil {
		a.usr = &usr
	}
	c.Use(tokens.authorize)
	c.OnResponse(a.handleUnauthorized)
	return a
}

func (a *AuthStore) handleUnauthorized(resp *http.Response) error {
	if resp.StatusCode != http.StatusUnauthorized || strings.HasSuffix(resp.Request.URL.Path, "/auth/login") {
		return nil
	}
	a.c.logger.Warn(fmt.Sprintf("%s %s: session rejected", resp.Request.Method, resp.Request.URL.Path))
	if err := a.endSession(); err != nil {
		a.c.logger.Error("ending session: "+err.Error(), err)
	}
	a.redirect(LoginPath)
	return nil
}

func (a *AuthStore) setUser(usr *SessionUser) {
	a.mu.Lock()
	a.usr = usr
	listeners := make([]AuthListener, 0, len(a.listeners))
	for _, l := range a.listeners {
		listeners = append(listeners, l)
	}
	a.mu.Unlock()

	for _, l := range listeners {
		l(usr)
	}
}

func (a *AuthStore) endSession() error {
	err := a.tokens.Clear()
	a.c.ClearCache()
	a.setUser(nil)
	return err
}

// Subscribe registers l; the returned func unregisters it.
func (a *AuthStore) Subscribe(l AuthListener) (unsubscribe func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = l
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.listeners, id)
	}
}

// User returns the logged in user.
func (a *AuthStore) User() (SessionUser, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.usr == nil {
		return SessionUser{}, false
	}
	return *a.usr, true
}

func (a *AuthStore) IsAuthenticated() bool {
	_, ok := a.User()
	return ok
}

// Login authenticates with a username (or email) and password and starts a session.
func (a *AuthStore) Login(ctx context.Context, username, password string) (SessionUser, error) {
	form := LoginForm{Username: username, Password: password}
	if err := form.Validate(); err != nil {
		return SessionUser{}, err
	}
	resp, err := sendData[LoginResponse](ctx, a.c, http.MethodPost, "/auth/login", form)
	if err != nil {
		return SessionUser{}, errors.Wrap(err, "logging in")
	}
	return a.startSession(resp.Token)
}

func (a *AuthStore) startSession(token string) (SessionUser, error) {
	if err := a.tokens.Save(token); err != nil {
		return SessionUser{}, err
	}
	usr, err := a.tokens.User()
	if err != nil {
		return SessionUser{}, errors.Wrap(err, "reading session user")
	}
	a.c.ClearCache()
	a.setUser(&usr)
	return usr, nil
}

// Logout ends the session and redirects to LoginPath.
func (a *AuthStore) Logout() error {
	err := a.endSession()
	a.redirect(LoginPath)
	return err
}

// CheckAuth reports whether the session is still usable. An expired or missing token ends it.
// With confirm, the API is asked too; a rejected token ends the session through the 401 interceptor.
func (a *AuthStore) CheckAuth(ctx context.Context, confirm bool) (bool, error) {
	usr, err := a.tokens.User()
	if err != nil {
		if errors.Cause(err) == ErrNoToken && !a.IsAuthenticated() {
			return false, nil
		}
		return false, a.endSession()
	}

	if confirm {
		if _, err = a.c.do(ctx, http.MethodGet, "/auth/check", nil, nil); err != nil {
			if IsUnauthorized(err) {
				return false, nil
			}
			return false, errors.Wrap(err, "checking auth")
		}
	}
	a.setUser(&usr)
	return true, nil
}

// Refresh trades the current token for a fresh one.
func (a *AuthStore) Refresh(ctx context.Context) (SessionUser, error) {
	resp, err := sendData[LoginResponse](ctx, a.c, http.MethodPost, "/auth/refresh", nil)
	if err != nil {
		return SessionUser{}, errors.Wrap(err, "refreshing token")
	}
	return a.startSession(resp.Token)
}

// RequestPasswordReset asks for a password reset link to be mailed to email.
func (a *AuthStore) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	form := PasswordResetForm{Email: email}
	if err := form.Validate(); err != nil {
		return "", err
	}
	return sendMessage(ctx, a.c, http.MethodPost, "/auth/password-reset", nil, form)
}

// ConfirmPasswordReset sets a new password with the uid and token of a reset link.
func (a *AuthStore) ConfirmPasswordReset(ctx context.Context, data user.ResetUserPassword) (string, error) {
	return sendMessage(ctx, a.c, http.MethodPost, "/auth/password-reset-confirm", nil, data)
}
