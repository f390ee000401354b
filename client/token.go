package client

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/trezcool/colegio/core/user"
)

var (
	ErrNoToken      = errors.New("no token stored")
	ErrTokenExpired = errors.New("token has expired")
)

type (
	// TokenStore persists the session token between runs, the way a browser keeps it in local storage.
	// Load returns "" when nothing is stored.
	TokenStore interface {
		Load() (string, error)
		Save(token string) error
		Clear() error
	}

	MemoryTokenStore struct {
		mu    sync.RWMutex
		token string
	}

	// FileTokenStore keeps the token in a file readable by its owner only.
	FileTokenStore struct {
		path string
	}
)

var (
	_ TokenStore = (*MemoryTokenStore)(nil)
	_ TokenStore = FileTokenStore{}
)

func NewMemoryTokenStore() *MemoryTokenStore { return new(MemoryTokenStore) }

func (s *MemoryTokenStore) Load() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

func (s *MemoryTokenStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryTokenStore) Clear() error {
	return s.Save("")
}

func NewFileTokenStore(path string) FileTokenStore { return FileTokenStore{path: path} }

func (s FileTokenStore) Load() (string, error) {
	buf, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.Wrap(err, "reading token file")
	}
	return strings.TrimSpace(string(buf)), nil
}

func (s FileTokenStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(err, "creating token dir")
	}
	return errors.Wrap(os.WriteFile(s.path, []byte(token), 0o600), "writing token file")
}

func (s FileTokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing token file")
	}
	return nil
}

// Claims mirrors the claims the API puts in its tokens.
type Claims struct {
	jwt.RegisteredClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Name         string   `json:"name,omitempty"`
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	Role         string   `json:"role,omitempty"`
	IsAdmin      bool     `json:"is_admin,omitempty"`
	IsTeacher    bool     `json:"is_teacher,omitempty"`
	IsStudent    bool     `json:"is_student,omitempty"`
	IsTutor      bool     `json:"is_tutor,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

// SessionUser is the logged in user as told by their token.
type SessionUser struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Role     string   `json:"role"` // primary role family
	Roles    []string `json:"roles"`
}

// HasFamily reports whether the user holds any role of family.
func (u SessionUser) HasFamily(family string) bool {
	if u.Role == family {
		return true
	}
	for _, role := range u.Roles {
		if strings.SplitN(role, ":", 2)[0] == family {
			return true
		}
	}
	return false
}

// TokenService keeps the session token. Tokens are decoded without verification:
// the API is the one checking signatures.
type TokenService struct {
	store  TokenStore
	parser *jwt.Parser
	now    func() time.Time
}

func NewTokenService(store TokenStore) *TokenService {
	return &TokenService{store: store, parser: jwt.NewParser(), now: time.Now}
}

func (ts *TokenService) Save(token string) error {
	return errors.Wrap(ts.store.Save(token), "saving token")
}

func (ts *TokenService) Clear() error {
	return errors.Wrap(ts.store.Clear(), "clearing token")
}

// Token returns the stored token along with its claims, provided it has not expired.
func (ts *TokenService) Token() (string, *Claims, error) {
	token, err := ts.store.Load()
	if err != nil {
		return "", nil, errors.Wrap(err, "loading token")
	}
	if token == "" {
		return "", nil, ErrNoToken
	}
	claims, err := ts.decode(token)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

func (ts *TokenService) decode(token string) (*Claims, error) {
	claims := new(Claims)
	if _, _, err := ts.parser.ParseUnverified(token, claims); err != nil {
		return nil, errors.Wrap(err, "decoding token")
	}
	if claims.ExpiresAt != nil && !ts.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

// User derives the SessionUser of the stored token.
func (ts *TokenService) User() (SessionUser, error) {
	_, claims, err := ts.Token()
	if err != nil {
		return SessionUser{}, err
	}
	usr := SessionUser{
		ID:       claims.Subject,
		Name:     claims.Name,
		Username: claims.Username,
		Email:    claims.Email,
		Role:     claims.Role,
		Roles:    claims.Roles,
	}
	if usr.Role == "" {
		usr.Role = user.RoleFamily(usr.Roles)
	}
	if usr.Roles == nil {
		usr.Roles = []string{}
	}
	return usr, nil
}

// IsAuthenticated reports whether a valid, unexpired token is stored.
func (ts *TokenService) IsAuthenticated() bool {
	_, _, err := ts.Token()
	return err == nil
}

// authorize is a RequestInterceptor setting the bearer token of the session, if any.
func (ts *TokenService) authorize(req *http.Request) error {
	token, _, err := ts.Token()
	switch errors.Cause(err) {
	case nil:
		req.Header.Set("Authorization", "Bearer "+token)
	case ErrNoToken, ErrTokenExpired:
	default:
		return err
	}
	return nil
}
