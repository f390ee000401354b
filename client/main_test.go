package client_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/colegio/client"
)

const testSecret = "secret"

// fakeAPI is a stand-in for the REST API; it counts the requests every pattern receives.
type fakeAPI struct {
	*httptest.Server
	mux *http.ServeMux

	mu   sync.Mutex
	hits map[string]int
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{mux: http.NewServeMux(), hits: make(map[string]int)}
	api.Server = httptest.NewServer(api.mux)
	t.Cleanup(api.Close)
	return api
}

func (api *fakeAPI) handle(pattern string, h http.HandlerFunc) {
	api.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		api.hits[pattern]++
		api.mu.Unlock()
		h(w, r)
	})
}

func (api *fakeAPI) hitsOf(pattern string) int {
	api.mu.Lock()
	defer api.mu.Unlock()
	return api.hits[pattern]
}

func (api *fakeAPI) client(opts ...client.Option) *client.Client {
	return client.New(api.URL, opts...)
}

func writeJSON(t *testing.T, w http.ResponseWriter, code int, body interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func respondData(t *testing.T, w http.ResponseWriter, code int, data interface{}) {
	writeJSON(t, w, code, map[string]interface{}{"estado": true, "data": data})
}

func respondList(t *testing.T, w http.ResponseWriter, items interface{}) {
	writeJSON(t, w, http.StatusOK, map[string]interface{}{"estado": true, "dataIterable": items})
}

func respondError(t *testing.T, w http.ResponseWriter, code int, msg string, fields ...map[string]string) {
	body := map[string]interface{}{"estado": false, "message": msg}
	if len(fields) > 0 {
		body["data"] = fields[0]
	}
	writeJSON(t, w, code, body)
}

func signToken(t *testing.T, claims client.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func newToken(t *testing.T, id, role string, roles []string, exp time.Duration) string {
	t.Helper()
	now := time.Now()
	return signToken(t, client.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(exp)),
		},
		OrigIssuedAt: now.Unix(),
		Name:         "Ana Quispe",
		Username:     "ana",
		Email:        "ana@test.pe",
		Role:         role,
		Roles:        roles,
	})
}
