package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/colegio/apps/api/echo"
	"github.com/trezcool/colegio/core"
	"github.com/trezcool/colegio/core/user"
	"github.com/trezcool/colegio/services/telemetry"
	testutil "github.com/trezcool/colegio/tests"
)

const (
	msgMissingToken = "missing or malformed jwt"
	msgForbidden    = "permission denied"
	msgNotFound     = "not found"
)

type apiEnv struct {
	*testutil.Env
	app     *echoapi.Server
	metrics *telemetry.Metrics
}

func setup(t *testing.T) *apiEnv {
	env := testutil.NewEnv(t)
	metrics := telemetry.NewMetrics("colegio_test")
	app := echoapi.NewServer(&echoapi.Deps{
		Conf:           env.Conf,
		Logger:         core.NopLogger{},
		Validate:       env.Validate,
		Translator:     env.Translator,
		UserSvc:        env.UserSvc,
		CourseSvc:      env.CourseSvc,
		StudentSvc:     env.StudentSvc,
		AttendanceSvc:  env.AttendanceSvc,
		Metrics:        metrics,
		DisableReqLogs: true,
	})
	return &apiEnv{Env: env, app: app, metrics: metrics}
}

// response is an Envelope whose payloads are decoded lazily.
type response struct {
	Estado       bool            `json:"estado"`
	Message      string          `json:"message"`
	Data         json.RawMessage `json:"data"`
	DataIterable json.RawMessage `json:"dataIterable"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// do sends a request to the app and decodes the Envelope it answers with.
func (env *apiEnv) do(t *testing.T, method, path, token string, data ...[]byte) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req, rec := newAuthRequest(method, path, token, data...)
	env.app.ServeHTTP(rec, req)

	var resp response
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec, resp
}

func getToken(t *testing.T, app *echoapi.Server, usr user.User) string {
	t.Helper()
	token, err := app.IssueToken(usr)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func dataEnvelope(t *testing.T, data interface{}) []byte {
	return marchallObj(t, echoapi.Envelope{Estado: true, Data: data})
}

func listEnvelope[T any](t *testing.T, items ...T) []byte {
	if items == nil {
		items = []T{}
	}
	return marchallObj(t, echoapi.Envelope{Estado: true, DataIterable: items})
}

func errEnvelope(t *testing.T, msg string) []byte {
	return marchallObj(t, echoapi.Envelope{Estado: false, Message: msg})
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	if tt.wantData != nil {
		assert.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
}

// runTests runs tests against the app; an unset wantCode means 200 OK.
func (env *apiEnv) runTests(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		if tt.method == "" {
			tt.method = http.MethodGet
		}
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestServer_home(t *testing.T) {
	env := setup(t)

	req, rec := newRequest(http.MethodGet, "/")
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"estado": true, "message": "Welcome to Colegio API!"}`, rec.Body.String())
}

func TestServer_unknownRoute(t *testing.T) {
	env := setup(t)

	rec, resp := env.do(t, http.MethodGet, "/lol", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, resp.Estado)
	assert.Equal(t, "Not Found", resp.Message)
}
