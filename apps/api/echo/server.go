// Package echoapi serves the Colegio REST API with labstack/echo.
package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/trezcool/colegio/core"
	"github.com/trezcool/colegio/core/attendance"
	"github.com/trezcool/colegio/core/course"
	"github.com/trezcool/colegio/core/student"
	"github.com/trezcool/colegio/core/user"
	"github.com/trezcool/colegio/services/telemetry"
)

// Deps holds what the API handlers need. Metrics is optional.
type Deps struct {
	Conf           *core.Config
	Logger         core.Logger
	Validate       *validator.Validate
	Translator     ut.Translator
	UserSvc        user.Service
	CourseSvc      course.Service
	StudentSvc     student.Service
	AttendanceSvc  attendance.Service
	Metrics        *telemetry.Metrics
	DisableReqLogs bool
}

type Server struct {
	deps     *Deps
	app      *echo.Echo
	auth     *tokenAuth
	srv      *http.Server
	errors   chan error
	shutdown chan os.Signal
}

func NewServer(deps *Deps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		auth:     newTokenAuth(deps.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	s.srv = &http.Server{
		Addr:         deps.Conf.Server.Addr,
		Handler:      otelhttp.NewHandler(s.app, deps.Conf.AppName),
		ReadTimeout:  deps.Conf.Server.ReadTimeout,
		WriteTimeout: deps.Conf.Server.WriteTimeout,
	}
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if s.deps.Metrics != nil {
		s.app.Use(metricsMiddleware(s.deps.Metrics))
		if conf.Telemetry.MetricsEnabled {
			s.app.GET("/metrics", echo.WrapHandler(s.deps.Metrics.Handler()))
		}
	}

	s.app.HTTPErrorHandler = s.newAppHTTPErrorHandler(s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	jwt := middleware.JWTWithConfig(s.auth.middlewareConfig())
	authed := []echo.MiddlewareFunc{jwt, ctxUserMiddleware(s.deps.UserSvc)}

	s.registerAuthAPI(s.app.Group("/auth"), authed)
	s.registerUserAPI(s.app.Group("/user", authed...))
	s.registerProfileAPI(s.app.Group("/perfil", authed...))
	s.registerStudentAPI(s.app.Group("/estudiante", authed...))
	s.registerCourseAPI(s.app.Group("/curso", authed...))
	s.registerAttendanceAPI(s.app.Group("/asistencia", authed...))
}

// Start listens until Shutdown or Close; startup failures are sent to Errors.
func (s *Server) Start() {
	s.deps.Logger.Info("API listening on " + s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.srv.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.srv.Handler.ServeHTTP(w, r)
}

// IssueToken signs a fresh token for usr.
func (s *Server) IssueToken(usr user.User) (string, error) {
	return s.auth.generateToken(s.auth.userClaims(usr))
}

func (s *Server) home(ctx echo.Context) error {
	return respondMessage(ctx, http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
