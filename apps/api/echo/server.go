package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/bala2006-m/smart-school-server-sub001/core"
	"github.com/bala2006-m/smart-school-server-sub001/core/attendance"
	"github.com/bala2006-m/smart-school-server-sub001/core/school"
)

type (
	ServerDeps struct {
		Conf          *core.Config
		Logger        core.Logger
		AttendanceSvc *attendance.Service
		ReportSvc     *attendance.ReportService
		SchoolSvc     *school.Service
		Validate      *validator.Validate
		Translator    ut.Translator
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errs     chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig(conf))

	registerSyncAPI(v1, jwt, s.deps.AttendanceSvc, s.deps.ReportSvc)
	registerSchoolAPI(v1, jwt, s.deps.SchoolSvc, s.deps.Validate)
}

func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.deps.Logger.Info(fmt.Sprintf("API server listening on %s", s.deps.Conf.Server.Addr))
	s.errs <- s.app.Start(s.deps.Conf.Server.Addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

// Errors reports a failed server start.
func (s *Server) Errors() <-chan error {
	return s.errs
}

// ShutdownSignal relays OS termination signals; the error handler also feeds
// it when an integrity failure asks for a graceful stop.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to SmartSchool API!")
}
