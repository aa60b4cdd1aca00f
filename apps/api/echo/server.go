package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/class"
	"github.com/trezcool/shule/core/user"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Issuer     *auth.Issuer
		UserSvc    *user.Service
		ClassSvc   *class.Service
		PhotoStore core.PhotoStore
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server interface {
		http.Handler
		// Start blocks until the server stops. A graceful shutdown is not an error.
		Start() error
		Shutdown(ctx context.Context) error
		Close() error
		// ShutdownSignal receives a signal whenever the server must stop.
		ShutdownSignal() chan os.Signal
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		shutdown: make(chan os.Signal, 1),
	}
	s.app.Server.ReadTimeout = deps.Conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = deps.Conf.Server.WriteTimeout
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.HidePort = true
	s.app.Logger.SetLevel(log.ERROR)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if conf.Debug && !conf.Server.DisableReqLogs {
		s.app.Use(s.requestLogger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if conf.Server.RequestTimeout > 0 {
		s.app.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{Timeout: conf.Server.RequestTimeout}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, conf.Debug, s.signalShutdown)

	s.app.GET("/", home)
	if conf.Debug && conf.Upload.MediaURL != "" {
		s.app.Static(conf.Upload.MediaURL, conf.Upload.MediaRoot)
	}

	v1 := s.app.Group("/api/v1")
	authn := newAuthenticator(s.deps.Issuer, s.deps.UserSvc, !conf.Debug)

	registerAuthAPI(v1, authn, s.deps.UserSvc, s.deps.Validate)
	registerClassAPI(v1, authn, s.deps.ClassSvc, s.deps.Validate)
	registerTeacherAPI(v1, authn, s.deps.UserSvc, s.newPhotoUploader())
	registerStudentAPI(v1, authn, s.deps.UserSvc, s.deps.ClassSvc, s.newPhotoUploader())
}

func (s *server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			s.deps.Logger.Info(
				fmt.Sprintf("%s %s %d", v.Method, v.URI, v.Status),
				map[string]interface{}{"latency": v.Latency.String(), "requestId": v.RequestID},
			)
			return nil
		},
	})
}

func (s *server) newPhotoUploader() *photoUploader {
	return &photoUploader{
		store:   s.deps.PhotoStore,
		users:   s.deps.UserSvc,
		maxSize: s.deps.Conf.Upload.MaxFileSize,
	}
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // a shutdown is already pending
	}
}

func (s *server) Start() error {
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "starting API server")
	}
	return nil
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ShutdownSignal() chan os.Signal {
	return s.shutdown
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "School Management API")
}
