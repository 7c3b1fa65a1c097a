package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/included-edu/included/core"
	"github.com/included-edu/included/core/course"
	"github.com/included-edu/included/core/user"
)

// formOverhead is allowed on top of the syllabus size for the other multipart fields.
const formOverhead = 64 << 10

type (
	Deps struct {
		UserSvc    *user.Service
		CourseSvc  *course.Service
		Pipeline   *course.Pipeline
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server struct {
		conf     *core.Config
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}

	HealthResponse struct {
		Status    string    `json:"status"`
		Version   string    `json:"version"`
		Timestamp time.Time `json:"timestamp"`
	}
)

func NewServer(conf *core.Config, logger core.Logger, deps *Deps) *Server {
	s := &Server{
		conf:     conf,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup(logger, deps)
	return s
}

func (s *Server) setup(logger core.Logger, deps *Deps) {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{s.conf.FrontendBaseURL},
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(logger, deps.Translator, s.signalShutdown)
	s.app.Debug = s.conf.Debug

	s.app.GET("/", s.health)
	s.app.GET("/health", s.health)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newJWTConfig(s.conf))
	bodyLimit := middleware.BodyLimit(strconv.FormatInt(s.conf.Generation.MaxUploadBytes+formOverhead, 10) + "B")

	registerUserAPI(v1, jwt, deps.UserSvc, deps.Validate, s.conf)
	registerCourseAPI(v1, jwt, deps.CourseSvc, deps.Pipeline, deps.Validate, s.conf, bodyLimit)
}

// Start listens until the server is shut down; other failures are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

// ShutdownSignal delivers SIGINT, SIGTERM and internal shutdown requests.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   s.conf.Build,
		Timestamp: time.Now().UTC(),
	})
}
