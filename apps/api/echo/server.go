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

	"github.com/trezcool/vidyaverse/core"
	"github.com/trezcool/vidyaverse/core/attendance"
	"github.com/trezcool/vidyaverse/core/fees"
	"github.com/trezcool/vidyaverse/core/promotion"
	"github.com/trezcool/vidyaverse/core/report"
	cachesvc "github.com/trezcool/vidyaverse/services/cache"
	"github.com/trezcool/vidyaverse/services/render"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		DisableReqLogs bool

		Validate   *validator.Validate
		Translator ut.Translator

		ReportSvc     *report.Service
		FeesSvc       *fees.Service
		AttendanceSvc *attendance.Service
		PromotionSvc  *promotion.Service
		Renderers     *render.Registry
		Cache         cachesvc.ReportCache
	}

	Server struct {
		app      *echo.Echo
		address  string
		shutdown chan os.Signal
		errors   chan error
	}
)

func NewServer(deps ServerDeps) *Server {
	srv := &Server{
		app:      echo.New(),
		address:  deps.Conf.Server.Address,
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	signal.Notify(srv.shutdown, os.Interrupt, syscall.SIGTERM)

	if deps.Cache == nil {
		deps.Cache = cachesvc.NopCache{}
	}
	srv.setup(deps)
	return srv
}

func (srv *Server) setup(deps ServerDeps) {
	debug := deps.Conf.Debug

	srv.app.Pre(middleware.RemoveTrailingSlash())
	if !deps.DisableReqLogs {
		srv.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(debug || deps.Conf.TestMode) {
		srv.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	srv.app.Server.ReadTimeout = deps.Conf.Server.ReadTimeout

	srv.app.HTTPErrorHandler = newAppHTTPErrorHandler(deps.Logger, deps.Translator, srv.signalShutdown)
	srv.app.Debug = debug
	srv.app.HideBanner = true

	srv.app.GET("/", home(deps.Conf.AppName))

	v1 := srv.app.Group("/v1", middleware.JWTWithConfig(newJWTConfig(deps.Conf.SecretKey)))
	registerReportAPI(v1, deps)
	registerLedgerAPI(v1, deps)
}

func (srv *Server) signalShutdown() {
	srv.shutdown <- syscall.SIGTERM
}

// Start serves until the server is shut down; listen errors are sent to Errors().
func (srv *Server) Start() {
	if err := srv.app.Start(srv.address); err != nil && err != http.ErrServerClosed {
		srv.errors <- err
	}
}

func (srv *Server) Errors() <-chan error {
	return srv.errors
}

func (srv *Server) ShutdownSignal() <-chan os.Signal {
	return srv.shutdown
}

func (srv *Server) Shutdown(ctx context.Context) error {
	return srv.app.Shutdown(ctx)
}

func (srv *Server) Close() error {
	return srv.app.Close()
}

func (srv *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	srv.app.ServeHTTP(w, r)
}

func home(appName string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		return ctx.String(http.StatusOK, "Welcome to "+appName+" API!")
	}
}
