package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/vidyaverse/apps/api/echo"
	"github.com/trezcool/vidyaverse/core"
	"github.com/trezcool/vidyaverse/core/attendance"
	"github.com/trezcool/vidyaverse/core/fees"
	"github.com/trezcool/vidyaverse/core/promotion"
	"github.com/trezcool/vidyaverse/core/report"
	appfs "github.com/trezcool/vidyaverse/fs"
	cachesvc "github.com/trezcool/vidyaverse/services/cache"
	emailsvc "github.com/trezcool/vidyaverse/services/email"
	logsvc "github.com/trezcool/vidyaverse/services/logger"
	"github.com/trezcool/vidyaverse/services/render"
	"github.com/trezcool/vidyaverse/storage/database"
	sqlxrepos "github.com/trezcool/vidyaverse/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()
	ctx := context.Background()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()
	store := sqlxrepos.NewLedgerRepository(db)

	// set up report cache (optional)
	var cache cachesvc.ReportCache = cachesvc.NopCache{}
	if conf.Redis.Address != "" {
		redisCache, err := cachesvc.NewRedisCache(ctx, conf.Redis, logger)
		if err != nil {
			logger.Warn(fmt.Sprintf("report cache disabled: %v", err), err)
		} else {
			defer func() { _ = redisCache.Close() }()
			cache = redisCache
		}
	}

	// set up services
	templates, err := core.ParseEmailTemplates(appfs.FS, "templates/email", !conf.Debug)
	if err != nil {
		logger.Fatal(fmt.Sprintf("parsing email templates: %v", err), err)
	}
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, templates, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, templates, logger)
	}

	money := core.NewMoneyFormatter(conf.CurrencySymbol)
	htmlRenderer, err := render.NewHTMLRenderer(appfs.FS, money)
	if err != nil {
		logger.Fatal(fmt.Sprintf("parsing report templates: %v", err), err)
	}
	renderers := render.NewRegistry(
		htmlRenderer,
		render.CSVRenderer{},
		render.XLSXRenderer{},
		render.NewPDFRenderer(money),
	)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			Validate:      validate,
			Translator:    translator,
			ReportSvc:     report.NewService(store),
			FeesSvc:       fees.NewService(store, mailSvc, conf, logger),
			AttendanceSvc: attendance.NewService(store, logger),
			PromotionSvc:  promotion.NewService(store, logger),
			Renderers:     renderers,
			Cache:         cache,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(ctx, conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
