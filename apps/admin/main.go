package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/vidyaverse/core"
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
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	ctx := context.Background()
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		errAndDie(logger, database.CreateIfNotExist(ctx, conf))
	}
	db, err := database.Open(ctx, conf)
	errAndDie(logger, err)
	store := sqlxrepos.NewLedgerRepository(db)

	// invalidate the API's report cache on writes
	var cache cachesvc.ReportCache = cachesvc.NopCache{}
	if conf.Redis.Address != "" {
		redisCache, err := cachesvc.NewRedisCache(ctx, conf.Redis, logger)
		if err != nil {
			logger.Warn(fmt.Sprintf("report cache will not be invalidated: %v", err), err)
		} else {
			defer func() { _ = redisCache.Close() }()
			cache = redisCache
		}
	}

	// set up services
	templates, err := core.ParseEmailTemplates(appfs.FS, "templates/email", !conf.Debug)
	errAndDie(logger, err)
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, templates, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, templates, logger)
	}
	money := core.NewMoneyFormatter(conf.CurrencySymbol)
	htmlRenderer, err := render.NewHTMLRenderer(appfs.FS, money)
	errAndDie(logger, err)
	validate, translator := core.NewValidator()

	// start CLI
	cli := commandLine{
		db:           db.DB,
		store:        store,
		feesSvc:      fees.NewService(store, mailSvc, conf, logger),
		promotionSvc: promotion.NewService(store, logger),
		reportSvc:    report.NewService(store),
		renderers: render.NewRegistry(
			htmlRenderer, render.CSVRenderer{}, render.XLSXRenderer{}, render.NewPDFRenderer(money),
		),
		cache:      cache,
		validate:   validate,
		translator: translator,
		secretKey:  conf.SecretKey,
		in:         os.Stdin,
		out:        os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("\nerror: %s\n", err), err)
		}
		os.Exit(1)
	}
}

func errAndDie(logger core.Logger, err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
