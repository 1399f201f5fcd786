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

	echoapi "github.com/classroom-curator/planner/apps/api/echo"
	"github.com/classroom-curator/planner/core"
	"github.com/classroom-curator/planner/core/yearplan"
	appfs "github.com/classroom-curator/planner/fs"
	emailsvc "github.com/classroom-curator/planner/services/email"
	holidaysvc "github.com/classroom-curator/planner/services/holidays"
	logsvc "github.com/classroom-curator/planner/services/logger"
	metricsvc "github.com/classroom-curator/planner/services/metrics"
	"github.com/classroom-curator/planner/storage/database"
	inmemdb "github.com/classroom-curator/planner/storage/database/inmem"
	sqlxrepos "github.com/classroom-curator/planner/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB & repos
	var (
		repo        yearplan.Repository
		statusCheck func(ctx context.Context) error
	)
	if conf.Debug {
		repo = inmemdb.NewYearPlanRepository(inmemdb.Open())
		dbLogger.Info("using the in-memory database")
	} else {
		db, err := setUpDB(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		defer func() {
			if err = db.Close(); err != nil {
				dbLogger.Error("Failed to close", err)
			}
		}()
		repo = sqlxrepos.NewYearPlanRepository(db)
		statusCheck = func(ctx context.Context) error { return database.StatusCheck(ctx, db) }
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug || conf.Email.SendgridApiKey == "" {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	var holidays yearplan.HolidayProvider
	if conf.Holidays.Enabled {
		holidays = holidaysvc.NewProvider(conf, logger)
	}

	recorder := metricsvc.NewRecorder()
	planSvc := yearplan.NewService(yearplan.Deps{
		Repo:     repo,
		Holidays: holidays,
		MailSvc:  mailSvc,
		Logger:   logger,
		Metrics:  recorder,
	})

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()
	yearplan.InitValidators(validate, translator)

	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

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
			Conf:        conf,
			Logger:      logger,
			YearPlanSvc: planSvc,
			Validate:    validate,
			Translator:  translator,
			Metrics:     recorder.Handler(),
			StatusCheck: statusCheck,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
