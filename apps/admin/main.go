package main

import (
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/classroom-curator/planner/core"
	"github.com/classroom-curator/planner/core/yearplan"
	emailsvc "github.com/classroom-curator/planner/services/email"
	holidaysvc "github.com/classroom-curator/planner/services/holidays"
	logsvc "github.com/classroom-curator/planner/services/logger"
	"github.com/classroom-curator/planner/storage/database"
	inmemdb "github.com/classroom-curator/planner/storage/database/inmem"
	sqlxrepos "github.com/classroom-curator/planner/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(false)

	// set up DB & repos
	var (
		db   *sqlx.DB
		repo yearplan.Repository
		err  error
	)
	if conf.Debug {
		repo = inmemdb.NewYearPlanRepository(inmemdb.Open())
	} else {
		if db, err = database.Open(conf); err != nil {
			logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
		}
		repo = sqlxrepos.NewYearPlanRepository(db)
	}

	var holidays yearplan.HolidayProvider
	if conf.Holidays.Enabled {
		holidays = holidaysvc.NewProvider(conf, logger)
	}

	validate, translator := core.NewValidator()
	yearplan.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		conf: conf,
		db:   db,
		svc: yearplan.NewService(yearplan.Deps{
			Repo:     repo,
			Holidays: holidays,
			MailSvc:  emailsvc.NewConsoleService(conf, logger),
			Logger:   logger,
		}),
		validate:   validate,
		translator: translator,
		out:        os.Stdout,
	}
	err = cli.run(os.Args)
	if db != nil {
		_ = db.Close()
	}
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
