package tests

import (
	"os"
	"testing"

	echoapi "github.com/classroom-curator/planner/apps/api/echo"
	"github.com/classroom-curator/planner/core"
	"github.com/classroom-curator/planner/core/calendar"
	"github.com/classroom-curator/planner/core/yearplan"
	appfs "github.com/classroom-curator/planner/fs"
	emailsvc "github.com/classroom-curator/planner/services/email"
	holidaysvc "github.com/classroom-curator/planner/services/holidays"
	metricsvc "github.com/classroom-curator/planner/services/metrics"
	inmemdb "github.com/classroom-curator/planner/storage/database/inmem"
	testutil "github.com/classroom-curator/planner/tests"
)

var (
	conf = testutil.NewConfig()

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errPlanNotFound = httpErr{Error: "year plan not found"}
)

// fixedHolidays are served by the fake holiday provider.
var fixedHolidays = []calendar.Date{
	calendar.MustParseDate("2025-08-15"),
	calendar.MustParseDate("2025-10-02"),
}

type testApp struct {
	server  *echoapi.Server
	repo    yearplan.Repository
	svc     yearplan.Service
	mailSvc *emailsvc.ConsoleServiceMock
}

func TestMain(m *testing.M) {
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, core.NopLogger{})
	os.Exit(m.Run())
}

func setup(t *testing.T) testApp {
	t.Helper()

	// set up DB & repos
	repo := inmemdb.NewYearPlanRepository(inmemdb.Open())

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	svc := yearplan.NewService(yearplan.Deps{
		Repo:     repo,
		Holidays: holidaysvc.NewStaticProvider(fixedHolidays...),
		MailSvc:  mailSvc,
		Logger:   core.NopLogger{},
		Metrics:  metricsvc.NewRecorder(),
	})

	validate, translator := core.NewValidator()
	yearplan.InitValidators(validate, translator)

	// set up server
	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:        conf,
		Logger:      core.NopLogger{},
		YearPlanSvc: svc,
		Validate:    validate,
		Translator:  translator,
		Metrics:     metricsvc.NewRecorder().Handler(),
	})

	return testApp{server: server, repo: repo, svc: svc, mailSvc: mailSvc}
}
