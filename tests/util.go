package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/classroom-curator/planner/core"
	"github.com/classroom-curator/planner/core/calendar"
	"github.com/classroom-curator/planner/core/yearplan"
	"github.com/classroom-curator/planner/storage/database"
)

// DatabaseURLEnv names the Postgres DSN used by tests that need a real database.
const DatabaseURLEnv = "TEST_DATABASE_URL"

// PrepareDB opens and migrates the test database, and empties it before and after `t`.
// The test is skipped when DatabaseURLEnv is not set.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv(DatabaseURLEnv)
	if dsn == "" {
		t.Skipf("%s is not set", DatabaseURLEnv)
	}

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		t.Fatalf("PrepareDB() failed: %v", err)
	}

	truncate := func() {
		if _, err := db.Exec(`TRUNCATE year_plans CASCADE`); err != nil {
			t.Errorf("truncating tables: %v", err)
		}
	}
	truncate()
	t.Cleanup(func() {
		truncate()
		_ = db.Close()
	})
	return db
}

// NewConfig returns a TEST config that does not read the environment.
func NewConfig() *core.Config {
	return &core.Config{
		Env:      "TEST",
		AppName:  "Classroom Curator",
		Build:    "test",
		TestMode: true,
		Server: core.ServerConfig{
			FrontendBaseURL:  "http://localhost:5173",
			DisableReqLogs:   true,
			RequestBodyLimit: "1M",
		},
		Auth:     core.AuthConfig{JWTSecret: "test-secret-with-at-least-32-characters", Audience: "authenticated"},
		Holidays: core.HolidaysConfig{Enabled: true, Country: "IN"},
		Email:    core.EmailConfig{DefaultFrom: "Classroom Curator <noreply@curator.test>"},
	}
}

func Hours(h float64) *float64 { return &h }

func Bool(b bool) *bool { return &b }

// NewCalculateRequest returns a Mon-Fri request for "2025-08-04".."2025-08-29", 60 minutes a day, without holiday fetching.
func NewCalculateRequest(title string, hours ...float64) yearplan.CalculateRequest {
	units := make([]yearplan.UnitRequest, 0, len(hours))
	for i, h := range hours {
		units = append(units, yearplan.UnitRequest{
			Title:          title + " unit " + string(rune('A'+i)),
			EstimatedHours: Hours(h),
		})
	}
	return yearplan.CalculateRequest{
		Title:             title,
		StartDate:         "2025-08-04",
		EndDate:           "2025-08-29",
		ClassDays:         []string{"Mon", "Tue", "Wed", "Thu", "Fri"},
		DailyMinutes:      60,
		Holidays:          []string{},
		AutoFetchHolidays: Bool(false),
		Units:             units,
	}
}

// CreateYearPlan saves a plan for `ownerID` through the service, so its units carry calculated dates.
func CreateYearPlan(t *testing.T, svc yearplan.Service, ownerID string, req yearplan.CalculateRequest) (yearplan.YearPlan, yearplan.Preview) {
	req.Clean()
	plan, preview, err := svc.Create(context.Background(), ownerID, req)
	if err != nil {
		t.Fatalf("CreateYearPlan() failed: %v", err)
	}
	return plan, preview
}

// InsertYearPlan saves `plan` as is, eg: to control CreatedAt.
func InsertYearPlan(t *testing.T, repo yearplan.Repository, ownerID, title string, start calendar.Date, createdAt ...time.Time) yearplan.YearPlan {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	plan, err := repo.CreateYearPlan(context.Background(), yearplan.YearPlan{
		OwnerID:      ownerID,
		Title:        title,
		StartDate:    start,
		EndDate:      start.AddDays(30),
		ClassDays:    []string{"Mon", "Tue", "Wed", "Thu", "Fri"},
		DailyMinutes: 60,
		Holidays:     []calendar.Date{},
		Units:        []yearplan.PlannedUnit{},
		CreatedAt:    tstamp,
		UpdatedAt:    tstamp,
	})
	if err != nil {
		t.Fatalf("InsertYearPlan() failed: %v", err)
	}
	return plan
}
