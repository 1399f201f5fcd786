package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/classroom-curator/planner/apps/api/echo"
	"github.com/classroom-curator/planner/core"
	"github.com/classroom-curator/planner/core/calendar"
	"github.com/classroom-curator/planner/core/yearplan"
	holidaysvc "github.com/classroom-curator/planner/services/holidays"
	"github.com/classroom-curator/planner/storage/database"
	inmemdb "github.com/classroom-curator/planner/storage/database/inmem"
	testutil "github.com/classroom-curator/planner/tests"
)

var (
	conf     = testutil.NewConfig()
	planRepo yearplan.Repository
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	t.Helper()

	// set up DB & repos
	planRepo = inmemdb.NewYearPlanRepository(inmemdb.Open())

	validate, translator := core.NewValidator()
	yearplan.InitValidators(validate, translator)

	isTerminalFunc = func() bool { return false }

	// start CLI
	var out bytes.Buffer
	return &commandLine{
		conf: conf,
		db:   sqlx.NewDb(nil, "postgres"),
		svc: yearplan.NewService(yearplan.Deps{
			Repo:     planRepo,
			Holidays: holidaysvc.NewStaticProvider(calendar.MustParseDate("2025-08-15")),
			Logger:   core.NopLogger{},
		}),
		validate:   validate,
		translator: translator,
		out:        &out,
	}, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			} else if tt.wantErr != nil || tt.wantErrStr != "" {
				t.Errorf("cli.run() no error, want %v%s", tt.wantErr, tt.wantErrStr)
			}
		})
	}
}

func writeRequest(t *testing.T, req interface{}) string {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	file := filepath.Join(t.TempDir(), "plan.json")
	require.NoError(t, os.WriteFile(file, data, 0o600))
	return file
}

func Test_commandLine_usage(t *testing.T) {
	cli, out := setup(t)

	runCLITests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
	})
	assert.Contains(t, out.String(), "calculate -file FILE")
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	migrateFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}
	defer func() { migrateFunc = database.RunMigrations }()

	runCLITests(t, cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "add_terms", "sql"}},
	})

	cli.db = nil
	runCLITests(t, cli, []cliTest{
		{name: "no database", args: []string{"migrate", "up"}, wantErr: errNoDB},
	})
}

func Test_commandLine_calculate(t *testing.T) {
	cli, out := setup(t)

	valid := testutil.NewCalculateRequest("Grade 5 Math", 10, 100)
	valid.AutoFetchHolidays = nil // fetched unless -no-fetch
	invalid := testutil.NewCalculateRequest("Grade 5 Math", -1)
	invalid.StartDate = "01/08/2025"

	validFile := writeRequest(t, valid)
	invalidFile := writeRequest(t, invalid)

	runCLITests(t, cli, []cliTest{
		{name: "no args", args: []string{"calculate"}, wantErr: errHelp},
	})

	t.Run("unknown file", func(t *testing.T) {
		err := cli.run([]string{"admin", "calculate", "-file", filepath.Join(t.TempDir(), "lol.json")})
		assert.True(t, os.IsNotExist(err), "err = %v", err)
	})

	t.Run("invalid", func(t *testing.T) {
		out.Reset()
		err := cli.run([]string{"admin", "calculate", "-file", invalidFile})
		assert.Equal(t, errInvalidInput, err)

		var fldErrs map[string]string
		require.NoError(t, json.Unmarshal(out.Bytes(), &fldErrs))
		assert.Equal(t, map[string]string{
			"start_date":               "start_date must be a date in YYYY-MM-DD format",
			"units[0].estimated_hours": "estimated_hours must be 0 or greater",
		}, fldErrs)
	})

	tests := []struct {
		name       string
		args       []string
		terminal   bool
		wantSource string
		wantEnd    string
	}{
		{name: "fetches holidays", args: []string{"-file", validFile}, wantSource: yearplan.HolidaysFetched, wantEnd: "2025-08-18"},
		{name: "no fetch", args: []string{"-file", validFile, "-no-fetch"}, wantSource: yearplan.HolidaysExplicit, wantEnd: "2025-08-15"},
		{name: "indented on terminals", args: []string{"-file", validFile}, terminal: true, wantSource: yearplan.HolidaysFetched, wantEnd: "2025-08-18"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			isTerminalFunc = func() bool { return tt.terminal }

			err := cli.run(append([]string{"admin", "calculate"}, tt.args...))
			require.NoError(t, err)

			var preview yearplan.Preview
			require.NoError(t, json.Unmarshal(out.Bytes(), &preview))
			assert.Equal(t, tt.wantSource, preview.HolidaysSource)
			require.Len(t, preview.ScheduledUnits, 2)
			assert.Equal(t, tt.wantEnd, preview.ScheduledUnits[0].CalculatedEndDate.String())
			assert.Equal(t, yearplan.StatusOverspill, preview.ScheduledUnits[1].Status)
			assert.Equal(t, tt.terminal, strings.Contains(out.String(), "\n  \""))
		})
	}
}

func Test_commandLine_show(t *testing.T) {
	cli, out := setup(t)

	plan, _ := testutil.CreateYearPlan(t, cli.svc, "owner-1", testutil.NewCalculateRequest("History", 5))

	runCLITests(t, cli, []cliTest{
		{name: "no args", args: []string{"show"}, wantErr: errHelp},
		{name: "not found", args: []string{"show", "-id", "lol"}, wantErr: yearplan.ErrNotFound},
	})

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "show", "-id", plan.ID}))

	var got yearplan.YearPlan
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, plan.ID, got.ID)
	assert.Equal(t, "owner-1", got.OwnerID)
	require.Len(t, got.Units, 1)
	assert.Equal(t, "2025-08-08", got.Units[0].CalculatedEndDate.String())
}

func Test_commandLine_token(t *testing.T) {
	cli, out := setup(t)

	runCLITests(t, cli, []cliTest{
		{name: "no args", args: []string{"token"}, wantErr: errHelp},
	})

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "token", "-owner", "owner-1", "-email", "t1@school.test", "-ttl", "1h"}))

	claims := new(echoapi.Claims)
	_, err := jwt.ParseWithClaims(strings.TrimSpace(out.String()), claims, func(*jwt.Token) (interface{}, error) {
		return []byte(conf.Auth.JWTSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "owner-1", claims.Subject)
	assert.Equal(t, "t1@school.test", claims.Email)
	assert.Equal(t, conf.Auth.Audience, claims.Audience)
	assert.WithinDuration(t, time.Now().Add(time.Hour), time.Unix(claims.ExpiresAt, 0), time.Minute)
}
