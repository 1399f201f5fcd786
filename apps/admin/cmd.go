package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/classroom-curator/planner/core"
	"github.com/classroom-curator/planner/core/yearplan"
)

var (
	isTerminalFunc = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) } // mockable

	errHelp         = errors.New("help provided")
	errNoDB         = errors.New("no database configured, unset DEBUG to run migrations")
	errInvalidInput = errors.New("invalid year plan")
)

type commandLine struct {
	conf       *core.Config
	db         *sqlx.DB // nil in debug runs
	svc        yearplan.Service
	validate   *validator.Validate
	translator ut.Translator
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...) on the database")
	fmt.Fprintln(cli.out, "  calculate -file FILE [-no-fetch] - calculate the year plan described in FILE (JSON, - for stdin)")
	fmt.Fprintln(cli.out, "  show -id ID - print a saved year plan")
	fmt.Fprintln(cli.out, "  token -owner ID [-email EMAIL] [-ttl DURATION] - issue an API token")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	calculateCmd := flag.NewFlagSet("calculate", flag.ContinueOnError)
	calculateCmd.SetOutput(cli.out)
	calculateFile := calculateCmd.String("file", "", "The JSON file of the year plan to calculate, - for stdin.")
	calculateNoFetch := calculateCmd.Bool("no-fetch", false, "Do not fetch public holidays.")

	showCmd := flag.NewFlagSet("show", flag.ContinueOnError)
	showCmd.SetOutput(cli.out)
	showID := showCmd.String("id", "", "The ID of the year plan.")

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenCmd.SetOutput(cli.out)
	tokenOwner := tokenCmd.String("owner", "", "The owner ID, set as the token subject.")
	tokenEmail := tokenCmd.String("email", "", "The owner's email.")
	tokenTTL := tokenCmd.Duration("ttl", 24*time.Hour, "How long the token is valid.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "calculate":
		if err := calculateCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *calculateFile == "" {
			calculateCmd.Usage()
			return errHelp
		}
		return cli.calculate(*calculateFile, *calculateNoFetch)
	case "show":
		if err := showCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *showID == "" {
			showCmd.Usage()
			return errHelp
		}
		return cli.show(*showID)
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenOwner == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(*tokenOwner, *tokenEmail, *tokenTTL)
	default:
		cli.printUsage()
		return errHelp
	}
}

// printJSON writes `v` to the output, indented when it is a terminal.
func (cli *commandLine) printJSON(v interface{}) error {
	enc := json.NewEncoder(cli.out)
	if isTerminalFunc() {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
