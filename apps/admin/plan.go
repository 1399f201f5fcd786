package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/classroom-curator/planner/core"
	"github.com/classroom-curator/planner/core/yearplan"
)

func (cli *commandLine) readRequest(file string) (yearplan.CalculateRequest, error) {
	var req yearplan.CalculateRequest

	var r io.Reader = os.Stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return req, err
		}
		defer f.Close()
		r = f
	}

	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return req, errors.Wrapf(err, "decoding %s", file)
	}
	return req, nil
}

// calculate prints the preview of the year plan found in `file`, or its validation errors.
func (cli *commandLine) calculate(file string, noFetch bool) error {
	req, err := cli.readRequest(file)
	if err != nil {
		return err
	}
	if noFetch {
		fetch := false
		req.AutoFetchHolidays = &fetch
	}

	if err := req.Validate(cli.validate); err != nil {
		if vErrs, ok := err.(validator.ValidationErrors); ok {
			_ = cli.printJSON(core.TranslateValidationErrors(vErrs, cli.translator))
			return errInvalidInput
		}
		return err
	}

	preview, err := cli.svc.Calculate(context.Background(), req)
	if err != nil {
		var vErr *core.ValidationError
		if errors.As(err, &vErr) && len(vErr.Fields) > 0 {
			_ = cli.printJSON(vErr.FieldMap())
			return errInvalidInput
		}
		return err
	}
	return cli.printJSON(preview)
}

func (cli *commandLine) show(id string) error {
	plan, err := cli.svc.Get(context.Background(), id)
	if err != nil {
		return err
	}
	return cli.printJSON(plan)
}
