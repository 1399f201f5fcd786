package main

import (
	"fmt"
	"time"

	echoapi "github.com/classroom-curator/planner/apps/api/echo"
)

// token issues a JWT accepted by the API for `ownerID`.
func (cli *commandLine) token(ownerID, email string, ttl time.Duration) error {
	token, err := echoapi.GenerateToken(cli.conf, echoapi.NewClaims(cli.conf, ownerID, email, ttl))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cli.out, token)
	return err
}
