package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/classroom-curator/planner/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses the `ordering` query param, keeping the fields found in `allowed` only.
func (ord *Ordering) Bind(ctx echo.Context, allowed map[string]string) {
	if raw := ctx.QueryParam(orderingParam); raw != "" {
		ord.Orderings = core.ParseOrdering(raw, allowed)
	}
}
