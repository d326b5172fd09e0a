package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bala2006-m/smart-school-server-sub001/core"
)

var orderingParam = "ordering"

// Ordering binds the report endpoint's ?ordering=field,-field query param into
// column orderings ("-" prefix means descending). The repository whitelists
// the fields; unknown ones are silently dropped there, so binding never fails.
type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	raw := ctx.QueryParam(orderingParam)
	if raw == "" {
		return
	}

	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}
