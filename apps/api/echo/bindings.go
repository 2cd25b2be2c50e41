package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mtokoni/tathmini/core"
)

const orderingParam = "ordering"

// bindOrdering parses the "ordering" query param ("name,-created_at") into DB
// orderings. Fields end up interpolated into ORDER BY clauses, so anything
// not in allowed is dropped.
func bindOrdering(ctx echo.Context, allowed ...string) []core.DBOrdering {
	raw := ctx.QueryParam(orderingParam)
	if raw == "" {
		return nil
	}

	var orderings []core.DBOrdering
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:]
		}
		if !orderingFieldAllowed(field, allowed) {
			continue
		}
		orderings = append(orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
	return orderings
}

func orderingFieldAllowed(field string, allowed []string) bool {
	for _, f := range allowed {
		if f == field {
			return true
		}
	}
	return false
}
