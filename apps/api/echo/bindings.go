package echoapi

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/included-edu/included/core"
)

const orderingParam = "ordering"

// Ordering is bound from `?ordering=-created_at,title`; a leading "-" sorts descending.
type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads the ordering query param. Fields outside allowed are rejected and repeated fields keep their first direction.
func (ord *Ordering) Bind(ctx echo.Context, allowed []string) error {
	raw := strings.TrimSpace(ctx.QueryParam(orderingParam))
	if raw == "" {
		return nil
	}

	seen := make(map[string]bool)
	for _, field := range strings.Split(raw, ",") {
		field = strings.ToLower(strings.TrimSpace(field))
		descending := strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		if field == "" || seen[field] {
			continue
		}
		if !contains(allowed, field) {
			msg := fmt.Sprintf("cannot order by %q; use one of %s", field, strings.Join(allowed, ", "))
			return core.NewValidationError(errors.New(msg), core.FieldError{Field: orderingParam, Error: msg})
		}
		seen[field] = true
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, val := range values {
		if val == v {
			return true
		}
	}
	return false
}
