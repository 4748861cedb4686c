package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/hesabu/core"
)

var (
	orderingParam = "ordering"
	idParam       = "id"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads "?ordering=-created_at,id". Fields not in `allowed` are a validation error.
func (ord *Ordering) Bind(ctx echo.Context, allowed ...string) error {
	orderings, err := core.ParseOrdering(ctx.QueryParam(orderingParam), allowed...)
	if err != nil {
		return err
	}
	ord.Orderings = orderings
	return nil
}

// IDs is the list of "?id=a&id=b" query params.
type IDs struct {
	Values []string
}

func (ids *IDs) Bind(ctx echo.Context) {
	for _, id := range ctx.QueryParams()[idParam] {
		if id = core.CleanString(id); id != "" {
			ids.Values = append(ids.Values, id)
		}
	}
}
