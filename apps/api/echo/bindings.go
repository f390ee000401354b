package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/colegio/core"
	"github.com/trezcool/colegio/core/attendance"
)

const (
	orderingParam = "ordering"
	fromParam     = "desde"
	toParam       = "hasta"
	dateParam     = "fecha"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `?ordering=name,-created_at`; a leading "-" sorts descending.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field != "" {
			ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
		}
	}
}

// bindRange reads `?desde=&hasta=`. When optional, no bounds at all means the whole history.
func bindRange(ctx echo.Context, optional bool) (attendance.Range, error) {
	from, to := ctx.QueryParam(fromParam), ctx.QueryParam(toParam)
	if optional && core.CleanString(from) == "" && core.CleanString(to) == "" {
		return attendance.Range{}, nil
	}
	rng, err := attendance.ValidateRange(from, to)
	switch errors.Cause(err) {
	case nil:
		return rng, nil
	case attendance.ErrInvalidRange:
		return rng, core.NewValidationError(err, core.FieldError{Field: toParam, Error: err.Error()})
	default:
		return rng, core.NewValidationError(err)
	}
}

// bindDate reads `?fecha=`, defaulting to today.
func bindDate(ctx echo.Context) (string, error) {
	date := core.CleanString(ctx.QueryParam(dateParam))
	if date == "" {
		return core.Today(), nil
	}
	if !core.IsDate(date) {
		return "", core.NewValidationError(attendance.ErrInvalidDate, core.FieldError{Field: dateParam, Error: attendance.ErrInvalidDate.Error()})
	}
	return date, nil
}
