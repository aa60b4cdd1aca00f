package echoapi

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/shule/core"
)

const (
	pageParam  = "page"
	limitParam = "limit"
)

// Pagination reads the page and limit query params.
type Pagination struct {
	core.Page
}

func (pg *Pagination) Bind(ctx echo.Context) error {
	pg.Number, pg.Limit = 1, core.DefaultPageLimit

	var fldErrs []core.FieldError
	if val := ctx.QueryParam(pageParam); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil || n < 1 {
			fldErrs = append(fldErrs, core.FieldError{Field: pageParam, Error: "page must be a positive integer"})
		} else {
			pg.Number = n
		}
	}
	if val := ctx.QueryParam(limitParam); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil || n < 1 || n > core.MaxPageLimit {
			fldErrs = append(fldErrs, core.FieldError{
				Field: limitParam,
				Error: fmt.Sprintf("limit must be an integer between 1 and %d", core.MaxPageLimit),
			})
		} else {
			pg.Limit = n
		}
	}
	if pg.Number > core.MaxPageNumber(pg.Limit) {
		fldErrs = append(fldErrs, core.FieldError{Field: pageParam, Error: "page is out of range"})
	}
	if len(fldErrs) > 0 {
		return core.NewValidationError(nil, fldErrs...)
	}
	return nil
}
