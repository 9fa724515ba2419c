package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/quote-board/internal/service"
)

// Validator plugs the core's go-playground validator into echo so that
// c.Validate reports *service.ValidationError.
type Validator struct{}

func (Validator) Validate(i any) error { return service.ValidateStruct(i) }

// bindAndValidate decodes the JSON body into dst and validates it.  A body
// that is not JSON at all is a 400.
func bindAndValidate(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed request body").SetInternal(err)
	}
	return c.Validate(dst)
}
