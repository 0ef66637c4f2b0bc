package handler

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tuition-ledger/internal/apperr"
)

// Validator adapts go-playground/validator to echo.Validator.  Field
// names in errors are the json names of the request structs.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}

// bind decodes the request body into req and validates it.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid body")
	}
	if c.Echo().Validator == nil {
		return nil
	}
	return c.Validate(req)
}
