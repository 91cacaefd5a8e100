package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type CustomValidator struct {
	validator *validator.Validate
}

// messages maps a failed tag to its message; the field name and tag param are prepended/appended.
var messages = map[string]string{
	"required": "is required",
	"email":    "must be a valid email address",
	"min":      "must be at least %s characters",
	"max":      "must be at most %s characters",
	"gte":      "must be greater than or equal to %s",
	"gt":       "must be greater than %s",
	"lte":      "must be less than or equal to %s",
	"uuid":     "must be a valid UUID",
	"oneof":    "must be one of: %s",
	"url":      "must be a valid URL",
	"datetime": "must match the layout %s",
	"slotdate": "must be a calendar date in D_M_YYYY form",
	"slottime": "must be a time in hh:mm AM/PM form",
}

func NewValidator() *CustomValidator {
	v := validator.New()

	// report fields under their JSON names so clients can match them to the payload
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("slotdate", func(fl validator.FieldLevel) bool {
		return IsSlotDate(fl.Field().String())
	})
	_ = v.RegisterValidation("slottime", func(fl validator.FieldLevel) bool {
		return IsSlotTime(fl.Field().String())
	})

	return &CustomValidator{validator: v}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func (cv *CustomValidator) FormatValidationErrors(err error) map[string]string {
	out := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return out
	}

	for _, e := range validationErrors {
		msg, ok := messages[e.Tag()]
		if !ok {
			msg = "is invalid"
		}
		if strings.Contains(msg, "%s") {
			msg = strings.Replace(msg, "%s", e.Param(), 1)
		}
		out[e.Field()] = e.Field() + " " + msg
	}

	return out
}
