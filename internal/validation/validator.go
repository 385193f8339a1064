// Package validation checks API request bodies with go-playground/validator
// and turns failures into VALIDATION domain errors with per-field details.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/novelly/novelly-server/internal/domain"
	domainerrors "github.com/novelly/novelly-server/internal/errors"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator with the domain tags registered:
//
//	bookstatus  a reading status (tbr, reading, read, dnf, recommended)
//	pacing      a catalog pacing value
//	notblank    a string with at least one non-space character
func New() *Validator {
	v := validator.New()

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	mustRegister(v, "bookstatus", func(fl validator.FieldLevel) bool {
		return domain.BookStatus(fl.Field().String()).Valid()
	})
	mustRegister(v, "pacing", func(fl validator.FieldLevel) bool {
		return domain.Pacing(fl.Field().String()).Valid()
	})
	mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return &Validator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// Validate checks s and returns a *domainerrors.Error on failure.
func (v *Validator) Validate(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fieldErrors[e.Field()] = message(e)
	}
	return domainerrors.ValidationWithDetails("validation failed", fieldErrors)
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "notblank":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s %s", e.Param(), unit(e))
	case "max":
		return fmt.Sprintf("must not exceed %s %s", e.Param(), unit(e))
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + e.Param()
	case "bookstatus":
		return "must be one of: tbr reading read dnf recommended"
	case "pacing":
		return "must be one of: breakneck fast moderate slow-burn meditative variable"
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	default:
		return "is invalid"
	}
}

// unit names what min/max count for the field's kind.
func unit(e validator.FieldError) string {
	switch e.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return "items"
	default:
		return "characters"
	}
}
