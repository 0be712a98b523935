// Package validation wraps go-playground/validator and renders failures as
// per-field messages keyed by the json field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FieldErrors maps a json field name to a human readable message.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e[field])
	}
	return strings.Join(parts, "; ")
}

// Struct validates s and returns FieldErrors when any rule fails.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("invalid validation error: %w", err)
	}

	fieldErrors := make(FieldErrors, len(validationErrors))
	for _, fe := range validationErrors {
		if _, exists := fieldErrors[fe.Field()]; exists {
			continue
		}
		fieldErrors[fe.Field()] = message(fe.Tag(), fe.Param())
	}
	return fieldErrors
}

// Email reports whether value is a syntactically valid email address.
func Email(value string) bool {
	return validate.Var(value, "required,email") == nil
}

func message(tag, param string) string {
	switch tag {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", param)
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", param)
	default:
		return fmt.Sprintf("Validation failed on rule %q.", tag)
	}
}
