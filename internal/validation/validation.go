// Package validation turns struct-tag and hand-written input checks into
// field-level error messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// NonFieldErrors is the key for errors not tied to a single field.
const NonFieldErrors = "non_field_errors"

// Errors maps a field name (JSON spelling, dotted for nested values) to its messages.
type Errors map[string][]string

// Error implements error.
func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(e[f], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a message for field.
func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Merge copies other's messages into e.
func (e Errors) Merge(other Errors) {
	for f, msgs := range other {
		e[f] = append(e[f], msgs...)
	}
}

// Err returns e as an error, or nil when there are no messages.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Field builds a single-field Errors value.
func Field(field, message string) Errors {
	return Errors{field: {message}}
}

// As extracts Errors from err.
func As(err error) (Errors, bool) {
	var verrs Errors
	if errors.As(err, &verrs) {
		return verrs, true
	}
	return nil, false
}

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates s against its `validate` tags. It returns nil or Errors.
func Struct(s any) Errors {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return Errors{NonFieldErrors: {err.Error()}}
	}

	out := make(Errors, len(fieldErrs))
	for _, fe := range fieldErrs {
		out.Add(fieldPath(fe), message(fe))
	}
	return out
}

// Var validates a single value against tag and reports failures under field.
func Var(field string, value any, tag string) Errors {
	err := instance().Var(value, tag)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return Errors{field: {err.Error()}}
	}

	out := make(Errors, len(fieldErrs))
	for _, fe := range fieldErrs {
		out.Add(field, message(fe))
	}
	return out
}

// fieldPath drops the top-level struct name: "RecipeInput.tags[0].name" -> "tags[0].name".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "lte":
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "url":
		return "Enter a valid URL."
	default:
		return fmt.Sprintf("Failed the %q check.", fe.Tag())
	}
}
