package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError is a single violated constraint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors lists every constraint an entity violates.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, fe := range v {
		msgs = append(msgs, fe.Message)
	}
	return "Invalid input data. " + strings.Join(msgs, " ")
}

// Has reports whether field has at least one violation.
func (v ValidationErrors) Has(field string) bool {
	for _, fe := range v {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Invalid builds a single-field ValidationErrors.
func Invalid(field, message string) ValidationErrors {
	return ValidationErrors{{Field: field, Message: message}}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report json names so messages and clients agree on field keys
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// check runs struct tag validation and maps failures to messages keyed "field.tag".
func check(v any, messages map[string]string) ValidationErrors {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{Message: err.Error()}}
	}
	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg, ok := messages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("%s is invalid (%s).", fe.Field(), fe.Tag())
		}
		out = append(out, FieldError{Field: fe.Field(), Message: msg})
	}
	return out
}
