// Package validate wraps go-playground/validator with readable messages.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates s using its `validate` tags.
func Struct(s any) error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return &Error{Errors: verrs}
		}
		return err
	}
	return nil
}

// Var validates a single value against tag.
func Var(field string, v any, tag string) error {
	if err := validate.Var(v, tag); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return &Error{Errors: verrs, field: field}
		}
		return err
	}
	return nil
}

// Username checks the rules the backend applies to usernames.
func Username(name string) error {
	return Var("username", strings.TrimSpace(name), "required,alphanum,min=3,max=64")
}

// Error wraps validator.ValidationErrors with a user-facing message.
type Error struct {
	Errors validator.ValidationErrors
	field  string
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s %s", e.name(fe), message(fe)))
	}
	return strings.Join(msgs, "; ")
}

// Fields maps field names to messages.
func (e *Error) Fields() map[string]string {
	fields := make(map[string]string, len(e.Errors))
	for _, fe := range e.Errors {
		fields[e.name(fe)] = message(fe)
	}
	return fields
}

func (e *Error) name(fe validator.FieldError) string {
	if e.field != "" {
		return e.field
	}
	return fe.Namespace()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "alphanum":
		return "must contain only letters and numbers"
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "url":
		return "must be a valid URL"
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}
