// Package validate wraps go-playground/validator with the rules shared by the
// ingest and summary services and the HTTP layer.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid is matched by every *Error via errors.Is.
var ErrInvalid = errors.New("validation failed")

// DateLayout is the only accepted date format.
const DateLayout = "2006-01-02"

// FieldError describes one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// Error is returned when input fails validation. No I/O has happened when
// a service returns it.
type Error struct {
	Fields []FieldError `json:"fields"`
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *Error) Unwrap() error { return ErrInvalid }

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterValidation("isodate", isISODate)
	val.RegisterValidation("notblank", notBlank)

	// Use JSON tag names in error messages
	val.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return val
}

// Struct validates s against its `validate` tags.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &Error{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: message(fe),
		})
	}
	return out
}

// DateRange checks that start and end are dates and start is not after end.
func DateRange(start, end string) error {
	s, errS := time.Parse(DateLayout, start)
	e, errE := time.Parse(DateLayout, end)
	if errS != nil || errE != nil {
		return &Error{Fields: []FieldError{{Field: "start_date", Tag: "isodate", Message: "start_date and end_date must be YYYY-MM-DD dates"}}}
	}
	if s.After(e) {
		return &Error{Fields: []FieldError{{Field: "start_date", Tag: "daterange", Message: "start_date must not be after end_date"}}}
	}
	return nil
}

// IsISODate reports whether s is a valid calendar date in YYYY-MM-DD form.
func IsISODate(s string) bool {
	if len(s) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

func isISODate(fl validator.FieldLevel) bool {
	return IsISODate(fl.Field().String())
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "isodate":
		return fmt.Sprintf("%s must be a YYYY-MM-DD date", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gte", "lte":
		return fmt.Sprintf("%s must be %s %s", field, fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
