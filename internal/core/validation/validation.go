// Package validation runs the client-side rules every input must pass before a
// request is sent. Failures come back as *domain.ValidationError keyed by the
// JSON field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/leadflow/leadctl/internal/core/domain"
)

const minPasswordLength = 8

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)

// Validator wraps go-playground/validator with the lead and account rules.
type Validator struct {
	v   *validator.Validate
	now func() time.Time
}

// Option customises a Validator.
type Option func(*Validator)

// WithClock replaces the clock used by the not_future rule.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// New returns a Validator with the custom rules registered.
func New(opts ...Option) *Validator {
	val := &Validator{v: validator.New(validator.WithRequiredStructEnabled()), now: time.Now}
	for _, opt := range opts {
		opt(val)
	}

	val.v.RegisterTagNameFunc(fieldName)
	_ = val.v.RegisterValidation("password_policy", passwordPolicy)
	_ = val.v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = val.v.RegisterValidation("not_future", func(fl validator.FieldLevel) bool {
		ts, ok := fl.Field().Interface().(time.Time)
		if !ok {
			return false
		}
		return !ts.After(val.now())
	})
	return val
}

// Validate checks i and returns nil or a *domain.ValidationError.
func (val *Validator) Validate(i any) error {
	err := val.v.Struct(i)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = fieldError(fe)
		}
	}
	return &domain.ValidationError{Fields: fields}
}

// fieldError converts a single FieldError into a human-readable message.
func fieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "eqfield":
		return fmt.Sprintf("%s must match %s", field, toSnake(fe.Param()))
	case "password_policy":
		return fmt.Sprintf("%s must have at least %d characters with upper and lower case letters and a number", field, minPasswordLength)
	case "phone":
		return field + " must be a valid phone number"
	case "not_future":
		return field + " cannot be in the future"
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

func passwordPolicy(fl validator.FieldLevel) bool {
	pw := fl.Field().String()
	if len(pw) < minPasswordLength {
		return false
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

// fieldName reports the JSON name of a field, or its snake_case Go name when
// the field is not serialised.
func fieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return toSnake(fld.Name)
	}
	return name
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
