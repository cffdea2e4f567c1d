// Package validation checks request structs before any I/O happens.
//
// Struct fields use go-playground/validator tags plus two custom rules:
//
//	notblank    non-empty after trimming spaces
//	emailshape  something@something.tld, the loose shape the UI has always accepted
//
// A field may carry a msg tag; its text becomes the error message when the
// field is the first one to fail.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"zxsgit/internal/apperr"
)

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		_ = v.RegisterValidation("emailshape", func(fl validator.FieldLevel) bool {
			return IsEmail(fl.Field().String())
		})
	})
	return v
}

// IsEmail reports whether s looks like an email address.
func IsEmail(s string) bool { return emailShape.MatchString(strings.TrimSpace(s)) }

// Struct validates s and returns an apperr validation error carrying the
// first failing field's message.
func Struct(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Wrap(apperr.KindInternal, "Something went wrong", err)
	}
	return apperr.Validation(messageFor(s, verrs[0]))
}

func messageFor(s any, fe validator.FieldError) string {
	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		if f, ok := t.FieldByName(fe.StructField()); ok {
			if msg := f.Tag.Get("msg"); msg != "" {
				return msg
			}
		}
	}
	switch fe.Tag() {
	case "notblank", "required":
		return fe.Field() + " is required"
	case "emailshape", "email":
		return "Invalid email"
	default:
		return "Invalid " + strings.ToLower(fe.Field())
	}
}
