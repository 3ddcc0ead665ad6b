// Package inputval validates request payloads and drafts.
//
// Struct validation uses go-playground/validator tags. Failures are returned
// as apperr.Validation errors whose message names the first offending field,
// so callers can surface them directly.
package inputval

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/dalemusser/studybuddy/internal/app/system/apperr"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"github.com/go-playground/validator/v10"
)

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("emailaddr", func(fl validator.FieldLevel) bool {
			return IsValidEmail(fl.Field().String())
		})
		_ = v.RegisterValidation("grouplevel", oneOf(models.GroupLevels))
		_ = v.RegisterValidation("commitment", oneOf(models.TimeCommitments))
		_ = v.RegisterValidation("resourcetype", oneOf(models.ResourceTypes))
	})
	return v
}

func oneOf(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		for _, a := range allowed {
			if s == a {
				return true
			}
		}
		return false
	}
}

// Struct validates s and returns nil or an apperr.Validation error.
func Struct(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		return apperr.Wrap(apperr.Validation, describe(ves[0]), err)
	}
	return apperr.Wrap(apperr.Validation, "invalid input", err)
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "emailaddr", "email":
		return field + " must be a valid email address"
	case "url", "http_url":
		return field + " must be a valid URL"
	case "grouplevel":
		return field + " must be one of " + strings.Join(models.GroupLevels, ", ")
	case "commitment":
		return field + " must be one of " + strings.Join(models.TimeCommitments, ", ")
	case "resourcetype":
		return field + " must be one of " + strings.Join(models.ResourceTypes, ", ")
	}
	return field + " is invalid"
}

// IsValidEmail reports whether s is a bare RFC 5322 address
// ("user@example.com"), not a display-name form.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t<>") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Name == "" && addr.Address == s
}

// NormalizeEmail lower-cases and trims an address for storage and lookup.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
