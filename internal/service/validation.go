package service

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"go-auth-service/internal/security"
	"go-auth-service/pkg/apierror"
)

const (
	minPasswordLength = 8
	passwordSymbols   = "@$!%*?&"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

var (
	errPasswordMismatch = apierror.Validation("PASSWORD_MISMATCH", "Passwords do not match", "")
	errWeakPassword     = apierror.Validation("WEAK_PASSWORD",
		"Password must be 8-72 characters with upper and lower case letters, a digit and one of "+passwordSymbols, "Password")
	errInvalidUsername = apierror.Validation("INVALID_USERNAME",
		"Username must be 3-30 characters of letters, digits, '_', '.' or '-'", "Username")
	errInvalidEmail = apierror.Validation("INVALID_EMAIL", "Email address is invalid", "Email")
)

// RequestValidator checks request structs against their validate tags.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("password_policy", func(fl validator.FieldLevel) bool {
		return MeetsPasswordPolicy(fl.Field().String())
	})
	return &RequestValidator{validate: v}
}

// failedFields returns the names of the struct fields whose tags did not pass.
func (v *RequestValidator) failedFields(req any) (map[string]bool, error) {
	failed := map[string]bool{}

	err := v.validate.Struct(req)
	if err == nil {
		return failed, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil, err
	}
	for _, fe := range fieldErrs {
		failed[fe.StructField()] = true
	}
	return failed, nil
}

// MeetsPasswordPolicy requires 8 to 72 characters drawn only from ASCII
// letters, digits and the symbols @$!%*?&, with at least one of each class.
func MeetsPasswordPolicy(password string) bool {
	if len(password) < minPasswordLength || len(password) > security.MaxPasswordBytes {
		return false
	}

	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, c := range password {
		switch {
		case c >= 'a' && c <= 'z':
			hasLower = true
		case c >= 'A' && c <= 'Z':
			hasUpper = true
		case c >= '0' && c <= '9':
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, c):
			hasSymbol = true
		default:
			return false
		}
	}

	return hasLower && hasUpper && hasDigit && hasSymbol
}
