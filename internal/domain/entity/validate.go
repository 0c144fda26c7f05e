package entity

import (
	"strings"
	"unicode/utf8"

	"github.com/oksasatya/user-registry/internal/domain/apperror"
)

const (
	MaxNameLength = 100
	MinAge        = 0
	MaxAge        = 150
)

const opValidate = "user.validate"

// ValidateUser checks the field-level rules for a user. Rules run in a fixed
// order and the first failure is returned as an apperror.KindInvalidField.
// The email check is structural only ("@" and "." present).
func ValidateUser(name, email string, age *int) error {
	n := strings.TrimSpace(name)
	if n == "" {
		return apperror.New(apperror.KindInvalidField, opValidate, "name must not be empty")
	}
	if utf8.RuneCountInString(n) > MaxNameLength {
		return apperror.New(apperror.KindInvalidField, opValidate, "name must not exceed 100 characters")
	}
	e := strings.TrimSpace(email)
	if e == "" {
		return apperror.New(apperror.KindInvalidField, opValidate, "email must not be empty")
	}
	if !strings.Contains(e, "@") || !strings.Contains(e, ".") {
		return apperror.New(apperror.KindInvalidField, opValidate, "email must contain '@' and '.'")
	}
	if age == nil {
		return apperror.New(apperror.KindInvalidField, opValidate, "age is required")
	}
	if *age < MinAge || *age > MaxAge {
		return apperror.New(apperror.KindInvalidField, opValidate, "age must be between 0 and 150")
	}
	return nil
}
