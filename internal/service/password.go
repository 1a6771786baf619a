package service

import (
	"unicode"

	appErrors "github.com/schoolhub-io/schoolhub-api/pkg/errors"
)

// validatePassword enforces the account password policy before any
// provider call is attempted: at least 8 characters with an uppercase
// letter, a lowercase letter, a digit and a special character.
func validatePassword(password string) error {
	if len(password) < 8 {
		return appErrors.Clone(appErrors.ErrValidation, "password must be at least 8 characters long")
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}

	switch {
	case !upper:
		return appErrors.Clone(appErrors.ErrValidation, "password must contain an uppercase letter")
	case !lower:
		return appErrors.Clone(appErrors.ErrValidation, "password must contain a lowercase letter")
	case !digit:
		return appErrors.Clone(appErrors.ErrValidation, "password must contain a digit")
	case !special:
		return appErrors.Clone(appErrors.ErrValidation, "password must contain a special character")
	}
	return nil
}
