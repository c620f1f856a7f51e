package auth

import (
	"errors"
	"unicode"
)

// ValidatePassword enforces password strength: at least 8 characters with
// an upper-case letter, a lower-case letter, a digit and a special character.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
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
	if !upper {
		return errors.New("password must contain an upper-case letter")
	}
	if !lower {
		return errors.New("password must contain a lower-case letter")
	}
	if !digit {
		return errors.New("password must contain a digit")
	}
	if !special {
		return errors.New("password must contain a special character")
	}
	return nil
}
