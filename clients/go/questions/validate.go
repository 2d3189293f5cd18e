package questions

import (
	"errors"
	"regexp"
	"strings"
)

// MinPasswordLength is the shortest password the sign-up and login forms accept.
const MinPasswordLength = 6

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

var (
	ErrEmailRequired    = errors.New("email is required")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// ValidEmail reports whether email looks like an address.
func ValidEmail(email string) bool {
	return len(email) <= 254 && emailRegex.MatchString(email)
}

// ValidateCredentials applies the login form rules.
func ValidateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	switch {
	case email == "":
		return ErrEmailRequired
	case !ValidEmail(email):
		return ErrInvalidEmail
	case password == "":
		return ErrPasswordRequired
	case len(password) < MinPasswordLength:
		return ErrPasswordTooShort
	}
	return nil
}

// ValidateRegistration applies the sign-up form rules.
func ValidateRegistration(email, password, confirmPassword string) error {
	if err := ValidateCredentials(email, password); err != nil {
		return err
	}
	if password != confirmPassword {
		return ErrPasswordMismatch
	}
	return nil
}
