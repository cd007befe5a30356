package user

import (
	"regexp"

	apperrors "github.com/ruziba3vich/toolshed/pkg/errors"
)

const (
	UsernameMinLength = 3
	UsernameMaxLength = 31
	PasswordMinLength = 6
	PasswordMaxLength = 255
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// ValidateUsername checks length and allowed characters: lowercase
// letters, digits, underscore and hyphen.
func ValidateUsername(username string) error {
	if len(username) < UsernameMinLength || len(username) > UsernameMaxLength {
		return apperrors.NewValidationError("username", "must be between 3 and 31 characters")
	}
	if !usernamePattern.MatchString(username) {
		return apperrors.NewValidationError("username", "may only contain lowercase letters, digits, '_' and '-'")
	}
	return nil
}

// ValidatePassword checks length only.
func ValidatePassword(password string) error {
	if len(password) < PasswordMinLength || len(password) > PasswordMaxLength {
		return apperrors.NewValidationError("password", "must be between 6 and 255 characters")
	}
	return nil
}

// ValidateCredentials runs both checks and collects every failure.
func ValidateCredentials(username, password string) error {
	var errs apperrors.ValidationErrors
	errs.AddError(ValidateUsername(username))
	errs.AddError(ValidatePassword(password))
	return errs.ErrOrNil()
}
