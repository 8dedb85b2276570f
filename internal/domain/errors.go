package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when a screening session does not exist for the caller.
	ErrSessionNotFound = errors.New("screening session not found")
	// ErrQuestionNotFound indicates a submitted question ID is not in the catalog.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrUserNotFound indicates an account lookup failed.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned on signup with an address that already exists.
	ErrEmailTaken = errors.New("email already exists")
	// ErrInvalidCredentials is returned when email or password do not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDoctorNotFound indicates an appointment references a non-doctor account.
	ErrDoctorNotFound = errors.New("doctor not found")
	// ErrPredictionFailed wraps classifier failures during finish.
	ErrPredictionFailed = errors.New("prediction failed")
	// ErrSaveFailed wraps persistence failures during finish.
	ErrSaveFailed = errors.New("saving screening session failed")
	// ErrEmptyHistory is returned when finishing an assessment with no answers.
	ErrEmptyHistory = errors.New("assessment history is empty")
)

// ValidationError reports a malformed entity field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
