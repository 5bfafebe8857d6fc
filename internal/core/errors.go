package core

import "errors"

// UserError pairs an internal error with a message that is safe to show to end users.
type UserError struct {
	UserMessage string
	Err         error
}

func (e *UserError) Error() string {
	if e.Err == nil {
		return e.UserMessage
	}
	return e.UserMessage + ": " + e.Err.Error()
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError wraps err with a user-facing message.
func NewUserError(message string, err error) *UserError {
	return &UserError{UserMessage: message, Err: err}
}

// UserMessage returns the user-facing message carried by err, if any.
func UserMessage(err error) (string, bool) {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.UserMessage, true
	}
	return "", false
}

var validationErrors = []error{
	ErrInvalidAmount, ErrInvalidType, ErrInvalidDate, ErrInvalidDateRange, ErrInvalidPeriod,
	ErrEmptyName, ErrEmptyDescription, ErrEmptyQuery, ErrDescriptionTooLong, ErrInvalidStatus, ErrInvalidThreshold,
}

// ValidationCause returns the input validation sentinel err wraps, if any.
func ValidationCause(err error) (error, bool) {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return target, true
		}
	}
	return nil, false
}

// IsValidation reports whether err is one of the input validation sentinels.
func IsValidation(err error) bool {
	_, ok := ValidationCause(err)
	return ok
}
