package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationCause(t *testing.T) {
	cause, ok := ValidationCause(fmt.Errorf("create budget: %w", ErrInvalidThreshold))
	assert.True(t, ok)
	assert.Equal(t, ErrInvalidThreshold, cause)

	_, ok = ValidationCause(errors.New("database is locked"))
	assert.False(t, ok)
	assert.False(t, IsValidation(ErrNotFound))
}

func TestUserMessage(t *testing.T) {
	err := fmt.Errorf("overview: %w", NewUserError("Failed to generate forecast. Please try again.", errors.New("503")))

	msg, ok := UserMessage(err)
	assert.True(t, ok)
	assert.Equal(t, "Failed to generate forecast. Please try again.", msg)
	assert.EqualError(t, err, "overview: Failed to generate forecast. Please try again.: 503")

	_, ok = UserMessage(errors.New("plain"))
	assert.False(t, ok)
}
