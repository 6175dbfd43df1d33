package utils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Message: "test error message",
	}

	assert.Equal(t, "test error message", err.Error())
}

func TestValidationError_ErrorWithField(t *testing.T) {
	err := NewFieldError("tz", "unknown time zone")

	assert.Equal(t, "tz: unknown time zone", err.Error())
}

func TestNewValidationErrorf(t *testing.T) {
	err := NewValidationErrorf("unsupported sport %q", "CRICKET")

	assert.Error(t, err)
	validationErr, ok := err.(*ValidationError)
	assert.True(t, ok)
	assert.Equal(t, `unsupported sport "CRICKET"`, validationErr.Message)
}

func TestIsValidationError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "direct", err: NewValidationError("bad"), want: true},
		{name: "wrapped", err: fmt.Errorf("parse request: %w", NewFieldError("date", "bad")), want: true},
		{name: "other", err: fmt.Errorf("boom"), want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidationError(tt.err))
		})
	}
}
