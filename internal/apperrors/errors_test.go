package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorWrapping(t *testing.T) {
	cause := errors.New("sharing violation")
	err := Wrap(cause, CodeFileLocked, "cannot open report.xlsx")
	wrapped := fmt.Errorf("failed to export batch: %w", err)

	assert.True(t, Is(wrapped, CodeFileLocked))
	assert.False(t, Is(wrapped, CodeIO))
	assert.ErrorIs(t, wrapped, cause)

	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "cannot open report.xlsx", appErr.Message)
	assert.Contains(t, appErr.Error(), "FILE_LOCKED")
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.False(t, Is(nil, CodeInternal))
}

func TestWithDetail(t *testing.T) {
	err := Validation("batch number must be numeric").WithDetail("batch", "abc")
	assert.Equal(t, "abc", err.Details["batch"])
}

func TestUserMessageByCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", Validation("Select at least one sheet."), "Select at least one sheet."},
		{"locked", New(CodeFileLocked, "report.xlsx is in use"), "Close it"},
		{"permission", New(CodePermissionDenied, "cannot write"), "sufficient permissions"},
		{"io", Wrap(errors.New("disk full"), CodeIO, "save failed"), "different location"},
		{"plain", errors.New("boom"), "An error occurred: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, UserMessage(tt.err), tt.want)
		})
	}
	assert.Empty(t, UserMessage(nil))
}
