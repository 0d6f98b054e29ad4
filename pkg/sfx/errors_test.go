package sfx

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorCodeString(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "StableCode",
			err:      NewError(CodeQuotaExceeded, "out of credits"),
			expected: "QUOTA_EXCEEDED",
		},
		{
			name:     "APIErrorEmbedsStatus",
			err:      NewAPIError(503, "maintenance"),
			expected: "API_ERROR_503",
		},
		{
			name:     "ZeroValueFallsBackToUnknown",
			err:      &Error{},
			expected: "UNKNOWN_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.CodeString(); got != tt.expected {
				t.Errorf("CodeString() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := NewError(CodeTimeout, "deadline exceeded")
	if err.Error() != "TIMEOUT: deadline exceeded" {
		t.Errorf("unexpected message: %q", err.Error())
	}

	bare := NewError(CodeRateLimited, "")
	if bare.Error() != "RATE_LIMITED" {
		t.Errorf("unexpected message: %q", bare.Error())
	}
}

func TestAsError(t *testing.T) {
	typed := NewError(CodeInvalidAPIKey, "rejected")
	if got := AsError(typed); got != typed {
		t.Error("AsError should pass typed errors through")
	}

	wrapped := fmt.Errorf("calling provider: %w", typed)
	if got := AsError(wrapped); got != typed {
		t.Error("AsError should unwrap typed errors")
	}

	plain := AsError(errors.New("boom"))
	if plain.CodeString() != CodeUnknownError {
		t.Errorf("plain errors should classify as UNKNOWN_ERROR, got %s", plain.CodeString())
	}
	if plain.Detail != "boom" {
		t.Errorf("detail should be preserved, got %q", plain.Detail)
	}

	if AsError(nil) != nil {
		t.Error("AsError(nil) must be nil")
	}
}
