package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := &Error{
		Type:    ErrConfiguration,
		Message: "GROQ_API_KEY is not set",
	}

	expected := "configuration_error: GROQ_API_KEY is not set"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestError_WithProvider(t *testing.T) {
	err := &Error{
		Type:     ErrRateLimit,
		Message:  "too many requests",
		Provider: "groq",
	}

	expected := "rate_limit_error: too many requests (provider: groq)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewConfigurationError(t *testing.T) {
	err := NewConfigurationError("credential missing")
	if err.Type != ErrConfiguration {
		t.Errorf("Type = %v, want %v", err.Type, ErrConfiguration)
	}
	if err.Message != "credential missing" {
		t.Errorf("Message = %q, want %q", err.Message, "credential missing")
	}
}

func TestNewPermissionError(t *testing.T) {
	err := NewPermissionError("elevenlabs", "key lacks text_to_speech scope")
	if err.Type != ErrPermission {
		t.Errorf("Type = %v, want %v", err.Type, ErrPermission)
	}
	if err.Provider != "elevenlabs" {
		t.Errorf("Provider = %q, want %q", err.Provider, "elevenlabs")
	}
}

func TestNewRateLimitError(t *testing.T) {
	err := NewRateLimitError("groq", "rate limit exceeded", 60)
	if err.Type != ErrRateLimit {
		t.Errorf("Type = %v, want %v", err.Type, ErrRateLimit)
	}
	if err.RetryAfter == nil || *err.RetryAfter != 60 {
		t.Errorf("RetryAfter = %v, want 60", err.RetryAfter)
	}
}

func TestNewCallShapeError_Unwrap(t *testing.T) {
	underlying := fmt.Errorf("bad handshake")
	err := NewCallShapeError("elevenlabs", underlying)

	if err.Type != ErrCallShape {
		t.Errorf("Type = %v, want %v", err.Type, ErrCallShape)
	}
	if !errors.Is(err, underlying) {
		t.Error("errors.Is should find the underlying error")
	}
}

func TestNewProviderError(t *testing.T) {
	underlying := NewAPIError("groq", "upstream error", 502)
	err := NewProviderError("groq", underlying)

	if err.Type != ErrProvider {
		t.Errorf("Type = %v, want %v", err.Type, ErrProvider)
	}
	if err.Unwrap() == nil {
		t.Error("Unwrap() should not be nil")
	}
}

func TestError_IsRetryable(t *testing.T) {
	tests := []struct {
		errType ErrorType
		want    bool
	}{
		{ErrRateLimit, true},
		{ErrOverloaded, true},
		{ErrAPI, true},
		{ErrInvalidRequest, false},
		{ErrConfiguration, false},
		{ErrAuthentication, false},
		{ErrPermission, false},
		{ErrNotFound, false},
		{ErrProvider, false},
		{ErrCallShape, false},
		{ErrLocalResource, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.errType), func(t *testing.T) {
			err := &Error{Type: tt.errType, Message: "test"}
			if got := err.IsRetryable(); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTypeOf(t *testing.T) {
	wrapped := fmt.Errorf("stage failed: %w", NewConfigurationError("no key"))
	if got := TypeOf(wrapped); got != ErrConfiguration {
		t.Errorf("TypeOf(wrapped) = %q, want %q", got, ErrConfiguration)
	}
	if got := TypeOf(errors.New("plain")); got != "" {
		t.Errorf("TypeOf(plain) = %q, want empty", got)
	}
}

func TestPredicates(t *testing.T) {
	if !IsConfiguration(NewConfigurationError("x")) {
		t.Error("IsConfiguration = false, want true")
	}
	if !IsCallShape(NewCallShapeError("elevenlabs", errors.New("x"))) {
		t.Error("IsCallShape = false, want true")
	}
	if !IsPermission(NewPermissionError("elevenlabs", "x")) {
		t.Error("IsPermission = false, want true")
	}
	if !IsLocalResource(NewLocalResourceError("x", nil)) {
		t.Error("IsLocalResource = false, want true")
	}
	if IsCallShape(NewPermissionError("elevenlabs", "x")) {
		t.Error("IsCallShape on permission error = true, want false")
	}
}
