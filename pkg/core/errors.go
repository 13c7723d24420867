package core

import (
	"errors"
	"fmt"
)

// Error represents a pipeline or provider error.
type Error struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Param      string    `json:"param,omitempty"`
	Provider   string    `json:"provider,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	RetryAfter *int      `json:"retry_after,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	Err        error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s (provider: %s)", e.Type, e.Message, e.Provider)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorType categorizes errors.
type ErrorType string

const (
	ErrInvalidRequest ErrorType = "invalid_request_error"
	ErrConfiguration  ErrorType = "configuration_error"
	ErrAuthentication ErrorType = "authentication_error"
	ErrPermission     ErrorType = "permission_error"
	ErrNotFound       ErrorType = "not_found_error"
	ErrRateLimit      ErrorType = "rate_limit_error"
	ErrAPI            ErrorType = "api_error"
	ErrOverloaded     ErrorType = "overloaded_error"
	ErrProvider       ErrorType = "provider_error"
	ErrCallShape      ErrorType = "call_shape_error"
	ErrLocalResource  ErrorType = "local_resource_error"
)

// NewInvalidRequestError creates an invalid request error.
func NewInvalidRequestError(message string) *Error {
	return &Error{
		Type:    ErrInvalidRequest,
		Message: message,
	}
}

// NewInvalidRequestErrorWithParam creates an invalid request error tied to a
// specific request parameter.
func NewInvalidRequestErrorWithParam(message, param string) *Error {
	return &Error{
		Type:    ErrInvalidRequest,
		Message: message,
		Param:   param,
	}
}

// NewConfigurationError creates a configuration error for a missing or
// unusable credential or setting. It is raised before any network call.
func NewConfigurationError(message string) *Error {
	return &Error{
		Type:    ErrConfiguration,
		Message: message,
	}
}

// NewAuthenticationError creates an authentication error.
func NewAuthenticationError(provider, message string) *Error {
	return &Error{
		Type:     ErrAuthentication,
		Message:  message,
		Provider: provider,
	}
}

// NewPermissionError creates a permission error. Used for credentials that
// authenticate but lack the scope a call requires.
func NewPermissionError(provider, message string) *Error {
	return &Error{
		Type:     ErrPermission,
		Message:  message,
		Provider: provider,
	}
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *Error {
	return &Error{
		Type:    ErrNotFound,
		Message: message,
	}
}

// NewRateLimitError creates a rate limit error.
func NewRateLimitError(provider, message string, retryAfter int) *Error {
	return &Error{
		Type:       ErrRateLimit,
		Message:    message,
		Provider:   provider,
		RetryAfter: &retryAfter,
	}
}

// NewAPIError creates a generic API error.
func NewAPIError(provider, message string, statusCode int) *Error {
	return &Error{
		Type:       ErrAPI,
		Message:    message,
		Provider:   provider,
		StatusCode: statusCode,
	}
}

// NewOverloadedError creates an overloaded error.
func NewOverloadedError(provider, message string) *Error {
	return &Error{
		Type:     ErrOverloaded,
		Message:  message,
		Provider: provider,
	}
}

// NewProviderError wraps a provider-specific failure.
func NewProviderError(provider string, underlying error) *Error {
	return &Error{
		Type:     ErrProvider,
		Message:  fmt.Sprintf("%s: %v", provider, underlying),
		Provider: provider,
		Err:      underlying,
	}
}

// NewCallShapeError signals that the call shape this client expected is not
// what the service exposes. It is a retry-with-alternate-shape signal, never
// a user-visible failure.
func NewCallShapeError(provider string, underlying error) *Error {
	return &Error{
		Type:     ErrCallShape,
		Message:  fmt.Sprintf("call shape not supported: %v", underlying),
		Provider: provider,
		Err:      underlying,
	}
}

// NewLocalResourceError reports a missing local dependency such as an audio
// device or player binary. These fail loudly and are never downgraded.
func NewLocalResourceError(message string, underlying error) *Error {
	return &Error{
		Type:    ErrLocalResource,
		Message: message,
		Err:     underlying,
	}
}

// IsRetryable returns true if the error is retryable.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrRateLimit, ErrOverloaded, ErrAPI:
		return true
	default:
		return false
	}
}

// Unwrap returns the underlying error for error wrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// TypeOf returns the taxonomy type of err, or "" if err does not carry one.
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ""
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool { return TypeOf(err) == ErrConfiguration }

// IsCallShape reports whether err is a call shape mismatch signal.
func IsCallShape(err error) bool { return TypeOf(err) == ErrCallShape }

// IsPermission reports whether err is a permission (missing scope) error.
func IsPermission(err error) bool { return TypeOf(err) == ErrPermission }

// IsNotFound reports whether err is a not found error.
func IsNotFound(err error) bool { return TypeOf(err) == ErrNotFound }

// IsLocalResource reports whether err is a missing local dependency.
func IsLocalResource(err error) bool { return TypeOf(err) == ErrLocalResource }
