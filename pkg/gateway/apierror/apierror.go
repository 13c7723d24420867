package apierror

import (
	"context"
	"errors"
	"net/http"

	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core"
)

// Envelope is the JSON error body every gateway endpoint returns.
type Envelope struct {
	Error *core.Error `json:"error"`
}

// FromError maps any pipeline error onto the shared taxonomy plus an HTTP
// status code, stamping the request id.
func FromError(err error, requestID string) (*core.Error, int) {
	if err == nil {
		return nil, http.StatusOK
	}

	// Context timeouts/cancellation.
	if errors.Is(err, context.DeadlineExceeded) {
		return &core.Error{
			Type:      core.ErrAPI,
			Message:   "request timeout",
			RequestID: requestID,
		}, http.StatusGatewayTimeout
	}
	if errors.Is(err, context.Canceled) {
		return &core.Error{
			Type:      core.ErrAPI,
			Message:   "request cancelled",
			RequestID: requestID,
		}, http.StatusRequestTimeout
	}

	// Already canonical.
	var coreErr *core.Error
	if errors.As(err, &coreErr) && coreErr != nil {
		out := *coreErr
		out.RequestID = requestID
		return &out, statusFromType(coreErr.Type)
	}

	// Unknown errors: treat as internal API error (do not leak details by default).
	return &core.Error{
		Type:      core.ErrAPI,
		Message:   "internal error",
		RequestID: requestID,
	}, http.StatusInternalServerError
}

func statusFromType(t core.ErrorType) int {
	switch t {
	case core.ErrInvalidRequest:
		return http.StatusBadRequest
	case core.ErrAuthentication:
		return http.StatusUnauthorized
	case core.ErrPermission:
		return http.StatusForbidden
	case core.ErrNotFound:
		return http.StatusNotFound
	case core.ErrRateLimit:
		return http.StatusTooManyRequests
	case core.ErrOverloaded:
		return 529
	case core.ErrConfiguration:
		// The deployment is missing a credential; nothing the caller sent can fix it.
		return http.StatusServiceUnavailable
	case core.ErrProvider, core.ErrAPI, core.ErrCallShape:
		return http.StatusBadGateway
	case core.ErrLocalResource:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
