package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/gateway/apierror"
)

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal response: %v body=%q", err, rr.Body.String())
	}
}

func decodeErrorEnvelope(t *testing.T, rr *httptest.ResponseRecorder) apierror.Envelope {
	t.Helper()
	var env apierror.Envelope
	decodeJSONBody(t, rr, &env)
	if env.Error == nil {
		t.Fatalf("no error envelope in body %q", rr.Body.String())
	}
	return env
}
