package handlers

import (
	"net/http"

	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core"
	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/gateway/mw"
)

type NotFoundHandler struct{}

func (h NotFoundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	writeError(w, reqID, core.NewNotFoundError("not found"))
}
