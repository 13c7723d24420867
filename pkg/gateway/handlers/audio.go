package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core"
	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core/config"
	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/gateway/mw"
)

// AudioHandler serves synthesized reply audio for /v1/audio/{id}.
type AudioHandler struct {
	Config config.Config
}

func (h AudioHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reqID, _ := mw.RequestIDFrom(r.Context())

	// Reply clips are stored as <uuid>.mp3, so parsing the id is also the
	// path traversal guard.
	id, err := uuid.Parse(strings.TrimPrefix(r.URL.Path, "/v1/audio/"))
	if err != nil {
		writeError(w, reqID, core.NewNotFoundError("audio clip not found"))
		return
	}

	path := filepath.Join(h.Config.OutputDir, id.String()+".mp3")
	if _, err := os.Stat(path); err != nil {
		writeError(w, reqID, core.NewNotFoundError("audio clip not found"))
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeFile(w, r, path)
}
