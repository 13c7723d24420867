package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core"
	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core/config"
	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core/voice"
	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/gateway/metrics"
	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/gateway/mw"
)

// Consulter runs one voice exchange for an uploaded recording.
type Consulter interface {
	Consult(ctx context.Context, audioPath string) (*voice.Consultation, error)
}

// ConsultationsHandler accepts a recorded message as a multipart upload and
// runs it through the consultation pipeline.
type ConsultationsHandler struct {
	Config   config.Config
	Pipeline Consulter
	Metrics  *metrics.Metrics
}

type consultationResponse struct {
	ID         string  `json:"id"`
	Transcript string  `json:"transcript"`
	Reply      string  `json:"reply"`
	AudioURL   *string `json:"audio_url"`
}

func (h ConsultationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reqID, _ := mw.RequestIDFrom(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.Config.MaxBodyBytes)
	uploadPath, cleanup, err := h.saveUpload(r)
	if err != nil {
		writeError(w, reqID, err)
		return
	}
	defer cleanup()

	// Request-scoped timeout covers all three pipeline stages.
	ctx := r.Context()
	if h.Config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Config.RequestTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := h.Pipeline.Consult(ctx, uploadPath)
	if err != nil {
		// Reply generation degrades and synthesis failures are absorbed,
		// so an error here came from the transcription stage.
		h.Metrics.RecordStageError(metrics.StageTranscription, err)
		h.Metrics.RecordConsultation(metrics.OutcomeError, time.Since(start))
		writeError(w, reqID, err)
		return
	}
	h.Metrics.RecordConsultation(outcomeOf(uploadPath, result), time.Since(start))

	resp := consultationResponse{
		ID:         result.ID,
		Transcript: result.Transcript,
		Reply:      result.Reply,
	}
	if result.AudioPath != "" {
		if fi, err := os.Stat(result.AudioPath); err == nil {
			h.Metrics.RecordAudioBytes(metrics.DirectionOut, fi.Size())
		}
		audioURL := "/v1/audio/" + result.ID
		resp.AudioURL = &audioURL
	}
	writeJSON(w, http.StatusCreated, resp)
}

// saveUpload copies the "audio" form part to a temp file and returns its
// path. A request without that part returns an empty path and no error so
// the pipeline can answer with its fixed no-audio exchange.
func (h ConsultationsHandler) saveUpload(r *http.Request) (string, func(), error) {
	noop := func() {}

	part, header, err := r.FormFile("audio")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", noop, nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", noop, core.NewInvalidRequestErrorWithParam("request body too large", "audio")
		}
		return "", noop, core.NewInvalidRequestError("malformed multipart form")
	}
	defer part.Close()

	ext := filepath.Ext(header.Filename)
	if ext == "" {
		ext = ".wav"
	}
	tmp, err := os.CreateTemp("", "consultation-*"+ext)
	if err != nil {
		return "", noop, core.NewLocalResourceError("store uploaded audio", err)
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	n, err := io.Copy(tmp, part)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		return "", noop, core.NewLocalResourceError("store uploaded audio", err)
	}
	h.Metrics.RecordAudioBytes(metrics.DirectionIn, n)
	return tmp.Name(), cleanup, nil
}

func outcomeOf(uploadPath string, result *voice.Consultation) string {
	switch {
	case uploadPath == "":
		return metrics.OutcomeNoAudio
	case result.AudioPath == "":
		return metrics.OutcomeDegraded
	default:
		return metrics.OutcomeOK
	}
}
