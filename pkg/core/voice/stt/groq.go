package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core"
)

const (
	groqDefaultBaseURL = "https://api.groq.com/openai/v1"
	groqDefaultModel   = "whisper-large-v3"
)

// GroqProvider implements the Provider interface using Groq's
// OpenAI-compatible audio transcription API.
type GroqProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// GroqOption configures the Groq provider.
type GroqOption func(*GroqProvider)

// WithBaseURL overrides the API base URL. Empty values keep the default.
func WithBaseURL(baseURL string) GroqOption {
	return func(g *GroqProvider) {
		if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
			g.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) GroqOption {
	return func(g *GroqProvider) {
		if client != nil {
			g.httpClient = client
		}
	}
}

// NewGroq creates a Groq transcription client. The credential may be empty;
// Transcribe reports a configuration error before any network call in that
// case.
func NewGroq(apiKey string, opts ...GroqOption) *GroqProvider {
	g := &GroqProvider{
		apiKey:     apiKey,
		baseURL:    groqDefaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name returns the provider identifier.
func (g *GroqProvider) Name() string {
	return "groq"
}

// Transcribe uploads the audio file and returns its transcript. If the
// provider response carries no text field the raw body is returned as the
// transcript text, so schema drift degrades instead of failing.
func (g *GroqProvider) Transcribe(ctx context.Context, audioPath string, opts TranscribeOptions) (*Transcript, error) {
	if strings.TrimSpace(g.apiKey) == "" {
		return nil, core.NewConfigurationError("GROQ_API_KEY is not set; transcription requires a Groq credential")
	}

	audioData, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(audioData); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = groqDefaultModel
	}
	if err := mw.WriteField("model", model); err != nil {
		return nil, fmt.Errorf("write model field: %w", err)
	}

	// The language field is omitted entirely when no hint is given; some
	// deployments reject unknown or empty parameters.
	if opts.LanguageHint != "" {
		if err := mw.WriteField("language", opts.LanguageHint); err != nil {
			return nil, fmt.Errorf("write language field: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("groq request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, g.parseError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var groqResp struct {
		Text     *string  `json:"text"`
		Language *string  `json:"language,omitempty"`
		Duration *float64 `json:"duration,omitempty"`
	}
	if err := json.Unmarshal(body, &groqResp); err != nil || groqResp.Text == nil {
		return &Transcript{Text: string(body), Raw: true}, nil
	}

	t := &Transcript{Text: *groqResp.Text}
	if groqResp.Language != nil {
		t.Language = *groqResp.Language
	}
	if groqResp.Duration != nil {
		t.Duration = *groqResp.Duration
	}
	return t, nil
}

// parseError maps a non-2xx response into the shared error taxonomy.
func (g *GroqProvider) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	message := strings.TrimSpace(string(body))

	var apiErr struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return core.NewInvalidRequestError(message)
	case http.StatusUnauthorized:
		return core.NewAuthenticationError("groq", message)
	case http.StatusForbidden:
		return core.NewPermissionError("groq", message)
	case http.StatusNotFound:
		return core.NewNotFoundError(message)
	case http.StatusTooManyRequests:
		retryAfter := 0
		if s := resp.Header.Get("Retry-After"); s != "" {
			if n, err := strconv.Atoi(s); err == nil {
				retryAfter = n
			}
		}
		return core.NewRateLimitError("groq", message, retryAfter)
	case http.StatusServiceUnavailable:
		return core.NewOverloadedError("groq", message)
	default:
		return core.NewAPIError("groq", message, resp.StatusCode)
	}
}
