package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core"
)

const (
	elevenLabsDefaultWSBase   = "wss://api.elevenlabs.io/v1/text-to-speech/{voice_id}/stream-input"
	elevenLabsDefaultHTTPBase = "https://api.elevenlabs.io"

	// DefaultElevenLabsVoice is the stock "Rachel" narration voice.
	DefaultElevenLabsVoice = "21m00Tcm4TlvDq8ikWAM"

	// DefaultElevenLabsModel is the low-latency model used for short replies.
	DefaultElevenLabsModel = "eleven_turbo_v2"

	// DefaultElevenLabsFormat is the output encoding requested from the API.
	DefaultElevenLabsFormat = "mp3_22050_32"
)

// elevenLabsPermissionHelp is surfaced when the API key exists but lacks the
// text-to-speech scope, which otherwise presents as an opaque 401.
const elevenLabsPermissionHelp = "ElevenLabs 401: your API key is missing the Text-to-Speech permission.\n" +
	"Create a new key in Developers -> API Keys with 'Text to Speech' set to Access, " +
	"put it in .env, then run again."

// callShape selects how the provider talks to the ElevenLabs API.
type callShape int

const (
	// shapeStreaming speaks the websocket stream-input endpoint.
	shapeStreaming callShape = iota
	// shapeLegacy speaks the single-shot HTTP endpoint.
	shapeLegacy
)

// ElevenLabsProvider synthesizes speech through the ElevenLabs API.
//
// It tries the streaming endpoint first. When that endpoint refuses the
// websocket upgrade (older plans and self-hosted gateways expose only the
// single-shot route), the request is retried once against the legacy
// endpoint and the provider stays on the legacy shape from then on.
type ElevenLabsProvider struct {
	apiKey     string
	httpClient *http.Client
	dialer     *websocket.Dialer
	wsBase     string
	httpBase   string
	logger     *slog.Logger

	mu    sync.Mutex
	shape callShape
}

// NewElevenLabs creates a provider using the given API key. An empty key is
// allowed at construction; Synthesize reports it as a configuration error.
func NewElevenLabs(apiKey string) *ElevenLabsProvider {
	return &ElevenLabsProvider{
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{},
		dialer:     websocket.DefaultDialer,
		wsBase:     elevenLabsDefaultWSBase,
		httpBase:   elevenLabsDefaultHTTPBase,
		logger:     slog.Default(),
	}
}

// WithHTTPClient overrides the HTTP client used for single-shot requests.
func (e *ElevenLabsProvider) WithHTTPClient(client *http.Client) *ElevenLabsProvider {
	if client != nil {
		e.httpClient = client
	}
	return e
}

// WithWSBase overrides the streaming endpoint. The base may contain a
// {voice_id} placeholder.
func (e *ElevenLabsProvider) WithWSBase(base string) *ElevenLabsProvider {
	if base = strings.TrimSpace(base); base != "" {
		e.wsBase = base
	}
	return e
}

// WithHTTPBase overrides the single-shot endpoint base URL.
func (e *ElevenLabsProvider) WithHTTPBase(base string) *ElevenLabsProvider {
	if base = strings.TrimSpace(base); base != "" {
		e.httpBase = strings.TrimRight(base, "/")
	}
	return e
}

// WithLogger overrides the logger used for shape downgrade warnings.
func (e *ElevenLabsProvider) WithLogger(logger *slog.Logger) *ElevenLabsProvider {
	if logger != nil {
		e.logger = logger
	}
	return e
}

func (e *ElevenLabsProvider) Name() string {
	return "elevenlabs"
}

func (e *ElevenLabsProvider) Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error) {
	if e.apiKey == "" {
		return nil, core.NewConfigurationError("Missing API key. Put it in ELEVEN_API_KEY / ELEVENLABS_API_KEY / ELEVANLABS_API_KEY")
	}
	if strings.TrimSpace(opts.OutputPath) == "" {
		return nil, core.NewInvalidRequestError("synthesis output path is required")
	}
	voice := opts.Voice
	if voice == "" {
		voice = DefaultElevenLabsVoice
	}
	model := opts.Model
	if model == "" {
		model = DefaultElevenLabsModel
	}
	format := opts.Format
	if format == "" {
		format = DefaultElevenLabsFormat
	}

	if e.currentShape() == shapeStreaming {
		syn, err := e.synthesizeStreaming(ctx, text, voice, model, format, opts.OutputPath)
		if err == nil {
			return syn, nil
		}
		if !core.IsCallShape(err) {
			return nil, err
		}
		e.downgrade()
		e.logger.Warn("streaming endpoint refused the call shape, retrying single-shot",
			"provider", e.Name(), "error", err)
	}
	return e.synthesizeLegacy(ctx, text, voice, model, format, opts.OutputPath)
}

func (e *ElevenLabsProvider) currentShape() callShape {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shape
}

func (e *ElevenLabsProvider) downgrade() {
	e.mu.Lock()
	e.shape = shapeLegacy
	e.mu.Unlock()
}

// synthesizeStreaming speaks the websocket stream-input protocol: an init
// frame, the text, a flush, then JSON frames carrying base64 audio until the
// server marks the last one final.
func (e *ElevenLabsProvider) synthesizeStreaming(ctx context.Context, text, voice, model, format, outPath string) (*Synthesis, error) {
	wsURL, err := buildElevenLabsWSURL(e.wsBase, voice, model, format)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("xi-api-key", e.apiKey)
	conn, resp, err := e.dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, e.classifyDialError(resp, err)
	}
	defer conn.Close()

	// Closing the connection is the only way to interrupt a blocked read.
	readDone := make(chan struct{})
	defer close(readDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-readDone:
		}
	}()

	if err := conn.WriteJSON(map[string]any{
		"text":       " ",
		"voice_id":   voice,
		"context_id": "ctx_default",
	}); err != nil {
		return nil, core.NewProviderError(e.Name(), err)
	}
	body := strings.TrimSpace(text)
	if body != "" {
		body += " "
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteJSON(map[string]any{"text": body}); err != nil {
		return nil, core.NewProviderError(e.Name(), err)
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteJSON(map[string]any{"text": "", "flush": true}); err != nil {
		return nil, core.NewProviderError(e.Name(), err)
	}

	out, err := createOutputFile(outPath)
	if err != nil {
		return nil, err
	}

	var written int64
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			discardPartial(out, outPath)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, core.NewProviderError(e.Name(), err)
		}
		var msg map[string]json.RawMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if audioB64 := decodeStringRaw(msg["audio"]); audioB64 != "" {
			audio, err := base64.StdEncoding.DecodeString(audioB64)
			if err == nil && len(audio) > 0 {
				n, werr := out.Write(audio)
				if werr != nil {
					discardPartial(out, outPath)
					return nil, core.NewLocalResourceError("write audio chunk", werr)
				}
				written += int64(n)
			}
		}
		if decodeBoolRaw(msg["isFinal"]) || decodeBoolRaw(msg["is_final"]) {
			break
		}
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(outPath)
		return nil, core.NewLocalResourceError("close audio output file", err)
	}
	return &Synthesis{Path: outPath, Format: format, Bytes: written}, nil
}

// synthesizeLegacy performs a single-shot POST and saves the binary response.
func (e *ElevenLabsProvider) synthesizeLegacy(ctx context.Context, text, voice, model, format, outPath string) (*Synthesis, error) {
	endpoint := e.httpBase + "/v1/text-to-speech/" + url.PathEscape(voice)
	payload, err := json.Marshal(map[string]string{
		"text":          text,
		"model_id":      model,
		"output_format": format,
	})
	if err != nil {
		return nil, core.NewProviderError(e.Name(), err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, core.NewProviderError(e.Name(), err)
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, core.NewProviderError(e.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, e.apiError(resp, body)
	}

	out, err := createOutputFile(outPath)
	if err != nil {
		return nil, err
	}
	written, err := io.Copy(out, resp.Body)
	if err != nil {
		discardPartial(out, outPath)
		return nil, core.NewLocalResourceError("write audio file", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(outPath)
		return nil, core.NewLocalResourceError("close audio output file", err)
	}
	return &Synthesis{Path: outPath, Format: format, Bytes: written}, nil
}

// classifyDialError maps a failed websocket dial to the error taxonomy. An
// endpoint that answered HTTP without upgrading is a call-shape mismatch
// unless the status identifies a credential or quota problem, which the
// legacy endpoint would hit all the same.
func (e *ElevenLabsProvider) classifyDialError(resp *http.Response, err error) error {
	if resp == nil {
		return core.NewProviderError(e.Name(), err)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return e.apiError(resp, body)
	default:
		return core.NewCallShapeError(e.Name(), fmt.Errorf("stream-input upgrade refused with status %d: %w", resp.StatusCode, err))
	}
}

// apiError maps an HTTP error response to the error taxonomy.
func (e *ElevenLabsProvider) apiError(resp *http.Response, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if strings.Contains(strings.ToLower(msg), "missing_permissions") {
			return core.NewPermissionError(e.Name(), elevenLabsPermissionHelp)
		}
		return core.NewAuthenticationError(e.Name(), msg)
	case http.StatusForbidden:
		return core.NewPermissionError(e.Name(), msg)
	case http.StatusNotFound:
		return core.NewNotFoundError("voice not found: " + msg)
	case http.StatusTooManyRequests:
		retryAfter := 0
		if v := resp.Header.Get("Retry-After"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				retryAfter = n
			}
		}
		return core.NewRateLimitError(e.Name(), msg, retryAfter)
	case http.StatusServiceUnavailable:
		return core.NewOverloadedError(e.Name(), msg)
	default:
		return core.NewAPIError(e.Name(), msg, resp.StatusCode)
	}
}

func buildElevenLabsWSURL(base, voice, model, format string) (string, error) {
	if strings.TrimSpace(base) == "" {
		base = elevenLabsDefaultWSBase
	}
	base = strings.ReplaceAll(base, "{voice_id}", url.PathEscape(voice))
	u, err := url.Parse(base)
	if err != nil {
		return "", core.NewInvalidRequestError("invalid elevenlabs stream url: " + err.Error())
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	default:
		u.Scheme = "wss"
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/v1/text-to-speech/" + url.PathEscape(voice) + "/stream-input"
	}
	q := u.Query()
	if q.Get("model_id") == "" {
		q.Set("model_id", model)
	}
	if q.Get("output_format") == "" {
		q.Set("output_format", format)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func decodeStringRaw(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var out string
	if err := json.Unmarshal(raw, &out); err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

func decodeBoolRaw(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var out bool
	if err := json.Unmarshal(raw, &out); err != nil {
		return false
	}
	return out
}
