package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core"
)

func tempAudioPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "reply.mp3")
}

func TestElevenLabsSynthesize_StreamingWritesFile(t *testing.T) {
	var (
		mu       sync.Mutex
		gotPath  string
		gotKey   string
		gotQuery map[string][]string
		frames   []map[string]any
	)
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		gotQuery = r.URL.Query()
		mu.Unlock()

		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for i := 0; i < 3; i++ {
			var frame map[string]any
			if err := conn.ReadJSON(&frame); err != nil {
				t.Errorf("read frame %d: %v", i, err)
				return
			}
			mu.Lock()
			frames = append(frames, frame)
			mu.Unlock()
		}
		for _, chunk := range []string{"ID3-first-", "second-part"} {
			_ = conn.WriteJSON(map[string]any{
				"audio": base64.StdEncoding.EncodeToString([]byte(chunk)),
			})
		}
		_ = conn.WriteJSON(map[string]any{"isFinal": true})
	}))
	defer srv.Close()

	out := tempAudioPath(t)
	p := NewElevenLabs("xi-test-key").WithWSBase(srv.URL)
	syn, err := p.Synthesize(context.Background(), "Rest and drink fluids.", SynthesizeOptions{
		Voice:      "voice-123",
		OutputPath: out,
	})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if got, want := string(data), "ID3-first-second-part"; got != want {
		t.Fatalf("file contents = %q, want %q", got, want)
	}
	if syn.Path != out || syn.Bytes != int64(len(data)) {
		t.Fatalf("synthesis = %+v, want path %q and %d bytes", syn, out, len(data))
	}
	if syn.Format != DefaultElevenLabsFormat {
		t.Fatalf("Format = %q, want %q", syn.Format, DefaultElevenLabsFormat)
	}

	mu.Lock()
	defer mu.Unlock()
	if gotPath != "/v1/text-to-speech/voice-123/stream-input" {
		t.Fatalf("path = %q, want stream-input route for voice-123", gotPath)
	}
	if gotKey != "xi-test-key" {
		t.Fatalf("xi-api-key = %q, want xi-test-key", gotKey)
	}
	if got := gotQuery["model_id"]; len(got) != 1 || got[0] != DefaultElevenLabsModel {
		t.Fatalf("model_id = %v, want %q", got, DefaultElevenLabsModel)
	}
	if got := gotQuery["output_format"]; len(got) != 1 || got[0] != DefaultElevenLabsFormat {
		t.Fatalf("output_format = %v, want %q", got, DefaultElevenLabsFormat)
	}
	if len(frames) != 3 {
		t.Fatalf("frames = %d, want 3", len(frames))
	}
	if frames[0]["text"] != " " || frames[0]["voice_id"] != "voice-123" {
		t.Fatalf("init frame = %v", frames[0])
	}
	if frames[1]["text"] != "Rest and drink fluids. " {
		t.Fatalf("text frame = %v, want trailing-space text", frames[1])
	}
	if frames[2]["flush"] != true {
		t.Fatalf("final frame = %v, want flush", frames[2])
	}
}

func TestElevenLabsSynthesize_CallShapeMismatchRetriesLegacyOnce(t *testing.T) {
	var wsHits, legacyHits int
	var mu sync.Mutex

	wsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		wsHits++
		mu.Unlock()
		http.Error(w, "no such route", http.StatusNotFound)
	}))
	defer wsSrv.Close()

	var gotBody struct {
		Text         string `json:"text"`
		ModelID      string `json:"model_id"`
		OutputFormat string `json:"output_format"`
	}
	legacySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		legacyHits++
		mu.Unlock()
		if r.URL.Path != "/v1/text-to-speech/voice-123" {
			t.Errorf("legacy path = %q", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "xi-test-key" {
			t.Errorf("legacy xi-api-key = %q", r.Header.Get("xi-api-key"))
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3-legacy-audio"))
	}))
	defer legacySrv.Close()

	p := NewElevenLabs("xi-test-key").WithWSBase(wsSrv.URL).WithHTTPBase(legacySrv.URL)

	out := tempAudioPath(t)
	syn, err := p.Synthesize(context.Background(), "Take it easy.", SynthesizeOptions{
		Voice:      "voice-123",
		OutputPath: out,
	})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "ID3-legacy-audio" {
		t.Fatalf("file contents = %q, want legacy body", data)
	}
	if syn.Bytes != int64(len(data)) {
		t.Fatalf("Bytes = %d, want %d", syn.Bytes, len(data))
	}
	if gotBody.Text != "Take it easy." || gotBody.ModelID != DefaultElevenLabsModel || gotBody.OutputFormat != DefaultElevenLabsFormat {
		t.Fatalf("legacy body = %+v", gotBody)
	}
	mu.Lock()
	if wsHits != 1 || legacyHits != 1 {
		t.Fatalf("hits after first call: ws=%d legacy=%d, want 1 and 1", wsHits, legacyHits)
	}
	mu.Unlock()

	// The downgrade is sticky: later calls skip the streaming endpoint.
	if _, err := p.Synthesize(context.Background(), "Again.", SynthesizeOptions{
		Voice:      "voice-123",
		OutputPath: tempAudioPath(t),
	}); err != nil {
		t.Fatalf("second Synthesize() error = %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if wsHits != 1 {
		t.Fatalf("ws hits after second call = %d, want 1", wsHits)
	}
	if legacyHits != 2 {
		t.Fatalf("legacy hits after second call = %d, want 2", legacyHits)
	}
}

func TestElevenLabsSynthesize_MissingPermissionsIsClarified(t *testing.T) {
	wsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": {"status": "missing_permissions", "message": "The API key you used is missing the permission text_to_speech"}}`))
	}))
	defer wsSrv.Close()

	legacyCalls := 0
	legacySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		legacyCalls++
	}))
	defer legacySrv.Close()

	out := tempAudioPath(t)
	p := NewElevenLabs("xi-test-key").WithWSBase(wsSrv.URL).WithHTTPBase(legacySrv.URL)
	_, err := p.Synthesize(context.Background(), "hello", SynthesizeOptions{OutputPath: out})
	if err == nil {
		t.Fatal("expected error")
	}
	if !core.IsPermission(err) {
		t.Fatalf("error type = %q, want %q", core.TypeOf(err), core.ErrPermission)
	}
	if !strings.Contains(err.Error(), "missing the Text-to-Speech permission") {
		t.Fatalf("error = %v, want the clarified permission message", err)
	}
	if legacyCalls != 0 {
		t.Fatalf("legacy calls = %d, want 0 (auth failures must not retry)", legacyCalls)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("output file should not exist, stat err = %v", statErr)
	}
}

func TestElevenLabsSynthesize_PlainUnauthorized(t *testing.T) {
	wsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "invalid api key"}`))
	}))
	defer wsSrv.Close()

	p := NewElevenLabs("xi-bad-key").WithWSBase(wsSrv.URL)
	_, err := p.Synthesize(context.Background(), "hello", SynthesizeOptions{OutputPath: tempAudioPath(t)})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := core.TypeOf(err); got != core.ErrAuthentication {
		t.Fatalf("error type = %q, want %q", got, core.ErrAuthentication)
	}
}

func TestElevenLabsSynthesize_MissingKey(t *testing.T) {
	p := NewElevenLabs("   ")
	_, err := p.Synthesize(context.Background(), "hello", SynthesizeOptions{OutputPath: tempAudioPath(t)})
	if err == nil {
		t.Fatal("expected error")
	}
	if !core.IsConfiguration(err) {
		t.Fatalf("error type = %q, want %q", core.TypeOf(err), core.ErrConfiguration)
	}
	for _, name := range []string{"ELEVEN_API_KEY", "ELEVENLABS_API_KEY", "ELEVANLABS_API_KEY"} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("error %v should name %s", err, name)
		}
	}
}

func TestElevenLabsSynthesize_LegacyErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     string
		wantType core.ErrorType
	}{
		{"missing permissions", http.StatusUnauthorized, `{"detail": {"status": "missing_permissions"}}`, core.ErrPermission},
		{"forbidden", http.StatusForbidden, `{"detail": "blocked"}`, core.ErrPermission},
		{"voice not found", http.StatusNotFound, `{"detail": "unknown voice"}`, core.ErrNotFound},
		{"rate limited", http.StatusTooManyRequests, `{"detail": "slow down"}`, core.ErrRateLimit},
		{"overloaded", http.StatusServiceUnavailable, `busy`, core.ErrOverloaded},
		{"server error", http.StatusInternalServerError, `boom`, core.ErrAPI},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			out := tempAudioPath(t)
			p := NewElevenLabs("xi-test-key").WithHTTPBase(srv.URL)
			p.shape = shapeLegacy
			_, err := p.Synthesize(context.Background(), "hello", SynthesizeOptions{OutputPath: out})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := core.TypeOf(err); got != tc.wantType {
				t.Fatalf("error type = %q, want %q", got, tc.wantType)
			}
			if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
				t.Fatalf("output file should not exist, stat err = %v", statErr)
			}
		})
	}
}

func TestElevenLabsSynthesize_TruncatedLegacyBodyRemovesPartialFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "4096")
		w.Write([]byte("short"))
	}))
	defer srv.Close()

	out := tempAudioPath(t)
	p := NewElevenLabs("xi-test-key").WithHTTPBase(srv.URL)
	p.shape = shapeLegacy
	_, err := p.Synthesize(context.Background(), "hello", SynthesizeOptions{OutputPath: out})
	if err == nil {
		t.Fatal("expected error")
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("partial file should be removed, stat err = %v", statErr)
	}
}

func TestBuildElevenLabsWSURL(t *testing.T) {
	cases := []struct {
		name  string
		base  string
		voice string
		want  string
	}{
		{
			name:  "default base substitutes voice",
			base:  "",
			voice: "v1",
			want:  "wss://api.elevenlabs.io/v1/text-to-speech/v1/stream-input?model_id=m&output_format=f",
		},
		{
			name:  "http test server becomes ws",
			base:  "http://127.0.0.1:9999",
			voice: "v1",
			want:  "ws://127.0.0.1:9999/v1/text-to-speech/v1/stream-input?model_id=m&output_format=f",
		},
		{
			name:  "explicit query wins over defaults",
			base:  "wss://host/v1/text-to-speech/{voice_id}/stream-input?model_id=custom",
			voice: "v1",
			want:  "wss://host/v1/text-to-speech/v1/stream-input?model_id=custom&output_format=f",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := buildElevenLabsWSURL(tc.base, tc.voice, "m", "f")
			if err != nil {
				t.Fatalf("buildElevenLabsWSURL() error = %v", err)
			}
			if got != tc.want {
				t.Fatalf("url = %q, want %q", got, tc.want)
			}
		})
	}
}
