// Package config holds the process-wide configuration for the voicebot.
// It is loaded once at startup and passed into every component; no other
// package reads the environment directly.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// TTSProvider selects which synthesis backend the pipeline uses.
type TTSProvider string

const (
	// TTSAuto picks elevenlabs when its credential resolves, gtts otherwise.
	TTSAuto       TTSProvider = "auto"
	TTSGTTS       TTSProvider = "gtts"
	TTSElevenLabs TTSProvider = "elevenlabs"
)

// PlaybackMode selects how synthesized audio is played locally.
type PlaybackMode string

const (
	// PlaybackAuto tries the in-process decoder first, then an external player.
	PlaybackAuto     PlaybackMode = "auto"
	PlaybackExternal PlaybackMode = "external"
	PlaybackOff      PlaybackMode = "off"
)

// elevenLabsKeyAliases lists the accepted credential variable names, first
// non-empty wins. The third entry preserves a historical misspelling that
// deployed environments still carry.
var elevenLabsKeyAliases = []string{
	"ELEVEN_API_KEY",
	"ELEVENLABS_API_KEY",
	"ELEVANLABS_API_KEY",
}

type Config struct {
	// Credentials. Either may be empty; the pipeline degrades instead of
	// failing, except transcription which requires GroqAPIKey.
	GroqAPIKey       string
	ElevenLabsAPIKey string

	// Provider settings.
	GroqBaseURL            string
	STTModel               string
	LLMModel               string
	TTS                    TTSProvider
	TTSLanguage            string
	TTSSlow                bool
	ElevenLabsVoiceID      string
	ElevenLabsModelID      string
	ElevenLabsOutputFormat string

	// Pipeline.
	OutputDir      string
	RequestTimeout time.Duration

	// Microphone capture.
	RecordTimeout time.Duration // max wait for speech to start
	PhraseLimit   time.Duration // max capture after speech starts

	Playback PlaybackMode

	// Gateway.
	Addr                string
	CORSAllowedOrigins  map[string]struct{} // empty => disabled
	MaxBodyBytes        int64
	ReadHeaderTimeout   time.Duration
	ReadTimeout         time.Duration
	ShutdownGracePeriod time.Duration

	LogLevel slog.Level
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	cfg := Config{
		GroqAPIKey:             os.Getenv("GROQ_API_KEY"),
		ElevenLabsAPIKey:       firstEnv(elevenLabsKeyAliases...),
		GroqBaseURL:            envOr("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		STTModel:               envOr("STT_MODEL", "whisper-large-v3"),
		LLMModel:               envOr("LLM_MODEL", "llama-3.1-8b-instant"),
		TTS:                    TTSProvider(envOr("TTS_PROVIDER", string(TTSAuto))),
		TTSLanguage:            envOr("TTS_LANGUAGE", "en"),
		TTSSlow:                envBoolOr("TTS_SLOW", false),
		ElevenLabsVoiceID:      envOr("ELEVENLABS_VOICE_ID", "21m00Tcm4TlvDq8ikWAM"),
		ElevenLabsModelID:      envOr("ELEVENLABS_MODEL_ID", "eleven_turbo_v2"),
		ElevenLabsOutputFormat: envOr("ELEVENLABS_OUTPUT_FORMAT", "mp3_22050_32"),
		OutputDir:              envOr("OUTPUT_DIR", "output"),
		RequestTimeout:         envDurationOr("REQUEST_TIMEOUT", 60*time.Second),
		RecordTimeout:          envDurationOr("RECORD_TIMEOUT", 20*time.Second),
		PhraseLimit:            envDurationOr("PHRASE_LIMIT", 15*time.Second),
		Playback:               PlaybackMode(envOr("PLAYBACK", string(PlaybackAuto))),
		Addr:                   envOr("GATEWAY_ADDR", ":8080"),
		CORSAllowedOrigins:     make(map[string]struct{}),
		MaxBodyBytes:           envInt64Or("GATEWAY_MAX_BODY_BYTES", 25<<20), // 25 MiB uploads
		ReadHeaderTimeout:      envDurationOr("GATEWAY_READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:            envDurationOr("GATEWAY_READ_TIMEOUT", 2*time.Minute),
		ShutdownGracePeriod:    envDurationOr("GATEWAY_SHUTDOWN_GRACE_PERIOD", 15*time.Second),
		LogLevel:               logLevelOr("LOG_LEVEL", slog.LevelInfo),
	}

	for _, origin := range splitCSV(os.Getenv("CORS_ORIGINS")) {
		cfg.CORSAllowedOrigins[origin] = struct{}{}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the non-credential settings. Credentials are allowed to be
// empty here; the stages that require them enforce that themselves.
func (c Config) Validate() error {
	switch c.TTS {
	case TTSAuto, TTSGTTS, TTSElevenLabs:
	default:
		return fmt.Errorf("TTS_PROVIDER must be one of auto|gtts|elevenlabs")
	}
	switch c.Playback {
	case PlaybackAuto, PlaybackExternal, PlaybackOff:
	default:
		return fmt.Errorf("PLAYBACK must be one of auto|external|off")
	}
	if strings.TrimSpace(c.GroqBaseURL) == "" {
		return fmt.Errorf("GROQ_BASE_URL must not be empty")
	}
	if strings.TrimSpace(c.STTModel) == "" {
		return fmt.Errorf("STT_MODEL must not be empty")
	}
	if strings.TrimSpace(c.LLMModel) == "" {
		return fmt.Errorf("LLM_MODEL must not be empty")
	}
	if strings.TrimSpace(c.TTSLanguage) == "" {
		return fmt.Errorf("TTS_LANGUAGE must not be empty")
	}
	if strings.TrimSpace(c.ElevenLabsVoiceID) == "" {
		return fmt.Errorf("ELEVENLABS_VOICE_ID must not be empty")
	}
	if strings.TrimSpace(c.ElevenLabsModelID) == "" {
		return fmt.Errorf("ELEVENLABS_MODEL_ID must not be empty")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("OUTPUT_DIR must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be > 0")
	}
	if c.RecordTimeout <= 0 {
		return fmt.Errorf("RECORD_TIMEOUT must be > 0")
	}
	if c.PhraseLimit <= 0 {
		return fmt.Errorf("PHRASE_LIMIT must be > 0")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("GATEWAY_MAX_BODY_BYTES must be > 0")
	}
	if c.ReadHeaderTimeout <= 0 {
		return fmt.Errorf("GATEWAY_READ_HEADER_TIMEOUT must be > 0")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("GATEWAY_READ_TIMEOUT must be > 0")
	}
	if c.ShutdownGracePeriod <= 0 {
		return fmt.Errorf("GATEWAY_SHUTDOWN_GRACE_PERIOD must be > 0")
	}
	return nil
}

// ResolveTTS maps TTSAuto to a concrete provider based on credential
// availability.
func (c Config) ResolveTTS() TTSProvider {
	if c.TTS != TTSAuto {
		return c.TTS
	}
	if strings.TrimSpace(c.ElevenLabsAPIKey) != "" {
		return TTSElevenLabs
	}
	return TTSGTTS
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt64Or(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envBoolOr(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	switch strings.ToLower(raw) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func logLevelOr(key string, def slog.Level) slog.Level {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return def
	}
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
