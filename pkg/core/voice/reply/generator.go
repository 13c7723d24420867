// Package reply generates the doctor's textual reply to a patient
// transcript. Generation is best-effort: every failure degrades to one of
// two fixed templates so the pipeline always has something to say.
package reply

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core"
)

// systemPrompt enforces the persona: short, plain, addressed to the patient.
const systemPrompt = "You are a professional doctor (for learning). " +
	"Be concise (max 2 sentences), no markdown, no preamble. " +
	"Speak directly to the patient."

// noSpeechPlaceholder stands in for an empty transcript in the user message.
const noSpeechPlaceholder = "(no speech)"

// Fallback templates, chosen by whether the transcript is empty.
const (
	FallbackNoSpeech = "I couldn't hear you clearly. Please record again close to the microphone."
	FallbackGeneric  = "Based on what you said, try simple measures and monitor symptoms; " +
		"if anything worsens (fever, severe pain, breathing issues), seek in-person care."
)

const (
	defaultModel = "llama-3.1-8b-instant"
	temperature  = 0.3
	maxTokens    = 200
)

// Generator produces doctor replies via Groq's OpenAI-compatible chat API.
type Generator struct {
	client *openai.Client // nil when no credential is configured
	model  string
	logger *slog.Logger
}

// Option configures the generator.
type Option func(*Generator)

// WithModel overrides the chat model.
func WithModel(model string) Option {
	return func(g *Generator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithLogger sets the logger used for degradation warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates a generator. An empty apiKey is valid and yields a generator
// that always answers from the templates.
func New(apiKey, baseURL string, opts ...Option) *Generator {
	g := &Generator{
		model:  defaultModel,
		logger: slog.Default(),
	}
	if strings.TrimSpace(apiKey) != "" {
		cfg := openai.DefaultConfig(apiKey)
		if baseURL != "" {
			cfg.BaseURL = strings.TrimRight(baseURL, "/")
		}
		g.client = openai.NewClientWithConfig(cfg)
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns the doctor's reply for transcript. It never fails: any
// error from the live attempt is logged as a warning and replaced with the
// deterministic template for the transcript's emptiness state.
func (g *Generator) Generate(ctx context.Context, transcript string) string {
	text, err := g.generateLive(ctx, transcript)
	if err != nil {
		g.logger.Warn("reply generation failed, using fallback template", "error", err)
		return Fallback(transcript)
	}
	return text
}

// generateLive is the single live attempt. Callers map its error into a
// template; it never picks a fallback itself.
func (g *Generator) generateLive(ctx context.Context, transcript string) (string, error) {
	if g.client == nil {
		return "", core.NewConfigurationError("GROQ_API_KEY is not set")
	}

	spoken := transcript
	if spoken == "" {
		spoken = noSpeechPlaceholder
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Patient said: " + spoken},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion has no choices")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("completion text is empty")
	}
	return text, nil
}

// Fallback returns the deterministic template for transcript.
func Fallback(transcript string) string {
	if transcript == "" {
		return FallbackNoSpeech
	}
	return FallbackGeneric
}
