// Package voice orchestrates one consultation: transcribe the patient's
// recording, generate the doctor's reply, and synthesize the reply to audio.
package voice

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core/voice/stt"
	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core/voice/tts"
)

// Fixed results for a consultation that arrives without any recorded audio.
const (
	NoAudioTranscript = "No audio provided."
	NoAudioReply      = "Please record a message."
)

// ReplyGenerator produces the doctor's reply for a transcript. It must not
// fail; degraded generators return a template instead.
type ReplyGenerator interface {
	Generate(ctx context.Context, transcript string) string
}

// PipelineOptions carries the per-stage settings a pipeline applies to every
// consultation.
type PipelineOptions struct {
	STTModel     string // Transcription model identifier
	LanguageHint string // Optional language hint, omitted when empty

	TTSVoice    string // Voice identifier for the synthesis provider
	TTSModel    string // Model identifier for the synthesis provider
	TTSLanguage string // Language code for simple providers
	TTSSlow     bool   // Slower speaking rate
	TTSFormat   string // Output format label

	OutputDir string // Directory for synthesized reply audio
	Logger    *slog.Logger
}

// Pipeline wires the three consultation stages together.
type Pipeline struct {
	sttProvider stt.Provider
	generator   ReplyGenerator
	ttsProvider tts.Provider
	opts        PipelineOptions
	logger      *slog.Logger
}

// NewPipeline creates a pipeline from the three stage clients.
func NewPipeline(sttProvider stt.Provider, generator ReplyGenerator, ttsProvider tts.Provider, opts PipelineOptions) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		sttProvider: sttProvider,
		generator:   generator,
		ttsProvider: ttsProvider,
		opts:        opts,
		logger:      logger,
	}
}

// Consultation is the outcome of one voice exchange.
type Consultation struct {
	ID         string `json:"id"`
	Transcript string `json:"transcript"`
	Reply      string `json:"reply"`
	AudioPath  string `json:"audio_path,omitempty"`
}

// Consult runs the full exchange for one recorded audio file.
//
// Degradation policy: a missing credential or provider failure at the reply
// stage yields a template, and a synthesis failure yields an empty audio
// path. Only a missing input and transcription failures abort, since those
// usually mean misconfiguration that a canned reply would mask.
func (p *Pipeline) Consult(ctx context.Context, audioPath string) (*Consultation, error) {
	id := uuid.NewString()
	if audioPath == "" {
		return &Consultation{
			ID:         id,
			Transcript: NoAudioTranscript,
			Reply:      NoAudioReply,
		}, nil
	}

	transcript, err := p.sttProvider.Transcribe(ctx, audioPath, stt.TranscribeOptions{
		Model:        p.opts.STTModel,
		LanguageHint: p.opts.LanguageHint,
	})
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	replyText := p.generator.Generate(ctx, transcript.Text)

	result := &Consultation{
		ID:         id,
		Transcript: transcript.Text,
		Reply:      replyText,
	}
	outPath := filepath.Join(p.opts.OutputDir, id+".mp3")
	if _, err := p.ttsProvider.Synthesize(ctx, replyText, tts.SynthesizeOptions{
		Voice:      p.opts.TTSVoice,
		Model:      p.opts.TTSModel,
		Language:   p.opts.TTSLanguage,
		Slow:       p.opts.TTSSlow,
		Format:     p.opts.TTSFormat,
		OutputPath: outPath,
	}); err != nil {
		p.logger.Warn("reply synthesis failed, returning text only",
			"provider", p.ttsProvider.Name(), "error", err)
		return result, nil
	}
	result.AudioPath = outPath
	return result, nil
}
