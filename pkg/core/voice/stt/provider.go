// Package stt provides speech-to-text clients.
package stt

import (
	"context"
)

// Provider is the interface for speech-to-text services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Transcribe converts a recorded audio file to text.
	Transcribe(ctx context.Context, audioPath string, opts TranscribeOptions) (*Transcript, error)
}

// TranscribeOptions configures a transcription request.
type TranscribeOptions struct {
	Model        string // provider model; empty uses the client default
	LanguageHint string // ISO language code; sent only when non-empty
}

// Transcript is the result of transcription.
type Transcript struct {
	Text     string  // transcribed text, or the raw response body when Raw is set
	Language string  // detected or specified language
	Duration float64 // audio duration in seconds
	Raw      bool    // set when the response had no text field and Text is the raw body
}
