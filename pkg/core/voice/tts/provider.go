// Package tts synthesizes spoken audio files from reply text.
package tts

import (
	"context"
	"os"
	"path/filepath"

	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core"
)

// Provider is the interface for text-to-speech services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Synthesize converts text to audio and writes it to opts.OutputPath.
	Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error)
}

// SynthesizeOptions configures synthesis.
type SynthesizeOptions struct {
	Voice      string // Voice identifier
	Model      string // Provider model identifier
	Language   string // Language code, e.g. "en"
	Slow       bool   // Slower speaking rate where the provider supports it
	Format     string // Audio format label, e.g. "mp3_22050_32"
	OutputPath string // Destination file for the synthesized audio
}

// Synthesis is the result of synthesis.
type Synthesis struct {
	Path   string // File the audio was written to
	Format string // Audio format label
	Bytes  int64  // Size of the written file
}

// createOutputFile creates the destination file, making parent directories
// as needed.
func createOutputFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, core.NewLocalResourceError("create audio output directory", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, core.NewLocalResourceError("create audio output file", err)
	}
	return f, nil
}

// discardPartial closes and removes a partially written output file.
func discardPartial(f *os.File, path string) {
	if f != nil {
		_ = f.Close()
	}
	_ = os.Remove(path)
}
