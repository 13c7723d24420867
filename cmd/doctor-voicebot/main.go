package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core/audio"
	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core/config"
	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core/voice"
	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core/voice/reply"
	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core/voice/stt"
	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core/voice/tts"
)

type recorder interface {
	Record(ctx context.Context, outPath string, opts audio.RecordOptions) (*audio.Clip, error)
}

type consulter interface {
	Consult(ctx context.Context, audioPath string) (*voice.Consultation, error)
}

type speaker interface {
	Play(ctx context.Context, path string) error
}

type voicebotDeps struct {
	recorder recorder
	pipeline consulter
	speaker  speaker
	logger   *slog.Logger
	tempDir  string
}

func buildPipeline(cfg config.Config, logger *slog.Logger) *voice.Pipeline {
	sttProvider := stt.NewGroq(cfg.GroqAPIKey, stt.WithBaseURL(cfg.GroqBaseURL))
	generator := reply.New(cfg.GroqAPIKey, cfg.GroqBaseURL,
		reply.WithModel(cfg.LLMModel),
		reply.WithLogger(logger),
	)

	var ttsProvider tts.Provider
	switch cfg.ResolveTTS() {
	case config.TTSElevenLabs:
		ttsProvider = tts.NewElevenLabs(cfg.ElevenLabsAPIKey).WithLogger(logger)
	default:
		ttsProvider = tts.NewGTTS()
	}

	return voice.NewPipeline(sttProvider, generator, ttsProvider, voice.PipelineOptions{
		STTModel:    cfg.STTModel,
		TTSVoice:    cfg.ElevenLabsVoiceID,
		TTSModel:    cfg.ElevenLabsModelID,
		TTSLanguage: cfg.TTSLanguage,
		TTSSlow:     cfg.TTSSlow,
		TTSFormat:   cfg.ElevenLabsOutputFormat,
		OutputDir:   cfg.OutputDir,
		Logger:      logger,
	})
}

// runVoicebot drives the console loop: every Enter press records one message,
// runs it through the pipeline, and speaks the doctor's reply.
func runVoicebot(ctx context.Context, cfg config.Config, deps voicebotDeps, in io.Reader, out, errOut io.Writer) error {
	if deps.recorder == nil || deps.pipeline == nil || deps.speaker == nil {
		return errors.New("missing voicebot dependency")
	}
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	tempDir := deps.tempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	fmt.Fprintf(out, "AI doctor voicebot ready (stt=%s, tts=%s)\n", cfg.STTModel, cfg.ResolveTTS())
	fmt.Fprintln(out, "Press Enter to start talking. Type /exit or /quit to stop.")

	scanner := bufio.NewScanner(in)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			fmt.Fprintln(out)
			return nil
		}

		switch strings.TrimSpace(scanner.Text()) {
		case "/exit", "/quit":
			fmt.Fprintln(out, "bye")
			return nil
		}

		recordPath := filepath.Join(tempDir, "recording-"+uuid.NewString()+".wav")
		fmt.Fprintln(out, "Listening. Speak, then pause to finish.")
		audioPath := recordPath
		_, err := deps.recorder.Record(ctx, recordPath, audio.RecordOptions{
			StartTimeout: cfg.RecordTimeout,
			PhraseLimit:  cfg.PhraseLimit,
			Logger:       deps.logger,
		})
		switch {
		case errors.Is(err, audio.ErrNoSpeech):
			fmt.Fprintln(out, "No speech detected.")
			audioPath = ""
		case errors.Is(err, context.Canceled):
			return err
		case err != nil:
			fmt.Fprintf(errOut, "recording error: %v\n", err)
			continue
		}

		consultCtx, cancel := ctx, context.CancelFunc(func() {})
		if cfg.RequestTimeout > 0 {
			consultCtx, cancel = context.WithTimeout(ctx, cfg.RequestTimeout)
		}
		result, err := deps.pipeline.Consult(consultCtx, audioPath)
		cancel()
		if audioPath != "" {
			_ = os.Remove(audioPath)
		}
		if err != nil {
			fmt.Fprintf(errOut, "consultation error: %v\n", err)
			continue
		}

		fmt.Fprintf(out, "You: %s\n", result.Transcript)
		fmt.Fprintf(out, "Doctor: %s\n", result.Reply)

		if result.AudioPath != "" {
			if err := deps.speaker.Play(ctx, result.AudioPath); err != nil {
				fmt.Fprintf(errOut, "playback error: %v\n", err)
			}
		}
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "doctor-voicebot: load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "doctor-voicebot: %v\n", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	rec, err := audio.NewRecorder()
	if err != nil {
		fmt.Fprintf(os.Stderr, "doctor-voicebot: %v\n", err)
		os.Exit(1)
	}
	defer rec.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := voicebotDeps{
		recorder: rec,
		pipeline: buildPipeline(cfg, logger),
		speaker:  audio.NewPlayer(audio.PlayerMode(cfg.Playback), logger),
		logger:   logger,
	}
	if err := runVoicebot(ctx, cfg, deps, os.Stdin, os.Stdout, os.Stderr); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "doctor-voicebot: %v\n", err)
		os.Exit(1)
	}
}
