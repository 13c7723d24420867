package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core/config"
	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core/voice"
	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core/voice/reply"
	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core/voice/stt"
	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core/voice/tts"
	gatewayserver "github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/gateway/server"
)

type gatewayDeps struct {
	loadConfig   func() (config.Config, error)
	newServer    func(config.Config, *slog.Logger) *gatewayserver.Server
	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)
}

func defaultGatewayDeps() gatewayDeps {
	return gatewayDeps{
		loadConfig: config.Load,
		newServer: func(cfg config.Config, logger *slog.Logger) *gatewayserver.Server {
			return gatewayserver.New(cfg, buildPipeline(cfg, logger), logger)
		},
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
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

func buildHTTPServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
	}
}

func runGateway(ctx context.Context, logger *slog.Logger, logLevel *slog.LevelVar, deps gatewayDeps) error {
	if deps.loadConfig == nil {
		return errors.New("missing loadConfig dependency")
	}
	if deps.newServer == nil {
		return errors.New("missing newServer dependency")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevel != nil {
		logLevel.Set(cfg.LogLevel)
	}

	srv := deps.newServer(cfg, logger)
	httpSrv := buildHTTPServer(cfg, srv.Handler())

	logger.Info("starting gateway", "addr", cfg.Addr, "tts", cfg.ResolveTTS())

	listenErrCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if err := <-listenErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("gateway stopped")
	return nil
}

func runMain(ctx context.Context, stderr io.Writer, deps gatewayDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	logLevel := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logLevel}))

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(stderr, "doctor-gateway: load .env: %v\n", err)
		return 1
	}

	if err := runGateway(ctx, logger, logLevel, deps); err != nil {
		fmt.Fprintf(stderr, "doctor-gateway: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultGatewayDeps()))
}
