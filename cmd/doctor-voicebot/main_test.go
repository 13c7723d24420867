package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core/audio"
	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core/config"
	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core/voice"
)

type fakeRecorder struct {
	err   error
	calls int
}

func (f *fakeRecorder) Record(ctx context.Context, outPath string, opts audio.RecordOptions) (*audio.Clip, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &audio.Clip{Path: outPath, Duration: 2 * time.Second, Bytes: 64000}, nil
}

type fakeConsulter struct {
	result   *voice.Consultation
	err      error
	gotPaths []string
}

func (f *fakeConsulter) Consult(ctx context.Context, audioPath string) (*voice.Consultation, error) {
	f.gotPaths = append(f.gotPaths, audioPath)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeSpeaker struct {
	err    error
	played []string
}

func (f *fakeSpeaker) Play(ctx context.Context, path string) error {
	f.played = append(f.played, path)
	return f.err
}

func voicebotConfig() config.Config {
	return config.Config{
		STTModel:       "whisper-large-v3",
		TTS:            config.TTSGTTS,
		RecordTimeout:  time.Second,
		PhraseLimit:    time.Second,
		RequestTimeout: time.Second,
	}
}

func testDeps(t *testing.T, rec *fakeRecorder, pipe *fakeConsulter, spk *fakeSpeaker) voicebotDeps {
	t.Helper()
	return voicebotDeps{
		recorder: rec,
		pipeline: pipe,
		speaker:  spk,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		tempDir:  t.TempDir(),
	}
}

func TestRunVoicebot_EnterRunsOneExchange(t *testing.T) {
	rec := &fakeRecorder{}
	pipe := &fakeConsulter{result: &voice.Consultation{
		ID:         "3d0c5f58-21a4-4b5c-9c5e-9f36cf8a1204",
		Transcript: "I have a headache.",
		Reply:      "Stay hydrated and rest in a dark room.",
		AudioPath:  "/tmp/replies/reply.mp3",
	}}
	spk := &fakeSpeaker{}

	var out, errOut bytes.Buffer
	err := runVoicebot(context.Background(), voicebotConfig(), testDeps(t, rec, pipe, spk),
		strings.NewReader("\n/exit\n"), &out, &errOut)
	if err != nil {
		t.Fatalf("runVoicebot: %v", err)
	}

	if rec.calls != 1 {
		t.Fatalf("recorder calls = %d, want 1", rec.calls)
	}
	if len(pipe.gotPaths) != 1 || pipe.gotPaths[0] == "" {
		t.Fatalf("pipeline paths = %q, want one recording path", pipe.gotPaths)
	}
	if !strings.Contains(out.String(), "You: I have a headache.") {
		t.Fatalf("missing transcript in output: %q", out.String())
	}
	if !strings.Contains(out.String(), "Doctor: Stay hydrated and rest in a dark room.") {
		t.Fatalf("missing reply in output: %q", out.String())
	}
	if len(spk.played) != 1 || spk.played[0] != "/tmp/replies/reply.mp3" {
		t.Fatalf("played = %q, want reply clip", spk.played)
	}
	if !strings.Contains(out.String(), "bye") {
		t.Fatalf("missing bye in output: %q", out.String())
	}
}

func TestRunVoicebot_NoSpeechStillConsults(t *testing.T) {
	rec := &fakeRecorder{err: audio.ErrNoSpeech}
	pipe := &fakeConsulter{result: &voice.Consultation{
		Transcript: voice.NoAudioTranscript,
		Reply:      voice.NoAudioReply,
	}}
	spk := &fakeSpeaker{}

	var out, errOut bytes.Buffer
	err := runVoicebot(context.Background(), voicebotConfig(), testDeps(t, rec, pipe, spk),
		strings.NewReader("\n/exit\n"), &out, &errOut)
	if err != nil {
		t.Fatalf("runVoicebot: %v", err)
	}

	if len(pipe.gotPaths) != 1 || pipe.gotPaths[0] != "" {
		t.Fatalf("pipeline paths = %q, want one empty path", pipe.gotPaths)
	}
	if !strings.Contains(out.String(), voice.NoAudioReply) {
		t.Fatalf("missing fixed reply in output: %q", out.String())
	}
	if len(spk.played) != 0 {
		t.Fatalf("played = %q, want none", spk.played)
	}
}

func TestRunVoicebot_RecorderFailureSkipsConsultation(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("capture device busy")}
	pipe := &fakeConsulter{}
	spk := &fakeSpeaker{}

	var out, errOut bytes.Buffer
	err := runVoicebot(context.Background(), voicebotConfig(), testDeps(t, rec, pipe, spk),
		strings.NewReader("\n/exit\n"), &out, &errOut)
	if err != nil {
		t.Fatalf("runVoicebot: %v", err)
	}

	if len(pipe.gotPaths) != 0 {
		t.Fatalf("pipeline paths = %q, want none", pipe.gotPaths)
	}
	if !strings.Contains(errOut.String(), "recording error") {
		t.Fatalf("missing recording error: %q", errOut.String())
	}
}

func TestRunVoicebot_ConsultationErrorPrintedAndLoopContinues(t *testing.T) {
	rec := &fakeRecorder{}
	pipe := &fakeConsulter{err: errors.New("transcribe: boom")}
	spk := &fakeSpeaker{}

	var out, errOut bytes.Buffer
	err := runVoicebot(context.Background(), voicebotConfig(), testDeps(t, rec, pipe, spk),
		strings.NewReader("\n/exit\n"), &out, &errOut)
	if err != nil {
		t.Fatalf("runVoicebot: %v", err)
	}

	if !strings.Contains(errOut.String(), "consultation error") {
		t.Fatalf("missing consultation error: %q", errOut.String())
	}
	if !strings.Contains(out.String(), "bye") {
		t.Fatalf("loop did not reach /exit: %q", out.String())
	}
}

func TestRunVoicebot_PlaybackErrorDoesNotAbort(t *testing.T) {
	rec := &fakeRecorder{}
	pipe := &fakeConsulter{result: &voice.Consultation{
		Transcript: "hello",
		Reply:      "hi",
		AudioPath:  "/tmp/replies/reply.mp3",
	}}
	spk := &fakeSpeaker{err: errors.New("no sound device")}

	var out, errOut bytes.Buffer
	err := runVoicebot(context.Background(), voicebotConfig(), testDeps(t, rec, pipe, spk),
		strings.NewReader("\n/exit\n"), &out, &errOut)
	if err != nil {
		t.Fatalf("runVoicebot: %v", err)
	}

	if !strings.Contains(errOut.String(), "playback error") {
		t.Fatalf("missing playback error: %q", errOut.String())
	}
	if !strings.Contains(out.String(), "bye") {
		t.Fatalf("loop did not reach /exit: %q", out.String())
	}
}

func TestRunVoicebot_ExitWithoutRecording(t *testing.T) {
	rec := &fakeRecorder{}
	pipe := &fakeConsulter{}
	spk := &fakeSpeaker{}

	var out, errOut bytes.Buffer
	err := runVoicebot(context.Background(), voicebotConfig(), testDeps(t, rec, pipe, spk),
		strings.NewReader("/quit\n"), &out, &errOut)
	if err != nil {
		t.Fatalf("runVoicebot: %v", err)
	}

	if rec.calls != 0 {
		t.Fatalf("recorder calls = %d, want 0", rec.calls)
	}
	if !strings.Contains(out.String(), "bye") {
		t.Fatalf("missing bye: %q", out.String())
	}
}

func TestRunVoicebot_EOFEndsSession(t *testing.T) {
	rec := &fakeRecorder{}
	pipe := &fakeConsulter{}
	spk := &fakeSpeaker{}

	var out, errOut bytes.Buffer
	err := runVoicebot(context.Background(), voicebotConfig(), testDeps(t, rec, pipe, spk),
		strings.NewReader(""), &out, &errOut)
	if err != nil {
		t.Fatalf("runVoicebot: %v", err)
	}
	if rec.calls != 0 {
		t.Fatalf("recorder calls = %d, want 0", rec.calls)
	}
}

func TestRunVoicebot_MissingDependencyErrors(t *testing.T) {
	err := runVoicebot(context.Background(), voicebotConfig(), voicebotDeps{},
		strings.NewReader(""), io.Discard, io.Discard)
	if err == nil {
		t.Fatalf("expected error for missing dependencies")
	}
}
