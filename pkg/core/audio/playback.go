package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core"
)

// PlayerMode selects how replies are played.
type PlayerMode string

const (
	// PlayerAuto decodes in process and falls back to system players.
	PlayerAuto PlayerMode = "auto"
	// PlayerExternal always shells out to system player binaries.
	PlayerExternal PlayerMode = "external"
	// PlayerOff disables playback.
	PlayerOff PlayerMode = "off"
)

// Player plays synthesized MP3 reply files on the local machine.
type Player struct {
	mode   PlayerMode
	logger *slog.Logger
}

// NewPlayer returns a player in the given mode. An empty mode means
// PlayerAuto.
func NewPlayer(mode PlayerMode, logger *slog.Logger) *Player {
	if mode == "" {
		mode = PlayerAuto
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{mode: mode, logger: logger}
}

// Play plays one MP3 file and blocks until it finishes. It is a no-op when
// playback is off or the path is empty.
func (p *Player) Play(ctx context.Context, path string) error {
	if p.mode == PlayerOff || path == "" {
		return nil
	}
	if p.mode == PlayerAuto {
		err := playInProcess(ctx, path)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.logger.Debug("in-process playback failed, trying system players", "error", err)
	}
	return playExternal(ctx, path)
}

// output is the process-wide speaker. The underlying backend supports a
// single context per process, fixed at the first clip's sample rate.
var output struct {
	once sync.Once
	ctx  *oto.Context
	rate int
	err  error
}

func speakerContext(sampleRate int) (*oto.Context, error) {
	output.once.Do(func() {
		var ready chan struct{}
		output.rate = sampleRate
		output.ctx, ready, output.err = oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 2,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   100 * time.Millisecond,
		})
		if output.err == nil {
			<-ready
		}
	})
	if output.err != nil {
		return nil, output.err
	}
	if sampleRate != output.rate {
		return nil, fmt.Errorf("speaker is fixed at %d Hz, clip is %d Hz", output.rate, sampleRate)
	}
	return output.ctx, nil
}

func playInProcess(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return fmt.Errorf("decode mp3: %w", err)
	}

	speaker, err := speakerContext(decoder.SampleRate())
	if err != nil {
		return fmt.Errorf("open speaker: %w", err)
	}

	player := speaker.NewPlayer(decoder)
	defer player.Close()

	player.Play()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
	return nil
}

// externalPlayerCommands returns the system player invocations for the
// platform, in fallback order.
func externalPlayerCommands(goos, path string) [][]string {
	switch goos {
	case "darwin":
		return [][]string{{"afplay", path}}
	case "windows":
		return [][]string{{"powershell", "-c", fmt.Sprintf(`(New-Object Media.SoundPlayer "%s").PlaySync();`, path)}}
	default:
		return [][]string{
			{"aplay", path},
			{"mpg123", path},
			{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", path},
		}
	}
}

func playExternal(ctx context.Context, path string) error {
	var lastErr error
	for _, argv := range externalPlayerCommands(runtime.GOOS, path) {
		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
		if err := cmd.Run(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if lastErr == nil {
		lastErr = errors.New("no system player available")
	}
	return core.NewLocalResourceError("play audio with system player", lastErr)
}
