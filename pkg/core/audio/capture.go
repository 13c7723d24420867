package audio

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/SmithaBalakrishna/AI-Doctor-Voicebot/pkg/core"
)

// ErrNoSpeech is returned when no phrase starts before the start timeout.
var ErrNoSpeech = errors.New("no speech detected before timeout")

const (
	defaultCalibrateDuration = time.Second
	defaultStartTimeout      = 20 * time.Second
	defaultPhraseLimit       = 15 * time.Second
	defaultPauseDuration     = time.Second

	// preRollMs of audio preceding the detected phrase start is kept so the
	// first syllable is not clipped.
	preRollMs = 500

	// captureWindowMs is the analysis window for energy decisions.
	captureWindowMs = 100

	// minEnergyThreshold floors the calibrated speech threshold in very
	// quiet rooms.
	minEnergyThreshold = 0.01

	// ambientRatio scales measured ambient energy into the speech threshold.
	ambientRatio = 1.5
)

// RecordOptions configures one recording. The zero value uses the defaults.
type RecordOptions struct {
	Format            Format        // Capture format; zero value means DefaultFormat
	CalibrateDuration time.Duration // Ambient noise measurement before listening
	StartTimeout      time.Duration // Max wait for the phrase to start
	PhraseLimit       time.Duration // Max capture after the phrase starts
	PauseDuration     time.Duration // Trailing silence that ends the phrase
	Logger            *slog.Logger
}

func (o RecordOptions) withDefaults() RecordOptions {
	if o.Format.SampleRate == 0 {
		o.Format = DefaultFormat()
	}
	if o.CalibrateDuration <= 0 {
		o.CalibrateDuration = defaultCalibrateDuration
	}
	if o.StartTimeout <= 0 {
		o.StartTimeout = defaultStartTimeout
	}
	if o.PhraseLimit <= 0 {
		o.PhraseLimit = defaultPhraseLimit
	}
	if o.PauseDuration <= 0 {
		o.PauseDuration = defaultPauseDuration
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Clip describes a finished recording.
type Clip struct {
	Path     string
	Duration time.Duration
	Bytes    int64
}

// Recorder captures microphone audio into WAV files.
type Recorder struct {
	mctx *malgo.AllocatedContext
}

// NewRecorder initializes the platform audio backend.
func NewRecorder() (*Recorder, error) {
	cfg := malgo.ContextConfig{}
	cfg.ThreadPriority = malgo.ThreadPriorityRealtime

	mctx, err := malgo.InitContext(nil, cfg, nil)
	if err != nil {
		return nil, core.NewLocalResourceError("initialize audio backend", err)
	}
	return &Recorder{mctx: mctx}, nil
}

// Close releases the audio backend.
func (r *Recorder) Close() {
	if r.mctx != nil {
		_ = r.mctx.Uninit()
		r.mctx.Free()
		r.mctx = nil
	}
}

// Record captures one phrase from the default microphone and writes it as a
// WAV file. It measures ambient noise first, waits for speech to start, then
// stops after a trailing pause or once the phrase limit is reached.
// ErrNoSpeech is returned when nothing above the calibrated threshold
// arrives before the start timeout.
func (r *Recorder) Record(ctx context.Context, outPath string, opts RecordOptions) (*Clip, error) {
	opts = opts.withDefaults()
	format := opts.Format

	stream, err := openMicStream(r.mctx.Context, format)
	if err != nil {
		return nil, err
	}
	defer stream.close()

	// Unblock pending reads when the caller gives up.
	stopWatch := context.AfterFunc(ctx, stream.close)
	defer stopWatch()

	opts.Logger.Info("adjusting for ambient noise")
	ambientPCM, err := stream.next(format.BytesForDurationMs(int(opts.CalibrateDuration.Milliseconds())))
	if err != nil {
		return nil, streamReadError(ctx, err)
	}
	threshold := RMSEnergy(ambientPCM) * ambientRatio
	if threshold < minEnergyThreshold {
		threshold = minEnergyThreshold
	}
	opts.Logger.Info("start speaking now", "threshold", threshold)

	seg := newPhraseSegmenter(format, threshold, opts)
	windowBytes := format.BytesForDurationMs(captureWindowMs)
	for {
		window, err := stream.next(windowBytes)
		if err != nil {
			return nil, streamReadError(ctx, err)
		}
		done, err := seg.feed(window)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}
	stream.close()

	wav, err := EncodeWAV(seg.phrase(), format)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, core.NewLocalResourceError("create recording directory", err)
		}
	}
	if err := os.WriteFile(outPath, wav, 0o644); err != nil {
		return nil, core.NewLocalResourceError("write recording", err)
	}

	clip := &Clip{
		Path:     outPath,
		Duration: time.Duration(format.DurationMs(len(seg.phrase()))) * time.Millisecond,
		Bytes:    int64(len(wav)),
	}
	opts.Logger.Info("recording complete", "path", clip.Path, "duration", clip.Duration)
	return clip, nil
}

func streamReadError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return core.NewLocalResourceError("read capture stream", err)
}

// phraseSegmenter turns a stream of fixed-size PCM windows into one phrase:
// wait for energy above the threshold, then capture until a trailing pause
// or the phrase limit.
type phraseSegmenter struct {
	format    Format
	threshold float64

	startTimeout  time.Duration
	phraseLimit   time.Duration
	pauseDuration time.Duration

	preRoll  *ringBuffer
	started  bool
	waited   time.Duration
	silence  time.Duration
	captured []byte
}

func newPhraseSegmenter(format Format, threshold float64, opts RecordOptions) *phraseSegmenter {
	return &phraseSegmenter{
		format:        format,
		threshold:     threshold,
		startTimeout:  opts.StartTimeout,
		phraseLimit:   opts.PhraseLimit,
		pauseDuration: opts.PauseDuration,
		preRoll:       newRingBuffer(format, preRollMs),
	}
}

// feed consumes one analysis window. It reports true when the phrase is
// complete and ErrNoSpeech when the start timeout elapses first.
func (s *phraseSegmenter) feed(window []byte) (bool, error) {
	windowDur := time.Duration(s.format.DurationMs(len(window))) * time.Millisecond
	energy := RMSEnergy(window)

	if !s.started {
		if energy >= s.threshold {
			s.started = true
			s.captured = append(s.captured, s.preRoll.Read()...)
			s.captured = append(s.captured, window...)
			return false, nil
		}
		s.preRoll.Write(window)
		s.waited += windowDur
		if s.waited >= s.startTimeout {
			return false, ErrNoSpeech
		}
		return false, nil
	}

	s.captured = append(s.captured, window...)
	if energy < s.threshold {
		s.silence += windowDur
		if s.silence >= s.pauseDuration {
			return true, nil
		}
	} else {
		s.silence = 0
	}
	if s.phraseLimit > 0 && s.capturedDuration() >= s.phraseLimit {
		return true, nil
	}
	return false, nil
}

// phrase returns the captured PCM, including the pre-roll and trailing pause.
func (s *phraseSegmenter) phrase() []byte {
	return s.captured
}

func (s *phraseSegmenter) capturedDuration() time.Duration {
	return time.Duration(s.format.DurationMs(len(s.captured))) * time.Millisecond
}

// micStream exposes the capture device's callback stream as blocking reads.
type micStream struct {
	device *malgo.Device
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	closed bool
}

func openMicStream(mctx malgo.Context, format Format) (*micStream, error) {
	m := &micStream{buf: make([]byte, 0, format.BytesPerSecond())}
	m.cond = sync.NewCond(&m.mu)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(format.Channels)
	deviceConfig.SampleRate = uint32(format.SampleRate)
	deviceConfig.PeriodSizeInMilliseconds = 20

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pInputSamples []byte, _ uint32) {
			m.mu.Lock()
			if !m.closed {
				m.buf = append(m.buf, pInputSamples...)
			}
			m.mu.Unlock()
			m.cond.Signal()
		},
	}

	device, err := malgo.InitDevice(mctx, deviceConfig, callbacks)
	if err != nil {
		return nil, core.NewLocalResourceError("open capture device", err)
	}
	m.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, core.NewLocalResourceError("start capture device", err)
	}
	return m, nil
}

// next blocks until n bytes are buffered and returns exactly n.
func (m *micStream) next(n int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.buf) < n && !m.closed {
		m.cond.Wait()
	}
	if len(m.buf) < n {
		return nil, errors.New("capture device closed")
	}
	out := make([]byte, n)
	copy(out, m.buf[:n])
	m.buf = m.buf[n:]
	return out, nil
}

func (m *micStream) close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	device := m.device
	m.device = nil
	m.mu.Unlock()
	m.cond.Broadcast()

	if device != nil {
		_ = device.Stop()
		device.Uninit()
	}
}
