// Package audio records the patient's voice from the default microphone and
// plays the doctor's reply back. Capture produces WAV clips the transcription
// stage can upload as-is.
package audio

// Format specifies PCM audio parameters.
type Format struct {
	// SampleRate in Hz. Common values: 16000, 24000, 44100, 48000.
	SampleRate int

	// Channels: 1 for mono, 2 for stereo.
	Channels int

	// BitsPerSample: typically 16 for PCM.
	BitsPerSample int
}

// DefaultFormat returns the capture format used for transcription uploads:
// 16 kHz mono 16-bit PCM.
func DefaultFormat() Format {
	return Format{
		SampleRate:    16000,
		Channels:      1,
		BitsPerSample: 16,
	}
}

// BytesPerSecond returns the audio byte rate.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * (f.BitsPerSample / 8)
}

// DurationMs returns the duration in milliseconds for the given byte count.
func (f Format) DurationMs(bytes int) int {
	if f.BytesPerSecond() == 0 {
		return 0
	}
	return (bytes * 1000) / f.BytesPerSecond()
}

// BytesForDurationMs returns the byte count for the given duration in
// milliseconds, rounded down to a whole sample frame.
func (f Format) BytesForDurationMs(ms int) int {
	n := (f.BytesPerSecond() * ms) / 1000
	frame := f.Channels * (f.BitsPerSample / 8)
	if frame > 0 {
		n -= n % frame
	}
	return n
}
