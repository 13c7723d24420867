package audio

import (
	"math"
	"sync"
)

// RMSEnergy computes the root-mean-square energy of 16-bit signed
// little-endian PCM audio. Returns a value between 0.0 and 1.0.
func RMSEnergy(pcm []byte) float64 {
	samples := len(pcm) / 2
	if samples == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < len(pcm)-1; i += 2 {
		sample := int16(pcm[i]) | int16(pcm[i+1])<<8
		normalized := float64(sample) / 32768.0
		sum += normalized * normalized
	}

	return math.Sqrt(sum / float64(samples))
}

// ringBuffer is a fixed-size circular PCM buffer. Capture keeps a short
// pre-roll in one so the first syllable of a phrase is not clipped off.
type ringBuffer struct {
	mu       sync.Mutex
	data     []byte
	size     int
	writePos int
	filled   int
}

// newRingBuffer creates a ring buffer holding exactly durationMs of audio.
func newRingBuffer(format Format, durationMs int) *ringBuffer {
	size := format.BytesForDurationMs(durationMs)
	if size < 2 {
		size = 2
	}
	return &ringBuffer{
		data: make([]byte, size),
		size: size,
	}
}

// Write adds data, overwriting the oldest bytes when full.
func (r *ringBuffer) Write(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range data {
		r.data[r.writePos] = b
		r.writePos = (r.writePos + 1) % r.size
		if r.filled < r.size {
			r.filled++
		}
	}
}

// Read returns the buffered audio in chronological order.
func (r *ringBuffer) Read() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.filled < r.size {
		result := make([]byte, r.filled)
		copy(result, r.data[:r.filled])
		return result
	}

	result := make([]byte, r.size)
	firstPart := r.size - r.writePos
	copy(result[:firstPart], r.data[r.writePos:])
	copy(result[firstPart:], r.data[:r.writePos])
	return result
}

// Clear resets the ring buffer.
func (r *ringBuffer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writePos = 0
	r.filled = 0
}
