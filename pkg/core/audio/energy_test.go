package audio

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

// pcmConstant builds n samples of 16-bit little-endian PCM at a fixed value.
func pcmConstant(n int, value int16) []byte {
	out := make([]byte, 2*n)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(value))
	}
	return out
}

func TestRMSEnergy(t *testing.T) {
	tests := []struct {
		name string
		pcm  []byte
		want float64
	}{
		{"empty", nil, 0},
		{"silence", pcmConstant(160, 0), 0},
		{"half scale", pcmConstant(160, 16384), 0.5},
		{"full scale negative", pcmConstant(160, -32768), 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RMSEnergy(tt.pcm)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("RMSEnergy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRMSEnergyOrdersByLoudness(t *testing.T) {
	quiet := pcmConstant(160, 512)
	loud := pcmConstant(160, 8192)
	if RMSEnergy(quiet) >= RMSEnergy(loud) {
		t.Fatalf("RMSEnergy(quiet) = %v, not below RMSEnergy(loud) = %v",
			RMSEnergy(quiet), RMSEnergy(loud))
	}
}

func TestRingBufferKeepsMostRecentAudio(t *testing.T) {
	// 2000 bytes/s, so 4ms holds 8 bytes.
	format := Format{SampleRate: 1000, Channels: 1, BitsPerSample: 16}
	rb := newRingBuffer(format, 4)
	if len(rb.data) != 8 {
		t.Fatalf("ring size = %d, want 8", len(rb.data))
	}

	rb.Write([]byte{1, 2, 3, 4})
	if got := rb.Read(); !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Fatalf("partial Read() = %v, want [1 2 3 4]", got)
	}

	rb.Write([]byte{5, 6, 7, 8, 9, 10, 11, 12})
	if got := rb.Read(); !bytes.Equal(got, []byte{5, 6, 7, 8, 9, 10, 11, 12}) {
		t.Fatalf("wrapped Read() = %v, want [5 6 7 8 9 10 11 12]", got)
	}

	rb.Clear()
	if got := rb.Read(); len(got) != 0 {
		t.Fatalf("Read() after Clear() = %v, want empty", got)
	}
}

func TestNewRingBufferEnforcesMinimumSize(t *testing.T) {
	rb := newRingBuffer(Format{}, 0)
	if len(rb.data) != 2 {
		t.Fatalf("ring size = %d, want 2", len(rb.data))
	}
	rb.Write([]byte{9})
	if got := rb.Read(); !bytes.Equal(got, []byte{9}) {
		t.Fatalf("Read() = %v, want [9]", got)
	}
}
