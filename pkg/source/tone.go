// ABOUTME: Test tone generator for audio source
// ABOUTME: Generates a sine wave in any supported PCM sample format
package source

import (
	"fmt"
	"math"
	"sync"

	"github.com/Resonate-Protocol/pwsink/pkg/audio"
	"github.com/Resonate-Protocol/pwsink/pkg/audio/encode"
)

// DefaultToneFrequency is A4
const DefaultToneFrequency = 440.0

// Tone generates an endless sine wave at half volume on every channel
type Tone struct {
	format    audio.Format
	frequency float64
	encoder   encode.Encoder

	mu          sync.Mutex
	sampleIndex uint64
	samples     []int32
}

// NewTone creates a tone generator
func NewTone(format audio.Format, frequency float64) (*Tone, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if frequency <= 0 || frequency >= float64(format.Rate)/2 {
		return nil, fmt.Errorf("tone frequency %v Hz outside (0, %d) Hz", frequency, format.Rate/2)
	}

	enc, err := encode.NewPCM(format)
	if err != nil {
		return nil, err
	}

	return &Tone{
		format:    format,
		frequency: frequency,
		encoder:   enc,
	}, nil
}

// Format returns the generated format
func (s *Tone) Format() audio.Format {
	return s.format
}

// Read generates len(p) / stride frames
func (s *Tone) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := s.format.Channels
	numFrames := len(p) / s.format.Stride()
	if cap(s.samples) < numFrames*ch {
		s.samples = make([]int32, numFrames*ch)
	}
	samples := s.samples[:numFrames*ch]

	for i := 0; i < numFrames; i++ {
		t := float64(s.sampleIndex+uint64(i)) / float64(s.format.Rate)
		v := math.Sin(2 * math.Pi * s.frequency * t)

		// 50% volume in 24-bit range
		sample := int32(v * audio.Max24Bit * 0.5)
		for c := 0; c < ch; c++ {
			samples[i*ch+c] = sample
		}
	}
	s.sampleIndex += uint64(numFrames)

	return s.encoder.Encode(p, samples)
}

// Close releases resources
func (s *Tone) Close() error {
	return nil
}
