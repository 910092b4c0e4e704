// ABOUTME: Sink configuration and defaults
// ABOUTME: Buffer sizing, latency and drift control parameters
package sink

import (
	"fmt"
	"time"

	"github.com/Resonate-Protocol/pwsink/pkg/audio"
)

// Config controls a Sink
type Config struct {
	// Format of the audio handed to Write
	Format audio.Format
	// DeviceDSD regroups DSD output for devices that want a different word
	// layout. Unknown keeps the stream layout.
	DeviceDSD audio.DSDFormat

	// BufferSize is the ring buffer capacity
	BufferSize time.Duration
	// Quantum is the expected device period in frames, used to size scratch buffers
	Quantum int
	// Latency is added to the pipeline clock to find the PTS due at the device
	Latency time.Duration
	// PTSShift is added to buffered timestamps before they are compared
	PTSShift time.Duration
	// SkewThreshold is the timing error beyond which frames are dropped or
	// silence is inserted instead of adjusting the rate
	SkewThreshold time.Duration

	// RateMatching enables drift correction by resampling (PCM only)
	RateMatching bool
	// MaxDriftPPM clamps the drift fed to the PI controller
	MaxDriftPPM float64
	Kp          float64
	Ki          float64
}

// DefaultConfig returns settings suited to 48kHz stereo playback
func DefaultConfig(format audio.Format) Config {
	return Config{
		Format:        format,
		BufferSize:    500 * time.Millisecond,
		Quantum:       1024,
		Latency:       20 * time.Millisecond,
		SkewThreshold: 40 * time.Millisecond,
		RateMatching:  format.Type == audio.TypePCM,
		MaxDriftPPM:   500,
		Kp:            0.4,
		Ki:            0.05,
	}
}

// Validate checks the configuration for values the sink cannot run with
func (c Config) Validate() error {
	if err := c.Format.Validate(); err != nil {
		return err
	}
	if c.Format.DurationToFrames(c.BufferSize) <= 0 {
		return fmt.Errorf("buffer size %v holds no frames", c.BufferSize)
	}
	if c.Quantum <= 0 {
		return fmt.Errorf("quantum must be positive, got %d", c.Quantum)
	}
	if c.SkewThreshold < 0 {
		return fmt.Errorf("skew threshold must not be negative, got %v", c.SkewThreshold)
	}
	if c.RateMatching && c.Format.Type != audio.TypePCM {
		return fmt.Errorf("%w: rate matching needs PCM, got %v", audio.ErrUnsupportedFormat, c.Format.Type)
	}
	if c.RateMatching && c.MaxDriftPPM <= 0 {
		return fmt.Errorf("max drift must be positive, got %v ppm", c.MaxDriftPPM)
	}
	if c.DeviceDSD != audio.DSDFormatUnknown && c.Format.Type != audio.TypeDSD {
		return fmt.Errorf("device DSD format %v set for a %v stream", c.DeviceDSD, c.Format.Type)
	}
	return nil
}

// DeviceFormat returns the format the output device must be opened with
func (c Config) DeviceFormat() audio.Format {
	if c.Format.Type == audio.TypeDSD && c.DeviceDSD != audio.DSDFormatUnknown {
		return audio.NewDSDFormat(c.DeviceDSD, c.Format.Rate, c.Format.Channels)
	}
	return c.Format
}
