// ABOUTME: Audio output interface definition
// ABOUTME: Pull-based playback backends that ask a Producer for each device period
package output

import (
	"errors"
	"time"

	"github.com/Resonate-Protocol/pwsink/pkg/audio"
)

// ErrClosed is returned when using an output after Close
var ErrClosed = errors.New("output closed")

// Cycle describes one device period handed to a Producer
type Cycle struct {
	// SystemTime is the monotonic system time when the period was requested
	SystemTime time.Duration
	// DriverTime is the device position, the duration of all frames rendered
	// before this period
	DriverTime time.Duration
}

// Producer fills device periods. Process runs on the device's real-time
// context and must not block.
type Producer interface {
	Process(dst []byte, cycle Cycle)
}

// ProducerFunc adapts a function to the Producer interface
type ProducerFunc func(dst []byte, cycle Cycle)

// Process calls f
func (f ProducerFunc) Process(dst []byte, cycle Cycle) {
	f(dst, cycle)
}

// Output represents an audio output device
type Output interface {
	// Open starts the device. quantum is the preferred period in frames.
	Open(format audio.Format, quantum int, p Producer) error

	// Close stops the device and releases its resources
	Close() error
}
