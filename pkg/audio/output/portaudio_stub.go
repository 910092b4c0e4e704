//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"errors"
	"log/slog"

	"github.com/Resonate-Protocol/pwsink/pkg/audio"
)

// ErrPortAudioDisabled is returned by the stub PortAudio output
var ErrPortAudioDisabled = errors.New("PortAudio support not enabled (build with -tags portaudio)")

// PortAudio output implementation (stub)
type PortAudio struct{}

// NewPortAudio creates a new PortAudio output
func NewPortAudio(registry *Registry, logger *slog.Logger) Output {
	return &PortAudio{}
}

// Open reports that PortAudio is unavailable
func (p *PortAudio) Open(format audio.Format, quantum int, producer Producer) error {
	return ErrPortAudioDisabled
}

// Close does nothing
func (p *PortAudio) Close() error {
	return nil
}
