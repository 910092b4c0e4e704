// ABOUTME: Audio source interface definition
// ABOUTME: Common interface for producers of raw interleaved frames
package source

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Resonate-Protocol/pwsink/pkg/audio"
)

// Source produces raw interleaved audio frames
type Source interface {
	// Format describes the frames returned by Read
	Format() audio.Format

	// Read fills p with whole frames and returns the number of bytes
	// written. It returns io.EOF when the source is exhausted.
	Read(p []byte) (int, error)

	// Close releases source resources
	Close() error
}

// Open creates a source from a URI such as "tone", "tone:880",
// "wav:music.wav" or "dsf:music.dsf". Tones play as 48kHz stereo in
// toneFormat.
func Open(uri string, toneFormat audio.SampleFormat) (Source, error) {
	kind, path, _ := strings.Cut(uri, ":")

	switch kind {
	case "tone":
		frequency := DefaultToneFrequency
		if path != "" {
			f, err := strconv.ParseFloat(path, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid tone frequency %q: %w", path, err)
			}
			frequency = f
		}
		tone, err := NewTone(audio.NewPCMFormat(toneFormat, 48000, 2), frequency)
		if err != nil {
			return nil, err
		}
		return tone, nil
	case "wav":
		s, err := OpenWAV(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "dsf":
		s, err := OpenDSF(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown source %q (want tone, wav:path or dsf:path)", uri)
}
