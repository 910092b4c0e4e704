// ABOUTME: Audio type definitions
// ABOUTME: Defines raw audio format descriptors for PCM and DSD streams
package audio

import (
	"errors"
	"fmt"
	"time"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// NoTimestamp marks an invalid or unset presentation timestamp
const NoTimestamp time.Duration = -1

// ValidTimestamp reports whether ts is a usable presentation timestamp
func ValidTimestamp(ts time.Duration) bool {
	return ts >= 0
}

// ErrUnsupportedFormat is returned for descriptors a component cannot handle
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Type selects the raw audio family of a Format
type Type int

const (
	TypePCM Type = iota
	TypeDSD
)

func (t Type) String() string {
	switch t {
	case TypePCM:
		return "pcm"
	case TypeDSD:
		return "dsd"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// SampleFormat is the per-sample storage layout of a PCM stream
type SampleFormat int

const (
	SampleFormatUnknown SampleFormat = iota
	SampleFormatS8
	SampleFormatU8
	SampleFormatS16LE
	SampleFormatS16BE
	SampleFormatS24LE    // packed, 3 bytes per sample
	SampleFormatS24_32LE // 24-bit value in a 4 byte container
	SampleFormatS32LE
	SampleFormatF32LE
	SampleFormatF64LE
)

var sampleFormatNames = map[SampleFormat]string{
	SampleFormatS8:       "S8",
	SampleFormatU8:       "U8",
	SampleFormatS16LE:    "S16LE",
	SampleFormatS16BE:    "S16BE",
	SampleFormatS24LE:    "S24LE",
	SampleFormatS24_32LE: "S24_32LE",
	SampleFormatS32LE:    "S32LE",
	SampleFormatF32LE:    "F32LE",
	SampleFormatF64LE:    "F64LE",
}

func (f SampleFormat) String() string {
	if name, ok := sampleFormatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("SampleFormat(%d)", int(f))
}

// ParseSampleFormat maps a name such as "S16LE" to its SampleFormat
func ParseSampleFormat(name string) (SampleFormat, error) {
	for f, n := range sampleFormatNames {
		if n == name {
			return f, nil
		}
	}
	return SampleFormatUnknown, fmt.Errorf("%w: sample format %q", ErrUnsupportedFormat, name)
}

// Width returns the number of bytes one sample occupies
func (f SampleFormat) Width() int {
	switch f {
	case SampleFormatS8, SampleFormatU8:
		return 1
	case SampleFormatS16LE, SampleFormatS16BE:
		return 2
	case SampleFormatS24LE:
		return 3
	case SampleFormatS24_32LE, SampleFormatS32LE, SampleFormatF32LE:
		return 4
	case SampleFormatF64LE:
		return 8
	case SampleFormatUnknown:
		return 0
	}
	return 0
}

// Format describes a raw audio stream. Type tags which of PCM or DSD is
// meaningful.
//
// For PCM, Rate is the sample rate in Hz. For DSD, Rate is the per-channel
// byte rate (DSD64 is 352800), so the frame rate is Rate / DSD.Width().
type Format struct {
	Type     Type
	Rate     int
	Channels int
	PCM      SampleFormat
	DSD      DSDFormat
}

// NewPCMFormat builds a PCM descriptor
func NewPCMFormat(sf SampleFormat, rate, channels int) Format {
	return Format{Type: TypePCM, PCM: sf, Rate: rate, Channels: channels}
}

// NewDSDFormat builds a DSD descriptor
func NewDSDFormat(df DSDFormat, byteRate, channels int) Format {
	return Format{Type: TypeDSD, DSD: df, Rate: byteRate, Channels: channels}
}

// Validate checks that the descriptor can be used to size buffers
func (f Format) Validate() error {
	if f.Rate <= 0 {
		return fmt.Errorf("%w: rate %d", ErrUnsupportedFormat, f.Rate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("%w: channels %d", ErrUnsupportedFormat, f.Channels)
	}

	switch f.Type {
	case TypePCM:
		if f.PCM.Width() == 0 {
			return fmt.Errorf("%w: pcm sample format %v", ErrUnsupportedFormat, f.PCM)
		}
	case TypeDSD:
		if f.DSD.Width() == 0 {
			return fmt.Errorf("%w: dsd format %v", ErrUnsupportedFormat, f.DSD)
		}
	default:
		return fmt.Errorf("%w: type %v", ErrUnsupportedFormat, f.Type)
	}
	return nil
}

// Stride returns the number of bytes per frame
func (f Format) Stride() int {
	switch f.Type {
	case TypePCM:
		return f.PCM.Width() * f.Channels
	case TypeDSD:
		return f.DSD.Width() * f.Channels
	}
	return 0
}

func (f Format) String() string {
	switch f.Type {
	case TypePCM:
		return fmt.Sprintf("pcm %v %dHz %dch", f.PCM, f.Rate, f.Channels)
	case TypeDSD:
		return fmt.Sprintf("dsd %v %dB/s %dch", f.DSD, f.Rate, f.Channels)
	}
	return fmt.Sprintf("%v", f.Type)
}
