// ABOUTME: Frame and duration arithmetic for raw audio formats
// ABOUTME: Converts frame counts to durations and back without overflow
package audio

import (
	"time"

	"github.com/Resonate-Protocol/pwsink/internal/clockmath"
)

// frameRate returns the frame rate as the fraction num/denom frames per second
func (f Format) frameRate() (num, denom uint64) {
	switch f.Type {
	case TypePCM:
		return uint64(f.Rate), 1
	case TypeDSD:
		return uint64(f.Rate), uint64(f.DSD.Width())
	}
	panic("audio: frame rate of invalid format")
}

// FramesToDuration returns how long n frames play for, rounded down
func (f Format) FramesToDuration(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	num, denom := f.frameRate()
	return time.Duration(clockmath.Scale(uint64(n), uint64(time.Second)*denom, num))
}

// DurationToFrames returns how many whole frames fit into d
func (f Format) DurationToFrames(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	num, denom := f.frameRate()
	return int(clockmath.Scale(uint64(d), num, uint64(time.Second)*denom))
}

// BytesToFrames returns the number of whole frames in n bytes
func (f Format) BytesToFrames(n int) int {
	return n / f.Stride()
}

// DSDFramesToFormat converts a frame count between DSD groupings. The bit
// count stays the same, so wider words mean fewer frames.
func DSDFramesToFormat(n int, from, to DSDFormat) int {
	return n * from.Width() / to.Width()
}
