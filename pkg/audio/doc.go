// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format descriptors, frame timing, silence and DSD conversion
// Package audio provides raw audio format descriptors and the arithmetic around them.
//
// A Format is a tagged variant: either PCM (sample format, rate, channels) or
// DSD (word grouping, byte rate, channels). Every format knows:
//   - its stride, the number of bytes in one frame
//   - how to convert between frame counts and durations
//   - how to write its silence pattern
//
// DSD streams can be regrouped between 1, 2 and 4 byte words with ConvertDSD.
//
// Example:
//
//	format := audio.NewPCMFormat(audio.SampleFormatS16LE, 48000, 2)
//	frames := format.DurationToFrames(10 * time.Millisecond) // 480
//	buf := make([]byte, frames*format.Stride())
//	format.WriteSilence(buf)
package audio
