// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts sample rates and trims playback speed for drift correction
// Package resample provides streaming sample rate conversion.
//
// The resampler uses linear interpolation and keeps its state across calls.
// SetRate adjusts the conversion ratio at runtime, which is how the sink
// nudges playback speed to cancel clock drift.
//
// Example:
//
//	r := resample.New(48000, 48000, 2)
//	r.SetRate(0.9999)
//	in := make([]int32, r.InputFramesNeeded(256)*2)
//	out := make([]int32, 256*2)
//	r.Process(in, out)
package resample
