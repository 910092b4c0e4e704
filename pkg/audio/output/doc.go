// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the pull-based Output interface and its backends
// Package output provides audio playback backends.
//
// Outputs pull audio: the device asks a Producer to fill each period, passing
// the system time and the device position so the producer can track the
// driver clock.
//
// Backends: Malgo (miniaudio), Oto, PortAudio (build with -tags portaudio)
// and Virtual, a ticker-driven software device.
//
// Shared library contexts are reference counted through a Registry.
//
// Example:
//
//	out := output.NewMalgo(registry, logger)
//	err := out.Open(format, 256, sink)
//	defer out.Close()
package output
