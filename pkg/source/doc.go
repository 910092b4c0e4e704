// ABOUTME: Package documentation for audio sources
// ABOUTME: Describes the tone, WAV and DSF producers
// Package source provides producers of raw interleaved frames for feeding a
// sink: a sine tone generator, a WAV file reader and a DSF reader that emits
// byte-interleaved DSD.
package source
