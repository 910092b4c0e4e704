// ABOUTME: Raw audio decoder package
// ABOUTME: Provides the Decoder interface and the PCM implementation
// Package decode converts raw PCM bytes to int32 samples.
//
// Supports: S16LE, S24LE, S24_32LE, S32LE, F32LE
//
// All decoders output int32 samples in 24-bit range for consistent hi-res
// audio processing, and write into caller-provided buffers.
//
// Example:
//
//	decoder, err := decode.NewPCM(format)
//	n, err := decoder.Decode(samples, audioData)
package decode
