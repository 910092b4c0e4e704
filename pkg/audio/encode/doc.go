// ABOUTME: Raw audio encoder package
// ABOUTME: Provides the Encoder interface and the PCM implementation
// Package encode converts int32 samples back to raw PCM bytes.
//
// Supports: S16LE, S24LE, S24_32LE, S32LE, F32LE
//
// All encoders accept int32 samples in 24-bit range and write into
// caller-provided buffers.
//
// Example:
//
//	encoder, err := encode.NewPCM(format)
//	n, err := encoder.Encode(audioData, samples)
package encode
