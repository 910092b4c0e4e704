// ABOUTME: Sample conversion helpers
// ABOUTME: Converts between 16-bit, 24-bit and packed byte representations
package audio

import "math"

// SampleToInt16 converts int32 sample to int16 (for 16-bit playback)
func SampleToInt16(sample int32) int16 {
	// Right-shift to convert 24-bit (or 16-bit) to 16-bit range
	return int16(sample >> 8)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	return int32(sample) << 8
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}

// SampleFromInt32 reduces a full-scale 32-bit sample to the 24-bit range
func SampleFromInt32(sample int32) int32 {
	return sample >> 8
}

// SampleToInt32 expands a 24-bit range sample to full 32-bit scale
func SampleToInt32(sample int32) int32 {
	return sample << 8
}

// SampleFromFloat32 converts a float sample in [-1, 1] to the 24-bit range
func SampleFromFloat32(f float32) int32 {
	v := math.Round(float64(f) * 8388608)
	return int32(min(max(v, Min24Bit), Max24Bit))
}

// SampleToFloat32 converts a 24-bit range sample to a float in [-1, 1)
func SampleToFloat32(sample int32) float32 {
	return float32(sample) / 8388608
}
