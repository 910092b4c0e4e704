// ABOUTME: Tests for audio types
// ABOUTME: Tests format descriptors and sample conversion functions
package audio

import (
	"errors"
	"testing"
)

func TestFormatStride(t *testing.T) {
	tests := []struct {
		name     string
		format   Format
		expected int
	}{
		{"s16 stereo", NewPCMFormat(SampleFormatS16LE, 48000, 2), 4},
		{"s24 packed stereo", NewPCMFormat(SampleFormatS24LE, 96000, 2), 6},
		{"s24_32 mono", NewPCMFormat(SampleFormatS24_32LE, 96000, 1), 4},
		{"f64 6ch", NewPCMFormat(SampleFormatF64LE, 48000, 6), 48},
		{"dsd u8 stereo", NewDSDFormat(DSDFormatU8, 352800, 2), 2},
		{"dsd u32be stereo", NewDSDFormat(DSDFormatU32BE, 352800, 2), 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.format.Stride(); got != tt.expected {
				t.Errorf("expected stride %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestFormatValidate(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		wantErr bool
	}{
		{"valid pcm", NewPCMFormat(SampleFormatS16LE, 48000, 2), false},
		{"valid dsd", NewDSDFormat(DSDFormatU16LE, 352800, 2), false},
		{"zero rate", NewPCMFormat(SampleFormatS16LE, 0, 2), true},
		{"zero channels", NewPCMFormat(SampleFormatS16LE, 48000, 0), true},
		{"unknown sample format", NewPCMFormat(SampleFormatUnknown, 48000, 2), true},
		{"unknown dsd format", NewDSDFormat(DSDFormatUnknown, 352800, 2), true},
		{"unknown type", Format{Type: Type(7), Rate: 48000, Channels: 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.format.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Errorf("expected ErrUnsupportedFormat, got %v", err)
				}
			} else if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestParseSampleFormat(t *testing.T) {
	f, err := ParseSampleFormat("S24_32LE")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if f != SampleFormatS24_32LE {
		t.Errorf("expected S24_32LE, got %v", f)
	}

	if _, err := ParseSampleFormat("S20LE"); err == nil {
		t.Error("expected error for unknown sample format")
	}
}

func TestValidTimestamp(t *testing.T) {
	if ValidTimestamp(NoTimestamp) {
		t.Error("NoTimestamp should be invalid")
	}
	if !ValidTimestamp(0) {
		t.Error("zero should be a valid timestamp")
	}
}

func TestSampleFromInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    int16
		expected int32
	}{
		{"zero", 0, 0},
		{"positive", 100, 100 << 8},
		{"negative", -100, -100 << 8},
		{"max", 32767, 32767 << 8},
		{"min", -32768, -32768 << 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleFromInt16(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestSampleFrom24Bit(t *testing.T) {
	tests := []struct {
		name     string
		input    [3]byte
		expected int32
	}{
		{"zero", [3]byte{0, 0, 0}, 0},
		{"positive", [3]byte{0x56, 0x34, 0x12}, 0x123456},
		{"negative", [3]byte{0x00, 0xFF, 0xFF}, -256},
		{"max positive", [3]byte{0xFF, 0xFF, 0x7F}, Max24Bit},
		{"max negative", [3]byte{0x00, 0x00, 0x80}, Min24Bit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleFrom24Bit(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestRoundTrip24Bit(t *testing.T) {
	samples := []int32{0, 100000, -100000, Max24Bit, Min24Bit}

	for _, original := range samples {
		result := SampleFrom24Bit(SampleTo24Bit(original))
		if result != original {
			t.Errorf("round-trip failed: %d -> %d", original, result)
		}
	}
}

func TestRoundTrip32Bit(t *testing.T) {
	samples := []int32{0, 1, -1, Max24Bit, Min24Bit}

	for _, original := range samples {
		result := SampleFromInt32(SampleToInt32(original))
		if result != original {
			t.Errorf("round-trip failed: %d -> %d", original, result)
		}
	}
}
