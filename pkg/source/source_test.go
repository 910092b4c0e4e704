// ABOUTME: Tests for source selection and the tone generator
// ABOUTME: Covers URI parsing and sine output shape
package source

import (
	"encoding/binary"
	"testing"

	"github.com/Resonate-Protocol/pwsink/pkg/audio"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		uri     string
		wantErr bool
	}{
		{"default tone", "tone", false},
		{"tone frequency", "tone:880", false},
		{"bad tone frequency", "tone:abc", true},
		{"tone above nyquist", "tone:30000", true},
		{"unknown kind", "mp3:song.mp3", true},
		{"missing wav", "wav:/nonexistent/file.wav", true},
		{"missing dsf", "dsf:/nonexistent/file.dsf", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.uri, audio.SampleFormatS16LE)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if err == nil {
				defer s.Close()
				if s.Format().Rate != 48000 || s.Format().Channels != 2 {
					t.Errorf("unexpected tone format %v", s.Format())
				}
			} else if s != nil {
				t.Errorf("expected nil source on error")
			}
		})
	}
}

func TestToneShape(t *testing.T) {
	format := audio.NewPCMFormat(audio.SampleFormatS16LE, 48000, 2)
	tone, err := NewTone(format, 1000)
	if err != nil {
		t.Fatalf("failed to create tone: %v", err)
	}

	// 48 frames is exactly one period at 1kHz
	buf := make([]byte, 48*format.Stride())
	n, err := tone.Read(buf)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("expected %d bytes, got %d", len(buf), n)
	}

	peak := int16(0)
	for i := 0; i < 48; i++ {
		l := int16(binary.LittleEndian.Uint16(buf[i*4:]))
		r := int16(binary.LittleEndian.Uint16(buf[i*4+2:]))
		if l != r {
			t.Fatalf("frame %d: channels differ (%d vs %d)", i, l, r)
		}
		peak = max(peak, l)
	}

	if first := int16(binary.LittleEndian.Uint16(buf)); first != 0 {
		t.Errorf("expected first sample 0, got %d", first)
	}
	// Half of 16-bit full scale
	if peak < 16000 || peak > 16400 {
		t.Errorf("expected peak near 16383, got %d", peak)
	}

	// The next period starts where this one ended
	next := make([]byte, format.Stride())
	if _, err := tone.Read(next); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if v := int16(binary.LittleEndian.Uint16(next)); v < -1 || v > 1 {
		t.Errorf("expected continuation near 0, got %d", v)
	}
}

func TestToneRejectsInvalid(t *testing.T) {
	tests := []struct {
		name      string
		format    audio.Format
		frequency float64
	}{
		{"zero frequency", audio.NewPCMFormat(audio.SampleFormatS16LE, 48000, 2), 0},
		{"nyquist", audio.NewPCMFormat(audio.SampleFormatS16LE, 48000, 2), 24000},
		{"unsupported encoding", audio.NewPCMFormat(audio.SampleFormatF64LE, 48000, 2), 440},
		{"dsd", audio.NewDSDFormat(audio.DSDFormatU8, 352800, 2), 440},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewTone(tt.format, tt.frequency); err == nil {
				t.Error("expected error")
			}
		})
	}
}
