// ABOUTME: Tests for the WAV file source
// ABOUTME: Writes fixtures with the go-audio encoder and reads them back as raw frames
package source

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Resonate-Protocol/pwsink/pkg/audio"
)

func writeWAV(t *testing.T, bitDepth, channels int, data []int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create fixture: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, 44100, bitDepth, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: 44100},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("failed to finalize fixture: %v", err)
	}
	return path
}

func readAll(t *testing.T, s Source, chunk int) []byte {
	t.Helper()

	var out []byte
	buf := make([]byte, chunk)
	for {
		n, err := s.Read(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
	}
}

func TestWAVFormats(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth int
		want     audio.SampleFormat
		data     []int
		encode   func(dst []byte, v int) int
	}{
		{
			name:     "16-bit",
			bitDepth: 16,
			want:     audio.SampleFormatS16LE,
			data:     []int{0, 1, -1, 32767, -32768, 1234},
			encode: func(dst []byte, v int) int {
				binary.LittleEndian.PutUint16(dst, uint16(int16(v)))
				return 2
			},
		},
		{
			name:     "24-bit",
			bitDepth: 24,
			want:     audio.SampleFormatS24LE,
			data:     []int{0, 1, -1, 8388607, -8388608, 123456},
			encode: func(dst []byte, v int) int {
				b := audio.SampleTo24Bit(int32(v))
				return copy(dst, b[:])
			},
		},
		{
			name:     "32-bit",
			bitDepth: 32,
			want:     audio.SampleFormatS32LE,
			data:     []int{0, 1, -1, 2147483647, -2147483648, 12345678},
			encode: func(dst []byte, v int) int {
				binary.LittleEndian.PutUint32(dst, uint32(int32(v)))
				return 4
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := OpenWAV(writeWAV(t, tt.bitDepth, 2, tt.data))
			if err != nil {
				t.Fatalf("failed to open: %v", err)
			}
			defer s.Close()

			f := s.Format()
			if f.PCM != tt.want || f.Rate != 44100 || f.Channels != 2 {
				t.Fatalf("unexpected format %v", f)
			}

			var expected []byte
			tmp := make([]byte, 4)
			for _, v := range tt.data {
				n := tt.encode(tmp, v)
				expected = append(expected, tmp[:n]...)
			}

			// One frame per read exercises buffer reuse
			got := readAll(t, s, f.Stride())
			if !bytes.Equal(got, expected) {
				t.Errorf("expected %v, got %v", expected, got)
			}
		})
	}
}

func TestWAVShortBuffer(t *testing.T) {
	s, err := OpenWAV(writeWAV(t, 16, 2, []int{1, 2, 3, 4}))
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}
	defer s.Close()

	// Smaller than one frame
	n, err := s.Read(make([]byte, 3))
	if n != 0 || err != nil {
		t.Errorf("expected (0, nil), got (%d, %v)", n, err)
	}
}

func TestWAVRejectsGarbage(t *testing.T) {
	_, err := NewWAV(bytes.NewReader(bytes.Repeat([]byte{0x42}, 64)))
	if !errors.Is(err, ErrNotWAVFile) {
		t.Errorf("expected ErrNotWAVFile, got %v", err)
	}
}
