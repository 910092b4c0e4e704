// ABOUTME: Tests for the WAV recorder
// ABOUTME: Records PCM periods and reads them back with the go-audio decoder
package output

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"

	"github.com/Resonate-Protocol/pwsink/pkg/audio"
)

func TestWAVFileRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		format    audio.SampleFormat
		wantDepth int
		put       func(dst []byte, v int32)
		want      func(v int32) int
	}{
		{
			name:      "16-bit",
			format:    audio.SampleFormatS16LE,
			wantDepth: 16,
			put:       func(dst []byte, v int32) { binary.LittleEndian.PutUint16(dst, uint16(int16(v))) },
			want:      func(v int32) int { return int(v) },
		},
		{
			name:      "32-bit stored as 24",
			format:    audio.SampleFormatS32LE,
			wantDepth: 24,
			put:       func(dst []byte, v int32) { binary.LittleEndian.PutUint32(dst, uint32(v<<16)) },
			want:      func(v int32) int { return int(v) << 8 },
		},
	}

	values := []int32{0, 1, -1, 1000, -1000, 32767, -32768, 12}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format := audio.NewPCMFormat(tt.format, 48000, 2)
			width := tt.format.Width()

			path := filepath.Join(t.TempDir(), "rec.wav")
			f, err := os.Create(path)
			if err != nil {
				t.Fatalf("failed to create file: %v", err)
			}
			defer f.Close()

			rec, err := NewWAVFile(f, format)
			if err != nil {
				t.Fatalf("NewWAVFile: %v", err)
			}

			// Two writes of two frames each
			for chunk := 0; chunk < 2; chunk++ {
				p := make([]byte, 4*width)
				for i := 0; i < 4; i++ {
					tt.put(p[i*width:], values[chunk*4+i])
				}
				if n, err := rec.Write(p); err != nil || n != len(p) {
					t.Fatalf("write returned (%d, %v)", n, err)
				}
			}
			if err := rec.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			if _, err := f.Seek(0, 0); err != nil {
				t.Fatalf("seek: %v", err)
			}
			dec := wav.NewDecoder(f)
			buf, err := dec.FullPCMBuffer()
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if int(dec.BitDepth) != tt.wantDepth {
				t.Errorf("expected bit depth %d, got %d", tt.wantDepth, dec.BitDepth)
			}
			if int(dec.NumChans) != 2 || int(dec.SampleRate) != 48000 {
				t.Errorf("unexpected header %d ch %d Hz", dec.NumChans, dec.SampleRate)
			}
			if len(buf.Data) != len(values) {
				t.Fatalf("expected %d samples, got %d", len(values), len(buf.Data))
			}
			for i, v := range values {
				if buf.Data[i] != tt.want(v) {
					t.Errorf("sample %d: expected %d, got %d", i, tt.want(v), buf.Data[i])
				}
			}
		})
	}
}

func TestWAVFileRejects(t *testing.T) {
	if _, err := NewWAVFile(nil, audio.NewDSDFormat(audio.DSDFormatU8, 352800, 2)); err == nil {
		t.Error("expected error for DSD")
	}

	f, err := os.Create(filepath.Join(t.TempDir(), "rec.wav"))
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	rec, err := NewWAVFile(f, audio.NewPCMFormat(audio.SampleFormatS16LE, 48000, 2))
	if err != nil {
		t.Fatalf("NewWAVFile: %v", err)
	}
	if _, err := rec.Write(make([]byte, 3)); err == nil {
		t.Error("expected error for partial frame")
	}
}
