// ABOUTME: Tests for the DSF file source
// ABOUTME: Builds DSF streams in memory and checks deinterleaving and bit order
package source

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math/bits"
	"os"
	"path/filepath"
	"testing"

	"github.com/Resonate-Protocol/pwsink/pkg/audio"
)

// buildDSF lays out perChannel bytes for each channel in 4096-byte blocks
func buildDSF(bitsPerSample uint32, perChannel [][]byte) []byte {
	channels := len(perChannel)
	length := len(perChannel[0])
	blocks := (length + dsfBlockSize - 1) / dsfBlockSize

	var data []byte
	for b := 0; b < blocks; b++ {
		for c := 0; c < channels; c++ {
			block := make([]byte, dsfBlockSize)
			copy(block, perChannel[c][b*dsfBlockSize:])
			data = append(data, block...)
		}
	}

	le := binary.LittleEndian
	var buf bytes.Buffer

	hdr := make([]byte, dsfHeaderSize)
	copy(hdr, "DSD ")
	le.PutUint64(hdr[4:], dsfHeaderSize)
	buf.Write(hdr)

	fmtChunk := make([]byte, dsfFmtSize)
	copy(fmtChunk, "fmt ")
	le.PutUint64(fmtChunk[4:], dsfFmtSize)
	le.PutUint32(fmtChunk[12:], 1)
	le.PutUint32(fmtChunk[16:], dsfFormatRaw)
	le.PutUint32(fmtChunk[20:], 2)
	le.PutUint32(fmtChunk[24:], uint32(channels))
	le.PutUint32(fmtChunk[28:], 2822400)
	le.PutUint32(fmtChunk[32:], bitsPerSample)
	le.PutUint64(fmtChunk[36:], uint64(length)*8)
	le.PutUint32(fmtChunk[44:], dsfBlockSize)
	buf.Write(fmtChunk)

	dataHdr := make([]byte, 12)
	copy(dataHdr, "data")
	le.PutUint64(dataHdr[4:], uint64(12+len(data)))
	buf.Write(dataHdr)
	buf.Write(data)

	return buf.Bytes()
}

func channelData(length int, seed byte) []byte {
	b := make([]byte, length)
	for i := range b {
		b[i] = byte(i) ^ seed
	}
	return b
}

func TestDSFDeinterleave(t *testing.T) {
	tests := []struct {
		name          string
		bitsPerSample uint32
		length        int
		chunk         int
	}{
		{"msb first single block", 8, 1000, 64},
		{"msb first partial last block", 8, 5000, 1000},
		{"lsb first", 1, 5000, 4096 * 2},
		{"odd chunk", 1, 4100, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			left := channelData(tt.length, 0x00)
			right := channelData(tt.length, 0xA5)

			s, err := NewDSF(bytes.NewReader(buildDSF(tt.bitsPerSample, [][]byte{left, right})))
			if err != nil {
				t.Fatalf("failed to parse: %v", err)
			}

			f := s.Format()
			if f.Type != audio.TypeDSD || f.DSD != audio.DSDFormatU8 {
				t.Fatalf("unexpected format %v", f)
			}
			if f.Rate != 352800 || f.Channels != 2 {
				t.Fatalf("expected 352800 bytes/s stereo, got %d/%d", f.Rate, f.Channels)
			}

			got := readAll(t, s, tt.chunk)
			if len(got) != tt.length*2 {
				t.Fatalf("expected %d bytes, got %d", tt.length*2, len(got))
			}

			for i := 0; i < tt.length; i++ {
				wantL, wantR := left[i], right[i]
				if tt.bitsPerSample == 1 {
					wantL, wantR = bits.Reverse8(wantL), bits.Reverse8(wantR)
				}
				if got[i*2] != wantL || got[i*2+1] != wantR {
					t.Fatalf("frame %d: expected (%#x, %#x), got (%#x, %#x)",
						i, wantL, wantR, got[i*2], got[i*2+1])
				}
			}
		})
	}
}

func TestDSFRejects(t *testing.T) {
	valid := buildDSF(1, [][]byte{channelData(16, 0)})

	tests := []struct {
		name   string
		mutate func([]byte) []byte
		want   error
	}{
		{"bad magic", func(b []byte) []byte { copy(b, "RIFF"); return b }, ErrNotDSFFile},
		{"missing fmt", func(b []byte) []byte { copy(b[dsfHeaderSize:], "junk"); return b }, ErrNotDSFFile},
		{"compressed", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[dsfHeaderSize+16:], 1)
			return b
		}, audio.ErrUnsupportedFormat},
		{"bad bits per sample", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[dsfHeaderSize+32:], 4)
			return b
		}, audio.ErrUnsupportedFormat},
		{"bad block size", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[dsfHeaderSize+44:], 2048)
			return b
		}, audio.ErrUnsupportedFormat},
		{"truncated header", func(b []byte) []byte { return b[:10] }, io.ErrUnexpectedEOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.mutate(append([]byte(nil), valid...))
			_, err := NewDSF(bytes.NewReader(b))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDSFTruncatedData(t *testing.T) {
	b := buildDSF(8, [][]byte{channelData(100, 0), channelData(100, 1)})
	s, err := NewDSF(bytes.NewReader(b[:len(b)-100]))
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	_, err = s.Read(make([]byte, 64))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected unexpected EOF, got %v", err)
	}
}

func TestOpenDSF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.dsf")
	if err := os.WriteFile(path, buildDSF(1, [][]byte{channelData(10, 0)}), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	s, err := Open("dsf:"+path, audio.SampleFormatS16LE)
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}
	defer s.Close()

	got := readAll(t, s, 4)
	if len(got) != 10 {
		t.Errorf("expected 10 bytes, got %d", len(got))
	}
}
