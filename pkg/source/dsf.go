// ABOUTME: DSF (DSD Stream File) source
// ABOUTME: Converts block-interleaved DSF data into byte-interleaved DSD frames
package source

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/bits"
	"os"

	"github.com/Resonate-Protocol/pwsink/pkg/audio"
)

// ErrNotDSFFile is returned for input that does not start with a DSD chunk
var ErrNotDSFFile = errors.New("not a DSF file")

const (
	dsfHeaderSize    = 28
	dsfFmtSize       = 52
	dsfBlockSize     = 4096
	dsfFormatRaw     = 0
	dsfChunkIDLength = 4
)

// DSF streams DSD data from a DSF file as DSDFormatU8 frames
type DSF struct {
	r      io.Reader
	closer io.Closer
	format audio.Format

	// Bytes per channel left in the data chunk
	remaining int64
	lsbFirst  bool

	// One block per channel, and the read offset into it
	block  []byte
	offset int
	filled int
}

// OpenDSF opens a DSF file for streaming
func OpenDSF(path string) (*DSF, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dsf file: %w", err)
	}

	s, err := NewDSF(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return nil, err
	}
	s.closer = f
	return s, nil
}

// NewDSF parses the DSF headers from r and positions it at the sample data
func NewDSF(r io.Reader) (*DSF, error) {
	var hdr [dsfHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("failed to read dsf header: %w", err)
	}
	if string(hdr[:dsfChunkIDLength]) != "DSD " {
		return nil, ErrNotDSFFile
	}

	var fmtChunk [dsfFmtSize]byte
	if _, err := io.ReadFull(r, fmtChunk[:]); err != nil {
		return nil, fmt.Errorf("failed to read dsf fmt chunk: %w", err)
	}
	if string(fmtChunk[:dsfChunkIDLength]) != "fmt " {
		return nil, fmt.Errorf("%w: missing fmt chunk", ErrNotDSFFile)
	}
	le := binary.LittleEndian
	formatID := le.Uint32(fmtChunk[16:])
	channels := int(le.Uint32(fmtChunk[24:]))
	frequency := int(le.Uint32(fmtChunk[28:]))
	bitsPerSample := le.Uint32(fmtChunk[32:])
	sampleCount := int64(le.Uint64(fmtChunk[36:]))
	blockSize := le.Uint32(fmtChunk[44:])

	if formatID != dsfFormatRaw {
		return nil, fmt.Errorf("%w: dsf format id %d", audio.ErrUnsupportedFormat, formatID)
	}
	if bitsPerSample != 1 && bitsPerSample != 8 {
		return nil, fmt.Errorf("%w: dsf bits per sample %d", audio.ErrUnsupportedFormat, bitsPerSample)
	}
	if blockSize != dsfBlockSize {
		return nil, fmt.Errorf("%w: dsf block size %d", audio.ErrUnsupportedFormat, blockSize)
	}

	format := audio.NewDSDFormat(audio.DSDFormatU8, frequency/8, channels)
	if err := format.Validate(); err != nil {
		return nil, err
	}

	var dataHdr [12]byte
	if _, err := io.ReadFull(r, dataHdr[:]); err != nil {
		return nil, fmt.Errorf("failed to read dsf data chunk: %w", err)
	}
	if string(dataHdr[:dsfChunkIDLength]) != "data" {
		return nil, fmt.Errorf("%w: missing data chunk", ErrNotDSFFile)
	}

	return &DSF{
		r:         r,
		format:    format,
		remaining: sampleCount / 8,
		lsbFirst:  bitsPerSample == 1,
		block:     make([]byte, dsfBlockSize*channels),
	}, nil
}

// Format returns the byte-interleaved DSD format of the stream
func (s *DSF) Format() audio.Format {
	return s.format
}

// Read fills p with whole DSD frames, one byte per channel per frame
func (s *DSF) Read(p []byte) (int, error) {
	ch := s.format.Channels
	frames := len(p) / ch
	n := 0

	for n < frames {
		if s.offset == s.filled {
			if s.remaining == 0 {
				break
			}
			if err := s.fill(); err != nil {
				if n > 0 {
					break
				}
				return 0, err
			}
		}

		count := min(frames-n, s.filled-s.offset)
		for i := 0; i < count; i++ {
			for c := 0; c < ch; c++ {
				b := s.block[c*dsfBlockSize+s.offset+i]
				if s.lsbFirst {
					b = bits.Reverse8(b)
				}
				p[(n+i)*ch+c] = b
			}
		}
		n += count
		s.offset += count
	}

	if n == 0 {
		return 0, io.EOF
	}
	return n * ch, nil
}

// fill reads the next group of per-channel blocks
func (s *DSF) fill() error {
	if _, err := io.ReadFull(s.r, s.block); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("truncated dsf data: %w", err)
		}
		return err
	}
	s.offset = 0
	s.filled = int(min(s.remaining, dsfBlockSize))
	s.remaining -= int64(s.filled)
	return nil
}

// Close releases the underlying file
func (s *DSF) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
