// ABOUTME: WAV file source backed by go-audio
// ABOUTME: Streams 16, 24 and 32-bit integer PCM as raw little-endian frames
package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Resonate-Protocol/pwsink/pkg/audio"
)

// ErrNotWAVFile is returned for input without a RIFF/WAVE header
var ErrNotWAVFile = errors.New("not a WAV file")

// wavPCMFormat is the WAVE_FORMAT_PCM tag
const wavPCMFormat = 1

// WAV streams PCM frames from a WAV file
type WAV struct {
	dec    *wav.Decoder
	closer io.Closer
	format audio.Format
	intBuf *goaudio.IntBuffer
}

// OpenWAV opens a WAV file for streaming
func OpenWAV(path string) (*WAV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wav file: %w", err)
	}

	s, err := NewWAV(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.closer = f
	return s, nil
}

// NewWAV reads the WAV header from r and positions it at the first frame
func NewWAV(r io.ReadSeeker) (*WAV, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrNotWAVFile
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("failed to find wav data: %w", err)
	}

	if dec.WavAudioFormat != wavPCMFormat {
		return nil, fmt.Errorf("%w: wav audio format %d", audio.ErrUnsupportedFormat, dec.WavAudioFormat)
	}

	var sf audio.SampleFormat
	switch dec.BitDepth {
	case 16:
		sf = audio.SampleFormatS16LE
	case 24:
		sf = audio.SampleFormatS24LE
	case 32:
		sf = audio.SampleFormatS32LE
	default:
		return nil, fmt.Errorf("%w: wav bit depth %d", audio.ErrUnsupportedFormat, dec.BitDepth)
	}

	format := audio.NewPCMFormat(sf, int(dec.SampleRate), int(dec.NumChans))
	if err := format.Validate(); err != nil {
		return nil, err
	}

	return &WAV{
		dec:    dec,
		format: format,
		intBuf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: format.Channels, SampleRate: format.Rate},
			SourceBitDepth: int(dec.BitDepth),
		},
	}, nil
}

// Format returns the file's format
func (s *WAV) Format() audio.Format {
	return s.format
}

// Read fills p with whole frames
func (s *WAV) Read(p []byte) (int, error) {
	ch := s.format.Channels
	width := s.format.PCM.Width()
	samples := len(p) / s.format.Stride() * ch
	if samples == 0 {
		return 0, nil
	}

	if cap(s.intBuf.Data) < samples {
		s.intBuf.Data = make([]int, samples)
	}
	s.intBuf.Data = s.intBuf.Data[:samples]

	n, err := s.dec.PCMBuffer(s.intBuf)
	n -= n % ch
	if n == 0 {
		if err != nil {
			return 0, err
		}
		return 0, io.EOF
	}

	for i, v := range s.intBuf.Data[:n] {
		switch width {
		case 2:
			binary.LittleEndian.PutUint16(p[i*2:], uint16(int16(v)))
		case 3:
			b := audio.SampleTo24Bit(int32(v))
			copy(p[i*3:], b[:])
		case 4:
			binary.LittleEndian.PutUint32(p[i*4:], uint32(int32(v)))
		}
	}

	return n * width, nil
}

// Close releases the underlying file
func (s *WAV) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
