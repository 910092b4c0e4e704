// ABOUTME: WAV recorder for the virtual output
// ABOUTME: Converts rendered PCM periods and appends them through the go-audio encoder
package output

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Resonate-Protocol/pwsink/pkg/audio"
	"github.com/Resonate-Protocol/pwsink/pkg/audio/decode"
)

// WAVFile is an io.WriteCloser that records raw PCM periods as a WAV file.
// 16-bit streams are stored as 16-bit, everything else as 24-bit.
type WAVFile struct {
	format   audio.Format
	dec      decode.Decoder
	enc      *wav.Encoder
	bitDepth int
	samples  []int32
	buf      *goaudio.IntBuffer
}

// NewWAVFile starts a WAV file on ws for PCM in format
func NewWAVFile(ws io.WriteSeeker, format audio.Format) (*WAVFile, error) {
	dec, err := decode.NewPCM(format)
	if err != nil {
		return nil, fmt.Errorf("wav recorder: %w", err)
	}

	bitDepth := 24
	if format.PCM == audio.SampleFormatS16LE {
		bitDepth = 16
	}

	return &WAVFile{
		format:   format,
		dec:      dec,
		enc:      wav.NewEncoder(ws, format.Rate, bitDepth, format.Channels, 1),
		bitDepth: bitDepth,
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: format.Channels, SampleRate: format.Rate},
			SourceBitDepth: bitDepth,
		},
	}, nil
}

// Write appends whole frames
func (w *WAVFile) Write(p []byte) (int, error) {
	if len(p)%w.format.Stride() != 0 {
		return 0, fmt.Errorf("wav recorder: %d bytes is not a whole number of frames", len(p))
	}

	n := len(p) / w.dec.SampleWidth()
	if cap(w.samples) < n {
		w.samples = make([]int32, n)
		w.buf.Data = make([]int, n)
	}
	w.samples = w.samples[:n]
	w.buf.Data = w.buf.Data[:n]

	if _, err := w.dec.Decode(w.samples, p); err != nil {
		return 0, err
	}
	for i, s := range w.samples {
		if w.bitDepth == 16 {
			w.buf.Data[i] = int(audio.SampleToInt16(s))
		} else {
			w.buf.Data[i] = int(s)
		}
	}

	if err := w.enc.Write(w.buf); err != nil {
		return 0, fmt.Errorf("wav recorder: %w", err)
	}
	return len(p), nil
}

// Close finalizes the WAV header. The underlying writer stays open.
func (w *WAVFile) Close() error {
	return w.enc.Close()
}
