// ABOUTME: PCM sample decoder
// ABOUTME: Decodes 16, 24 and 32-bit integer and 32-bit float PCM to int32 samples
package decode

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Resonate-Protocol/pwsink/pkg/audio"
)

// PCMDecoder decodes little-endian PCM audio
type PCMDecoder struct {
	format audio.SampleFormat
}

// NewPCM creates a decoder for the sample format of a PCM stream
func NewPCM(format audio.Format) (Decoder, error) {
	if format.Type != audio.TypePCM {
		return nil, fmt.Errorf("%w: pcm decoder cannot handle %v", audio.ErrUnsupportedFormat, format.Type)
	}

	switch format.PCM {
	case audio.SampleFormatS16LE, audio.SampleFormatS24LE, audio.SampleFormatS24_32LE,
		audio.SampleFormatS32LE, audio.SampleFormatF32LE:
	default:
		return nil, fmt.Errorf("%w: pcm decoder cannot handle %v", audio.ErrUnsupportedFormat, format.PCM)
	}

	return &PCMDecoder{format: format.PCM}, nil
}

// SampleWidth returns the bytes per sample
func (d *PCMDecoder) SampleWidth() int {
	return d.format.Width()
}

// Decode converts PCM bytes to int32 samples
func (d *PCMDecoder) Decode(dst []int32, src []byte) (int, error) {
	width := d.format.Width()
	n := len(src) / width
	if len(dst) < n {
		return 0, fmt.Errorf("decode: destination holds %d samples, need %d", len(dst), n)
	}

	switch d.format {
	case audio.SampleFormatS16LE:
		for i := 0; i < n; i++ {
			dst[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(src[i*2:])))
		}
	case audio.SampleFormatS24LE:
		for i := 0; i < n; i++ {
			dst[i] = audio.SampleFrom24Bit([3]byte{src[i*3], src[i*3+1], src[i*3+2]})
		}
	case audio.SampleFormatS24_32LE:
		for i := 0; i < n; i++ {
			// Sign-extend the low 24 bits
			dst[i] = int32(binary.LittleEndian.Uint32(src[i*4:])<<8) >> 8
		}
	case audio.SampleFormatS32LE:
		for i := 0; i < n; i++ {
			dst[i] = audio.SampleFromInt32(int32(binary.LittleEndian.Uint32(src[i*4:])))
		}
	case audio.SampleFormatF32LE:
		for i := 0; i < n; i++ {
			f := math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
			dst[i] = audio.SampleFromFloat32(f)
		}
	}

	return n, nil
}
