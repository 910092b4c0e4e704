// ABOUTME: PCM sample encoder
// ABOUTME: Encodes int32 samples to 16, 24 and 32-bit integer or 32-bit float PCM
package encode

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Resonate-Protocol/pwsink/pkg/audio"
)

// PCMEncoder encodes little-endian PCM audio
type PCMEncoder struct {
	format audio.SampleFormat
}

// NewPCM creates an encoder for the sample format of a PCM stream
func NewPCM(format audio.Format) (Encoder, error) {
	if format.Type != audio.TypePCM {
		return nil, fmt.Errorf("%w: pcm encoder cannot handle %v", audio.ErrUnsupportedFormat, format.Type)
	}

	switch format.PCM {
	case audio.SampleFormatS16LE, audio.SampleFormatS24LE, audio.SampleFormatS24_32LE,
		audio.SampleFormatS32LE, audio.SampleFormatF32LE:
	default:
		return nil, fmt.Errorf("%w: pcm encoder cannot handle %v", audio.ErrUnsupportedFormat, format.PCM)
	}

	return &PCMEncoder{format: format.PCM}, nil
}

// SampleWidth returns the bytes per sample
func (e *PCMEncoder) SampleWidth() int {
	return e.format.Width()
}

// Encode converts int32 samples to PCM bytes
func (e *PCMEncoder) Encode(dst []byte, src []int32) (int, error) {
	width := e.format.Width()
	if len(dst) < len(src)*width {
		return 0, fmt.Errorf("encode: destination holds %d bytes, need %d", len(dst), len(src)*width)
	}

	switch e.format {
	case audio.SampleFormatS16LE:
		for i, sample := range src {
			binary.LittleEndian.PutUint16(dst[i*2:], uint16(audio.SampleToInt16(clamp24(sample))))
		}
	case audio.SampleFormatS24LE:
		for i, sample := range src {
			b := audio.SampleTo24Bit(clamp24(sample))
			dst[i*3] = b[0]
			dst[i*3+1] = b[1]
			dst[i*3+2] = b[2]
		}
	case audio.SampleFormatS24_32LE:
		for i, sample := range src {
			binary.LittleEndian.PutUint32(dst[i*4:], uint32(clamp24(sample)))
		}
	case audio.SampleFormatS32LE:
		for i, sample := range src {
			binary.LittleEndian.PutUint32(dst[i*4:], uint32(audio.SampleToInt32(clamp24(sample))))
		}
	case audio.SampleFormatF32LE:
		for i, sample := range src {
			binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(audio.SampleToFloat32(sample)))
		}
	}

	return len(src) * width, nil
}

func clamp24(sample int32) int32 {
	return min(max(sample, audio.Min24Bit), audio.Max24Bit)
}
