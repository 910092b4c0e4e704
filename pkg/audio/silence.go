// ABOUTME: Format-specific silence patterns
// ABOUTME: Fills buffers with the value that plays back as silence
package audio

// dsdSilence is an idle DSD pattern with an equal count of ones and zeros
const dsdSilence = 0x69

// WriteSilence fills dst with the silence pattern of the format
func (f Format) WriteSilence(dst []byte) {
	var pattern byte
	switch f.Type {
	case TypePCM:
		if f.PCM == SampleFormatU8 {
			pattern = 0x80
		}
	case TypeDSD:
		pattern = dsdSilence
	default:
		panic("audio: silence for invalid format")
	}

	for i := range dst {
		dst[i] = pattern
	}
}
