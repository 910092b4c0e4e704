// ABOUTME: DSD grouping formats and bit-stream preserving reinterleaving
// ABOUTME: Converts DSD words between 1, 2 and 4 byte groupings and endiannesses
package audio

import "fmt"

// DSDFormat is the word grouping of a DSD stream
type DSDFormat int

const (
	DSDFormatUnknown DSDFormat = iota
	DSDFormatU8
	DSDFormatU16LE
	DSDFormatU16BE
	DSDFormatU32LE
	DSDFormatU32BE
)

var dsdFormatNames = map[DSDFormat]string{
	DSDFormatU8:    "DSDU8",
	DSDFormatU16LE: "DSDU16LE",
	DSDFormatU16BE: "DSDU16BE",
	DSDFormatU32LE: "DSDU32LE",
	DSDFormatU32BE: "DSDU32BE",
}

func (f DSDFormat) String() string {
	if name, ok := dsdFormatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("DSDFormat(%d)", int(f))
}

// ParseDSDFormat maps a name such as "DSDU32BE" to its DSDFormat
func ParseDSDFormat(name string) (DSDFormat, error) {
	for f, n := range dsdFormatNames {
		if n == name {
			return f, nil
		}
	}
	return DSDFormatUnknown, fmt.Errorf("%w: dsd format %q", ErrUnsupportedFormat, name)
}

// Width returns the number of bytes in one DSD word
func (f DSDFormat) Width() int {
	switch f {
	case DSDFormatU8:
		return 1
	case DSDFormatU16LE, DSDFormatU16BE:
		return 2
	case DSDFormatU32LE, DSDFormatU32BE:
		return 4
	case DSDFormatUnknown:
		return 0
	}
	return 0
}

// bigEndian reports whether the first byte in time is stored first in the word
func (f DSDFormat) bigEndian() bool {
	switch f {
	case DSDFormatU8, DSDFormatU16BE, DSDFormatU32BE:
		return true
	case DSDFormatU16LE, DSDFormatU32LE, DSDFormatUnknown:
		return false
	}
	return false
}

// ConvertDSD reinterleaves numOutputBytes bytes of src (in layout in) into
// dst (in layout out). Bits within a byte are never reordered; only the
// position of each byte within the interleaved word stream changes.
//
// numOutputBytes must be a multiple of both word widths times channels.
func ConvertDSD(dst, src []byte, in, out DSDFormat, numOutputBytes, channels int) {
	if in == out {
		copy(dst[:numOutputBytes], src[:numOutputBytes])
		return
	}

	inWidth := in.Width()
	outWidth := out.Width()
	if inWidth == 0 || outWidth == 0 || channels <= 0 {
		panic("audio: invalid DSD conversion parameters")
	}
	inBE := in.bigEndian()
	outBE := out.bigEndian()

	for o := 0; o < numOutputBytes; o++ {
		word := o / outWidth
		byteInWord := o % outWidth
		channel := word % channels
		channelWord := word / channels

		// Position of this byte in the channel's own byte stream
		logical := byteInWord
		if !outBE {
			logical = outWidth - 1 - byteInWord
		}
		pos := channelWord*outWidth + logical

		inWord := pos / inWidth
		inByte := pos % inWidth
		if !inBE {
			inByte = inWidth - 1 - inByte
		}

		dst[o] = src[(inWord*channels+channel)*inWidth+inByte]
	}
}
