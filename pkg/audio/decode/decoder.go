// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for raw sample decoders
package decode

// Decoder converts raw interleaved bytes to int32 samples in 24-bit range
type Decoder interface {
	// Decode fills dst from src and returns the number of samples written.
	// It never allocates.
	Decode(dst []int32, src []byte) (int, error)

	// SampleWidth returns the number of bytes per encoded sample
	SampleWidth() int
}
