// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for raw sample encoders
package encode

// Encoder converts int32 samples in 24-bit range to raw interleaved bytes
type Encoder interface {
	// Encode fills dst from src and returns the number of bytes written.
	// It never allocates.
	Encode(dst []byte, src []int32) (int, error)

	// SampleWidth returns the number of bytes per encoded sample
	SampleWidth() int
}
