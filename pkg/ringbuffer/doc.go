// ABOUTME: Package documentation for the timestamped audio ring buffer
// ABOUTME: Describes the retrieval windows and their results
// Package ringbuffer provides a fixed-capacity circular buffer of raw audio
// frames tagged with presentation timestamps.
//
// Each Retrieve compares the retrieval window [pts, pts+duration(n)) with the
// buffered window [oldest+shift, oldest+shift+fill). Data that is not yet due
// produces silence. Data that has fully expired is flushed. Partial overlaps
// beyond the skew threshold are corrected by inserting silence or dropping
// frames, and smaller errors are reported as drift.
package ringbuffer
