// ABOUTME: Timestamp-aware circular buffer of raw audio frames
// ABOUTME: Reconciles buffered data against the playback window on every retrieval
package ringbuffer

import (
	"fmt"
	"time"

	"github.com/Resonate-Protocol/pwsink/pkg/audio"
)

// Result describes what a retrieval produced
type Result int

const (
	// ResultOK means dst was filled with real data, possibly padded with silence
	ResultOK Result = iota
	// ResultEmpty means nothing is buffered; dst is left untouched
	ResultEmpty
	// ResultDataFullyInTheFuture means buffered data is not due yet; dst is silence
	ResultDataFullyInTheFuture
	// ResultDataFullyInThePast means buffered data expired and was flushed; dst is silence
	ResultDataFullyInThePast
	// ResultAllDataClipped means skew correction left nothing to copy; dst is silence
	ResultAllDataClipped
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultEmpty:
		return "empty"
	case ResultDataFullyInTheFuture:
		return "data fully in the future"
	case ResultDataFullyInThePast:
		return "data fully in the past"
	case ResultAllDataClipped:
		return "all data clipped"
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

const historySize = 3

// Buffer stores frames of one format in a preallocated ring and tracks the
// presentation timestamp of the oldest frame.
//
// Buffer is not safe for concurrent use. The owner serializes all calls.
type Buffer struct {
	format audio.Format
	stride int
	data   []byte

	metrics   Metrics
	fillLevel time.Duration

	// oldest frame PTS is anchor + duration(consumed), kept as a frame count
	// so repeated retrievals do not accumulate rounding error
	anchor   time.Duration
	consumed int

	history    [historySize]time.Duration
	historyLen int

	dropped uint64
}

// New allocates a buffer holding capacity frames of format
func New(format audio.Format, capacity int) *Buffer {
	if err := format.Validate(); err != nil {
		panic(fmt.Sprintf("ringbuffer: %v", err))
	}

	b := &Buffer{
		format: format,
		stride: format.Stride(),
		anchor: audio.NoTimestamp,
	}
	b.metrics.Init(capacity)
	b.data = make([]byte, capacity*b.stride)
	return b
}

// Format returns the format of the buffered frames
func (b *Buffer) Format() audio.Format {
	return b.format
}

// Capacity returns the buffer size in frames
func (b *Buffer) Capacity() int {
	return b.metrics.Capacity
}

// Buffered returns the number of frames currently stored
func (b *Buffer) Buffered() int {
	return b.metrics.Buffered
}

// Free returns the number of frames that can still be pushed
func (b *Buffer) Free() int {
	return b.metrics.Free()
}

// FillLevel returns the duration of the buffered frames
func (b *Buffer) FillLevel() time.Duration {
	return b.fillLevel
}

// OldestFramePTS returns the timestamp of the next frame to be read, or
// audio.NoTimestamp if the buffer is not anchored
func (b *Buffer) OldestFramePTS() time.Duration {
	if !audio.ValidTimestamp(b.anchor) {
		return audio.NoTimestamp
	}
	return b.anchor + b.format.FramesToDuration(b.consumed)
}

// Dropped returns the number of frames Retrieve discarded because they
// expired or ran ahead of the skew threshold. Flush does not count.
func (b *Buffer) Dropped() uint64 {
	return b.dropped
}

// Flush drops all frames and invalidates the timestamp anchor
func (b *Buffer) Flush() {
	b.metrics.Reset()
	b.fillLevel = 0
	b.anchor = audio.NoTimestamp
	b.consumed = 0
	b.historyLen = 0
}

// Push writes up to *silencePrepend frames of silence followed by as many of
// the numFrames frames as fit. *silencePrepend is updated to the silence
// still owed. A pending silence request is dropped if the buffer is empty.
// Push returns the number of real frames written.
//
// The first push onto an empty, unanchored buffer with a valid pts sets the
// timestamp of the oldest frame.
func (b *Buffer) Push(frames []byte, numFrames int, silencePrepend *int, pts time.Duration) int {
	if len(frames) < numFrames*b.stride {
		panic("ringbuffer: push source shorter than frame count")
	}

	wasEmpty := b.metrics.Buffered == 0

	if silencePrepend != nil {
		if wasEmpty {
			*silencePrepend = 0
		}
		if *silencePrepend > 0 {
			n, offset, lengths := b.metrics.Write(*silencePrepend)
			b.format.WriteSilence(b.segment(offset, lengths[0]))
			b.format.WriteSilence(b.segment(0, lengths[1]))
			*silencePrepend -= n
		}
	}

	written, offset, lengths := b.metrics.Write(numFrames)
	n0 := copy(b.segment(offset, lengths[0]), frames)
	copy(b.segment(0, lengths[1]), frames[n0:])
	b.updateFillLevel()

	if written > 0 && wasEmpty && !audio.ValidTimestamp(b.anchor) && audio.ValidTimestamp(pts) {
		anchor := pts + b.format.FramesToDuration(written) - b.fillLevel
		if anchor > pts {
			anchor = pts
		}
		b.anchor = anchor
		b.consumed = 0
	}

	return written
}

// Retrieve fills dst with n frames due at retrievalPTS. ptsShift is added to
// the buffered timestamps before comparing windows. Timing errors beyond
// skewThreshold are corrected by inserting silence or dropping stale frames;
// smaller errors are returned as drift for the caller's rate control.
//
// The drift is retrievalPTS minus the start of the buffered window, median
// filtered over the last three retrievals.
func (b *Buffer) Retrieve(dst []byte, n int, retrievalPTS, ptsShift, skewThreshold time.Duration) (Result, time.Duration) {
	if len(dst) < n*b.stride {
		panic("ringbuffer: retrieve destination shorter than frame count")
	}
	dst = dst[:n*b.stride]

	if b.metrics.Buffered == 0 {
		return ResultEmpty, 0
	}

	oldest := b.OldestFramePTS()
	if !audio.ValidTimestamp(retrievalPTS) || !audio.ValidTimestamp(oldest) {
		copied := b.read(dst, n)
		b.format.WriteSilence(dst[copied*b.stride:])
		b.advance(copied)
		return ResultOK, 0
	}

	bufferedStart := oldest + ptsShift
	bufferedEnd := bufferedStart + b.fillLevel
	retrievalEnd := retrievalPTS + b.format.FramesToDuration(n)

	if bufferedStart > retrievalEnd {
		b.format.WriteSilence(dst)
		return ResultDataFullyInTheFuture, 0
	}

	if retrievalPTS >= bufferedEnd {
		b.format.WriteSilence(dst)
		b.dropped += uint64(b.metrics.Buffered)
		b.Flush()
		return ResultDataFullyInThePast, 0
	}

	median := b.addDelta(retrievalPTS - bufferedStart)

	var silenceFrames int
	var drift time.Duration
	switch {
	case median < -skewThreshold:
		silenceFrames = min(b.format.DurationToFrames(-median), n)
		b.historyLen = 0
	case median > skewThreshold:
		flushed := b.metrics.Flush(b.format.DurationToFrames(median))
		b.advance(flushed)
		b.dropped += uint64(flushed)
		b.historyLen = 0
	default:
		drift = median
	}

	retrievable := min(n-silenceFrames, b.metrics.Buffered)
	if retrievable <= 0 {
		b.format.WriteSilence(dst)
		return ResultAllDataClipped, drift
	}

	b.format.WriteSilence(dst[:silenceFrames*b.stride])
	copied := b.read(dst[silenceFrames*b.stride:], retrievable)
	b.format.WriteSilence(dst[(silenceFrames+copied)*b.stride:])
	b.advance(copied)

	return ResultOK, drift
}

// read copies up to n frames into dst and returns the count copied
func (b *Buffer) read(dst []byte, n int) int {
	amount, offset, lengths := b.metrics.Read(n)
	n0 := copy(dst, b.segment(offset, lengths[0]))
	copy(dst[n0:], b.segment(0, lengths[1]))
	return amount
}

// advance moves the oldest frame timestamp past n consumed frames
func (b *Buffer) advance(n int) {
	if audio.ValidTimestamp(b.anchor) {
		b.consumed += n
	}
	b.updateFillLevel()
}

func (b *Buffer) updateFillLevel() {
	b.fillLevel = b.format.FramesToDuration(b.metrics.Buffered)
}

func (b *Buffer) segment(offset, frames int) []byte {
	return b.data[offset*b.stride : (offset+frames)*b.stride]
}

// addDelta records a timing delta and returns the filtered value
func (b *Buffer) addDelta(delta time.Duration) time.Duration {
	if b.historyLen == historySize {
		copy(b.history[:], b.history[1:])
		b.historyLen--
	}
	b.history[b.historyLen] = delta
	b.historyLen++

	switch b.historyLen {
	case 1:
		return delta
	case 2:
		return (b.history[0] + b.history[1]) / 2
	}
	return median3(b.history[0], b.history[1], b.history[2])
}

func median3(a, b, c time.Duration) time.Duration {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b = c
	}
	if a > b {
		return a
	}
	return b
}
