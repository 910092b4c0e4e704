// ABOUTME: Time-synchronized audio sink package
// ABOUTME: Joins the ring buffer, stream clock and drift control into one component
// Package sink renders timestamped audio on an output device's clock.
//
// A producer goroutine calls Write with raw frames and their presentation
// timestamp. The output device calls Process once per period. Each period
// feeds the stream clock, retrieves the frames due at the pipeline clock plus
// latency, and turns the measured drift into a resampling rate through a PI
// controller.
//
// Example:
//
//	s, err := sink.New(sink.DefaultConfig(format))
//	out := output.NewMalgo(registry, logger)
//	err = out.Open(s.DeviceFormat(), 1024, s)
//	err = s.Write(ctx, pcm, pts)
package sink
