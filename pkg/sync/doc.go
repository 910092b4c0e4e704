// ABOUTME: Clock reconstruction and drift control package
// ABOUTME: Provides the stream clock and PI controller used by the sink
// Package sync provides the timing primitives that keep playback aligned to
// a presentation clock.
//
// StreamClock rebuilds a monotonic driver clock from periodic observations.
// PIController turns measured drift into a smoothed rate correction.
//
// Example:
//
//	clock := sync.NewStreamClock()
//	clock.AddObservation(sysNow, driverNow)
//	driverTime := clock.InternalTime()
package sync
