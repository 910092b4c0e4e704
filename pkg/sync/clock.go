// ABOUTME: Driver clock reconstruction from sparse observations
// ABOUTME: Piecewise-linear extrapolation that never runs backwards
package sync

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Resonate-Protocol/pwsink/internal/clockmath"
)

// processStart anchors the default system clock
var processStart = time.Now()

// MonotonicNow returns the time since process start on the monotonic clock
func MonotonicNow() time.Duration {
	return time.Since(processStart)
}

// StreamClock reconstructs a driver clock from (system time, driver time)
// observation pairs. Between observations it extrapolates at the rate
// measured from the last two pairs. A frozen clock returns the last value it
// produced.
type StreamClock struct {
	mu     sync.Mutex
	now    func() time.Duration
	logger *slog.Logger

	rateNum   int64 // driver time delta
	rateDenom int64 // system time delta

	driverOffset     time.Duration
	systemOffset     time.Duration
	baseDriverOffset time.Duration // carries the frozen value over into the next run

	extrapolating bool
	last          time.Duration

	hasPrev    bool
	prevSystem time.Duration
	prevDriver time.Duration
}

// ClockOption configures a StreamClock
type ClockOption func(*StreamClock)

// WithSystemClock replaces the monotonic system clock, mainly for tests
func WithSystemClock(now func() time.Duration) ClockOption {
	return func(c *StreamClock) {
		c.now = now
	}
}

// WithClockLogger logs freeze and resume transitions
func WithClockLogger(logger *slog.Logger) ClockOption {
	return func(c *StreamClock) {
		c.logger = logger
	}
}

// NewStreamClock creates a frozen clock at time zero with a 1:1 rate
func NewStreamClock(opts ...ClockOption) *StreamClock {
	c := &StreamClock{
		now:       MonotonicNow,
		logger:    slog.Default(),
		rateNum:   1,
		rateDenom: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddObservation records that the driver clock read driverTime at
// systemTime. Invalid driver times and system times that do not advance
// are ignored. A driver time that does not advance re-anchors the clock
// but keeps the previously measured rate.
func (c *StreamClock) AddObservation(systemTime, driverTime time.Duration) {
	if driverTime < 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hasPrev && systemTime <= c.prevSystem {
		return
	}

	if !c.extrapolating {
		c.baseDriverOffset = c.last - driverTime
		c.extrapolating = true
		c.logger.Debug("stream clock resumed", "at", c.last, "base_offset", c.baseDriverOffset)
	}

	if c.hasPrev {
		if driverDelta := driverTime - c.prevDriver; driverDelta > 0 {
			c.rateNum = int64(driverDelta)
			c.rateDenom = int64(systemTime - c.prevSystem)
		}
	}

	c.driverOffset = driverTime + c.baseDriverOffset
	c.systemOffset = systemTime

	c.hasPrev = true
	c.prevSystem = systemTime
	c.prevDriver = driverTime
}

// Freeze stops extrapolation until the next observation. The measured rate
// is kept.
func (c *StreamClock) Freeze() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.extrapolating {
		c.logger.Debug("stream clock frozen", "at", c.last)
	}
	c.extrapolating = false
	c.hasPrev = false
}

// InternalTime returns the reconstructed driver time. It never decreases.
func (c *StreamClock) InternalTime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.extrapolating {
		return c.last
	}

	elapsed := int64(c.now() - c.systemOffset)
	t := time.Duration(clockmath.ScaleSigned(elapsed, uint64(c.rateNum), uint64(c.rateDenom), true)) + c.driverOffset
	if t > c.last {
		c.last = t
	}
	return c.last
}

// Rate returns the measured driver rate as driver delta over system delta
func (c *StreamClock) Rate() (num, denom int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rateNum, c.rateDenom
}

// Extrapolating reports whether the clock is running
func (c *StreamClock) Extrapolating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.extrapolating
}
