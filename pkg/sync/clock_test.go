// ABOUTME: Tests for stream clock reconstruction
// ABOUTME: Covers extrapolation, freezing, resume continuity and monotonicity
package sync

import (
	"math/rand/v2"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Duration
}

func (f *fakeClock) Now() time.Duration {
	return f.now
}

func newTestClock() (*StreamClock, *fakeClock) {
	fc := &fakeClock{}
	return NewStreamClock(WithSystemClock(fc.Now)), fc
}

func TestStreamClockInitialState(t *testing.T) {
	c, fc := newTestClock()
	fc.now = 5 * time.Second

	if got := c.InternalTime(); got != 0 {
		t.Errorf("expected frozen clock at 0, got %v", got)
	}
	if c.Extrapolating() {
		t.Error("expected new clock to be frozen")
	}
	if num, denom := c.Rate(); num != 1 || denom != 1 {
		t.Errorf("expected rate 1/1, got %d/%d", num, denom)
	}
}

func TestStreamClockExtrapolation(t *testing.T) {
	c, fc := newTestClock()

	c.AddObservation(1*time.Second, 5*time.Second)

	tests := []struct {
		name     string
		now      time.Duration
		expected time.Duration
	}{
		{"at observation", 1 * time.Second, 0},
		{"half a second later", 1500 * time.Millisecond, 500 * time.Millisecond},
		{"one second later", 2 * time.Second, 1 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc.now = tt.now
			if got := c.InternalTime(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestStreamClockMeasuresRate(t *testing.T) {
	c, fc := newTestClock()

	c.AddObservation(1*time.Second, 5*time.Second)
	c.AddObservation(2*time.Second, 7*time.Second)

	if num, denom := c.Rate(); num != int64(2*time.Second) || denom != int64(time.Second) {
		t.Errorf("expected rate 2s/1s, got %d/%d", num, denom)
	}

	fc.now = 2500 * time.Millisecond
	if got := c.InternalTime(); got != 3*time.Second {
		t.Errorf("expected 3s, got %v", got)
	}
}

func TestStreamClockStalledDriverKeepsRate(t *testing.T) {
	c, fc := newTestClock()

	c.AddObservation(1*time.Second, 5*time.Second)
	c.AddObservation(2*time.Second, 7*time.Second)
	c.AddObservation(3*time.Second, 7*time.Second)

	if num, denom := c.Rate(); num != int64(2*time.Second) || denom != int64(time.Second) {
		t.Errorf("expected rate 2s/1s to survive a stalled driver, got %d/%d", num, denom)
	}

	tests := []struct {
		name     string
		now      time.Duration
		expected time.Duration
	}{
		{"at the stalled observation", 3 * time.Second, 2 * time.Second},
		{"half a second later", 3500 * time.Millisecond, 3 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc.now = tt.now
			if got := c.InternalTime(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestStreamClockIgnoresBadObservations(t *testing.T) {
	c, fc := newTestClock()

	c.AddObservation(time.Second, -1)
	if c.Extrapolating() {
		t.Error("expected invalid driver time to be ignored")
	}

	c.AddObservation(2*time.Second, 10*time.Second)
	c.AddObservation(2*time.Second, 20*time.Second)
	c.AddObservation(1*time.Second, 20*time.Second)

	if num, denom := c.Rate(); num != 1 || denom != 1 {
		t.Errorf("expected rate unchanged at 1/1, got %d/%d", num, denom)
	}

	// A driver clock that stands still does not change the rate
	c.AddObservation(3*time.Second, 10*time.Second)
	if num, denom := c.Rate(); num != 1 || denom != 1 {
		t.Errorf("expected rate unchanged at 1/1, got %d/%d", num, denom)
	}

	fc.now = 3 * time.Second
	if got := c.InternalTime(); got != 0 {
		t.Errorf("expected 0 at the newest observation, got %v", got)
	}
}

func TestStreamClockResumeContinuity(t *testing.T) {
	c, fc := newTestClock()

	c.AddObservation(1*time.Second, 100*time.Second)
	c.AddObservation(2*time.Second, 101*time.Second)
	fc.now = 2700 * time.Millisecond
	before := c.InternalTime()

	c.Freeze()
	if c.Extrapolating() {
		t.Error("expected clock to be frozen")
	}

	fc.now = 10 * time.Second
	if got := c.InternalTime(); got != before {
		t.Errorf("expected frozen clock to hold %v, got %v", before, got)
	}

	c.AddObservation(10*time.Second, 500*time.Second)
	if got := c.InternalTime(); got != before {
		t.Errorf("expected resume at %v, got %v", before, got)
	}
}

func TestStreamClockFreezeKeepsRate(t *testing.T) {
	c, fc := newTestClock()

	c.AddObservation(1*time.Second, 0)
	c.AddObservation(2*time.Second, 2*time.Second)
	c.Freeze()

	fc.now = 5 * time.Second
	c.AddObservation(5*time.Second, 40*time.Second)
	start := c.InternalTime()

	fc.now = 6 * time.Second
	if got := c.InternalTime() - start; got != 2*time.Second {
		t.Errorf("expected 2s of driver time per system second, got %v", got)
	}
}

func TestStreamClockNeverDecreases(t *testing.T) {
	c, fc := newTestClock()
	rng := rand.New(rand.NewPCG(3, 5))
	var last time.Duration

	for i := 0; i < 10000; i++ {
		fc.now += time.Duration(rng.IntN(5000)) * time.Microsecond

		switch rng.IntN(10) {
		case 0:
			c.Freeze()
		case 1, 2, 3:
			// Driver time jitters around the system time, sometimes backwards
			jitter := time.Duration(rng.IntN(20000)-10000) * time.Microsecond
			c.AddObservation(fc.now, max(fc.now+jitter, 0))
		}

		got := c.InternalTime()
		if got < last {
			t.Fatalf("step %d: clock went back from %v to %v", i, last, got)
		}
		last = got
	}
}

func TestMonotonicNowAdvances(t *testing.T) {
	a := MonotonicNow()
	b := MonotonicNow()
	if b < a {
		t.Errorf("expected %v >= %v", b, a)
	}
}
