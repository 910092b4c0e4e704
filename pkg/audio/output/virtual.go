// ABOUTME: Software output device driven by a ticker
// ABOUTME: Renders periods on a timer and writes them to an io.Writer
package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Resonate-Protocol/pwsink/pkg/audio"
	clock "github.com/Resonate-Protocol/pwsink/pkg/sync"
)

// Virtual is a headless output. It plays any format, including DSD, and
// forwards rendered periods to a writer.
type Virtual struct {
	writer io.Writer
	logger *slog.Logger
	manual bool
	now    func() time.Duration

	mu       sync.Mutex
	format   audio.Format
	producer Producer
	buf      []byte
	rendered int
	cancel   context.CancelFunc
	done     chan struct{}
	err      error
}

// VirtualOption configures a Virtual output
type VirtualOption func(*Virtual)

// WithManualTicks disables the internal ticker. Periods are rendered only by
// calling Tick.
func WithManualTicks() VirtualOption {
	return func(v *Virtual) {
		v.manual = true
	}
}

// WithVirtualClock replaces the system clock reported in cycles
func WithVirtualClock(now func() time.Duration) VirtualOption {
	return func(v *Virtual) {
		v.now = now
	}
}

// NewVirtual creates a virtual output writing to w. A nil writer discards.
func NewVirtual(w io.Writer, logger *slog.Logger, opts ...VirtualOption) *Virtual {
	if w == nil {
		w = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	v := &Virtual{
		writer: w,
		logger: logger.With("output", "virtual"),
		now:    clock.MonotonicNow,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Open starts rendering periods of quantum frames
func (v *Virtual) Open(format audio.Format, quantum int, p Producer) error {
	if err := format.Validate(); err != nil {
		return err
	}
	if quantum <= 0 {
		return fmt.Errorf("virtual output: quantum must be positive, got %d", quantum)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.producer != nil {
		return fmt.Errorf("virtual output already open")
	}

	v.format = format
	v.producer = p
	v.buf = make([]byte, quantum*format.Stride())
	v.rendered = 0
	v.err = nil

	if !v.manual {
		ctx, cancel := context.WithCancel(context.Background())
		v.cancel = cancel
		v.done = make(chan struct{})
		go v.run(ctx, format.FramesToDuration(quantum))
	}

	v.logger.Info("audio output initialized", "format", format, "quantum", quantum)
	return nil
}

// run renders one period per tick until cancelled
func (v *Virtual) run(ctx context.Context, period time.Duration) {
	defer close(v.done)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := v.Tick(); err != nil {
				v.logger.Error("virtual output stopped", "error", err)
				return
			}
		}
	}
}

// Tick renders one period and writes it out
func (v *Virtual) Tick() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.producer == nil {
		return ErrClosed
	}
	if v.err != nil {
		return v.err
	}

	cycle := Cycle{
		SystemTime: v.now(),
		DriverTime: v.format.FramesToDuration(v.rendered),
	}
	v.producer.Process(v.buf, cycle)
	v.rendered += len(v.buf) / v.format.Stride()

	if _, err := v.writer.Write(v.buf); err != nil {
		v.err = fmt.Errorf("virtual output write failed: %w", err)
		return v.err
	}
	return nil
}

// Rendered returns the number of frames produced so far
func (v *Virtual) Rendered() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rendered
}

// Close stops the ticker
func (v *Virtual) Close() error {
	v.mu.Lock()
	cancel, done := v.cancel, v.done
	v.cancel, v.done = nil, nil
	v.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	v.mu.Lock()
	v.producer = nil
	v.mu.Unlock()
	return nil
}
