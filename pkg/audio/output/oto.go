// ABOUTME: Oto-based audio output implementation
// ABOUTME: Oto pulls from an io.Reader that asks the Producer for each period
package output

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/pwsink/pkg/audio"
	clock "github.com/Resonate-Protocol/pwsink/pkg/sync"
	"github.com/ebitengine/oto/v3"
)

// oto allows one context per process
var (
	otoMu      sync.Mutex
	otoContext *oto.Context
	otoOptions oto.NewContextOptions
)

// Oto output implementation using oto library
type Oto struct {
	logger *slog.Logger

	mu     sync.Mutex
	player *oto.Player
	reader *producerReader
}

// NewOto creates a new Oto output
func NewOto(logger *slog.Logger) Output {
	if logger == nil {
		logger = slog.Default()
	}
	return &Oto{logger: logger.With("output", "oto")}
}

// Open initializes the output device
func (o *Oto) Open(format audio.Format, quantum int, p Producer) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		return fmt.Errorf("oto output already open")
	}

	otoFormat, err := otoFormatFor(format)
	if err != nil {
		return err
	}

	op := oto.NewContextOptions{
		SampleRate:   format.Rate,
		ChannelCount: format.Channels,
		Format:       otoFormat,
		BufferSize:   format.FramesToDuration(quantum),
	}

	ctx, err := sharedOtoContext(op)
	if err != nil {
		return err
	}

	o.reader = &producerReader{format: format, stride: format.Stride(), producer: p}
	o.player = ctx.NewPlayer(o.reader)
	o.player.Play()

	o.logger.Info("audio output initialized", "format", format, "quantum", quantum)
	return nil
}

// sharedOtoContext returns the process-wide oto context, creating it on first
// use. A later request for a different format fails since oto cannot
// reinitialize.
func sharedOtoContext(op oto.NewContextOptions) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoContext != nil {
		if otoOptions.SampleRate != op.SampleRate || otoOptions.ChannelCount != op.ChannelCount || otoOptions.Format != op.Format {
			return nil, fmt.Errorf("oto context already running at %dHz %dch, cannot switch to %dHz %dch",
				otoOptions.SampleRate, otoOptions.ChannelCount, op.SampleRate, op.ChannelCount)
		}
		if err := otoContext.Resume(); err != nil {
			return nil, fmt.Errorf("failed to resume oto context: %w", err)
		}
		return otoContext, nil
	}

	ctx, readyChan, err := oto.NewContext(&op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	otoContext = ctx
	otoOptions = op
	return ctx, nil
}

// Close releases output resources
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return nil
	}

	o.reader.closed.Store(true)
	err := o.player.Close()
	o.player = nil

	otoMu.Lock()
	if otoContext != nil {
		if serr := otoContext.Suspend(); serr != nil {
			o.logger.Warn("oto suspend error", "error", serr)
		}
	}
	otoMu.Unlock()

	return err
}

// producerReader turns oto's pull requests into Producer cycles
type producerReader struct {
	format   audio.Format
	stride   int
	producer Producer
	rendered int
	closed   atomic.Bool
}

func (r *producerReader) Read(p []byte) (int, error) {
	if r.closed.Load() {
		return 0, io.EOF
	}

	frames := len(p) / r.stride
	n := frames * r.stride
	if n == 0 {
		return 0, nil
	}

	cycle := Cycle{
		SystemTime: clock.MonotonicNow(),
		DriverTime: r.format.FramesToDuration(r.rendered),
	}
	r.producer.Process(p[:n], cycle)
	r.rendered += frames
	return n, nil
}

// otoFormatFor maps a PCM sample format to an oto format
func otoFormatFor(format audio.Format) (oto.Format, error) {
	if format.Type == audio.TypePCM {
		switch format.PCM {
		case audio.SampleFormatU8:
			return oto.FormatUnsignedInt8, nil
		case audio.SampleFormatS16LE:
			return oto.FormatSignedInt16LE, nil
		case audio.SampleFormatF32LE:
			return oto.FormatFloat32LE, nil
		}
	}
	return 0, fmt.Errorf("%w: oto cannot play %v", audio.ErrUnsupportedFormat, format)
}
