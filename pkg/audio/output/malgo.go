// ABOUTME: Malgo-based audio output implementation with 24-bit support
// ABOUTME: Uses miniaudio via malgo; the device data callback drives the Producer
package output

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/Resonate-Protocol/pwsink/pkg/audio"
	clock "github.com/Resonate-Protocol/pwsink/pkg/sync"
	"github.com/gen2brain/malgo"
)

const malgoRegistryName = "malgo"

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	registry *Registry
	logger   *slog.Logger

	mu       sync.Mutex
	handle   *Handle
	device   *malgo.Device
	format   audio.Format
	stride   int
	producer Producer
	rendered int
}

// malgoContext adapts a miniaudio context to io.Closer for the registry
type malgoContext struct {
	*malgo.AllocatedContext
}

func (c malgoContext) Close() error {
	err := c.Uninit()
	c.Free()
	return err
}

// NewMalgo creates a new Malgo output sharing its miniaudio context through
// registry. A nil registry gives the output a private one.
func NewMalgo(registry *Registry, logger *slog.Logger) Output {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = NewRegistry(logger)
	}
	return &Malgo{
		registry: registry,
		logger:   logger.With("output", "malgo"),
	}
}

// Open initializes and starts the playback device
func (m *Malgo) Open(format audio.Format, quantum int, p Producer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		return fmt.Errorf("malgo output already open with %v", m.format)
	}

	malgoFormat, err := malgoFormatFor(format)
	if err != nil {
		return err
	}

	handle, err := m.registry.Acquire(malgoRegistryName, func() (io.Closer, error) {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return nil, err
		}
		return malgoContext{ctx}, nil
	})
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	ctx := handle.Conn.(malgoContext)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgoFormat
	deviceConfig.Playback.Channels = uint32(format.Channels)
	deviceConfig.SampleRate = uint32(format.Rate)
	deviceConfig.PeriodSizeInFrames = uint32(quantum)
	deviceConfig.Alsa.NoMMap = 1

	m.format = format
	m.stride = format.Stride()
	m.producer = p
	m.rendered = 0

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSamples []byte, frameCount uint32) {
			m.dataCallback(pOutputSample, int(frameCount))
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		handle.Release()
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		handle.Release()
		return fmt.Errorf("failed to start device: %w", err)
	}

	m.device = device
	m.handle = handle

	m.logger.Info("audio output initialized", "format", format, "quantum", quantum, "context", handle.ID)
	return nil
}

// dataCallback is called by malgo on the real-time thread
func (m *Malgo) dataCallback(pOutput []byte, frameCount int) {
	cycle := Cycle{
		SystemTime: clock.MonotonicNow(),
		DriverTime: m.format.FramesToDuration(m.rendered),
	}
	m.producer.Process(pOutput[:frameCount*m.stride], cycle)
	m.rendered += frameCount
}

// Close stops the device and releases the shared context
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return nil
	}

	if err := m.device.Stop(); err != nil {
		m.logger.Warn("device stop error", "error", err)
	}
	m.device.Uninit()
	m.device = nil

	err := m.handle.Release()
	m.handle = nil
	return err
}

// malgoFormatFor maps a PCM sample format to its miniaudio equivalent
func malgoFormatFor(format audio.Format) (malgo.FormatType, error) {
	if format.Type != audio.TypePCM {
		return malgo.FormatUnknown, fmt.Errorf("%w: malgo cannot play %v", audio.ErrUnsupportedFormat, format.Type)
	}

	switch format.PCM {
	case audio.SampleFormatU8:
		return malgo.FormatU8, nil
	case audio.SampleFormatS16LE:
		return malgo.FormatS16, nil
	case audio.SampleFormatS24LE:
		return malgo.FormatS24, nil
	case audio.SampleFormatS32LE:
		return malgo.FormatS32, nil
	case audio.SampleFormatF32LE:
		return malgo.FormatF32, nil
	}
	return malgo.FormatUnknown, fmt.Errorf("%w: malgo cannot play %v", audio.ErrUnsupportedFormat, format.PCM)
}
