//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform callback stream driving the Producer
package output

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/Resonate-Protocol/pwsink/pkg/audio"
	clock "github.com/Resonate-Protocol/pwsink/pkg/sync"
	"github.com/gordonklaus/portaudio"
)

const portAudioRegistryName = "portaudio"

// PortAudio output implementation
type PortAudio struct {
	registry *Registry
	logger   *slog.Logger

	mu      sync.Mutex
	handle  *Handle
	stream  *portaudio.Stream
	format  audio.Format
	scratch []byte
}

type portAudioLibrary struct{}

func (portAudioLibrary) Close() error {
	return portaudio.Terminate()
}

// NewPortAudio creates a new PortAudio output
func NewPortAudio(registry *Registry, logger *slog.Logger) Output {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = NewRegistry(logger)
	}
	return &PortAudio{registry: registry, logger: logger.With("output", "portaudio")}
}

// Open initializes PortAudio and starts a callback stream
func (p *PortAudio) Open(format audio.Format, quantum int, producer Producer) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream != nil {
		return fmt.Errorf("portaudio output already open")
	}
	if format.Type != audio.TypePCM {
		return fmt.Errorf("%w: portaudio cannot play %v", audio.ErrUnsupportedFormat, format.Type)
	}

	handle, err := p.registry.Acquire(portAudioRegistryName, func() (io.Closer, error) {
		if err := portaudio.Initialize(); err != nil {
			return nil, err
		}
		return portAudioLibrary{}, nil
	})
	if err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	p.format = format
	p.scratch = make([]byte, quantum*format.Stride())

	var callback any
	switch format.PCM {
	case audio.SampleFormatS16LE:
		callback = func(out []int16, info portaudio.StreamCallbackTimeInfo) {
			buf := p.fill(producer, len(out), info)
			for i := range out {
				out[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
			}
		}
	case audio.SampleFormatS32LE:
		callback = func(out []int32, info portaudio.StreamCallbackTimeInfo) {
			buf := p.fill(producer, len(out), info)
			for i := range out {
				out[i] = int32(binary.LittleEndian.Uint32(buf[i*4:]))
			}
		}
	case audio.SampleFormatF32LE:
		callback = func(out []float32, info portaudio.StreamCallbackTimeInfo) {
			buf := p.fill(producer, len(out), info)
			for i := range out {
				out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
			}
		}
	default:
		handle.Release()
		return fmt.Errorf("%w: portaudio cannot play %v", audio.ErrUnsupportedFormat, format.PCM)
	}

	stream, err := portaudio.OpenDefaultStream(0, format.Channels, float64(format.Rate), quantum, callback)
	if err != nil {
		handle.Release()
		return fmt.Errorf("failed to open stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		handle.Release()
		return fmt.Errorf("failed to start stream: %w", err)
	}

	p.stream = stream
	p.handle = handle
	p.logger.Info("audio output initialized", "format", format, "quantum", quantum)
	return nil
}

// fill asks the producer for one period in the scratch buffer
func (p *PortAudio) fill(producer Producer, samples int, info portaudio.StreamCallbackTimeInfo) []byte {
	frames := samples / p.format.Channels
	buf := p.scratch[:frames*p.format.Stride()]
	producer.Process(buf, Cycle{
		SystemTime: clock.MonotonicNow(),
		DriverTime: info.OutputBufferDacTime,
	})
	return buf
}

// Close stops the stream and releases the library reference
func (p *PortAudio) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return nil
	}

	if err := p.stream.Stop(); err != nil {
		p.logger.Warn("stream stop error", "error", err)
	}
	if err := p.stream.Close(); err != nil {
		p.logger.Warn("stream close error", "error", err)
	}
	p.stream = nil

	err := p.handle.Release()
	p.handle = nil
	return err
}
