// ABOUTME: Time-synchronized audio sink
// ABOUTME: Buffers timestamped audio and renders it on the device clock with drift correction
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/Resonate-Protocol/pwsink/pkg/audio"
	"github.com/Resonate-Protocol/pwsink/pkg/audio/decode"
	"github.com/Resonate-Protocol/pwsink/pkg/audio/encode"
	"github.com/Resonate-Protocol/pwsink/pkg/audio/output"
	"github.com/Resonate-Protocol/pwsink/pkg/audio/resample"
	"github.com/Resonate-Protocol/pwsink/pkg/ringbuffer"
	clock "github.com/Resonate-Protocol/pwsink/pkg/sync"
)

var (
	// ErrFlushing is returned by a Write interrupted by Flush
	ErrFlushing = errors.New("sink flushing")
	// ErrClosed is returned by Write after Close
	ErrClosed = errors.New("sink closed")
)

// Cycle is one device period as reported by an output
type Cycle = output.Cycle

// RateMatcher adjusts playback speed. A rate below 1 consumes input faster.
// Delay is how many input frames the output lags behind the input.
type RateMatcher interface {
	SetRate(rate float64)
	InputFramesNeeded(outputFrames int) int
	Process(input, output []int32) int
	Delay() int
	Reset()
}

// Sink connects a producer writing timestamped audio to an output device
// pulling periods from it. It implements output.Producer.
type Sink struct {
	cfg      Config
	logger   *slog.Logger
	clock    *clock.StreamClock
	pipeline func() time.Duration

	stride       int
	deviceFormat audio.Format
	deviceStride int

	mu             sync.Mutex
	cond           *sync.Cond
	buf            *ringbuffer.Buffer
	silencePending int
	flushGen       uint64
	paused         bool
	closed         bool

	// real-time state, guarded by mu
	pi         *clock.PIController
	matcher    RateMatcher
	decoder    decode.Decoder
	encoder    encode.Encoder
	scratch    []byte
	staged     []byte
	carry      []byte // converted DSD bytes owed to the next period
	inSamples  []int32
	outSamples []int32
	lastSystem time.Duration
	lastResult ringbuffer.Result

	stats Stats
}

// Stats is a snapshot of sink counters
type Stats struct {
	Buffered      int
	FillLevel     time.Duration
	OldestPTS     time.Duration
	LastResult    ringbuffer.Result
	Results       [5]uint64 // indexed by ringbuffer.Result
	Drift         time.Duration
	DriftPPM      float64
	Rate          float64
	Cycles        uint64
	PushedFrames  uint64
	DroppedFrames uint64
}

// Option configures a Sink
type Option func(*Sink)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) {
		s.logger = logger
	}
}

// WithStreamClock replaces the stream clock fed by device cycles
func WithStreamClock(c *clock.StreamClock) Option {
	return func(s *Sink) {
		s.clock = c
	}
}

// WithPipelineClock sets the clock that decides which PTS is due. By default
// the sink's own stream clock is used, which makes the device the master.
func WithPipelineClock(now func() time.Duration) Option {
	return func(s *Sink) {
		s.pipeline = now
	}
}

// WithRateMatcher replaces the resampler used for drift correction
func WithRateMatcher(m RateMatcher) Option {
	return func(s *Sink) {
		s.matcher = m
	}
}

// New creates a sink for cfg
func New(cfg Config, opts ...Option) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sink config: %w", err)
	}

	s := &Sink{
		cfg:          cfg,
		logger:       slog.Default(),
		stride:       cfg.Format.Stride(),
		deviceFormat: cfg.DeviceFormat(),
		pi:           clock.NewPIController(cfg.Kp, cfg.Ki),
		lastSystem:   audio.NoTimestamp,
		lastResult:   ringbuffer.ResultEmpty,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With("component", "sink")
	if s.clock == nil {
		s.clock = clock.NewStreamClock(clock.WithClockLogger(s.logger))
	}
	if s.pipeline == nil {
		s.pipeline = s.clock.InternalTime
	}

	s.deviceStride = s.deviceFormat.Stride()
	s.carry = make([]byte, 0, s.stride)
	s.cond = sync.NewCond(&s.mu)
	s.buf = ringbuffer.New(cfg.Format, cfg.Format.DurationToFrames(cfg.BufferSize))

	if !cfg.RateMatching {
		s.matcher = nil
	} else {
		var err error
		if s.decoder, err = decode.NewPCM(cfg.Format); err != nil {
			return nil, err
		}
		if s.encoder, err = encode.NewPCM(cfg.Format); err != nil {
			return nil, err
		}
		if s.matcher == nil {
			s.matcher = resample.New(cfg.Format.Rate, cfg.Format.Rate, cfg.Format.Channels)
		}
	}
	s.stats.Rate = 1
	s.grow(cfg.Quantum)

	s.logger.Info("sink created",
		"format", cfg.Format,
		"device_format", s.deviceFormat,
		"buffer_frames", s.buf.Capacity(),
		"rate_matching", cfg.RateMatching)
	return s, nil
}

// Format returns the format accepted by Write
func (s *Sink) Format() audio.Format {
	return s.cfg.Format
}

// DeviceFormat returns the format to open the output with
func (s *Sink) DeviceFormat() audio.Format {
	return s.deviceFormat
}

// Clock returns the stream clock reconstructed from device cycles
func (s *Sink) Clock() *clock.StreamClock {
	return s.clock
}

// Now returns the pipeline clock time
func (s *Sink) Now() time.Duration {
	return s.pipeline()
}

// Write buffers data whose first frame plays at pts, blocking while the
// buffer is full. It returns ErrFlushing if Flush runs meanwhile.
func (s *Sink) Write(ctx context.Context, data []byte, pts time.Duration) error {
	if len(data)%s.stride != 0 {
		return fmt.Errorf("write of %d bytes is not a whole number of %d byte frames", len(data), s.stride)
	}
	frames := len(data) / s.stride

	s.mu.Lock()
	defer s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer stop()

	gen := s.flushGen
	for frames > 0 {
		if s.closed {
			return ErrClosed
		}
		if gen != s.flushGen {
			return ErrFlushing
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		n := s.buf.Push(data, frames, &s.silencePending, pts)
		s.stats.PushedFrames += uint64(n)
		data = data[n*s.stride:]
		frames -= n
		if audio.ValidTimestamp(pts) {
			pts += s.cfg.Format.FramesToDuration(n)
		}

		if frames > 0 && n == 0 {
			s.cond.Wait()
		}
	}
	return nil
}

// Discontinuity asks for gap worth of silence before the next written data
func (s *Sink) Discontinuity(gap time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.silencePending = s.cfg.Format.DurationToFrames(gap)
}

// Flush drops all buffered audio and interrupts blocked writers
func (s *Sink) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.DroppedFrames += uint64(s.buf.Buffered())
	s.carry = s.carry[:0]
	s.buf.Flush()
	s.silencePending = 0
	s.flushGen++
	s.resetDriftControl()
	s.cond.Broadcast()
	s.logger.Debug("sink flushed")
}

// Freeze pauses rendering. The stream clock stops and drift control resets.
func (s *Sink) Freeze() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.paused = true
	s.clock.Freeze()
	s.resetDriftControl()
}

// Resume restarts rendering after Freeze
func (s *Sink) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
}

// Close unblocks writers and makes further writes fail
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cond.Broadcast()
	return nil
}

// Stats returns a snapshot of the sink counters
func (s *Sink) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stats
	st.Buffered = s.buf.Buffered()
	st.FillLevel = s.buf.FillLevel()
	st.OldestPTS = s.buf.OldestFramePTS()
	st.LastResult = s.lastResult
	st.DroppedFrames += s.buf.Dropped()
	return st
}

// Process renders one device period into dst. It runs on the device's
// real-time context and never blocks on the producer.
func (s *Sink) Process(dst []byte, cycle Cycle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused {
		s.deviceFormat.WriteSilence(dst)
		return
	}

	s.clock.AddObservation(cycle.SystemTime, cycle.DriverTime)
	retrievalPTS := s.pipeline()
	if audio.ValidTimestamp(retrievalPTS) {
		retrievalPTS += s.cfg.Latency
	}

	frames := len(dst) / s.deviceStride
	s.grow(frames)

	var result ringbuffer.Result
	var drift time.Duration
	switch {
	case s.matcher != nil:
		result, drift = s.processRateMatched(dst, frames, retrievalPTS)
	case s.deviceFormat != s.cfg.Format:
		result = s.processDSDConverted(dst, frames, retrievalPTS)
	default:
		result, drift = s.buf.Retrieve(dst, frames, retrievalPTS, s.cfg.PTSShift, s.cfg.SkewThreshold)
		if result == ringbuffer.ResultEmpty {
			s.deviceFormat.WriteSilence(dst)
		}
	}

	if result == ringbuffer.ResultDataFullyInThePast {
		s.resetDriftControl()
	}
	if result == ringbuffer.ResultOK && s.matcher != nil {
		s.updateRate(drift, cycle.SystemTime)
	}

	s.stats.Cycles++
	s.stats.Results[result]++
	s.stats.Drift = drift
	if result != s.lastResult {
		s.logger.Debug("retrieval result changed", "from", s.lastResult, "to", result, "pts", retrievalPTS)
		s.lastResult = result
	}

	s.cond.Broadcast()
}

// processRateMatched retrieves enough input frames for the resampler and
// converts them to frames device frames
func (s *Sink) processRateMatched(dst []byte, frames int, retrievalPTS time.Duration) (ringbuffer.Result, time.Duration) {
	ch := s.cfg.Format.Channels
	in := s.matcher.InputFramesNeeded(frames)
	s.grow(in)
	if audio.ValidTimestamp(retrievalPTS) {
		retrievalPTS += s.cfg.Format.FramesToDuration(s.matcher.Delay())
	}

	raw := s.scratch[:in*s.stride]
	result, drift := s.buf.Retrieve(raw, in, retrievalPTS, s.cfg.PTSShift, s.cfg.SkewThreshold)
	if result == ringbuffer.ResultEmpty {
		s.cfg.Format.WriteSilence(raw)
	}

	if _, err := s.decoder.Decode(s.inSamples[:in*ch], raw); err != nil {
		s.cfg.Format.WriteSilence(dst)
		return result, drift
	}
	s.matcher.Process(s.inSamples[:in*ch], s.outSamples[:frames*ch])
	if _, err := s.encoder.Encode(dst, s.outSamples[:frames*ch]); err != nil {
		s.cfg.Format.WriteSilence(dst)
	}
	return result, drift
}

// processDSDConverted retrieves DSD in the stream layout and regroups it
// for the device. When the device word is narrower than the stream word a
// period may end inside a stream frame; the rest of that frame is carried
// into the next period.
func (s *Sink) processDSDConverted(dst []byte, frames int, retrievalPTS time.Duration) ringbuffer.Result {
	dst = dst[:frames*s.deviceStride]
	carried := copy(dst, s.carry)
	s.carry = s.carry[:copy(s.carry, s.carry[carried:])]
	if carried == len(dst) {
		return s.lastResult
	}

	rest := len(dst) - carried
	in := (rest + s.stride - 1) / s.stride
	s.grow(in)
	if audio.ValidTimestamp(retrievalPTS) {
		retrievalPTS += s.deviceFormat.FramesToDuration(carried / s.deviceStride)
	}

	raw := s.scratch[:in*s.stride]
	result, _ := s.buf.Retrieve(raw, in, retrievalPTS, s.cfg.PTSShift, s.cfg.SkewThreshold)
	if result == ringbuffer.ResultEmpty {
		s.cfg.Format.WriteSilence(raw)
	}

	staged := s.staged[:len(raw)]
	audio.ConvertDSD(staged, raw, s.cfg.Format.DSD, s.deviceFormat.DSD, len(staged), s.cfg.Format.Channels)
	copy(dst[carried:], staged[:rest])
	s.carry = append(s.carry, staged[rest:]...)
	return result
}

// updateRate runs the PI controller on the measured drift and adjusts the
// rate matcher
func (s *Sink) updateRate(drift time.Duration, systemTime time.Duration) {
	var timeScale float64
	if audio.ValidTimestamp(s.lastSystem) && systemTime > s.lastSystem {
		timeScale = (systemTime - s.lastSystem).Seconds()
	}
	s.lastSystem = systemTime

	maxPPM := s.cfg.MaxDriftPPM
	ppm := float64(drift) / float64(time.Microsecond)
	ppm = math.Max(-maxPPM, math.Min(maxPPM, ppm))

	filtered := s.pi.Compute(ppm, timeScale)
	filtered = math.Max(-maxPPM, math.Min(maxPPM, filtered))
	rate := 1 - filtered/1e6

	s.matcher.SetRate(rate)
	s.stats.DriftPPM = ppm
	s.stats.Rate = rate
}

// resetDriftControl returns drift correction to its initial state (must hold mu)
func (s *Sink) resetDriftControl() {
	s.pi.Reset()
	s.lastSystem = audio.NoTimestamp
	if s.matcher != nil {
		s.matcher.SetRate(1)
		s.matcher.Reset()
	}
	s.stats.Rate = 1
	s.stats.DriftPPM = 0
}

// grow makes the scratch buffers large enough for frames frames (must hold mu)
func (s *Sink) grow(frames int) {
	// Headroom for the rate matcher asking for a few extra frames
	frames += frames/100 + 4

	if len(s.scratch) < frames*s.stride {
		s.scratch = make([]byte, frames*s.stride)
		if s.deviceFormat != s.cfg.Format {
			s.staged = make([]byte, frames*s.stride)
		}
	}
	if s.matcher != nil && len(s.inSamples) < frames*s.cfg.Format.Channels {
		s.inSamples = make([]int32, frames*s.cfg.Format.Channels)
		s.outSamples = make([]int32, frames*s.cfg.Format.Channels)
	}
}
