// ABOUTME: OpenTelemetry instruments for sink health
// ABOUTME: Observable gauges and counters sampled from sink stats at collection time
package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Resonate-Protocol/pwsink/pkg/ringbuffer"
	"github.com/Resonate-Protocol/pwsink/pkg/sink"
)

// meterName is the instrumentation scope for all pwsink metrics
const meterName = "github.com/Resonate-Protocol/pwsink"

// StatsSource is anything that can report sink stats, normally *sink.Sink
type StatsSource interface {
	Stats() sink.Stats
}

// Metrics samples a StatsSource whenever a reader collects. Nothing is
// recorded from the render path.
type Metrics struct {
	results   metric.Int64ObservableCounter
	cycles    metric.Int64ObservableCounter
	pushed    metric.Int64ObservableCounter
	dropped   metric.Int64ObservableCounter
	fill      metric.Float64ObservableGauge
	buffered  metric.Int64ObservableGauge
	drift     metric.Float64ObservableGauge
	driftPPM  metric.Float64ObservableGauge
	rate      metric.Float64ObservableGauge
	oldestPTS metric.Float64ObservableGauge

	registration metric.Registration
}

var allResults = []ringbuffer.Result{
	ringbuffer.ResultOK,
	ringbuffer.ResultEmpty,
	ringbuffer.ResultDataFullyInTheFuture,
	ringbuffer.ResultDataFullyInThePast,
	ringbuffer.ResultAllDataClipped,
}

// NewMetrics creates the instruments on mp and registers a callback reading src
func NewMetrics(mp metric.MeterProvider, src StatsSource) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.results, err = m.Int64ObservableCounter("pwsink.retrieval.results",
		metric.WithDescription("Device cycles by ring buffer retrieval result."),
	); err != nil {
		return nil, err
	}
	if met.cycles, err = m.Int64ObservableCounter("pwsink.cycles",
		metric.WithDescription("Device cycles rendered."),
	); err != nil {
		return nil, err
	}
	if met.pushed, err = m.Int64ObservableCounter("pwsink.frames.pushed",
		metric.WithDescription("Frames accepted into the ring buffer."),
	); err != nil {
		return nil, err
	}
	if met.dropped, err = m.Int64ObservableCounter("pwsink.frames.dropped",
		metric.WithDescription("Frames discarded by flushes and late data."),
	); err != nil {
		return nil, err
	}

	if met.fill, err = m.Float64ObservableGauge("pwsink.buffer.fill",
		metric.WithDescription("Duration of audio waiting in the ring buffer."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if met.buffered, err = m.Int64ObservableGauge("pwsink.buffer.frames",
		metric.WithDescription("Frames waiting in the ring buffer."),
	); err != nil {
		return nil, err
	}
	if met.drift, err = m.Float64ObservableGauge("pwsink.clock.drift",
		metric.WithDescription("Last measured timing error between buffered and due audio."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if met.driftPPM, err = m.Float64ObservableGauge("pwsink.clock.drift_ppm",
		metric.WithDescription("Drift fed to the rate controller in parts per million."),
	); err != nil {
		return nil, err
	}
	if met.rate, err = m.Float64ObservableGauge("pwsink.rate",
		metric.WithDescription("Playback rate applied by the resampler."),
	); err != nil {
		return nil, err
	}
	if met.oldestPTS, err = m.Float64ObservableGauge("pwsink.buffer.oldest_pts",
		metric.WithDescription("Timestamp of the oldest buffered frame, negative when unknown."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	met.registration, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		met.observe(o, src.Stats())
		return nil
	},
		met.results, met.cycles, met.pushed, met.dropped,
		met.fill, met.buffered, met.drift, met.driftPPM, met.rate, met.oldestPTS,
	)
	if err != nil {
		return nil, err
	}

	return met, nil
}

func (m *Metrics) observe(o metric.Observer, st sink.Stats) {
	for _, r := range allResults {
		o.ObserveInt64(m.results, int64(st.Results[r]),
			metric.WithAttributes(attribute.String("result", r.String())))
	}
	o.ObserveInt64(m.cycles, int64(st.Cycles))
	o.ObserveInt64(m.pushed, int64(st.PushedFrames))
	o.ObserveInt64(m.dropped, int64(st.DroppedFrames))

	o.ObserveFloat64(m.fill, st.FillLevel.Seconds())
	o.ObserveInt64(m.buffered, int64(st.Buffered))
	o.ObserveFloat64(m.drift, st.Drift.Seconds())
	o.ObserveFloat64(m.driftPPM, st.DriftPPM)
	o.ObserveFloat64(m.rate, st.Rate)
	o.ObserveFloat64(m.oldestPTS, st.OldestPTS.Seconds())
}

// Close stops sampling the source
func (m *Metrics) Close() error {
	return m.registration.Unregister()
}
