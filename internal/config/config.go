// ABOUTME: Configuration schema for the pwsink player
// ABOUTME: YAML-tagged structs with defaults and conversion into sink settings
package config

import (
	"time"

	"github.com/Resonate-Protocol/pwsink/pkg/audio"
	"github.com/Resonate-Protocol/pwsink/pkg/sink"
)

// LogLevel controls log verbosity
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// LogFormat selects the slog handler
type LogFormat string

const (
	LogText LogFormat = "text"
	LogJSON LogFormat = "json"
)

// IsValid reports whether f is a recognised log format
func (f LogFormat) IsValid() bool {
	return f == LogText || f == LogJSON
}

// Backend names an output implementation
type Backend string

const (
	BackendMalgo     Backend = "malgo"
	BackendOto       Backend = "oto"
	BackendPortAudio Backend = "portaudio"
	BackendVirtual   Backend = "virtual"
)

// IsValid reports whether b is a known backend
func (b Backend) IsValid() bool {
	switch b {
	case BackendMalgo, BackendOto, BackendPortAudio, BackendVirtual:
		return true
	}
	return false
}

// Config is the top-level configuration file
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Source  SourceConfig  `yaml:"source"`
	Sink    SinkConfig    `yaml:"sink"`
	Output  OutputConfig  `yaml:"output"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LogConfig configures structured logging
type LogConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// SourceConfig selects what gets played
type SourceConfig struct {
	// URI is "tone", "tone:<hz>", "wav:<path>" or "dsf:<path>"
	URI string `yaml:"uri"`

	// ToneFormat is the sample format for generated tones
	ToneFormat string `yaml:"tone_format"`

	// StartDelay is how far ahead of the sink clock the first frame is stamped
	StartDelay time.Duration `yaml:"start_delay"`

	// ChunkSize is the amount of audio handed to the sink per write
	ChunkSize time.Duration `yaml:"chunk_size"`
}

// SinkConfig mirrors sink.Config in file form
type SinkConfig struct {
	BufferSize    time.Duration `yaml:"buffer_size"`
	Quantum       int           `yaml:"quantum"`
	Latency       time.Duration `yaml:"latency"`
	PTSShift      time.Duration `yaml:"pts_shift"`
	SkewThreshold time.Duration `yaml:"skew_threshold"`
	RateMatching  *bool         `yaml:"rate_matching"`
	MaxDriftPPM   float64       `yaml:"max_drift_ppm"`
	Kp            float64       `yaml:"kp"`
	Ki            float64       `yaml:"ki"`

	// DeviceDSD is the DSD word layout the device wants, empty to keep the stream's
	DeviceDSD string `yaml:"device_dsd"`
}

// OutputConfig selects and tunes the output backend
type OutputConfig struct {
	Backend Backend `yaml:"backend"`

	// Record writes the virtual output to a WAV file when set
	Record string `yaml:"record"`
}

// MetricsConfig configures telemetry
type MetricsConfig struct {
	// Listen is the address of the Prometheus /metrics endpoint, empty to disable
	Listen string `yaml:"listen"`

	// StatsInterval is how often sink stats are logged, zero to disable
	StatsInterval time.Duration `yaml:"stats_interval"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: LogInfo, Format: LogText},
		Source: SourceConfig{
			URI:        "tone",
			ToneFormat: audio.SampleFormatS16LE.String(),
			StartDelay: 100 * time.Millisecond,
			ChunkSize:  10 * time.Millisecond,
		},
		Output:  OutputConfig{Backend: BackendMalgo},
		Metrics: MetricsConfig{StatsInterval: 5 * time.Second},
	}
}

// SinkConfig builds sink settings for a stream of the given format. Zero
// fields in the file keep the sink defaults.
func (c *Config) SinkConfig(format audio.Format) (sink.Config, error) {
	sc := sink.DefaultConfig(format)
	s := c.Sink

	if s.BufferSize != 0 {
		sc.BufferSize = s.BufferSize
	}
	if s.Quantum != 0 {
		sc.Quantum = s.Quantum
	}
	if s.Latency != 0 {
		sc.Latency = s.Latency
	}
	sc.PTSShift = s.PTSShift
	if s.SkewThreshold != 0 {
		sc.SkewThreshold = s.SkewThreshold
	}
	if s.RateMatching != nil {
		sc.RateMatching = *s.RateMatching && format.Type == audio.TypePCM
	}
	if s.MaxDriftPPM != 0 {
		sc.MaxDriftPPM = s.MaxDriftPPM
	}
	if s.Kp != 0 {
		sc.Kp = s.Kp
	}
	if s.Ki != 0 {
		sc.Ki = s.Ki
	}
	if s.DeviceDSD != "" && format.Type == audio.TypeDSD {
		df, err := audio.ParseDSDFormat(s.DeviceDSD)
		if err != nil {
			return sink.Config{}, err
		}
		sc.DeviceDSD = df
	}

	return sc, sc.Validate()
}
