// ABOUTME: YAML configuration loading and validation
// ABOUTME: Strict decoding over defaults, collecting every validation failure
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Resonate-Protocol/pwsink/pkg/audio"
)

// Load reads the YAML configuration file at path and returns a validated Config
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r on top of Default and validates the result
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate returns a joined error listing every invalid value in cfg
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}
	if !cfg.Log.Format.IsValid() {
		errs = append(errs, fmt.Errorf("log.format %q is invalid; valid values: text, json", cfg.Log.Format))
	}

	kind, _, _ := strings.Cut(cfg.Source.URI, ":")
	switch kind {
	case "tone", "wav", "dsf":
	default:
		errs = append(errs, fmt.Errorf("source.uri %q is invalid; want tone, wav:<path> or dsf:<path>", cfg.Source.URI))
	}
	if _, err := audio.ParseSampleFormat(cfg.Source.ToneFormat); err != nil {
		errs = append(errs, fmt.Errorf("source.tone_format: %w", err))
	}
	if cfg.Source.StartDelay < 0 {
		errs = append(errs, fmt.Errorf("source.start_delay %v must not be negative", cfg.Source.StartDelay))
	}
	if cfg.Source.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("source.chunk_size %v must be positive", cfg.Source.ChunkSize))
	}

	s := cfg.Sink
	if s.BufferSize < 0 {
		errs = append(errs, fmt.Errorf("sink.buffer_size %v must not be negative", s.BufferSize))
	}
	if s.Quantum < 0 {
		errs = append(errs, fmt.Errorf("sink.quantum %d must not be negative", s.Quantum))
	}
	if s.SkewThreshold < 0 {
		errs = append(errs, fmt.Errorf("sink.skew_threshold %v must not be negative", s.SkewThreshold))
	}
	if s.MaxDriftPPM < 0 {
		errs = append(errs, fmt.Errorf("sink.max_drift_ppm %v must not be negative", s.MaxDriftPPM))
	}
	if s.Kp < 0 || s.Ki < 0 {
		errs = append(errs, fmt.Errorf("sink.kp and sink.ki must not be negative, got %v and %v", s.Kp, s.Ki))
	}
	if s.DeviceDSD != "" {
		if _, err := audio.ParseDSDFormat(s.DeviceDSD); err != nil {
			errs = append(errs, fmt.Errorf("sink.device_dsd: %w", err))
		}
	}
	if cfg.Source.StartDelay > 0 && s.BufferSize > 0 && cfg.Source.StartDelay >= s.BufferSize {
		errs = append(errs, fmt.Errorf("source.start_delay %v must be shorter than sink.buffer_size %v", cfg.Source.StartDelay, s.BufferSize))
	}

	if !cfg.Output.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("output.backend %q is invalid; valid values: malgo, oto, portaudio, virtual", cfg.Output.Backend))
	}
	if cfg.Output.Record != "" && cfg.Output.Backend != BackendVirtual {
		errs = append(errs, fmt.Errorf("output.record requires the virtual backend, got %q", cfg.Output.Backend))
	}

	if cfg.Metrics.StatsInterval < 0 {
		errs = append(errs, fmt.Errorf("metrics.stats_interval %v must not be negative", cfg.Metrics.StatsInterval))
	}

	return errors.Join(errs...)
}
