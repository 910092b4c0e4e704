// ABOUTME: Entry point for the pwsink player
// ABOUTME: Feeds a source through a timed sink into an audio output
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Resonate-Protocol/pwsink/internal/config"
	"github.com/Resonate-Protocol/pwsink/internal/observe"
	"github.com/Resonate-Protocol/pwsink/internal/version"
	"github.com/Resonate-Protocol/pwsink/pkg/audio"
	"github.com/Resonate-Protocol/pwsink/pkg/audio/output"
	"github.com/Resonate-Protocol/pwsink/pkg/sink"
	"github.com/Resonate-Protocol/pwsink/pkg/source"
)

var (
	configPath  = flag.String("config", "", "Path to a YAML configuration file")
	sourceURI   = flag.String("source", "", "Source override: tone, tone:<hz>, wav:<path> or dsf:<path>")
	backend     = flag.String("output", "", "Output override: malgo, oto, portaudio or virtual")
	record      = flag.String("record", "", "Record the virtual output to this WAV file")
	metricsAddr = flag.String("metrics", "", "Serve Prometheus metrics on this address")
	logLevel    = flag.String("log-level", "", "Log level override: debug, info, warn or error")
	showVersion = flag.Bool("version", false, "Print the version and exit")
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return 0
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pwsink-play: %v\n", err)
		return 1
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)
	logger.Info("pwsink starting",
		"version", version.Version,
		"source", cfg.Source.URI,
		"output", cfg.Output.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := play(ctx, cfg, logger); err != nil {
		logger.Error("playback failed", "err", err)
		return 1
	}
	logger.Info("playback finished")
	return 0
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return nil, err
		}
	}

	if *sourceURI != "" {
		cfg.Source.URI = *sourceURI
	}
	if *backend != "" {
		cfg.Output.Backend = config.Backend(*backend)
	}
	if *record != "" {
		cfg.Output.Record = *record
		if *backend == "" {
			cfg.Output.Backend = config.BackendVirtual
		}
	}
	if *metricsAddr != "" {
		cfg.Metrics.Listen = *metricsAddr
	}
	if *logLevel != "" {
		cfg.Log.Level = config.LogLevel(*logLevel)
	}

	return cfg, config.Validate(cfg)
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var lvl slog.Level
	switch cfg.Level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if cfg.Format == config.LogJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func play(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	toneFormat, err := audio.ParseSampleFormat(cfg.Source.ToneFormat)
	if err != nil {
		return err
	}
	src, err := source.Open(cfg.Source.URI, toneFormat)
	if err != nil {
		return err
	}
	defer src.Close()

	sinkCfg, err := cfg.SinkConfig(src.Format())
	if err != nil {
		return err
	}
	snk, err := sink.New(sinkCfg, sink.WithLogger(logger))
	if err != nil {
		return err
	}
	defer snk.Close()

	out, recorder, err := newOutput(cfg.Output, snk.DeviceFormat(), logger)
	if err != nil {
		return err
	}
	if recorder != nil {
		defer recorder.Close()
	}

	if err := out.Open(snk.DeviceFormat(), sinkCfg.Quantum, snk); err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}
	defer out.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return produce(gctx, src, snk, cfg.Source, logger)
	})

	if cfg.Metrics.StatsInterval > 0 {
		g.Go(func() error {
			logStats(gctx, snk, cfg.Metrics.StatsInterval, logger)
			return nil
		})
	}

	if cfg.Metrics.Listen != "" {
		shutdown, err := serveMetrics(gctx, g, cfg.Metrics.Listen, snk, logger)
		if err != nil {
			cancel()
			_ = g.Wait()
			return err
		}
		defer shutdown()
	}

	return g.Wait()
}

func newOutput(cfg config.OutputConfig, format audio.Format, logger *slog.Logger) (output.Output, io.Closer, error) {
	registry := output.NewRegistry(logger)

	switch cfg.Backend {
	case config.BackendMalgo:
		return output.NewMalgo(registry, logger), nil, nil
	case config.BackendOto:
		return output.NewOto(logger), nil, nil
	case config.BackendPortAudio:
		return output.NewPortAudio(registry, logger), nil, nil
	case config.BackendVirtual:
		if cfg.Record == "" {
			return output.NewVirtual(nil, logger), nil, nil
		}
		f, err := os.Create(cfg.Record)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create recording: %w", err)
		}
		rec, err := output.NewWAVFile(f, format)
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		return output.NewVirtual(rec, logger), recordingCloser{rec, f}, nil
	}
	return nil, nil, fmt.Errorf("unknown output backend %q", cfg.Backend)
}

// recordingCloser finalizes the WAV header before closing the file
type recordingCloser struct {
	rec  *output.WAVFile
	file *os.File
}

func (r recordingCloser) Close() error {
	return errors.Join(r.rec.Close(), r.file.Close())
}

// produce writes the source into the sink, stamping the first frame
// startDelay ahead of the sink clock, then waits for the buffer to drain
func produce(ctx context.Context, src source.Source, snk *sink.Sink, cfg config.SourceConfig, logger *slog.Logger) error {
	format := src.Format()
	chunk := max(format.DurationToFrames(cfg.ChunkSize), 1)
	buf := make([]byte, chunk*format.Stride())

	base := snk.Now() + cfg.StartDelay
	frames := 0
	logger.Info("producer started", "format", format, "base_pts", base)

	for {
		n, err := src.Read(buf)
		if n > 0 {
			pts := base + format.FramesToDuration(frames)
			if werr := snk.Write(ctx, buf[:n], pts); werr != nil {
				if errors.Is(werr, context.Canceled) || errors.Is(werr, sink.ErrClosed) {
					return nil
				}
				return werr
			}
			frames += n / format.Stride()
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("source read failed: %w", err)
		}
	}

	logger.Info("source exhausted, draining", "frames", frames)
	return drain(ctx, snk)
}

func drain(ctx context.Context, snk *sink.Sink) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for snk.Stats().Buffered > 0 {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

func logStats(ctx context.Context, snk *sink.Sink, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := snk.Stats()
			logger.Info("sink stats",
				"fill", st.FillLevel,
				"last_result", st.LastResult,
				"drift", st.Drift,
				"drift_ppm", st.DriftPPM,
				"rate", st.Rate,
				"cycles", st.Cycles,
				"dropped_frames", st.DroppedFrames)
		}
	}
}

func serveMetrics(ctx context.Context, g *errgroup.Group, addr string, snk *sink.Sink, logger *slog.Logger) (func(), error) {
	provider, err := observe.NewProvider(version.Product, version.Version)
	if err != nil {
		return nil, err
	}
	metrics, err := observe.NewMetrics(provider, snk)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", provider.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g.Go(func() error {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return func() {
		_ = metrics.Close()
		_ = provider.Shutdown(context.Background())
	}, nil
}
