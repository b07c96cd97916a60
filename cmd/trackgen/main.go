// Command trackgen writes an antenna pointing track for one satellite over a
// ground site, as configured by a property or YAML file.
//
//	trackgen -config track.properties
//	trackgen -workers 0 -passes track.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/star/trackgen/internal/config"
	"github.com/star/trackgen/internal/logging"
	"github.com/star/trackgen/internal/metrics"
	"github.com/star/trackgen/internal/observability"
	"github.com/star/trackgen/internal/output"
	"github.com/star/trackgen/internal/passes"
	"github.com/star/trackgen/internal/propagation"
	"github.com/star/trackgen/internal/tle"
	"github.com/star/trackgen/internal/tracking"
)

// staleElements is how far the window may start from the element epoch
// before a warning is logged.
const staleElements = 14 * 24 * time.Hour

func main() {
	configPath := flag.String("config", "trackgen.properties", "configuration file (.properties, .yaml or .yml)")
	workers := flag.Int("workers", -1, "override WORKERS: 1 sequential, 0 one per CPU")
	showPasses := flag.Bool("passes", false, "log a rise/set summary after the run")
	minElevation := flag.Float64("min-elevation", 0, "pass threshold in degrees, used with -passes")
	flag.Parse()
	if flag.NArg() > 0 {
		*configPath = flag.Arg(0)
	}

	logger := logging.NewFromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), logger)
	if err != nil {
		logger.Error("tracing init failed", "error", err)
		os.Exit(1)
	}

	err = run(ctx, runOptions{
		configPath:   *configPath,
		workers:      *workers,
		showPasses:   *showPasses,
		minElevation: *minElevation,
	}, logger)
	observability.ShutdownWithTimeout(context.Background(), shutdown, logger)
	if err != nil {
		logger.Error("track generation failed", "error", err)
		os.Exit(1)
	}
}

type runOptions struct {
	configPath   string
	workers      int
	showPasses   bool
	minElevation float64
}

func run(ctx context.Context, opts runOptions, logger *slog.Logger) error {
	cfg, err := config.Load(opts.configPath, logger)
	if err != nil {
		return err
	}
	if opts.workers >= 0 {
		cfg.Workers = opts.workers
	}
	logger.Info("configuration loaded", "path", opts.configPath, "config", cfg)

	entry, err := tle.Resolve(ctx, cfg.TLE, logger)
	if err != nil {
		return fmt.Errorf("loading elements: %w", err)
	}
	logger.Info("elements resolved", "target", entry)
	age := entry.AgeAt(cfg.Window.Start)
	metrics.SetTLEAge(age)
	if age > staleElements || age < -staleElements {
		logger.Warn("window starts far from element epoch; accuracy will suffer",
			"target", entry,
			"offset_hours", age.Hours(),
		)
	}

	prop, err := propagation.NewSGP4Propagator(entry, cfg.Gravity)
	if err != nil {
		return err
	}

	pipeline := tracking.New(prop, cfg.TrackingOptions(), logger)
	var detector *passes.Detector
	if opts.showPasses {
		detector = passes.NewDetector(opts.minElevation)
		pipeline.Observe(detector.Observe)
	}

	sink, err := output.OpenFile(cfg.OutputFile, output.NewFormatter(cfg.Decimals), cfg.OutputHeader)
	if err != nil {
		return err
	}

	var st tracking.Stats
	if cfg.Workers == 1 {
		st, err = pipeline.Run(ctx, cfg.Window, sink)
	} else {
		st, err = pipeline.RunParallel(ctx, cfg.Window, cfg.Workers, sink)
	}
	if err != nil {
		sink.Abort()
		return err
	}
	if err := sink.Close(); err != nil {
		return err
	}

	cs := prop.CacheStats()
	logger.Info("track written",
		"output", cfg.OutputFile,
		"rows", sink.Rows(),
		"samples", st.Computed,
		"duration_ms", st.Duration.Milliseconds(),
		"cache_hits", cs.Hits,
		"cache_misses", cs.Misses,
	)

	if detector != nil {
		for i, p := range detector.Passes() {
			logger.Info("pass",
				"n", i+1,
				"rise", p.StartTime.Format("2006-01-02T15:04:05.000Z"),
				"max", p.MaxElevationTime.Format("2006-01-02T15:04:05.000Z"),
				"set", p.EndTime.Format("2006-01-02T15:04:05.000Z"),
				"max_elevation", p.MaxElevation,
				"azimuth_at_max", p.AzimuthAtMax,
				"duration_s", p.DurationSeconds,
				"rise_observed", p.RiseObserved,
				"set_observed", p.SetObserved,
			)
		}
	}
	return nil
}
