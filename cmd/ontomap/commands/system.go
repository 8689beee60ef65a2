package commands

import (
	"context"

	"github.com/teranos/ontomap/am"
	"github.com/teranos/ontomap/errors"
	"github.com/teranos/ontomap/logger"
	"github.com/teranos/ontomap/metrics"
	"github.com/teranos/ontomap/pipeline"
)

// openSystem loads and validates configuration and wires the pipeline with
// a metrics recorder attached.
func openSystem(ctx context.Context) (*pipeline.System, *metrics.Recorder, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, errors.WithHint(
			errors.Wrap(err, "invalid configuration"),
			"run 'ontomap am validate' and check ontomap.toml")
	}

	rec := metrics.New()
	sys, err := pipeline.Build(ctx, cfg, rec, logger.ComponentLogger("pipeline"))
	if err != nil {
		return nil, nil, err
	}
	if err := rec.WatchCaches(sys.Caches); err != nil {
		sys.Close()
		return nil, nil, errors.Wrap(err, "failed to register cache metrics")
	}
	return sys, rec, nil
}

// serveMetrics exposes rec in the background when metrics are enabled. The
// server stops with ctx.
func serveMetrics(ctx context.Context, cfg am.MetricsConfig, rec *metrics.Recorder) {
	if !cfg.Enabled {
		return
	}
	log := logger.ComponentLogger("metrics")
	go func() {
		if err := rec.Serve(ctx, cfg.Addr, log); err != nil {
			log.Errorw("Metrics server stopped", "error", err)
		}
	}()
}
