package main

import (
	"fmt"

	"go.uber.org/zap"

	"tabjobs/internal/config"
	"tabjobs/internal/metrics"
	"tabjobs/internal/metrics/datadog"
	"tabjobs/internal/metrics/prompush"
)

// setupMetrics installs the configured backend. The returned function
// flushes it and restores the no-op backend.
func setupMetrics(cfg config.MetricsConfig, log *zap.Logger) (func(), error) {
	switch cfg.Backend {
	case "", "none":
		log.Debug("metrics: disabled")
		return func() {}, nil

	case "prompush":
		b, err := prompush.NewBackend("tabjobs", cfg.PushgatewayURL)
		if err != nil {
			return nil, fmt.Errorf("metrics: prompush: %w", err)
		}
		metrics.SetBackend(b)
		log.Info("metrics: enabled", zap.String("backend", cfg.Backend), zap.String("url", cfg.PushgatewayURL))
		return func() {
			if err := metrics.Flush(); err != nil {
				log.Warn("metrics: flush", zap.Error(err))
			}
			metrics.SetBackend(nil)
		}, nil

	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{Addr: cfg.DatadogAddr, Namespace: cfg.Namespace})
		if err != nil {
			return nil, fmt.Errorf("metrics: datadog: %w", err)
		}
		metrics.SetBackend(b)
		log.Info("metrics: enabled", zap.String("backend", cfg.Backend), zap.String("addr", cfg.DatadogAddr))
		return func() {
			if err := metrics.Flush(); err != nil {
				log.Warn("metrics: flush", zap.Error(err))
			}
			metrics.SetBackend(nil)
			if err := b.Close(); err != nil {
				log.Warn("metrics: close", zap.Error(err))
			}
		}, nil
	}
	return nil, fmt.Errorf("metrics: unknown backend %q", cfg.Backend)
}
