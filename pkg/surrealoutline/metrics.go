package surrealoutline

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// WriteMetrics writes every registered metric to Config.MetricsFile, replacing the
// file. It does nothing when no file is configured.
func (a *App) WriteMetrics() error {
	if a.config.MetricsFile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(a.config.MetricsFile, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	a.log.Debug().Str("path", a.config.MetricsFile).Msg("metrics written")
	return nil
}
