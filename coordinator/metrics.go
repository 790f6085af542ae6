package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/redlabs-sc/customer-intake/app/journal"
)

// MetricsCollector exposes pipeline activity to Prometheus. It satisfies
// intake.Metrics.
type MetricsCollector struct {
	journal *journal.Journal
	logger  *zap.Logger

	filesProcessed    *prometheus.CounterVec
	duplicatesDropped prometheus.Counter
	stageDuration     *prometheus.HistogramVec
	inFlight          prometheus.Gauge
	recoveredFiles    prometheus.Counter
	outcomeTotals     *prometheus.GaugeVec
}

func NewMetricsCollector(j *journal.Journal, logger *zap.Logger) *MetricsCollector {
	mc := &MetricsCollector{
		journal: j,
		logger:  logger,

		filesProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "customer_intake_files_processed_total",
				Help: "Total number of files that reached a terminal folder",
			},
			[]string{"structure", "status"},
		),

		duplicatesDropped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "customer_intake_duplicate_events_dropped_total",
				Help: "Duplicate file events dropped while the path was in flight",
			},
		),

		stageDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "customer_intake_stage_duration_seconds",
				Help:    "Time spent processing a file through each stage",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
			},
			[]string{"stage"},
		),

		inFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "customer_intake_files_in_flight",
				Help: "Number of files currently being processed",
			},
		),

		recoveredFiles: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "customer_intake_recovered_files_total",
				Help: "Files recovered from the processing folder after a crash",
			},
		),

		outcomeTotals: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "customer_intake_outcome_totals",
				Help: "Journal totals of terminal outcomes by status",
			},
			[]string{"status"},
		),
	}

	return mc
}

// RecordFileProcessed increments the terminal-outcome counter.
func (mc *MetricsCollector) RecordFileProcessed(structure, status string) {
	mc.filesProcessed.WithLabelValues(structure, status).Inc()
}

// RecordDuplicateDropped counts a dropped duplicate event.
func (mc *MetricsCollector) RecordDuplicateDropped() {
	mc.duplicatesDropped.Inc()
}

// RecordStageDuration observes how long a processing stage took.
func (mc *MetricsCollector) RecordStageDuration(stage string, d time.Duration) {
	mc.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// SetInFlight updates the in-flight gauge.
func (mc *MetricsCollector) SetInFlight(n int) {
	mc.inFlight.Set(float64(n))
}

// RecordRecoveredFiles counts files swept out of the processing folder.
func (mc *MetricsCollector) RecordRecoveredFiles(n int) {
	mc.recoveredFiles.Add(float64(n))
}

// UpdateOutcomeMetrics refreshes journal-backed gauges. Called from the
// periodic metrics loop.
func (mc *MetricsCollector) UpdateOutcomeMetrics(ctx context.Context) {
	stats, err := mc.journal.Stats(ctx)
	if err != nil {
		mc.logger.Error("Failed to update outcome metrics", zap.Error(err))
		return
	}

	mc.outcomeTotals.WithLabelValues("validated").Set(float64(stats.Validated))
	mc.outcomeTotals.WithLabelValues("rejected").Set(float64(stats.Rejected))
	mc.outcomeTotals.WithLabelValues("failed").Set(float64(stats.Failed))
}
