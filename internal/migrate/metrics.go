package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespaceConstant              = "goose"
	metricsSubsystemConstant              = "migrate"
	itemsMetricNameConstant               = "items_total"
	itemsMetricHelpConstant               = "Items processed by migration runs, by outcome."
	itemDurationMetricNameConstant        = "item_duration_seconds"
	itemDurationMetricHelpConstant        = "Time spent migrating a single item."
	lastRunMetricNameConstant             = "last_run_timestamp_seconds"
	lastRunMetricHelpConstant             = "Unix time at which the last migration run finished."
	outcomeLabelConstant                  = "outcome"
	outcomeMigratedConstant               = "migrated"
	outcomeFailedConstant                 = "failed"
	metricsFileWriteErrorTemplateConstant = "unable to write metrics to %s: %w"
	metricsDirectoryPermissionsConstant   = 0o755
)

// Metrics counts migration run results on a dedicated registry.
type Metrics struct {
	registry     *prometheus.Registry
	items        *prometheus.CounterVec
	itemDuration prometheus.Histogram
	lastRun      prometheus.Gauge
}

// NewMetrics registers the migration collectors on a fresh registry.
func NewMetrics() *Metrics {
	metrics := &Metrics{
		registry: prometheus.NewRegistry(),
		items: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespaceConstant,
				Subsystem: metricsSubsystemConstant,
				Name:      itemsMetricNameConstant,
				Help:      itemsMetricHelpConstant,
			},
			[]string{outcomeLabelConstant},
		),
		itemDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespaceConstant,
				Subsystem: metricsSubsystemConstant,
				Name:      itemDurationMetricNameConstant,
				Help:      itemDurationMetricHelpConstant,
				Buckets:   prometheus.DefBuckets,
			},
		),
		lastRun: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespaceConstant,
				Subsystem: metricsSubsystemConstant,
				Name:      lastRunMetricNameConstant,
				Help:      lastRunMetricHelpConstant,
			},
		),
	}
	metrics.registry.MustRegister(metrics.items, metrics.itemDuration, metrics.lastRun)
	return metrics
}

// Registry exposes the registry holding the migration collectors.
func (metrics *Metrics) Registry() *prometheus.Registry {
	return metrics.registry
}

// WriteToTextfile writes the current values in the text exposition format, for node_exporter's textfile collector.
func (metrics *Metrics) WriteToTextfile(filePath string) error {
	if directoryError := os.MkdirAll(filepath.Dir(filePath), metricsDirectoryPermissionsConstant); directoryError != nil {
		return fmt.Errorf(metricsFileWriteErrorTemplateConstant, filePath, directoryError)
	}
	if writeError := prometheus.WriteToTextfile(filePath, metrics.registry); writeError != nil {
		return fmt.Errorf(metricsFileWriteErrorTemplateConstant, filePath, writeError)
	}
	return nil
}

func (metrics *Metrics) observeItem(migrated bool, duration time.Duration) {
	if metrics == nil {
		return
	}
	outcome := outcomeFailedConstant
	if migrated {
		outcome = outcomeMigratedConstant
	}
	metrics.items.WithLabelValues(outcome).Inc()
	metrics.itemDuration.Observe(duration.Seconds())
}

func (metrics *Metrics) observeRunFinished(finishedAt time.Time) {
	if metrics == nil {
		return
	}
	metrics.lastRun.Set(float64(finishedAt.Unix()))
}
