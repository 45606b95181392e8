package metrics_collectors

import (
	"github.com/kodinohjaus/gateway/internal/models"
)

// MetricsRegistry holds the collectors available to the metrics service and
// answers which of them the deployment configuration turns on. Collectors
// keep registration order so reports stay stable run to run.
type MetricsRegistry struct {
	collectors []MetricCollector
}

// NewMetricsRegistry creates a registry over the given collectors.
func NewMetricsRegistry(collectors ...MetricCollector) *MetricsRegistry {
	return &MetricsRegistry{collectors: collectors}
}

// Register adds a collector. Registering a name again replaces the earlier
// collector in place.
func (r *MetricsRegistry) Register(collector MetricCollector) {
	for i, existing := range r.collectors {
		if existing.Name() == collector.Name() {
			r.collectors[i] = collector
			return
		}
	}
	r.collectors = append(r.collectors, collector)
}

// Enabled returns the collectors the configuration enables, in registration
// order.
func (r *MetricsRegistry) Enabled(config *models.MetricsConfig) []MetricCollector {
	enabled := make([]MetricCollector, 0, len(r.collectors))
	for _, collector := range r.collectors {
		if collector.IsEnabled(config) {
			enabled = append(enabled, collector)
		}
	}
	return enabled
}
