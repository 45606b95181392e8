package metrics_collectors

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/mem"

	"github.com/kodinohjaus/gateway/internal/models"
)

// MemoryUsage is the collected memory reading.
type MemoryUsage struct {
	Used  uint64
	Total uint64
}

// MemoryMetricCollector collects memory usage metrics.
type MemoryMetricCollector struct {
	Logger zerolog.Logger
}

func (m *MemoryMetricCollector) Name() string {
	return "memory"
}

func (m *MemoryMetricCollector) Collect(ctx context.Context) interface{} {
	vm, err := mem.VirtualMemory()
	if err != nil {
		m.Logger.Error().Err(err).Msg("Failed to get memory usage")
		return nil
	}

	m.Logger.Debug().Uint64("used", vm.Used).Uint64("total", vm.Total).Msg("Memory usage collected")
	return &MemoryUsage{Used: vm.Used, Total: vm.Total}
}

func (m *MemoryMetricCollector) IsEnabled(config *models.MetricsConfig) bool {
	return config.MonitorMemory
}
