package models

// MetricsConfig selects which host metrics the gateway reports.
type MetricsConfig struct {
	MonitorCPU    bool
	MonitorMemory bool
}
