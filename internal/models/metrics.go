package models

import "time"

// GatewayMetrics is the host health report the metrics service writes to the
// backend trend store through a database_write request.
type GatewayMetrics struct {
	ClientID    string    `json:"client_id"`
	Timestamp   time.Time `json:"timestamp"`
	CPUPercent  *float64  `json:"cpu_percent,omitempty"`
	MemoryUsed  *uint64   `json:"memory_used,omitempty"`
	MemoryTotal *uint64   `json:"memory_total,omitempty"`
}

// GlobalData is the subset of the get_global_data response the gateway reads.
// The backend sends more; unknown fields are ignored.
type GlobalData struct {
	ServerVersion string `json:"serverVersion,omitempty"`
	ServerTime    string `json:"serverTime,omitempty"`
}
