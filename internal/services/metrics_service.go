package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kodinohjaus/gateway/internal/api"
	"github.com/kodinohjaus/gateway/internal/metrics_collectors"
	"github.com/kodinohjaus/gateway/internal/models"
	"github.com/kodinohjaus/gateway/internal/utils"
)

const metricsWorkers = 4

// MetricsService reports gateway host health to the backend trend store
// through database_write requests.
type MetricsService struct {
	interval      time.Duration
	timeout       time.Duration
	clientID      string
	metricsConfig models.MetricsConfig
	client        *api.Client
	logger        zerolog.Logger
	registry      *metrics_collectors.MetricsRegistry

	// workerPool lives for one Start/Stop cycle; Stop shuts it down and Start
	// creates a fresh one so the service can be restarted.
	workerPool *utils.WorkerPool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMetricsService initializes and returns a new MetricsService with the
// default collectors registered.
func NewMetricsService(
	interval, timeout time.Duration,
	clientID string,
	metricsConfig models.MetricsConfig,
	client *api.Client,
	logger zerolog.Logger,
) *MetricsService {
	return &MetricsService{
		interval:      interval,
		timeout:       timeout,
		clientID:      clientID,
		metricsConfig: metricsConfig,
		client:        client,
		logger:        logger,
		registry: metrics_collectors.NewMetricsRegistry(
			&metrics_collectors.CPUMetricCollector{Logger: logger},
			&metrics_collectors.MemoryMetricCollector{Logger: logger},
		),
	}
}

// Start initiates periodic metrics collection and reporting.
func (m *MetricsService) Start() error {
	if m.ctx != nil {
		m.logger.Warn().Msg("MetricsService is already running")
		return errors.New("metrics service is already running")
	}

	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.workerPool = utils.NewWorkerPool(metricsWorkers)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.runCollectionLoop()
	}()

	m.logger.Info().Dur("interval", m.interval).Msg("MetricsService started")
	return nil
}

// Stop gracefully stops the metrics service.
func (m *MetricsService) Stop() error {
	if m.ctx == nil {
		m.logger.Warn().Msg("MetricsService is not running")
		return errors.New("metrics service is not running")
	}

	m.cancel()
	m.wg.Wait()
	m.workerPool.Shutdown()

	m.ctx = nil
	m.cancel = nil
	m.workerPool = nil

	m.logger.Info().Msg("MetricsService stopped")
	return nil
}

// runCollectionLoop collects and reports at the configured interval.
func (m *MetricsService) runCollectionLoop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.collectAndReport()
		case <-m.ctx.Done():
			return
		}
	}
}

// collectAndReport runs the enabled collectors on the worker pool, assembles
// the report, and writes it to the backend.
func (m *MetricsService) collectAndReport() {
	ctx, cancel := context.WithTimeout(m.ctx, m.timeout)
	defer cancel()

	enabled := m.registry.Enabled(&m.metricsConfig)
	if len(enabled) == 0 {
		m.logger.Debug().Msg("No collectors enabled, skipping report")
		return
	}

	var mu sync.Mutex
	results := make(map[string]interface{})

	var collectWG sync.WaitGroup
	for _, collector := range enabled {
		collector := collector
		collectWG.Add(1)
		err := m.workerPool.Submit(ctx, func() {
			defer collectWG.Done()
			value := collector.Collect(ctx)
			if value == nil {
				return
			}
			mu.Lock()
			results[collector.Name()] = value
			mu.Unlock()
		})
		if err != nil {
			collectWG.Done()
			m.logger.Warn().Err(err).Str("collector", collector.Name()).
				Msg("Failed to schedule metric collection")
		}
	}
	collectWG.Wait()

	if len(results) == 0 {
		m.logger.Debug().Msg("No metrics collected, skipping report")
		return
	}

	report := models.GatewayMetrics{
		ClientID:  m.clientID,
		Timestamp: time.Now(),
	}
	if cpu, ok := results["cpu"].(*float64); ok {
		report.CPUPercent = cpu
	}
	if memory, ok := results["memory"].(*metrics_collectors.MemoryUsage); ok {
		report.MemoryUsed = &memory.Used
		report.MemoryTotal = &memory.Total
	}

	if err := m.client.DatabaseWrite(ctx, report); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to report gateway metrics")
		return
	}
	m.logger.Debug().Msg("Gateway metrics reported")
}
