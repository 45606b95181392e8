package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kodinohjaus/gateway/internal/api"
)

// PingService periodically pings the backend to verify the session is alive
// end to end, not just at the transport level.
type PingService struct {
	interval time.Duration
	client   *api.Client
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPingService initializes a new PingService.
func NewPingService(interval time.Duration, client *api.Client, logger zerolog.Logger) *PingService {
	return &PingService{
		interval: interval,
		client:   client,
		logger:   logger,
	}
}

// Start launches the ping loop in a separate goroutine.
func (p *PingService) Start() error {
	if p.ctx != nil {
		p.logger.Warn().Msg("PingService is already running")
		return errors.New("ping service is already running")
	}

	p.ctx, p.cancel = context.WithCancel(context.Background())

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runPingLoop()
	}()

	p.logger.Info().Dur("interval", p.interval).Msg("PingService started")
	return nil
}

// Stop gracefully stops the ping service.
func (p *PingService) Stop() error {
	if p.ctx == nil {
		p.logger.Warn().Msg("PingService is not running")
		return errors.New("ping service is not running")
	}

	p.cancel()
	p.wg.Wait()

	p.ctx = nil
	p.cancel = nil

	p.logger.Info().Msg("PingService stopped")
	return nil
}

// runPingLoop sends pings at the configured interval until stopped.
func (p *PingService) runPingLoop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			started := time.Now()
			if err := p.client.Ping(p.ctx); err != nil {
				p.logger.Warn().Err(err).Msg("Ping failed")
				continue
			}
			p.logger.Debug().Dur("rtt", time.Since(started)).Msg("Ping ok")

		case <-p.ctx.Done():
			return
		}
	}
}
