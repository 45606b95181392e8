package services

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"github.com/kodinohjaus/gateway/internal/status"
	"github.com/kodinohjaus/gateway/pkg/socket"
)

// DefaultStatusEvent is the inbound event name carrying unsolicited status
// pushes when configuration does not override it.
const DefaultStatusEvent = "status"

// StatusService bridges the transport's unsolicited status pushes into the
// broadcast cache. It owns the event subscription lifecycle; the cache stays
// transport-agnostic.
type StatusService struct {
	event  string
	conn   socket.Connection
	cache  *status.Cache
	logger zerolog.Logger

	handlerID int
	running   bool
}

// NewStatusService initializes a new StatusService.
func NewStatusService(event string, conn socket.Connection, cache *status.Cache,
	logger zerolog.Logger) *StatusService {
	if event == "" {
		event = DefaultStatusEvent
	}
	return &StatusService{
		event:  event,
		conn:   conn,
		cache:  cache,
		logger: logger,
	}
}

// Start subscribes to the status event stream.
func (s *StatusService) Start() error {
	if s.running {
		s.logger.Warn().Msg("StatusService is already running")
		return errors.New("status service is already running")
	}

	s.handlerID = s.conn.On(s.event, func(data json.RawMessage) {
		s.logger.Debug().Int("size", len(data)).Msg("Status snapshot received")
		s.cache.Publish(data)
	})
	s.running = true

	s.logger.Info().Str("event", s.event).Msg("StatusService started")
	return nil
}

// Stop unsubscribes from the status event stream.
func (s *StatusService) Stop() error {
	if !s.running {
		s.logger.Warn().Msg("StatusService is not running")
		return errors.New("status service is not running")
	}

	s.conn.Off(s.event, s.handlerID)
	s.running = false

	s.logger.Info().Msg("StatusService stopped")
	return nil
}
