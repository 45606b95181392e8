package socket

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ErrNotConnected is returned by Emit when no connection is established.
var ErrNotConnected = errors.New("not connected to server")

// State represents the connectivity state of the connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Handler processes the data payload of a named inbound event.
type Handler func(data json.RawMessage)

// StateHandler is notified whenever the connectivity state changes.
type StateHandler func(state State)

// Connection defines the event-based duplex transport to the backend.
type Connection interface {
	Connect() error
	Disconnect() error
	IsConnected() bool
	On(event string, handler Handler) int
	Off(event string, id int)
	Emit(event string, payload any) error
	OnStateChange(handler StateHandler)
}

// frame is the wire shape of a single websocket message in either direction.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Config holds the transport tunables.
type Config struct {
	URL                  string        // ws:// or wss:// endpoint
	HandshakeTimeout     time.Duration // dial timeout
	ReconnectBaseDelay   time.Duration // first backoff delay
	ReconnectMaxDelay    time.Duration // backoff cap
	ReconnectMaxAttempts int           // 0 means retry forever
	PingInterval         time.Duration // keepalive ping period
	// TokenFunc returns the current bearer token to attach to the handshake,
	// or empty when no valid credential exists. Read at every (re)dial so a
	// refreshed token is picked up on reconnect.
	TokenFunc func() string
}

// WebSocketConnection maintains one websocket to the backend and dispatches
// named inbound events to registered handlers. Reconnection uses exponential
// backoff; request/response semantics live a layer above.
type WebSocketConnection struct {
	config Config
	logger zerolog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	writeMu  sync.Mutex
	state    State
	closing  bool
	readDone chan struct{}

	handlerMu     sync.RWMutex
	handlers      map[string]map[int]Handler
	nextHandlerID int
	stateHandlers []StateHandler

	// State notifications are queued and drained by a single goroutine so
	// observers always see transitions in the order they happened.
	notifyMu      sync.Mutex
	pendingStates []State
	notifying     bool
}

// NewWebSocketConnection creates a connection with defaults applied for any
// unset tunables (1s base delay, 5s cap, 10s handshake, 25s ping).
func NewWebSocketConnection(config Config, logger zerolog.Logger) *WebSocketConnection {
	if config.ReconnectBaseDelay <= 0 {
		config.ReconnectBaseDelay = 1 * time.Second
	}
	if config.ReconnectMaxDelay <= 0 {
		config.ReconnectMaxDelay = 5 * time.Second
	}
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = 10 * time.Second
	}
	if config.PingInterval <= 0 {
		config.PingInterval = 25 * time.Second
	}
	return &WebSocketConnection{
		config:   config,
		logger:   logger,
		state:    StateDisconnected,
		handlers: make(map[string]map[int]Handler),
	}
}

// Connect establishes the websocket if not already connected. Idempotent.
func (c *WebSocketConnection) Connect() error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.closing = false
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	conn, err := c.dial()
	if err != nil {
		c.mu.Lock()
		c.setStateLocked(StateDisconnected)
		c.mu.Unlock()
		return err
	}

	c.adopt(conn)
	return nil
}

// dial resolves the endpoint URL, attaches the current token as a query
// parameter, and opens the websocket.
func (c *WebSocketConnection) dial() (*websocket.Conn, error) {
	u, err := url.Parse(c.config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme == "http" {
		u.Scheme = "ws"
	} else if u.Scheme == "https" {
		u.Scheme = "wss"
	}

	if c.config.TokenFunc != nil {
		if token := c.config.TokenFunc(); token != "" {
			q := u.Query()
			q.Set("token", token)
			u.RawQuery = q.Encode()
		}
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.config.HandshakeTimeout}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.config.URL, err)
	}
	return conn, nil
}

// adopt installs a freshly dialed websocket and starts its read and keepalive
// loops.
func (c *WebSocketConnection) adopt(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.readDone = make(chan struct{})
	done := c.readDone
	c.setStateLocked(StateConnected)
	c.mu.Unlock()

	c.logger.Info().Str("url", c.config.URL).Msg("Connected to server")

	go c.readLoop(conn, done)
	go c.pingLoop(conn, done)
}

// Disconnect tears the connection down cleanly. Safe to call when already
// disconnected; suppresses automatic reconnection.
func (c *WebSocketConnection) Disconnect() error {
	c.mu.Lock()
	c.closing = true
	conn := c.conn
	c.conn = nil
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	c.writeMu.Lock()
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to send close message")
	}
	return conn.Close()
}

// IsConnected reports whether the websocket is currently established.
func (c *WebSocketConnection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && c.state == StateConnected
}

// On registers a handler for a named inbound event and returns a registration
// id usable with Off.
func (c *WebSocketConnection) On(event string, handler Handler) int {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()

	c.nextHandlerID++
	id := c.nextHandlerID
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[int]Handler)
	}
	c.handlers[event][id] = handler
	return id
}

// Off removes a handler registration.
func (c *WebSocketConnection) Off(event string, id int) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	delete(c.handlers[event], id)
}

// OnStateChange registers a connectivity state observer.
func (c *WebSocketConnection) OnStateChange(handler StateHandler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.stateHandlers = append(c.stateHandlers, handler)
}

// Emit sends a named event with a JSON payload. Returns ErrNotConnected when
// no connection is established; the caller decides how to surface that.
func (c *WebSocketConnection) Emit(event string, payload any) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected
	c.mu.Unlock()

	if conn == nil || !connected {
		return ErrNotConnected
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}
	message, err := json.Marshal(frame{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal %s frame: %w", event, err)
	}

	c.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, message)
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to send %s event: %w", event, err)
	}

	c.logger.Debug().Str("event", event).Int("size", len(message)).Msg("Event sent")
	return nil
}

// readLoop reads frames until the connection drops, then hands off to the
// reconnect loop unless Disconnect was requested.
func (c *WebSocketConnection) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * c.config.PingInterval))
	})
	_ = conn.SetReadDeadline(time.Now().Add(2 * c.config.PingInterval))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closing := c.closing
			if c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()

			if closing {
				return
			}
			c.logger.Warn().Err(err).Msg("Connection lost")
			go c.reconnectLoop()
			return
		}

		var f frame
		if err := json.Unmarshal(message, &f); err != nil {
			c.logger.Warn().Err(err).Msg("Discarding malformed frame")
			continue
		}
		c.dispatch(f)
	}
}

// dispatch invokes all handlers registered for the frame's event. A panicking
// handler is logged and does not affect the others or the read loop.
func (c *WebSocketConnection) dispatch(f frame) {
	c.handlerMu.RLock()
	registered := make([]Handler, 0, len(c.handlers[f.Event]))
	for _, h := range c.handlers[f.Event] {
		registered = append(registered, h)
	}
	c.handlerMu.RUnlock()

	if len(registered) == 0 {
		c.logger.Debug().Str("event", f.Event).Msg("No handler for event")
		return
	}

	for _, handler := range registered {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error().Str("event", f.Event).Interface("panic", r).
						Msg("Event handler panicked")
				}
			}()
			handler(f.Data)
		}()
	}
}

// pingLoop keeps the connection alive with periodic websocket pings.
func (c *WebSocketConnection) pingLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// reconnectLoop re-dials with exponential backoff until it succeeds, the
// attempt cap is reached, or Disconnect is called.
func (c *WebSocketConnection) reconnectLoop() {
	c.mu.Lock()
	if c.closing || c.state == StateReconnecting {
		c.mu.Unlock()
		return
	}
	c.setStateLocked(StateReconnecting)
	c.mu.Unlock()

	delay := c.config.ReconnectBaseDelay
	for attempt := 1; ; attempt++ {
		c.mu.Lock()
		if c.closing {
			c.setStateLocked(StateDisconnected)
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		c.logger.Info().Int("attempt", attempt).Dur("delay", delay).Msg("Reconnecting")
		time.Sleep(delay)

		conn, err := c.dial()
		if err == nil {
			c.adopt(conn)
			return
		}
		c.logger.Warn().Err(err).Int("attempt", attempt).Msg("Reconnect attempt failed")

		if c.config.ReconnectMaxAttempts > 0 && attempt >= c.config.ReconnectMaxAttempts {
			c.logger.Error().Int("attempts", attempt).Msg("Giving up on reconnection")
			c.mu.Lock()
			c.setStateLocked(StateDisconnected)
			c.mu.Unlock()
			return
		}

		delay *= 2
		if delay > c.config.ReconnectMaxDelay {
			delay = c.config.ReconnectMaxDelay
		}
	}
}

// setStateLocked updates the state and queues an observer notification.
// Caller holds c.mu; observers run off a single drain goroutine so they may
// call back into the connection freely and rapid transitions (connected then
// immediately disconnected) are never seen out of order.
func (c *WebSocketConnection) setStateLocked(state State) {
	if c.state == state {
		return
	}
	c.state = state

	c.notifyMu.Lock()
	c.pendingStates = append(c.pendingStates, state)
	if c.notifying {
		c.notifyMu.Unlock()
		return
	}
	c.notifying = true
	c.notifyMu.Unlock()

	go c.drainStateNotifications()
}

// drainStateNotifications delivers queued state transitions in order until
// the queue empties. At most one drain goroutine runs at a time.
func (c *WebSocketConnection) drainStateNotifications() {
	for {
		c.notifyMu.Lock()
		if len(c.pendingStates) == 0 {
			c.notifying = false
			c.notifyMu.Unlock()
			return
		}
		state := c.pendingStates[0]
		c.pendingStates = c.pendingStates[1:]
		c.notifyMu.Unlock()

		c.handlerMu.RLock()
		observers := make([]StateHandler, len(c.stateHandlers))
		copy(observers, c.stateHandlers)
		c.handlerMu.RUnlock()

		for _, observer := range observers {
			observer(state)
		}
	}
}
