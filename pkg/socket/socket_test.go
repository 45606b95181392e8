package socket_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodinohjaus/gateway/pkg/socket"
)

var upgrader = websocket.Upgrader{}

// echoServer upgrades every request and echoes each frame back, recording the
// token query parameter of the handshake.
type echoServer struct {
	*httptest.Server

	mu     sync.Mutex
	tokens []string
}

func newEchoServer(t *testing.T) *echoServer {
	t.Helper()
	s := &echoServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.tokens = append(s.tokens, r.URL.Query().Get("token"))
		s.mu.Unlock()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(messageType, message); err != nil {
				return
			}
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *echoServer) handshakeTokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.tokens))
	copy(out, s.tokens)
	return out
}

func TestEmit_NotConnected(t *testing.T) {
	conn := socket.NewWebSocketConnection(socket.Config{URL: "ws://127.0.0.1:1"}, zerolog.Nop())

	err := conn.Emit("request", map[string]string{"type": "ping"})

	assert.ErrorIs(t, err, socket.ErrNotConnected)
}

func TestConnect_EmitAndDispatch(t *testing.T) {
	server := newEchoServer(t)

	conn := socket.NewWebSocketConnection(socket.Config{
		URL:       server.URL,
		TokenFunc: func() string { return "test-token" },
	}, zerolog.Nop())

	received := make(chan json.RawMessage, 1)
	conn.On("greeting", func(data json.RawMessage) { received <- data })

	require.NoError(t, conn.Connect())
	defer conn.Disconnect()

	assert.True(t, conn.IsConnected())
	assert.Equal(t, []string{"test-token"}, server.handshakeTokens())

	require.NoError(t, conn.Emit("greeting", map[string]string{"hello": "world"}))

	select {
	case data := <-received:
		assert.JSONEq(t, `{"hello":"world"}`, string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("echoed frame never dispatched")
	}
}

func TestOff_StopsDispatch(t *testing.T) {
	server := newEchoServer(t)

	conn := socket.NewWebSocketConnection(socket.Config{URL: server.URL}, zerolog.Nop())

	received := make(chan struct{}, 2)
	kept := make(chan struct{}, 2)
	removed := conn.On("tick", func(json.RawMessage) { received <- struct{}{} })
	conn.On("tick", func(json.RawMessage) { kept <- struct{}{} })
	conn.Off("tick", removed)

	require.NoError(t, conn.Connect())
	defer conn.Disconnect()

	require.NoError(t, conn.Emit("tick", nil))

	select {
	case <-kept:
	case <-time.After(2 * time.Second):
		t.Fatal("remaining handler never dispatched")
	}
	select {
	case <-received:
		t.Fatal("removed handler was dispatched")
	default:
	}
}

func TestDisconnect_Idempotent(t *testing.T) {
	server := newEchoServer(t)

	conn := socket.NewWebSocketConnection(socket.Config{URL: server.URL}, zerolog.Nop())
	require.NoError(t, conn.Connect())

	assert.NoError(t, conn.Disconnect())
	assert.False(t, conn.IsConnected())
	assert.NoError(t, conn.Disconnect())

	assert.ErrorIs(t, conn.Emit("request", nil), socket.ErrNotConnected)
}

func TestOnStateChange_ObservesTransitions(t *testing.T) {
	server := newEchoServer(t)

	conn := socket.NewWebSocketConnection(socket.Config{URL: server.URL}, zerolog.Nop())

	states := make(chan socket.State, 8)
	conn.OnStateChange(func(state socket.State) { states <- state })

	require.NoError(t, conn.Connect())

	seen := map[socket.State]bool{}
	deadline := time.After(2 * time.Second)
	for !seen[socket.StateConnected] {
		select {
		case s := <-states:
			seen[s] = true
		case <-deadline:
			t.Fatal("never observed connected state")
		}
	}
	assert.True(t, seen[socket.StateConnecting])

	require.NoError(t, conn.Disconnect())
}

func TestOnStateChange_RapidTransitionsStayOrdered(t *testing.T) {
	server := newEchoServer(t)

	conn := socket.NewWebSocketConnection(socket.Config{URL: server.URL}, zerolog.Nop())

	var mu sync.Mutex
	var observed []socket.State
	conn.OnStateChange(func(state socket.State) {
		time.Sleep(10 * time.Millisecond) // slow observer widens any reordering window
		mu.Lock()
		observed = append(observed, state)
		mu.Unlock()
	})

	// Disconnect immediately after Connect so the connected and disconnected
	// notifications are queued back to back.
	require.NoError(t, conn.Connect())
	require.NoError(t, conn.Disconnect())

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(observed)
		mu.Unlock()
		if n >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("only %d state notifications arrived", n)
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []socket.State{
		socket.StateConnecting,
		socket.StateConnected,
		socket.StateDisconnected,
	}, observed)
}
