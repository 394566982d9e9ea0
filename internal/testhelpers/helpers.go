// Package testhelpers provides common utilities and helper functions for
// testing the relay server.
//
// It starts in-process relays on httptest servers and wraps raw WebSocket
// clients with the send/receive/expect helpers shared by the server and
// client test suites.
package testhelpers

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/gorelay/internal/server"
)

// TestOrigin is the Origin header sent by ConnectWebSocket.
const TestOrigin = "http://localhost:3000"

// Relay is a running in-process relay.
type Relay struct {
	Hub    *server.Hub
	Server *httptest.Server
	Config *server.Config
}

// WSURL returns the relay's WebSocket endpoint.
func (r *Relay) WSURL() string {
	return "ws" + strings.TrimPrefix(r.Server.URL, "http") + "/ws"
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// StartRelay starts a hub and an httptest server for it. customize may adjust
// the default configuration before the routes are built. Everything is torn
// down when the test ends.
func StartRelay(t *testing.T, customize func(cfg *server.Config)) *Relay {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := server.NewConfig()
	if customize != nil {
		customize(cfg)
	}

	hub := server.NewHub(DiscardLogger())
	go hub.Run()

	ts := httptest.NewServer(server.SetupRoutes(hub, cfg))
	t.Cleanup(func() {
		ts.CloseClientConnections()
		ts.Close()
		_ = hub.Shutdown(2 * time.Second)
	})

	return &Relay{Hub: hub, Server: ts, Config: cfg}
}

// ConnectWebSocket dials url with TestOrigin as the Origin header.
func ConnectWebSocket(url string) (*websocket.Conn, error) {
	return ConnectWebSocketWithOrigin(url, TestOrigin)
}

// ConnectWebSocketWithOrigin dials url, sending origin unless it is empty.
func ConnectWebSocketWithOrigin(url, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// ConnectClients dials n clients and waits until the hub has all of them in
// the room.
func ConnectClients(t *testing.T, relay *Relay, n int) []*websocket.Conn {
	t.Helper()

	before := relay.Hub.ClientCount()
	conns := make([]*websocket.Conn, n)
	for i := range conns {
		conn, err := ConnectWebSocket(relay.WSURL())
		require.NoError(t, err, "client %d failed to connect", i)
		conns[i] = conn
		t.Cleanup(func() { _ = conn.Close() })
	}

	WaitForClients(t, relay.Hub, before+n)
	return conns
}

// WaitForClients waits until the room holds exactly want connections.
func WaitForClients(t *testing.T, hub *server.Hub, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.ClientCount() == want
	}, 2*time.Second, 5*time.Millisecond, "expected %d clients in room", want)
}

// SendText writes payload as one text frame.
func SendText(t *testing.T, conn *websocket.Conn, payload string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(payload)))
}

// ReceiveRawMessage reads one frame, failing the test if none arrives in time.
func ReceiveRawMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) (int, []byte) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	messageType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return messageType, data
}

// ReceiveText reads one frame and returns it as a string.
func ReceiveText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	messageType, data := ReceiveRawMessage(t, conn, 2*time.Second)
	require.Equal(t, websocket.TextMessage, messageType)
	return string(data)
}

// ExpectNoMessage fails the test if conn receives a frame within timeout.
// It leaves conn unusable for further reads, since gorilla/websocket treats a
// read timeout as fatal.
func ExpectNoMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	_, data, err := conn.ReadMessage()
	if err == nil {
		t.Errorf("expected no message, got %q", data)
	}
}

// CloseWebSocket sends a normal close frame and closes the connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}
