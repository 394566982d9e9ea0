// Package server defines shared message payload types and utility helpers that
// are reused across client and hub logic.
package server

import (
	"errors"
	"net"
	"strings"

	"github.com/gorilla/websocket"
)

// RoomName is the single group every connection joins.
const RoomName = "ultraRoom"

// ErrHubClosed is returned when an event is submitted to a hub that has shut down.
var ErrHubClosed = errors.New("hub closed")

// Message is one relayed message event. Data is opaque and never inspected;
// Type is the WebSocket frame kind it arrived on and is preserved on delivery.
type Message struct {
	Type int
	Data []byte
}

// Connection is a group member as seen by the hub.
//
// Send must not block: it returns false when the message could not be queued.
// Close releases the outbound side of the connection and must be safe to call
// more than once.
type Connection interface {
	ID() string
	RemoteAddr() string
	Send(msg Message) bool
	Close()
}

// BroadcastMessage encapsulates a message being broadcast by the hub,
// including the originating connection so it can be excluded from delivery.
type BroadcastMessage struct {
	Sender  Connection
	Message Message
}

// Stats is a point-in-time view of the room.
type Stats struct {
	Room    string `json:"room"`
	Clients int    `json:"clients"`
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, websocket.ErrCloseSent) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
