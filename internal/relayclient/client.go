// Package relayclient is a small WebSocket client for the relay server.
package relayclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 5 * time.Second
	writeWait        = 10 * time.Second
)

// Message is one frame received from the relay.
type Message struct {
	Binary bool
	Data   []byte
}

// Conn is a connection to the relay's room. Send methods may be called from
// one goroutine while another calls Receive.
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

// Dial connects to the relay at url. A non-empty origin is sent as the Origin
// header, which browser-restricted servers require.
func Dial(ctx context.Context, url, origin string) (*Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}

	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}

	ws, resp, err := dialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Conn{ws: ws}, nil
}

// Send writes data as one text frame.
func (c *Conn) Send(data []byte) error {
	return c.write(websocket.TextMessage, data)
}

// SendBinary writes data as one binary frame.
func (c *Conn) SendBinary(data []byte) error {
	return c.write(websocket.BinaryMessage, data)
}

func (c *Conn) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := c.ws.WriteMessage(messageType, data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Receive blocks until the next frame arrives. A close from the relay is
// returned as an error; IsClosed identifies a normal one.
func (c *Conn) Receive() (Message, error) {
	messageType, data, err := c.ws.ReadMessage()
	if err != nil {
		return Message{}, err
	}
	return Message{Binary: messageType == websocket.BinaryMessage, Data: data}, nil
}

// SetReadDeadline bounds the next Receive call. A zero value clears it.
func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.ws.SetReadDeadline(t)
}

// Close sends a normal close frame and closes the socket.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	err := c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	c.writeMu.Unlock()

	closeErr := c.ws.Close()
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return errors.Join(err, closeErr)
	}
	return closeErr
}

// IsClosed reports whether err means the relay ended the connection normally.
func IsClosed(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
