// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is a WebSocket connection in the room. It implements Connection.
type Client struct {
	id             string
	conn           *websocket.Conn
	send           chan Message
	hub            *Hub
	addr           string
	maxMessageSize int64
	rateLimiter    *rate.Limiter
	closeOnce      sync.Once
	logger         *slog.Logger
}

// NewClient creates a Client with a fresh identifier for the given WebSocket
// connection. conn may be nil in tests that never start the pumps.
func NewClient(conn *websocket.Conn, hub *Hub, addr string, cfg *Config) *Client {
	if cfg == nil {
		cfg = NewConfig()
	}
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	bufferSize := cfg.SendBufferSize
	if bufferSize <= 0 {
		bufferSize = defaultSendBufferSize
	}

	id := uuid.NewString()
	return &Client{
		id:             id,
		conn:           conn,
		send:           make(chan Message, bufferSize),
		hub:            hub,
		addr:           addr,
		maxMessageSize: cfg.MaxMessageSize,
		rateLimiter:    newRateLimiter(cfg.RateLimit),
		logger:         hub.logger.With("client_id", id),
	}
}

// ID returns the server-assigned connection identifier.
func (c *Client) ID() string { return c.id }

// RemoteAddr returns the peer address the connection was accepted from.
func (c *Client) RemoteAddr() string { return c.addr }

// Send queues msg for delivery without blocking.
func (c *Client) Send(msg Message) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Close stops the write pump, which sends a close frame and drops the socket.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// GetSendChan returns the client's outbound queue.
func (c *Client) GetSendChan() <-chan Message {
	return c.send
}

// Start joins the room. The hub launches the read and write pumps as part of
// the join, so no frame is read before the client is a member.
func (c *Client) Start() error {
	return c.hub.OnConnect(c)
}

func (c *Client) pumps() []func() {
	return []func(){c.writePump, c.readPump}
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Warn("set read deadline failed", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

// handleReadError logs the reason a read failed. Every read error ends the
// connection.
func (c *Client) handleReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.logger.Warn("message exceeded maximum size", "max_bytes", c.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived):
		c.logger.Debug("client closed connection", "error", err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.logger.Debug("connection closed", "error", err)
	case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure):
		c.logger.Warn("unexpected websocket close", "error", err)
	default:
		c.logger.Debug("websocket read ended", "error", err)
	}
}

// allow reports whether the rate limiter lets another frame through.
func (c *Client) allow() bool {
	if c.rateLimiter == nil || c.rateLimiter.Allow() {
		return true
	}
	c.logger.Warn("rate limit exceeded; discarding message")
	return false
}

func (c *Client) readPump() {
	defer func() {
		if err := c.hub.OnDisconnect(c); err != nil {
			c.logger.Debug("disconnect after hub shutdown", "error", err)
		}
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.logger.Warn("error closing connection in read pump", "error", err)
		}
	}()

	c.setupReadConnection()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		if !c.allow() {
			continue
		}

		if err := c.hub.OnMessage(c, Message{Type: messageType, Data: data}); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case msg, ok := <-c.send:
		if !ok {
			return c.writeCloseMessage()
		}
		return c.writeMessage(msg)
	case <-ticker.C:
		return c.writePing()
	}
}

// closeConnection safely closes the WebSocket connection with proper error handling
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.logger.Warn("error closing connection in write pump", "error", err)
	}
}

// writeCloseMessage sends a normal close frame to the peer.
func (c *Client) writeCloseMessage() bool {
	deadline := time.Now().Add(writeWait)
	payload := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.conn.WriteControl(websocket.CloseMessage, payload, deadline); err != nil && !isExpectedCloseError(err) {
		c.logger.Debug("error writing close message", "error", err)
	}
	return false
}

// writeMessage writes msg as a single frame of its original kind.
func (c *Client) writeMessage(msg Message) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Warn("set write deadline failed", "error", err)
		return false
	}
	if err := c.conn.WriteMessage(msg.Type, msg.Data); err != nil {
		if !isExpectedCloseError(err) {
			c.logger.Warn("error writing message", "error", err)
		}
		return false
	}
	return true
}

// writePing sends a ping message to keep the connection alive
func (c *Client) writePing() bool {
	if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
		if !isExpectedCloseError(err) {
			c.logger.Warn("error writing ping", "error", err)
		}
		return false
	}
	return true
}
