// Package server coordinates room membership, message relay, and connection
// cleanup for the relay via the Hub type.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Hub owns the room membership and relays message events between members.
// Every membership change and every broadcast is handled by the Run loop, one
// event at a time; the mutex only guards readers outside that loop.
type Hub struct {
	// group name -> connection id -> connection
	groups map[string]map[string]Connection
	// connection id -> group name
	memberOf map[string]string

	broadcast  chan BroadcastMessage
	register   chan Connection
	unregister chan Connection

	mutex  sync.RWMutex
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	logger *slog.Logger
}

// NewHub creates a Hub with an empty room. A nil logger uses slog.Default().
// The returned Hub does nothing until Run is started.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		groups:     map[string]map[string]Connection{RoomName: {}},
		memberOf:   make(map[string]string),
		broadcast:  make(chan BroadcastMessage),
		register:   make(chan Connection),
		unregister: make(chan Connection),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// OnConnect adds conn to the room. It blocks until the hub has accepted the
// event, so a message submitted afterwards by the same caller is handled
// after the join.
func (h *Hub) OnConnect(conn Connection) error {
	return h.submit(h.register, conn)
}

// OnDisconnect removes conn from the room. Unknown or already removed
// connections are ignored.
func (h *Hub) OnDisconnect(conn Connection) error {
	return h.submit(h.unregister, conn)
}

// OnMessage relays msg to every other member of the sender's room.
func (h *Hub) OnMessage(sender Connection, msg Message) error {
	select {
	case h.broadcast <- BroadcastMessage{Sender: sender, Message: msg}:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

func (h *Hub) submit(ch chan<- Connection, conn Connection) error {
	select {
	case ch <- conn:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

// Run starts the hub's event loop. It returns after Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case conn := <-h.register:
			if conn == nil {
				h.logger.Warn("nil connection registration skipped")
				continue
			}
			h.handleConnect(conn)

		case conn := <-h.unregister:
			if conn == nil {
				continue
			}
			h.handleDisconnect(conn)

		case msg := <-h.broadcast:
			h.handleBroadcast(msg)
		}
	}
}

func (h *Hub) handleConnect(conn Connection) {
	h.mutex.Lock()
	if _, exists := h.memberOf[conn.ID()]; exists {
		h.mutex.Unlock()
		return
	}
	h.groups[RoomName][conn.ID()] = conn
	h.memberOf[conn.ID()] = RoomName
	count := len(h.groups[RoomName])
	h.mutex.Unlock()

	if p, ok := conn.(pumped); ok {
		for _, fn := range p.pumps() {
			h.spawn(fn)
		}
	}

	h.logger.Info("client_connected",
		"client_id", conn.ID(),
		"remote_addr", conn.RemoteAddr(),
		"room", RoomName,
		"clients", count,
	)
}

func (h *Hub) handleDisconnect(conn Connection) {
	if !h.removeMember(conn) {
		return
	}
	conn.Close()

	h.logger.Info("client_disconnected",
		"client_id", conn.ID(),
		"remote_addr", conn.RemoteAddr(),
		"room", RoomName,
		"clients", h.ClientCount(),
	)
}

// removeMember deletes conn from its group and reports whether it was a member.
func (h *Hub) removeMember(conn Connection) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	group, ok := h.memberOf[conn.ID()]
	if !ok {
		return false
	}
	delete(h.groups[group], conn.ID())
	delete(h.memberOf, conn.ID())
	return true
}

// handleBroadcast sends the message to every member except the sender. A
// recipient that cannot take the message is evicted. Messages from a sender
// that is no longer a member are dropped.
func (h *Hub) handleBroadcast(bm BroadcastMessage) {
	if bm.Sender == nil {
		return
	}
	recipients, ok := h.recipients(bm.Sender)
	if !ok {
		h.logger.Debug("message from non-member dropped", "client_id", bm.Sender.ID())
		return
	}

	var failed []Connection
	for _, conn := range recipients {
		if !conn.Send(bm.Message) {
			failed = append(failed, conn)
		}
	}

	h.logger.Info("message_relayed",
		"client_id", bm.Sender.ID(),
		"bytes", len(bm.Message.Data),
		"recipients", len(recipients)-len(failed),
	)

	for _, conn := range failed {
		if h.removeMember(conn) {
			conn.Close()
			h.logger.Warn("client_evicted",
				"client_id", conn.ID(),
				"remote_addr", conn.RemoteAddr(),
				"reason", "send buffer full",
			)
		}
	}
}

// recipients snapshots the sender's group minus the sender. ok is false when
// the sender is not a member.
func (h *Hub) recipients(sender Connection) (out []Connection, ok bool) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	group, ok := h.memberOf[sender.ID()]
	if !ok {
		return nil, false
	}

	members := h.groups[group]
	out = make([]Connection, 0, len(members))
	for id, conn := range members {
		if id == sender.ID() {
			continue
		}
		out = append(out, conn)
	}
	return out, true
}

// ClientCount returns the number of connections currently in the room.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.groups[RoomName])
}

// IsMember reports whether the connection with the given id is in the room.
func (h *Hub) IsMember(id string) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.memberOf[id] == RoomName
}

// Stats returns the room name and its member count.
func (h *Hub) Stats() Stats {
	return Stats{Room: RoomName, Clients: h.ClientCount()}
}

// pumped is implemented by connections whose I/O goroutines are started by
// the hub once they join, so Shutdown can wait for them.
type pumped interface {
	pumps() []func()
}

// spawn runs fn in a goroutine tracked by Shutdown.
func (h *Hub) spawn(fn func()) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		fn()
	}()
}

// shutdownClients removes every member and closes its connection.
func (h *Hub) shutdownClients() {
	h.logger.Info("closing all client connections")

	h.mutex.Lock()
	conns := make([]Connection, 0, len(h.memberOf))
	for _, group := range h.groups {
		for _, conn := range group {
			conns = append(conns, conn)
		}
	}
	h.groups = map[string]map[string]Connection{RoomName: {}}
	h.memberOf = make(map[string]string)
	h.mutex.Unlock()

	for _, conn := range conns {
		conn.Close()
	}

	h.logger.Info("client connections closed", "count", len(conns))
}

// Shutdown stops the event loop, closes every connection and waits for the
// connection goroutines to finish. It returns context.DeadlineExceeded if they
// are still running after timeout. Shutdown must only be called once Run has
// been started.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info("initiating hub shutdown")

	h.cancel()
	<-h.done

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		h.logger.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.logger.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
