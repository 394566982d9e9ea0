// Package server constructs and starts the relay's HTTP service with helpers
// that apply sensible production defaults.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// CreateServer creates an HTTP server bound to addr. There is no write
// timeout: upgraded connections manage their own deadlines.
func CreateServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// StartHub runs the hub's event loop in a separate goroutine.
func StartHub(hub *Hub) {
	go hub.Run()
	hub.logger.Info("hub started", "room", RoomName)
}

// StartServer binds server.Addr and serves until the server is shut down.
// A clean shutdown returns nil.
func StartServer(server *http.Server) error {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", server.Addr, err)
	}
	return Serve(server, ln)
}

// Serve logs the bound address and serves on ln.
func Serve(server *http.Server, ln net.Listener) error {
	slog.Info("chat server listening", "addr", ln.Addr().String())

	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// ShutdownServer stops accepting connections and waits for in-flight HTTP
// requests, up to timeout. Hijacked WebSocket connections are left to the hub.
func ShutdownServer(server *http.Server, timeout time.Duration) error {
	slog.Info("shutting down http server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}

	slog.Info("http server shutdown completed")
	return nil
}
