// Package server wires HTTP handlers into a gin router for the relay.
package server

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// SetupRoutes returns a router serving health, stats, the WebSocket endpoint
// and the test page. Non-GET requests to these paths get 405.
func SetupRoutes(hub *Hub, cfg *Config) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery(), requestLogger(hub.logger))

	router.GET("/", HealthHandler)
	router.GET("/health", HealthHandler)
	router.GET("/stats", StatsHandler(hub))
	router.GET("/ws", WebSocketHandler(hub, cfg))
	router.GET("/test", TestPageHandler)
	return router
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http_request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"remote_addr", c.Request.RemoteAddr,
		)
	}
}
