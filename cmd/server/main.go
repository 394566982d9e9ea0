package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/Tyrowin/gorelay/internal/server"
)

func main() {
	cfg := server.LoadConfig()

	logger := server.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	hub := server.NewHub(logger)
	server.StartHub(hub)

	httpServer := server.CreateServer(cfg.Addr(), server.SetupRoutes(hub, cfg))

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.StartServer(httpServer)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errChan:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	exitCode := 0
	if err := server.ShutdownServer(httpServer, cfg.ShutdownTimeout); err != nil {
		logger.Error("http shutdown failed", "error", err)
		exitCode = 1
	}
	if err := hub.Shutdown(cfg.ShutdownTimeout); err != nil {
		logger.Error("hub shutdown failed", "error", err)
		exitCode = 1
	}
	os.Exit(exitCode)
}
