package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/restage/server/internal/config"
	"codeberg.org/restage/server/internal/logger"
)

// @title Restage API
// @version 1.0
// @description AI interior design: unstage, restyle and inpaint room photos
// @description
// @description Features:
// @description - Furniture removal and themed room redesign
// @description - Masked inpainting
// @description - Per-user credit ledger
// @description - Live operation progress over WebSockets

// @contact.name API Support
// @contact.url https://codeberg.org/restage/server

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authenticated requests. Format: Bearer {token}

// headroom above the prediction budget for unstage plus generate
const writeTimeoutSlack = 30 * time.Second

func main() {
	logger.Info("starting restage server")

	// load configuration from environment
	cfg, err := config.LoadEnvironmentVariables()
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}

	// create server with all dependencies
	srv, err := NewServer(cfg)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}

	// generate runs two predictions back to back
	writeTimeout := 2*cfg.Replicate.MaxWait + writeTimeoutSlack

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      srv.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// start server in goroutine
	go func() {
		logger.Info("server listening", "port", cfg.Port, "write_timeout", writeTimeout.String())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	// start websocket hub
	go srv.hub.Run()

	// start owed debit reconciler
	srv.reconciler.Start()

	// wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// notify websocket clients and close connections first
	srv.hub.Shutdown()

	// in-flight predictions get the full budget to finish and settle
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// settles whatever the last requests left behind
	srv.reconciler.Stop()

	if srv.redis != nil {
		srv.redis.Close() //nolint:errcheck,gosec // best-effort cleanup on shutdown
	}

	// close database connection
	srv.db.Close()

	logger.Info("server stopped")
}
