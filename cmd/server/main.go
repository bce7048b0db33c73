// Package main is the entry point for the departures server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/randytsao24/departures/internal/api"
	"github.com/randytsao24/departures/internal/app"
	"github.com/randytsao24/departures/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Configuration error: ", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal("Configuration error: ", err)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	responses := app.NewResponseCache(cfg)
	defer responses.Close()

	departureBoard, err := app.NewBoard(cfg, app.NewSource(cfg), responses, logger)
	if err != nil {
		log.Fatal("Board error: ", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := departureBoard.Start(ctx); err != nil {
		log.Fatal("Board error: ", err)
	}
	defer departureBoard.Stop()

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     api.NewRouter(cfg, departureBoard),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	fmt.Printf("🚆 departures server starting on port %s\n", cfg.Port)
	fmt.Printf("📍 Environment: %s\n", cfg.Env)
	fmt.Printf("🪧 Cards: %d\n", len(cfg.Cards))
	fmt.Printf("🔗 http://localhost:%s\n", cfg.Port)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start: ", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", "error", err)
	}
}
