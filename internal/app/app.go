// Package app wires configuration into the departure board components.
package app

import (
	"log/slog"
	"os"

	"github.com/randytsao24/departures/internal/board"
	"github.com/randytsao24/departures/internal/cache"
	"github.com/randytsao24/departures/internal/config"
	"github.com/randytsao24/departures/internal/poller"
	"github.com/randytsao24/departures/internal/transit"
)

// NewLogger returns a text logger in development and a JSON logger otherwise
func NewLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsDevelopment() {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

// NewSource picks the GTFS-Realtime feed when configured, the Digitransit
// API otherwise.
func NewSource(cfg *config.Config) transit.Source {
	if cfg.UsesGTFSRT() {
		return transit.NewGTFSRTSource(cfg.GTFSRTURL, cfg.GTFSRTKey, cfg.HTTPTimeout, nil)
	}
	return transit.NewDigitransitClient(cfg.DigitransitURL, cfg.DigitransitKey, cfg.HTTPTimeout, cfg.RetryMaxElapsed)
}

// NewResponseCache creates the response cache shared by all pollers
func NewResponseCache(cfg *config.Config) *cache.Cache[*transit.BatchResponse] {
	return cache.New[*transit.BatchResponse](cfg.CacheTTL)
}

// PollerOptions derives poller options from the configuration
func PollerOptions(cfg *config.Config, logger *slog.Logger) poller.Options {
	return poller.Options{
		Interval: cfg.PollInterval,
		Logger:   logger,
	}
}

// NewBoard builds a board for the configured cards
func NewBoard(cfg *config.Config, source transit.Source, responses *cache.Cache[*transit.BatchResponse], logger *slog.Logger) (*board.Board, error) {
	cards := make([]board.Card, len(cfg.Cards))
	for i, c := range cfg.Cards {
		cards[i] = board.Card{Title: c.Title, Stops: c.Stops}
	}
	return board.New(source, responses, cards, PollerOptions(cfg, logger))
}
