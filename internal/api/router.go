package api

import (
	"net/http"
	"time"

	"github.com/randytsao24/departures/internal/api/handlers"
	"github.com/randytsao24/departures/internal/config"
)

// NewRouter creates and configures the HTTP router with all routes and middleware
func NewRouter(cfg *config.Config, board handlers.BoardProvider) http.Handler {
	mux := http.NewServeMux()

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	rootHandler := handlers.NewRootHandler()
	departuresHandler := handlers.NewDeparturesHandler(board)

	timeout := Timeout(cfg.HTTPTimeout + 5*time.Second)

	// Core routes
	mux.Handle("GET /api", timeout(http.HandlerFunc(rootHandler.Index)))
	mux.Handle("GET /health", timeout(http.HandlerFunc(healthHandler.Health)))
	mux.HandleFunc("/", rootHandler.NotFound)

	// Departure cards
	mux.Handle("GET /cards", timeout(http.HandlerFunc(departuresHandler.ListCards)))
	mux.Handle("GET /cards/{cardId}/departures", timeout(http.HandlerFunc(departuresHandler.GetDepartures)))

	// Streams stay open, so they bypass the timeout handler
	mux.HandleFunc("GET /cards/{cardId}/stream", departuresHandler.StreamDepartures)

	// Apply middleware stack
	handler := Chain(mux,
		Recovery,
		Logging,
		CORS,
	)

	return handler
}
