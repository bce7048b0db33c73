package handlers

import (
	"net/http"
)

type RootHandler struct{}

func NewRootHandler() *RootHandler {
	return &RootHandler{}
}

func (h *RootHandler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        "departures",
		"description": "Real-time departure boards for configured transit stops",
		"version":     "1.0.0",
		"endpoints": map[string]string{
			"GET /api":                       "API information",
			"GET /health":                    "Health check",
			"GET /cards":                     "Configured departure cards",
			"GET /cards/{cardId}/departures": "Latest departures of a card",
			"GET /cards/{cardId}/stream":     "Departure updates as Server-Sent Events",
		},
	})
}

func (h *RootHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error":   "Route not found",
		"message": "Check the /api endpoint for available routes",
	})
}
