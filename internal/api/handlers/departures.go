package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const keepAliveInterval = 15 * time.Second

type DeparturesHandler struct {
	board BoardProvider
}

func NewDeparturesHandler(board BoardProvider) *DeparturesHandler {
	return &DeparturesHandler{board: board}
}

// ListCards returns the configured cards
func (h *DeparturesHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	cards := h.board.Cards()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"cards":   cards,
		"count":   len(cards),
	})
}

// GetDepartures returns the latest departures of a card
func (h *DeparturesHandler) GetDepartures(w http.ResponseWriter, r *http.Request) {
	cardID := r.PathValue("cardId")
	snap, ok := h.board.Snapshot(cardID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":   "Card not found",
			"message": "No card with id " + cardID,
		})
		return
	}

	resp := map[string]any{
		"success":    true,
		"card":       snap.Card,
		"departures": snap.Departures,
		"count":      len(snap.Departures),
	}
	if !snap.UpdatedAt.IsZero() {
		resp["updated_at"] = snap.UpdatedAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// StreamDepartures pushes every published list of a card as Server-Sent Events
func (h *DeparturesHandler) StreamDepartures(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": "Streaming unsupported",
		})
		return
	}

	cardID := r.PathValue("cardId")
	snap, found := h.board.Snapshot(cardID)
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":   "Card not found",
			"message": "No card with id " + cardID,
		})
		return
	}

	updates, unsubscribe, subscribed := h.board.Subscribe(cardID)
	if !subscribed {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":   "Card not found",
			"message": "No card with id " + cardID,
		})
		return
	}
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, snap.Departures); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case deps, open := <-updates:
			if !open {
				return
			}
			if err := writeEvent(w, deps); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		slog.Error("encoding stream event", "error", err)
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}
