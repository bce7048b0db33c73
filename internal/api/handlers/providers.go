package handlers

import (
	"github.com/randytsao24/departures/internal/board"
	"github.com/randytsao24/departures/internal/models"
)

// BoardProvider abstracts the departure board for testability.
type BoardProvider interface {
	Cards() []board.Card
	Snapshot(id string) (board.Snapshot, bool)
	Subscribe(id string) (<-chan []models.Departure, func(), bool)
}
