// Package board runs the departure cards of a dashboard, one poller per
// card, all sharing a single response cache.
package board

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/randytsao24/departures/internal/cache"
	"github.com/randytsao24/departures/internal/models"
	"github.com/randytsao24/departures/internal/poller"
	"github.com/randytsao24/departures/internal/transit"
)

// Card describes one departure card
type Card struct {
	ID    string             `json:"id"`
	Title string             `json:"title"`
	Stops []models.StopQuery `json:"stops"`
}

// Snapshot is the latest state of a card
type Snapshot struct {
	Card       Card               `json:"card"`
	Departures []models.Departure `json:"departures"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

type card struct {
	info   Card
	poller *poller.Poller

	mu          sync.Mutex
	subscribers map[chan []models.Departure]struct{}
	closed      bool
}

// Board owns the pollers of all cards
type Board struct {
	cards  []*card
	byID   map[string]*card
	logger *slog.Logger
}

// New creates a board. Cards without an ID get their index as ID.
func New(source transit.Source, responses *cache.Cache[*transit.BatchResponse], cards []Card, opts poller.Options) (*Board, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	b := &Board{
		byID:   make(map[string]*card, len(cards)),
		logger: opts.Logger,
	}
	for i, c := range cards {
		if c.ID == "" {
			c.ID = strconv.Itoa(i)
		}
		if _, dup := b.byID[c.ID]; dup {
			return nil, fmt.Errorf("duplicate card id %q", c.ID)
		}

		cardOpts := opts
		cardOpts.Logger = opts.Logger.With("card", c.ID)
		entry := &card{
			info:        c,
			poller:      poller.New(source, responses, c.Stops, cardOpts),
			subscribers: make(map[chan []models.Departure]struct{}),
		}
		b.cards = append(b.cards, entry)
		b.byID[c.ID] = entry
	}
	return b, nil
}

// Start starts every card's poller. If one fails, the pollers started
// before it are stopped again.
func (b *Board) Start(ctx context.Context) error {
	for i, c := range b.cards {
		if err := c.poller.Start(ctx); err != nil {
			for _, started := range b.cards[:i] {
				started.poller.Stop()
			}
			return fmt.Errorf("starting card %s: %w", c.info.ID, err)
		}
		go c.fanOut()
	}
	b.logger.Info("board started", "cards", len(b.cards))
	return nil
}

// Stop stops every poller and closes all subscriptions
func (b *Board) Stop() {
	for _, c := range b.cards {
		c.poller.Stop()
	}
}

// Cards lists the configured cards in order
func (b *Board) Cards() []Card {
	out := make([]Card, len(b.cards))
	for i, c := range b.cards {
		out[i] = c.info
	}
	return out
}

// Snapshot returns the latest departures of a card
func (b *Board) Snapshot(id string) (Snapshot, bool) {
	c, ok := b.byID[id]
	if !ok {
		return Snapshot{}, false
	}
	deps, at := c.poller.Latest()
	return Snapshot{Card: c.info, Departures: deps, UpdatedAt: at}, true
}

// Subscribe returns a channel receiving every list published for a card,
// and a func to end the subscription. Slow subscribers only see the newest
// list.
func (b *Board) Subscribe(id string) (<-chan []models.Departure, func(), bool) {
	c, ok := b.byID[id]
	if !ok {
		return nil, nil, false
	}

	ch := make(chan []models.Departure, 1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(ch)
		return ch, func() {}, true
	}
	c.subscribers[ch] = struct{}{}

	return ch, func() { c.unsubscribe(ch) }, true
}

func (c *card) unsubscribe(ch chan []models.Departure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subscribers[ch]; ok {
		delete(c.subscribers, ch)
		close(ch)
	}
}

func (c *card) fanOut() {
	for deps := range c.poller.Updates() {
		c.mu.Lock()
		for ch := range c.subscribers {
			select {
			case <-ch:
			default:
			}
			ch <- deps
		}
		c.mu.Unlock()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for ch := range c.subscribers {
		delete(c.subscribers, ch)
		close(ch)
	}
}
