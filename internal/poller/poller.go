// Package poller refreshes the departures of one card on a fixed cadence.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/randytsao24/departures/internal/cache"
	"github.com/randytsao24/departures/internal/models"
	"github.com/randytsao24/departures/internal/transit"
)

// DefaultInterval is the polling cadence used when none is configured
const DefaultInterval = 5 * time.Second

// State is a poller lifecycle state
type State int

const (
	Idle State = iota
	Active
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// ErrNotIdle is returned when Start is called more than once
var ErrNotIdle = errors.New("poller already started or stopped")

// Options configures a Poller
type Options struct {
	Interval time.Duration
	Logger   *slog.Logger
	Clock    func() time.Time
}

// Poller fetches, aggregates and publishes departures for an ordered list of
// stop queries. Responses go through a cache shared with other pollers.
//
// Cycles never overlap: the wait for the next cycle starts once the previous
// one has finished, so publishes arrive in order.
type Poller struct {
	queries  []models.StopQuery
	source   transit.Source
	cache    *cache.Cache[*transit.BatchResponse]
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	state     State
	latest    []models.Departure
	updatedAt time.Time
	updates   chan []models.Departure
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates an idle poller
func New(source transit.Source, responses *cache.Cache[*transit.BatchResponse], queries []models.StopQuery, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Poller{
		queries:  append([]models.StopQuery(nil), queries...),
		source:   source,
		cache:    responses,
		interval: opts.Interval,
		logger:   opts.Logger,
		now:      opts.Clock,
		latest:   []models.Departure{},
		updates:  make(chan []models.Departure, 1),
		done:     make(chan struct{}),
	}
}

// Queries returns the stop queries the poller serves
func (p *Poller) Queries() []models.StopQuery {
	return append([]models.StopQuery(nil), p.queries...)
}

// State returns the current lifecycle state
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Updates delivers each published list. The channel holds only the newest
// list and is closed by Stop.
func (p *Poller) Updates() <-chan []models.Departure {
	return p.updates
}

// Done is closed once the polling loop has exited
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// Latest returns the most recently published list and when it was published
func (p *Poller) Latest() ([]models.Departure, time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Departure{}, p.latest...), p.updatedAt
}

// Start runs one cycle right away and then one per interval until ctx is
// done or Stop is called.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.state != Idle {
		p.mu.Unlock()
		return ErrNotIdle
	}
	ctx, cancel := context.WithCancel(ctx)
	p.state = Active
	p.cancel = cancel
	p.mu.Unlock()

	go p.run(ctx)
	return nil
}

// Stop cancels the poller. After Stop returns nothing is published again,
// including results of a cycle that is still in flight.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case Cancelled:
		return
	case Idle:
		close(p.done)
	}
	p.state = Cancelled
	if p.cancel != nil {
		p.cancel()
	}
	close(p.updates)
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)
	defer p.Stop()

	if len(p.queries) == 0 {
		p.publish([]models.Departure{})
		<-ctx.Done()
		return
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		p.cycle(ctx)
		timer.Reset(p.interval)
	}
}

func (p *Poller) cycle(ctx context.Context) {
	resp, err := p.cache.GetOrLoad(ctx, transit.CacheKey(p.queries), func(ctx context.Context) (*transit.BatchResponse, error) {
		return p.source.Fetch(ctx, p.queries)
	})
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("departures cycle failed", "error", err, "stops", len(p.queries))
		}
		return
	}
	if resp.HasErrors() {
		p.logger.Warn("transit API returned errors", "count", len(resp.Errors))
	}

	p.publish(transit.Aggregate(resp, p.queries, p.now()))
}

// publish replaces the latest list, unless the poller is no longer active
func (p *Poller) publish(departures []models.Departure) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != Active {
		return
	}
	p.latest = departures
	p.updatedAt = p.now()

	select {
	case <-p.updates:
	default:
	}
	p.updates <- append([]models.Departure{}, departures...)
}
