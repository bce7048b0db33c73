package transit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/randytsao24/departures/internal/models"
)

// GTFSRTSource serves stop queries from a GTFS-Realtime TripUpdates feed.
// A pattern is matched against the trip's route ID, optionally suffixed with
// ":<direction_id>".
type GTFSRTSource struct {
	url      string
	apiKey   string
	client   *http.Client
	location *time.Location
	now      func() time.Time
}

// GTFSRTOption customizes a GTFSRTSource
type GTFSRTOption func(*GTFSRTSource)

// WithFeedClock replaces time.Now when deciding which events have passed
func WithFeedClock(now func() time.Time) GTFSRTOption {
	return func(s *GTFSRTSource) {
		s.now = now
	}
}

// NewGTFSRTSource creates a source for the feed at url. Service days are
// resolved in loc (time.Local when nil).
func NewGTFSRTSource(url, apiKey string, timeout time.Duration, loc *time.Location, opts ...GTFSRTOption) *GTFSRTSource {
	if loc == nil {
		loc = time.Local
	}
	s := &GTFSRTSource{
		url:      url,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		location: loc,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch downloads the feed and groups its upcoming stop time updates per
// stop query. Feeds often keep events that have already passed; those are
// dropped before pattern results are capped.
func (s *GTFSRTSource) Fetch(ctx context.Context, queries []models.StopQuery) (*BatchResponse, error) {
	feed, err := s.fetchFeed(ctx)
	if err != nil {
		return nil, err
	}
	return s.buildResponse(feed, queries, s.now()), nil
}

func (s *GTFSRTSource) fetchFeed(ctx context.Context) (*gtfs.FeedMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("x-api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, fmt.Errorf("parsing protobuf: %w", err)
	}
	return feed, nil
}

type timedStopTime struct {
	at time.Time
	st *models.RawStopTime
}

func (s *GTFSRTSource) buildResponse(feed *gtfs.FeedMessage, queries []models.StopQuery, now time.Time) *BatchResponse {
	resp := &BatchResponse{Data: make(map[string]*StopResult, len(queries))}

	for i, q := range queries {
		var matched []timedStopTime
		for _, entity := range feed.GetEntity() {
			tripUpdate := entity.GetTripUpdate()
			if tripUpdate == nil {
				continue
			}
			trip := tripUpdate.GetTrip()
			if q.HasPattern() && !matchesPattern(trip, q.PatternID) {
				continue
			}
			for _, stu := range tripUpdate.GetStopTimeUpdate() {
				if stu.GetStopId() != q.StopID {
					continue
				}
				if t, st, ok := s.toStopTime(trip, stu); ok && !t.Before(now) {
					matched = append(matched, timedStopTime{at: t, st: st})
				}
			}
		}

		sort.SliceStable(matched, func(a, b int) bool {
			return matched[a].at.Before(matched[b].at)
		})

		result := &StopResult{Name: q.StopID}
		times := make([]*models.RawStopTime, 0, len(matched))
		for _, m := range matched {
			times = append(times, m.st)
		}
		if q.HasPattern() {
			if len(times) > PatternDepartureLimit {
				times = times[:PatternDepartureLimit]
			}
			result.StopTimesForPattern = times
		} else {
			result.StoptimesWithoutPatterns = times
		}
		resp.Data[StopAlias(i)] = result
	}
	return resp
}

func matchesPattern(trip *gtfs.TripDescriptor, pattern string) bool {
	routeID := trip.GetRouteId()
	if pattern == routeID {
		return true
	}
	return trip != nil && trip.DirectionId != nil &&
		pattern == routeID+":"+strconv.FormatUint(uint64(trip.GetDirectionId()), 10)
}

func (s *GTFSRTSource) toStopTime(trip *gtfs.TripDescriptor, stu *gtfs.TripUpdate_StopTimeUpdate) (time.Time, *models.RawStopTime, bool) {
	event := stu.GetDeparture()
	if event.GetTime() == 0 {
		event = stu.GetArrival()
	}
	if event.GetTime() == 0 {
		return time.Time{}, nil, false
	}

	at := time.Unix(event.GetTime(), 0).In(s.location)
	serviceDay := s.serviceDay(trip, at)
	realtimeDeparture := int(at.Sub(serviceDay) / time.Second)

	state := tripState(trip, event)
	if stu.GetScheduleRelationship() == gtfs.TripUpdate_StopTimeUpdate_SKIPPED {
		state = models.StateCanceled
	}

	return at, &models.RawStopTime{
		ScheduledDeparture: realtimeDeparture - int(event.GetDelay()),
		RealtimeDeparture:  realtimeDeparture,
		Realtime:           stu.GetScheduleRelationship() != gtfs.TripUpdate_StopTimeUpdate_NO_DATA,
		RealtimeState:      state,
		ServiceDay:         serviceDay.Unix(),
		Trip:               &models.Trip{RouteShortName: trip.GetRouteId()},
	}, true
}

// serviceDay is local midnight of the trip's start date, or of the event
// itself when the feed omits the start date.
func (s *GTFSRTSource) serviceDay(trip *gtfs.TripDescriptor, at time.Time) time.Time {
	if d, err := time.ParseInLocation("20060102", trip.GetStartDate(), s.location); err == nil {
		return d
	}
	y, m, d := at.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.location)
}

func tripState(trip *gtfs.TripDescriptor, event *gtfs.TripUpdate_StopTimeEvent) models.RealtimeState {
	switch trip.GetScheduleRelationship() {
	case gtfs.TripDescriptor_SCHEDULED:
		if event.Delay != nil {
			return models.StateUpdated
		}
		return models.StateScheduled
	case gtfs.TripDescriptor_ADDED:
		return models.StateAdded
	case gtfs.TripDescriptor_CANCELED:
		return models.StateCanceled
	default:
		return models.StateModified
	}
}
