// Package models defines shared data types
package models

// RealtimeState classifies how a scheduled trip was affected by live updates
type RealtimeState string

const (
	// StateScheduled means no real-time update has been applied
	StateScheduled RealtimeState = "SCHEDULED"
	// StateUpdated means times were updated but the trip pattern is unchanged
	StateUpdated RealtimeState = "UPDATED"
	// StateCanceled means the trip was canceled by a real-time update
	StateCanceled RealtimeState = "CANCELED"
	// StateAdded means the trip is not present in the static schedule
	StateAdded RealtimeState = "ADDED"
	// StateModified means the update resulted in a different trip pattern
	StateModified RealtimeState = "MODIFIED"
)

// StopQuery is one (stop, optional pattern) pair of a departure card.
// An empty PatternID means no pattern filter.
type StopQuery struct {
	StopID    string `json:"stop_id" yaml:"stop" validate:"required"`
	PatternID string `json:"pattern_id,omitempty" yaml:"pattern"`
}

// HasPattern reports whether departures should be filtered to a pattern
func (q StopQuery) HasPattern() bool {
	return q.PatternID != ""
}

// Trip is the trip a stop time belongs to
type Trip struct {
	RouteShortName string `json:"routeShortName"`
}

// RawStopTime is a stop time as reported by the transit API. Departure
// times are seconds since midnight of the service day.
type RawStopTime struct {
	ScheduledDeparture int           `json:"scheduledDeparture"`
	RealtimeDeparture  int           `json:"realtimeDeparture"`
	Realtime           bool          `json:"realtime"`
	RealtimeState      RealtimeState `json:"realtimeState"`
	ServiceDay         int64         `json:"serviceDay"`
	Headsign           string        `json:"headsign"`
	Trip               *Trip         `json:"trip"`
}

// Departure is a normalized upcoming departure
type Departure struct {
	MinutesUntilDeparture int           `json:"minutes_until_departure"`
	RouteName             string        `json:"route"`
	Headsign              string        `json:"headsign,omitempty"`
	IsRealtime            bool          `json:"realtime"`
	RealtimeState         RealtimeState `json:"realtime_state"`
}
