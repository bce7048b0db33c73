package transit

import (
	"encoding/json"

	"github.com/randytsao24/departures/internal/models"
)

// StopResult is one aliased stop object of a batch response
type StopResult struct {
	Name                     string                `json:"name"`
	StoptimesWithoutPatterns []*models.RawStopTime `json:"stoptimesWithoutPatterns"`
	StopTimesForPattern      []*models.RawStopTime `json:"stopTimesForPattern"`
}

// BatchResponse is the decoded response to a query built by BuildQuery
type BatchResponse struct {
	Data   map[string]*StopResult `json:"data"`
	Errors []json.RawMessage      `json:"errors"`
}

// HasErrors reports whether the upstream attached an errors payload.
// Presence counts, even when the list is empty.
func (r *BatchResponse) HasErrors() bool {
	return r == nil || r.Errors != nil
}

// StopTimes returns the stop times for the i-th stop query, preferring the
// field that matches whether the query carried a pattern.
func (r *BatchResponse) StopTimes(i int, q models.StopQuery) []*models.RawStopTime {
	if r == nil || r.Data == nil {
		return nil
	}
	stop := r.Data[StopAlias(i)]
	if stop == nil {
		return nil
	}
	if q.HasPattern() {
		if stop.StopTimesForPattern != nil {
			return stop.StopTimesForPattern
		}
		return stop.StoptimesWithoutPatterns
	}
	if stop.StoptimesWithoutPatterns != nil {
		return stop.StoptimesWithoutPatterns
	}
	return stop.StopTimesForPattern
}
