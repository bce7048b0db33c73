package transit

import (
	"sort"
	"time"

	"github.com/randytsao24/departures/internal/models"
)

// MaxDepartures caps the number of departures returned by Aggregate
const MaxDepartures = 5

// Aggregate flattens a batch response into at most MaxDepartures upcoming
// departures. With several stop queries the result is ordered by minutes;
// with a single one the server order is kept. An errors payload yields an
// empty result.
func Aggregate(resp *BatchResponse, queries []models.StopQuery, now time.Time) []models.Departure {
	if resp.HasErrors() {
		return []models.Departure{}
	}

	departures := make([]models.Departure, 0, MaxDepartures)
	for i, q := range queries {
		for _, st := range resp.StopTimes(i, q) {
			if st == nil || st.Trip == nil {
				continue
			}
			minutes := MinutesUntilDeparture(now, st.RealtimeDeparture)
			if minutes < 0 {
				continue
			}
			departures = append(departures, models.Departure{
				MinutesUntilDeparture: minutes,
				RouteName:             st.Trip.RouteShortName,
				Headsign:              st.Headsign,
				IsRealtime:            st.Realtime,
				RealtimeState:         st.RealtimeState,
			})
		}
	}

	if len(queries) > 1 {
		sort.SliceStable(departures, func(i, j int) bool {
			return departures[i].MinutesUntilDeparture < departures[j].MinutesUntilDeparture
		})
	}

	upcoming := departures[:0]
	for _, d := range departures {
		if d.MinutesUntilDeparture > 0 {
			upcoming = append(upcoming, d)
		}
	}
	if len(upcoming) > MaxDepartures {
		upcoming = upcoming[:MaxDepartures]
	}
	return upcoming
}
