package transit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/randytsao24/departures/internal/models"
)

// PatternDepartureLimit is how many departures are requested per pattern
const PatternDepartureLimit = 5

const stopTimeFields = `
      scheduledDeparture
      realtimeDeparture
      realtime
      realtimeState
      serviceDay
      headsign
      trip {
        routeShortName
      }`

// StopAlias returns the response alias used for the i-th stop query
func StopAlias(i int) string {
	return "stop" + strconv.Itoa(i)
}

// BuildQuery builds one GraphQL document requesting departures for every
// stop query, aliased stop0..stopN in input order.
func BuildQuery(queries []models.StopQuery) string {
	var b strings.Builder
	b.WriteString("{\n")
	for i, q := range queries {
		b.WriteString("  ")
		b.WriteString(StopAlias(i))
		b.WriteString(": stop(id: ")
		b.WriteString(graphQLString(q.StopID))
		b.WriteString(") {\n    name\n    ")
		if q.HasPattern() {
			b.WriteString("stopTimesForPattern(id: ")
			b.WriteString(graphQLString(q.PatternID))
			b.WriteString(", numberOfDepartures: ")
			b.WriteString(strconv.Itoa(PatternDepartureLimit))
			b.WriteString(") {")
		} else {
			b.WriteString("stoptimesWithoutPatterns {")
		}
		b.WriteString(stopTimeFields)
		b.WriteString("\n    }\n  }\n")
	}
	b.WriteString("}")
	return b.String()
}

// graphQLString renders s as a GraphQL string literal
func graphQLString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r < 0x20:
			fmt.Fprintf(&b, "\\u%04x", r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// CacheKey derives a response cache key from the ordered stop queries.
// Quoting keeps every part self-delimiting, so different stop sets never
// share a key.
func CacheKey(queries []models.StopQuery) string {
	var b strings.Builder
	b.WriteString("departures:")
	for i, q := range queries {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(q.StopID))
		b.WriteByte('/')
		b.WriteString(strconv.Quote(q.PatternID))
	}
	return b.String()
}
