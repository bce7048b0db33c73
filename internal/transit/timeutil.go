package transit

import "time"

const minutesPerDay = 24 * 60

// SecondsSinceMidnight returns the time elapsed since local midnight of t,
// in t's location.
func SecondsSinceMidnight(t time.Time) time.Duration {
	y, m, d := t.Date()
	return t.Sub(time.Date(y, m, d, 0, 0, 0, 0, t.Location()))
}

// MinutesUntilDeparture returns whole minutes from now until a departure
// given in seconds since midnight of its service day.
//
// The service day may have started on the previous calendar day, in which
// case the raw delta is a full day too large. Folding modulo 1440 assumes no
// real-time departure is ever 24h or more away. The result lies in
// [-1439, 1439]; negative values mean the departure has left.
func MinutesUntilDeparture(now time.Time, departureSecSinceMidnight int) int {
	until := time.Duration(departureSecSinceMidnight)*time.Second - SecondsSinceMidnight(now)
	return floorMinutes(until) % minutesPerDay
}

func floorMinutes(d time.Duration) int {
	m := d / time.Minute
	if d%time.Minute < 0 {
		m--
	}
	return int(m)
}
