package logalign

import (
	"math"
	"time"
)

// TimestampLayout renders local timestamps with microsecond precision.
const TimestampLayout = "2006-01-02 15:04:05.000000"

// UnixToTime converts float seconds since the Unix epoch to a time in loc,
// rounded to the microsecond. A nil loc means time.Local.
func UnixToTime(ts float64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	sec := math.Floor(ts)
	usec := math.Round((ts - sec) * 1e6)
	if usec >= 1e6 {
		sec++
		usec -= 1e6
	}
	return time.Unix(int64(sec), int64(usec)*int64(time.Microsecond)).In(loc)
}

// FormatTimestamp renders t with TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// LocalTimes converts a column of float timestamps with UnixToTime.
func LocalTimes(ts []float64, loc *time.Location) []time.Time {
	out := make([]time.Time, len(ts))
	for i, t := range ts {
		out[i] = UnixToTime(t, loc)
	}
	return out
}
