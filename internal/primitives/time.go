package primitives

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
)

// TimeInstant is a point in time with millisecond precision, counted from
// the Unix epoch.
type TimeInstant int64

// InstantFromTime converts a time.Time to a TimeInstant.
func InstantFromTime(t time.Time) TimeInstant {
	return TimeInstant(t.UnixMilli())
}

// AsTime converts the instant back to a UTC time.Time.
func (t TimeInstant) AsTime() time.Time {
	return time.UnixMilli(int64(t)).UTC()
}

func (t TimeInstant) String() string {
	return t.AsTime().Format(time.RFC3339)
}

// TimeInterval is a half-open interval [Start, End). An interval with
// Start == End is an instant.
type TimeInterval struct {
	Start TimeInstant `json:"start"`
	End   TimeInstant `json:"end"`
}

// NewTimeInterval validates that the interval is not inverted.
func NewTimeInterval(start, end TimeInstant) (TimeInterval, error) {
	if start > end {
		return TimeInterval{}, eris.Errorf("time interval start %s after end %s", start, end)
	}
	return TimeInterval{Start: start, End: end}, nil
}

// NewInstant returns the degenerate interval [t, t].
func NewInstant(t TimeInstant) TimeInterval {
	return TimeInterval{Start: t, End: t}
}

func (t TimeInterval) String() string {
	return fmt.Sprintf("[%s, %s)", t.Start, t.End)
}

// IsInstant reports whether the interval is degenerate.
func (t TimeInterval) IsInstant() bool { return t.Start == t.End }

// Intersects reports whether the intervals share any time. Instants
// intersect intervals that start at the same instant even though the
// intervals are half-open.
func (t TimeInterval) Intersects(o TimeInterval) bool {
	return (t.Start < o.End && t.End > o.Start) || t.Start == o.Start
}

// Contains reports whether the instant lies within the interval.
func (t TimeInterval) Contains(i TimeInstant) bool {
	return i >= t.Start && (i < t.End || t.IsInstant() && i == t.Start)
}
