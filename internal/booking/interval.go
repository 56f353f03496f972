// Package booking holds the scheduling rules of the service: the half-open
// interval model, room identification, conflict detection and the
// derivation of free time inside a working window.  Nothing in this
// package touches storage; callers feed it the reservations they loaded.
package booking

import (
	"errors"
	"time"
)

// ErrInvalidInterval is returned when an interval does not end strictly
// after it starts.
var ErrInvalidInterval = errors.New("end must be after start")

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval builds an interval and rejects zero-length or inverted ranges.
func NewInterval(start, end time.Time) (Interval, error) {
	iv := Interval{Start: start, End: end}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

// Validate reports ErrInvalidInterval unless End > Start.
func (iv Interval) Validate() error {
	if !iv.End.After(iv.Start) {
		return ErrInvalidInterval
	}
	return nil
}

// Duration returns End - Start.
func (iv Interval) Duration() time.Duration { return iv.End.Sub(iv.Start) }

// Overlaps reports whether two half-open intervals share any instant.
// Adjacent intervals (a.End == b.Start) do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Overlaps is the method form of the package level predicate.
func (iv Interval) Overlaps(other Interval) bool { return Overlaps(iv, other) }

// Clip returns the part of iv inside window and false when they do not overlap.
func (iv Interval) Clip(window Interval) (Interval, bool) {
	if !Overlaps(iv, window) {
		return Interval{}, false
	}
	out := iv
	if out.Start.Before(window.Start) {
		out.Start = window.Start
	}
	if out.End.After(window.End) {
		out.End = window.End
	}
	return out, true
}
