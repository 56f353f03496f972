package booking

import (
	"sort"
	"time"
)

// SlotLayout is the clock format used for slot labels.
const SlotLayout = "15:04"

// HasConflict reports whether candidate overlaps any of the booked intervals.
func HasConflict(candidate Interval, booked []Interval) bool {
	for _, b := range booked {
		if Overlaps(candidate, b) {
			return true
		}
	}
	return false
}

// FreeIntervals returns the maximal free sub-intervals of window once the
// booked intervals are removed.  booked may be unsorted, may overlap each
// other and may stick out of the window; the input slice is not modified.
func FreeIntervals(window Interval, booked []Interval) []Interval {
	sorted := make([]Interval, len(booked))
	copy(sorted, booked)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	free := make([]Interval, 0, len(sorted)+1)
	cursor := window.Start
	for _, b := range sorted {
		if !b.Start.Before(window.End) {
			break
		}
		if cursor.Before(b.Start) {
			free = append(free, Interval{Start: cursor, End: b.Start})
		}
		// a reservation nested inside an earlier, longer one must not pull
		// the cursor back
		if b.End.After(cursor) {
			cursor = b.End
		}
	}
	if cursor.Before(window.End) {
		free = append(free, Interval{Start: cursor, End: window.End})
	}
	return free
}

// FreeSlots partitions window into consecutive slots of the given size and
// returns the start of every slot that overlaps none of the booked
// intervals.  A trailing remainder shorter than size is not a slot.
func FreeSlots(window Interval, booked []Interval, size time.Duration) []time.Time {
	if size <= 0 {
		return nil
	}
	var out []time.Time
	for start := window.Start; !start.Add(size).After(window.End); start = start.Add(size) {
		slot := Interval{Start: start, End: start.Add(size)}
		if !HasConflict(slot, booked) {
			out = append(out, start)
		}
	}
	return out
}

// FreeHourlySlots is FreeSlots with one-hour slots, labelled "HH:MM" in
// the location of the window.
func FreeHourlySlots(window Interval, booked []Interval) []string {
	starts := FreeSlots(window, booked, time.Hour)
	labels := make([]string, 0, len(starts))
	for _, s := range starts {
		labels = append(labels, s.Format(SlotLayout))
	}
	return labels
}

// DayWindow returns [day+from, day+to) for the calendar day of day in loc.
// from and to are offsets since midnight.
func DayWindow(day time.Time, loc *time.Location, from, to time.Duration) (Interval, error) {
	if loc == nil {
		loc = time.UTC
	}
	d := day.In(loc)
	// built from wall clock minutes so DST days keep their HH:MM bounds
	at := func(off time.Duration) time.Time {
		return time.Date(d.Year(), d.Month(), d.Day(), 0, int(off/time.Minute), 0, 0, loc)
	}
	return NewInterval(at(from), at(to))
}

// ParseClock parses "HH:MM" into an offset since midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse(SlotLayout, s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
