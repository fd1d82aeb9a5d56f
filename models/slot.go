package models

import "time"

// Slot is a half-open time interval [Start, End) considered for booking.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether two half-open intervals intersect.
func (s Slot) Overlaps(other Slot) bool {
	return s.Start.Before(other.End) && other.Start.Before(s.End)
}

// Contains reports whether the whole of other falls inside s.
func (s Slot) Contains(other Slot) bool {
	return !other.Start.Before(s.Start) && !other.End.After(s.End)
}

// AvailabilitySet is the ordered set of free slots computed for a query
// window. Slots are pairwise non-overlapping and sorted ascending by start.
type AvailabilitySet struct {
	Window Slot   `json:"window"`
	Slots  []Slot `json:"slots"`
}

// FindStart returns the slot starting exactly at t, if any.
func (a AvailabilitySet) FindStart(t time.Time) (Slot, bool) {
	for _, s := range a.Slots {
		if s.Start.Equal(t) {
			return s, true
		}
	}
	return Slot{}, false
}
