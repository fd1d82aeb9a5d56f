package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"bookify/models"
	"bookify/services/calendar"
	"bookify/utils"
)

// coalesceGap absorbs boundary noise between back-to-back meetings: busy
// intervals separated by less than this are treated as contiguous.
const coalesceGap = time.Minute

// Resolver computes free slots from the calendar's free/busy data, bounded by
// working hours in the configured timezone.
type Resolver struct {
	Calendar           calendar.Service
	Location           *time.Location
	WorkStart          int // minutes from midnight
	WorkEnd            int // minutes from midnight
	GranularityMinutes int
	LookaheadDays      int

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Resolve returns the free slots that fit durationMinutes on the given date,
// or over the lookahead window when date is empty. windowStart/windowEnd
// (minutes from midnight, models.NoWindow when absent) narrow the scan inside
// the day. An empty set is a normal outcome, not an error.
func (r *Resolver) Resolve(ctx context.Context, date string, windowStart, windowEnd, durationMinutes int) (models.AvailabilitySet, error) {
	logger := utils.GetLogger()
	now := r.now()

	days, err := r.queryDays(date, now)
	if err != nil {
		return models.AvailabilitySet{}, err
	}

	first := days[0].Add(time.Duration(r.WorkStart) * time.Minute)
	last := days[len(days)-1].Add(time.Duration(r.WorkEnd) * time.Minute)
	window := models.Slot{Start: first, End: last}

	busy, err := r.Calendar.FreeBusy(ctx, first, last)
	if err != nil {
		return models.AvailabilitySet{}, err
	}
	merged := mergeBusy(busy)
	logger.Debug("resolved busy intervals",
		zap.Int("raw", len(busy)), zap.Int("merged", len(merged)))

	duration := time.Duration(durationMinutes) * time.Minute
	set := models.AvailabilitySet{Window: window}

	for _, day := range days {
		lo := r.WorkStart
		if windowStart != models.NoWindow && windowStart > lo {
			lo = windowStart
		}
		hi := r.WorkEnd
		if windowEnd != models.NoWindow && windowEnd > windowStart && windowEnd < hi {
			hi = windowEnd
		}

		// Candidate starts stay on the granularity grid anchored at the
		// start of working hours.
		for m := r.alignUp(lo); m+durationMinutes <= hi; m += r.GranularityMinutes {
			start := day.Add(time.Duration(m) * time.Minute)
			if start.Before(now) {
				continue
			}
			slot := models.Slot{Start: start, End: start.Add(duration)}
			if isFree(slot, merged) {
				set.Slots = append(set.Slots, slot)
			}
		}
	}

	return set, nil
}

// queryDays returns the midnights of the days to scan, local to the
// configured timezone.
func (r *Resolver) queryDays(date string, now time.Time) ([]time.Time, error) {
	if date != "" {
		day, err := time.ParseInLocation("2006-01-02", date, r.Location)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", date, err)
		}
		return []time.Time{day}, nil
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.Location)
	days := make([]time.Time, 0, r.LookaheadDays)
	for i := 0; i < r.LookaheadDays; i++ {
		days = append(days, today.AddDate(0, 0, i))
	}
	return days, nil
}

// alignUp rounds a minute offset up onto the granularity grid anchored at
// WorkStart.
func (r *Resolver) alignUp(m int) int {
	offset := m - r.WorkStart
	if offset <= 0 {
		return r.WorkStart
	}
	steps := (offset + r.GranularityMinutes - 1) / r.GranularityMinutes
	return r.WorkStart + steps*r.GranularityMinutes
}

func (r *Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now().In(r.Location)
	}
	return time.Now().In(r.Location)
}

// mergeBusy sorts busy intervals and merges any pair separated by less than
// coalesceGap into one.
func mergeBusy(busy []models.Slot) []models.Slot {
	if len(busy) == 0 {
		return nil
	}

	sorted := make([]models.Slot, len(busy))
	copy(sorted, busy)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []models.Slot{sorted[0]}
	for _, next := range sorted[1:] {
		cur := &merged[len(merged)-1]
		if next.Start.Before(cur.End.Add(coalesceGap)) {
			if next.End.After(cur.End) {
				cur.End = next.End
			}
			continue
		}
		merged = append(merged, next)
	}
	return merged
}

func isFree(slot models.Slot, busy []models.Slot) bool {
	for _, b := range busy {
		if slot.Overlaps(b) {
			return false
		}
	}
	return true
}
