package intent

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// normalizeDate resolves a raw date value from the model ("today",
// "tomorrow", a weekday name or YYYY-MM-DD) against the now anchor. A date in
// the past falls back to tomorrow, an unparseable value to today.
func normalizeDate(raw string, now time.Time) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || raw == "null" {
		return ""
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch raw {
	case "today":
		return today.Format(dateLayout)
	case "tomorrow":
		return today.AddDate(0, 0, 1).Format(dateLayout)
	}

	if wd, ok := weekdays[raw]; ok {
		days := (int(wd) - int(today.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return today.AddDate(0, 0, days).Format(dateLayout)
	}

	parsed, err := time.ParseInLocation(dateLayout, raw, now.Location())
	if err != nil {
		return today.Format(dateLayout)
	}
	if parsed.Before(today) {
		return today.AddDate(0, 0, 1).Format(dateLayout)
	}
	return parsed.Format(dateLayout)
}

// parseClock converts "HH:MM" to minutes from midnight. Returns -1 when the
// value is absent or malformed.
func parseClock(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "null") {
		return -1
	}
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return -1
	}
	return t.Hour()*60 + t.Minute()
}
