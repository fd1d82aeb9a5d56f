package models

import "time"

// Event is the calendar adapter's view of a booked event.
type Event struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Attendees []string  `json:"attendees,omitempty"`
	Link      string    `json:"link,omitempty"`
}
