package calendar

import (
	"context"
	"fmt"
	"time"

	"bookify/models"
)

// Service is the calendar capability the booking core depends on. The Google
// implementation lives in google.go; tests supply fakes.
type Service interface {
	// FreeBusy returns the busy intervals on the calendar within [start, end).
	FreeBusy(ctx context.Context, start, end time.Time) ([]models.Slot, error)
	// ListEvents returns the events within [start, end), sorted by start time.
	ListEvents(ctx context.Context, start, end time.Time) ([]models.Event, error)
	// CreateEvent books the slot and returns the created event (with id and link).
	CreateEvent(ctx context.Context, title string, slot models.Slot, attendees []string, description string) (*models.Event, error)
	// DeleteEvent removes an event. Returns ErrEventNotFound when the id does
	// not resolve to an existing event.
	DeleteEvent(ctx context.Context, eventID string) error
}

// ErrEventNotFound is returned by DeleteEvent for unknown or already-removed
// event ids.
var ErrEventNotFound = &CalendarError{Code: "eventNotFound", Message: "event not found"}

// CalendarError wraps remote calendar failures so the orchestrator can tell
// them apart from validation problems.
type CalendarError struct {
	Code    string
	Message string
	Err     error
}

func (e *CalendarError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CalendarError) Unwrap() error { return e.Err }

// NewUnavailableError marks a remote calendar failure as retryable.
func NewUnavailableError(msg string, err error) error {
	return &CalendarError{Code: "calendarUnavailable", Message: msg, Err: err}
}
