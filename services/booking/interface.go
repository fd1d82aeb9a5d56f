package booking

import (
	"context"
	"time"

	"bookify/models"
	"bookify/services/availability"
	"bookify/services/calendar"
	"bookify/services/conversation"
	"bookify/services/intent"
)

// Service runs one chat turn end to end: extraction, conciliation, calendar
// mutation and response formatting.
type Service interface {
	ProcessMessage(ctx context.Context, msg models.RawMessage) (*models.BookingResult, error)
}

// DefaultBookingService implements Service as the state machine described in
// orchestrator.go. All cross-request state lives in the idempotency cache.
type DefaultBookingService struct {
	Extractor     *intent.Extractor
	Availability  *availability.Resolver
	Calendar      calendar.Service
	Conversations conversation.Store
	Idempotency   *IdempotencyCache
	Policy        Policy

	CallTimeout time.Duration
	MaxRetries  int           // retries after the first attempt
	BackoffBase time.Duration // exponential backoff base

	// Test seams; nil means time.Sleep / time.Now.
	Sleep func(time.Duration)
	Now   func() time.Time
}
