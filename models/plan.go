package models

// PlanAction is the calendar mutation a BookingPlan will issue.
type PlanAction string

const (
	PlanCreate PlanAction = "create"
	PlanDelete PlanAction = "delete"
)

// BookingPlan is the single actionable mutation derived from an intent.
// IdempotencyKey is a deterministic fingerprint of (conversation id,
// normalized intent, slot); a retried identical request produces the same key.
type BookingPlan struct {
	Action         PlanAction `json:"action"`
	Slot           *Slot      `json:"slot,omitempty"`
	EventID        string     `json:"eventId,omitempty"`
	Title          string     `json:"title,omitempty"`
	Attendees      []string   `json:"attendees,omitempty"`
	IdempotencyKey string     `json:"idempotencyKey"`
}

// BookingStatus is the terminal outcome of a chat turn.
type BookingStatus string

const (
	StatusConfirmed           BookingStatus = "confirmed"
	StatusConflict            BookingStatus = "conflict"
	StatusClarificationNeeded BookingStatus = "clarification_needed"
	StatusFailed              BookingStatus = "failed"
)

// BookingResult is the single synchronous response for a chat turn.
type BookingResult struct {
	Status         BookingStatus `json:"status"`
	EventID        string        `json:"eventId,omitempty"`
	Message        string        `json:"message"`
	CalendarLink   string        `json:"calendarLink,omitempty"`
	SuggestedSlots []Slot        `json:"suggestedSlots,omitempty"`
	ConversationID string        `json:"conversationId"`
	RequiresInput  bool          `json:"requiresInput"`
}
