package booking

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"bookify/models"
)

// BuildPlan derives the single calendar mutation for a proceed decision. The
// idempotency key is a deterministic hash of the conversation id, the
// normalized intent fields and the chosen slot, so a retried identical
// request maps onto the same key.
func BuildPlan(conversationID string, intent models.Intent, decision Decision) models.BookingPlan {
	plan := models.BookingPlan{
		Title:     intent.Title,
		Attendees: intent.Attendees,
	}

	switch intent.Kind {
	case models.IntentDelete:
		plan.Action = models.PlanDelete
		plan.EventID = decision.EventID
	default:
		plan.Action = models.PlanCreate
		plan.Slot = decision.Slot
	}

	plan.IdempotencyKey = idempotencyKey(conversationID, intent, plan)
	return plan
}

func idempotencyKey(conversationID string, intent models.Intent, plan models.BookingPlan) string {
	parts := []string{
		conversationID,
		string(plan.Action),
		string(intent.Kind),
		intent.Date,
		fmt.Sprintf("%d-%d-%d", intent.WindowStart, intent.WindowEnd, intent.DurationMinutes),
		strings.ToLower(intent.Title),
		strings.ToLower(strings.Join(intent.Attendees, ",")),
		plan.EventID,
	}
	if plan.Slot != nil {
		parts = append(parts,
			plan.Slot.Start.UTC().Format(time.RFC3339),
			plan.Slot.End.UTC().Format(time.RFC3339),
		)
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
