package booking

import (
	"fmt"
	"regexp"
	"time"

	"bookify/models"
)

// DecisionKind is the outcome class of reconciling an intent against
// availability.
type DecisionKind string

const (
	DecisionProceed DecisionKind = "proceed"
	DecisionPropose DecisionKind = "propose"
	DecisionClarify DecisionKind = "clarify"
	DecisionReject  DecisionKind = "reject"
)

// Decision is what the conflict resolver hands to the orchestrator. Exactly
// one of Slot / Candidates / EventID / Question / Reason is meaningful,
// depending on Kind.
type Decision struct {
	Kind       DecisionKind
	Slot       *models.Slot
	Candidates []models.Slot
	EventID    string
	Question   string
	Reason     string
}

// Policy carries the tie-break and candidate-count knobs; defaults come from
// configuration, not hard-wired constants.
type Policy struct {
	ConfidenceThreshold float64
	MaxCandidates       int
	AllowFallback       bool
	Location            *time.Location
}

// Google Calendar event ids are URL-safe; "last" is the conversational
// shorthand for the most recent event.
var eventIDPattern = regexp.MustCompile(`^[A-Za-z0-9_@.-]+$`)

// Reconcile decides what to do with an intent given the computed
// availability. It is a pure function: identical inputs produce identical
// decisions.
func Reconcile(intent models.Intent, avail models.AvailabilitySet, policy Policy) Decision {
	if intent.Confidence < policy.ConfidenceThreshold {
		return Decision{
			Kind:     DecisionClarify,
			Question: "I'm not sure I understood that. Could you tell me what you'd like to book, list or cancel, and when?",
		}
	}

	switch intent.Kind {
	case models.IntentUnsupported:
		return Decision{
			Kind:   DecisionReject,
			Reason: "I can only help with booking, listing or cancelling calendar events.",
		}
	case models.IntentAmbiguous:
		return Decision{
			Kind:     DecisionClarify,
			Question: "Could you give me a bit more detail? For example: \"book a 30 minute call tomorrow at 2pm\".",
		}
	case models.IntentDelete:
		return reconcileDelete(intent)
	case models.IntentList:
		return Decision{Kind: DecisionProceed}
	case models.IntentBook:
		return reconcileBook(intent, avail, policy)
	}

	return Decision{Kind: DecisionReject, Reason: "unrecognized intent"}
}

// reconcileDelete only checks well-formedness; no availability computation
// happens for deletions.
func reconcileDelete(intent models.Intent) Decision {
	if intent.TargetEventID == "" && intent.Title == "" {
		return Decision{
			Kind:     DecisionClarify,
			Question: "Which event should I cancel? Tell me its title, or say \"cancel my last meeting\".",
		}
	}
	if intent.TargetEventID != "" && !eventIDPattern.MatchString(intent.TargetEventID) {
		return Decision{
			Kind:     DecisionClarify,
			Question: "That event id doesn't look right. Could you list your events and pick one?",
		}
	}
	return Decision{Kind: DecisionProceed, EventID: intent.TargetEventID}
}

func reconcileBook(intent models.Intent, avail models.AvailabilitySet, policy Policy) Decision {
	if intent.DurationMinutes <= 0 {
		return Decision{
			Kind:     DecisionClarify,
			Question: "How long should the meeting be?",
		}
	}

	if intent.HasWindow() {
		if intent.Date == "" {
			return Decision{
				Kind:     DecisionClarify,
				Question: "What date would you like that on?",
			}
		}

		// Exact-match bypass: a specifically requested time that is free is
		// accepted directly, without consulting broader availability.
		requested := requestedStart(intent, policy.Location)
		if slot, ok := avail.FindStart(requested); ok {
			return Decision{Kind: DecisionProceed, Slot: &slot}
		}

		if !policy.AllowFallback {
			return Decision{
				Kind:   DecisionReject,
				Reason: fmt.Sprintf("The requested time (%s) is not available.", requested.Format("3:04 PM")),
			}
		}
	}

	if len(avail.Slots) == 0 {
		return Decision{
			Kind:   DecisionReject,
			Reason: "No free slots fit that request. Would you like to try a different date?",
		}
	}

	if len(avail.Slots) == 1 {
		slot := avail.Slots[0]
		return Decision{Kind: DecisionProceed, Slot: &slot}
	}

	k := policy.MaxCandidates
	if k <= 0 || k > len(avail.Slots) {
		k = len(avail.Slots)
	}
	candidates := make([]models.Slot, k)
	copy(candidates, avail.Slots[:k])
	return Decision{Kind: DecisionPropose, Candidates: candidates}
}

// requestedStart converts the intent's date plus minutes-from-midnight window
// into an absolute start time in the scheduling timezone.
func requestedStart(intent models.Intent, loc *time.Location) time.Time {
	day, err := time.ParseInLocation("2006-01-02", intent.Date, loc)
	if err != nil {
		return time.Time{}
	}
	return day.Add(time.Duration(intent.WindowStart) * time.Minute)
}
