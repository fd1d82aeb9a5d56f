package intent

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"bookify/models"
)

// Extractor turns a raw chat message into a typed Intent with exactly one
// outbound LLM call. Retry policy lives in the orchestrator, not here.
type Extractor struct {
	LLM                 Client
	Location            *time.Location
	ConfidenceThreshold float64
	DefaultDuration     int
	HistoryWindow       int

	// Now overrides the clock anchor; nil means time.Now.
	Now func() time.Time
}

// llmReply is the fixed schema the model must return. Anything that fails to
// decode into it degrades to an unsupported intent.
type llmReply struct {
	Kind            string   `json:"kind"`
	Date            string   `json:"date"`
	StartTime       string   `json:"start_time"`
	EndTime         string   `json:"end_time"`
	DurationMinutes int      `json:"duration_minutes"`
	Title           string   `json:"title"`
	Attendees       []string `json:"attendees"`
	EventID         string   `json:"event_id"`
	Confidence      float64  `json:"confidence"`
}

var kindMapping = map[string]models.IntentKind{
	"book":   models.IntentBook,
	"list":   models.IntentList,
	"delete": models.IntentDelete,
	"chat":   models.IntentUnsupported,
}

// Extract runs the LLM over the message plus a bounded history window and
// validates the reply against the intent schema. Provider failures and
// undecodable payloads surface as ExtractionError (the orchestrator owns the
// retry budget); a decodable reply with an out-of-scope kind degrades to an
// unsupported intent instead.
func (e *Extractor) Extract(ctx context.Context, msg models.RawMessage, conv *models.Conversation) (models.Intent, error) {
	now := e.now()
	prompt := buildPrompt(msg.Text, conv.LastTurns(e.HistoryWindow), now)

	raw, err := e.LLM.GenerateContent(ctx, prompt)
	if err != nil {
		return models.Intent{}, NewExtractionError("llm call failed", err)
	}

	intent, err := e.decode(raw, now)
	if err != nil {
		return models.Intent{}, err
	}

	if intent.Confidence < e.ConfidenceThreshold {
		intent.Kind = models.IntentAmbiguous
	}
	return intent, nil
}

func (e *Extractor) decode(raw string, now time.Time) (models.Intent, error) {
	var reply llmReply
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &reply); err != nil {
		return models.Intent{}, NewExtractionError("malformed llm response", err)
	}

	kind, ok := kindMapping[strings.ToLower(strings.TrimSpace(reply.Kind))]
	if !ok {
		// Schema violation on an otherwise well-formed reply: treat as
		// unsupported rather than retrying a deterministic outcome.
		return unsupportedIntent(), nil
	}

	intent := models.Intent{
		Kind:            kind,
		Date:            normalizeDate(reply.Date, now),
		WindowStart:     parseClock(reply.StartTime),
		WindowEnd:       parseClock(reply.EndTime),
		DurationMinutes: reply.DurationMinutes,
		Title:           strings.TrimSpace(reply.Title),
		Attendees:       reply.Attendees,
		TargetEventID:   strings.TrimSpace(reply.EventID),
		Confidence:      clamp01(reply.Confidence),
	}
	if strings.EqualFold(intent.Title, "null") {
		intent.Title = ""
	}
	if strings.EqualFold(intent.TargetEventID, "null") {
		intent.TargetEventID = ""
	}

	// Derive the missing side of the window from the duration, and vice versa.
	if intent.WindowStart >= 0 {
		if intent.DurationMinutes <= 0 && intent.WindowEnd > intent.WindowStart {
			intent.DurationMinutes = intent.WindowEnd - intent.WindowStart
		}
		if intent.Kind == models.IntentBook && intent.DurationMinutes <= 0 {
			intent.DurationMinutes = e.DefaultDuration
		}
		if intent.WindowEnd < 0 && intent.DurationMinutes > 0 {
			intent.WindowEnd = intent.WindowStart + intent.DurationMinutes
		}
	} else {
		intent.WindowStart = models.NoWindow
		intent.WindowEnd = models.NoWindow
		if intent.Kind == models.IntentBook && intent.DurationMinutes <= 0 {
			intent.DurationMinutes = e.DefaultDuration
		}
	}

	return intent, nil
}

func (e *Extractor) now() time.Time {
	if e.Now != nil {
		return e.Now().In(e.Location)
	}
	return time.Now().In(e.Location)
}

func unsupportedIntent() models.Intent {
	return models.Intent{
		Kind:        models.IntentUnsupported,
		WindowStart: models.NoWindow,
		WindowEnd:   models.NoWindow,
		Confidence:  0,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// stripCodeFence removes a surrounding markdown code block, which some models
// insist on despite the JSON-only instruction.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
