package intent

import (
	"fmt"
	"strings"
	"time"

	"bookify/models"
)

// buildPrompt assembles the extraction prompt. The current date/time anchor
// is always included so relative expressions ("tomorrow", "Friday") resolve
// against the configured timezone rather than the model's own notion of now.
func buildPrompt(message string, history []models.ConversationTurn, now time.Time) string {
	var sb strings.Builder

	sb.WriteString("You are an assistant that analyzes calendar booking requests.\n\n")
	fmt.Fprintf(&sb, "Current date and time: %s (%s).\n\n",
		now.Format("Monday, 2006-01-02 15:04"), now.Location())

	if len(history) > 0 {
		sb.WriteString("Previous conversation:\n")
		for _, turn := range history {
			fmt.Fprintf(&sb, "%s: %s\n", turn.Role, turn.Content)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "Current user message: %q\n\n", message)

	sb.WriteString(`Classify the message and extract scheduling details.

KIND CATEGORIES:
- book: the user wants to schedule a new event
- list: the user wants to see events for a date
- delete: the user wants to cancel an existing event (extract whatever identifies it: event_id, title, date, time; if the user says "last meeting", set event_id to "last")
- chat: anything else (greetings, questions about the booking process)

EXTRACTION GUIDELINES:
- date: resolve relative dates against the current date above. Return "today", "tomorrow" or a weekday name verbatim; otherwise YYYY-MM-DD.
- start_time: 24-hour HH:MM. For vague periods use 09:00 for morning, 14:00 for afternoon, 16:00 for evening. Null when no time was given.
- duration_minutes: explicit mentions, or 0 when nothing can be inferred.
- title: explicit title, or a short inferred one (e.g. "Meeting", "Call").
- attendees: any email addresses mentioned.

RESPONSE FORMAT (JSON only, no markdown, no extra text):
{
  "kind": "book|list|delete|chat",
  "date": "YYYY-MM-DD or today/tomorrow/weekday or null",
  "start_time": "HH:MM or null",
  "end_time": "HH:MM or null",
  "duration_minutes": 0,
  "title": "string or null",
  "attendees": ["email"],
  "event_id": "string or null",
  "confidence": 0.0
}
`)

	return sb.String()
}
