package models

import "time"

// RawMessage is the payload coming from the frontend into /api/chat.
type RawMessage struct {
	Text           string    `json:"text"`
	ConversationID string    `json:"conversationId"`
	Timestamp      time.Time `json:"timestamp"`
}

// ConversationTurn is a single utterance kept in the conversation history.
type ConversationTurn struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is the per-conversation state kept between chat turns.
// EventIndex maps lowercased event titles to calendar event ids so a later
// "cancel the standup" can be resolved without another calendar scan.
type Conversation struct {
	Turns      []ConversationTurn `json:"turns"`
	EventIndex map[string]string  `json:"eventIndex,omitempty"`
}

// LastTurns returns up to n most recent turns, oldest first.
func (c *Conversation) LastTurns(n int) []ConversationTurn {
	if n <= 0 || len(c.Turns) <= n {
		return c.Turns
	}
	return c.Turns[len(c.Turns)-n:]
}
