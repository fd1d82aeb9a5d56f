package conversation

import (
	"context"

	"bookify/models"
)

// Store keeps per-conversation state between chat turns: the bounded history
// window fed to the intent extractor and the title→event-id index built by
// list operations.
type Store interface {
	Get(ctx context.Context, conversationID string) (*models.Conversation, error)
	Save(ctx context.Context, conversationID string, conv *models.Conversation) error
	Clear(ctx context.Context, conversationID string) error
}
