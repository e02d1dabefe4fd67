package repository

import (
	"context"
	"time"

	"smartplant/internal/domain/model"
)

type ConversationRepository interface {
	// updated_at降順
	ListByUserID(ctx context.Context, userID int64) ([]model.Conversation, error)
	Create(ctx context.Context, c *model.Conversation) error
	FindByUserAndID(ctx context.Context, userID, conversationID int64) (model.Conversation, error)
	Delete(ctx context.Context, userID, conversationID int64) error
	Touch(ctx context.Context, conversationID int64, at time.Time) error
}

type ChatMessageRepository interface {
	// timestamp昇順
	ListByConversationID(ctx context.Context, conversationID int64) ([]model.ChatMessage, error)
	Create(ctx context.Context, m *model.ChatMessage) error
}
