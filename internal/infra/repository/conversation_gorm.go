package repository

import (
	"context"
	"time"

	"smartplant/internal/domain/model"
	repo "smartplant/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConversationGormRepository struct {
	db *gorm.DB
}

func NewConversationGormRepository(db *gorm.DB) *ConversationGormRepository {
	return &ConversationGormRepository{db: db}
}

var _ repo.ConversationRepository = (*ConversationGormRepository)(nil)

func (r *ConversationGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.Conversation, error) {
	var list []model.Conversation
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at desc, id desc").
		Find(&list).Error; err != nil {
		return []model.Conversation{}, err
	}
	return list, nil
}

func (r *ConversationGormRepository) Create(ctx context.Context, c *model.Conversation) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(c).Error)
}

func (r *ConversationGormRepository) FindByUserAndID(ctx context.Context, userID, conversationID int64) (model.Conversation, error) {
	var c model.Conversation
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", conversationID, userID).
		First(&c).Error; err != nil {
		return model.Conversation{}, translate(err)
	}
	return c, nil
}

// メッセージはFKでカスケード削除
func (r *ConversationGormRepository) Delete(ctx context.Context, userID, conversationID int64) error {
	return affected(r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", conversationID, userID).
		Delete(&model.Conversation{}))
}

func (r *ConversationGormRepository) Touch(ctx context.Context, conversationID int64, at time.Time) error {
	return affected(r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", conversationID).
		UpdateColumn("updated_at", at))
}

type ChatMessageGormRepository struct {
	db *gorm.DB
}

func NewChatMessageGormRepository(db *gorm.DB) *ChatMessageGormRepository {
	return &ChatMessageGormRepository{db: db}
}

var _ repo.ChatMessageRepository = (*ChatMessageGormRepository)(nil)

func (r *ChatMessageGormRepository) ListByConversationID(ctx context.Context, conversationID int64) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("timestamp asc, id asc").
		Find(&msgs).Error; err != nil {
		return []model.ChatMessage{}, err
	}
	return msgs, nil
}

func (r *ChatMessageGormRepository) Create(ctx context.Context, m *model.ChatMessage) error {
	return translate(r.db.WithContext(ctx).Create(m).Error)
}
