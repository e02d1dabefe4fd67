package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"smartplant/internal/domain/model"
	"smartplant/internal/infra/llm"
	repo "smartplant/internal/repository"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const chatSystemPrompt = `You are a plant care expert AI assistant. Your responses should be:
1. Clear and well-structured using markdown formatting
2. Use bullet points or numbered lists for steps
3. Use headings (##) for different sections
4. Use **bold** for important terms
5. Include relevant emojis where appropriate (🌱, 🪴, 💧, ☀️, etc.)
6. Keep responses concise but informative

Remember to focus on plant care, gardening, and botanical topics.`

const defaultConversationTitle = "New Conversation"

type ChatUsecase struct {
	conversations repo.ConversationRepository
	messages      repo.ChatMessageRepository
	completer     llm.Completer
	log           *zap.Logger
}

func NewChatUsecase(
	conversations repo.ConversationRepository,
	messages repo.ChatMessageRepository,
	completer llm.Completer,
	log *zap.Logger,
) *ChatUsecase {
	return &ChatUsecase{conversations: conversations, messages: messages, completer: completer, log: log}
}

type SendMessageOutput struct {
	UserMessage model.ChatMessage `json:"user_message"`
	BotMessage  model.ChatMessage `json:"bot_message"`
}

var errConversationNotFound = NewHTTPError(http.StatusNotFound, "Conversation not found")

// updated_at の新しい順
func (u *ChatUsecase) ListConversations(ctx context.Context, userID int64) ([]model.Conversation, error) {
	return u.conversations.ListByUserID(ctx, userID)
}

func (u *ChatUsecase) CreateConversation(ctx context.Context, userID int64, title string) (model.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultConversationTitle
	}
	if len(title) > 255 {
		return model.Conversation{}, NewHTTPError(http.StatusBadRequest, "title too long")
	}

	c := &model.Conversation{UserID: userID, Title: title}
	if err := u.conversations.Create(ctx, c); err != nil {
		return model.Conversation{}, err
	}
	return *c, nil
}

func (u *ChatUsecase) GetConversation(ctx context.Context, userID, conversationID int64) (model.Conversation, error) {
	c, err := u.conversations.FindByUserAndID(ctx, userID, conversationID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Conversation{}, errConversationNotFound
	}
	return c, err
}

func (u *ChatUsecase) DeleteConversation(ctx context.Context, userID, conversationID int64) error {
	if err := u.conversations.Delete(ctx, userID, conversationID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errConversationNotFound
		}
		return err
	}
	return nil
}

// 時刻順
func (u *ChatUsecase) ListMessages(ctx context.Context, userID, conversationID int64) ([]model.ChatMessage, error) {
	if _, err := u.GetConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return u.messages.ListByConversationID(ctx, conversationID)
}

// SendMessage はユーザー発言を保存してからLLMに問い合わせる。
// LLMが失敗してもユーザー発言は残る（502）
func (u *ChatUsecase) SendMessage(ctx context.Context, userID, conversationID int64, content string) (SendMessageOutput, error) {
	if strings.TrimSpace(content) == "" {
		return SendMessageOutput{}, NewHTTPError(http.StatusBadRequest, "Message is required")
	}
	if _, err := u.GetConversation(ctx, userID, conversationID); err != nil {
		return SendMessageOutput{}, err
	}

	//保存前の履歴（今回の発言は含めない）
	prior, err := u.messages.ListByConversationID(ctx, conversationID)
	if err != nil {
		return SendMessageOutput{}, err
	}

	userMsg := &model.ChatMessage{ConversationID: conversationID, Content: content, IsBot: false}
	if err := u.messages.Create(ctx, userMsg); err != nil {
		return SendMessageOutput{}, err
	}

	history := make([]llm.Message, 0, len(prior))
	for _, m := range prior {
		role := llm.RoleUser
		if m.IsBot {
			role = llm.RoleAssistant
		}
		history = append(history, llm.Message{Role: role, Content: m.Content})
	}

	reply, err := u.completer.Complete(ctx, chatSystemPrompt, history, content)
	if err != nil {
		u.log.Error("chat_completion_failed", zap.Int64("conversation_id", conversationID), zap.Error(err))
		return SendMessageOutput{}, WrapHTTPError(http.StatusBadGateway, "Failed to get response", fmt.Errorf("%w: %v", ErrExternalService, err))
	}

	botMsg := &model.ChatMessage{
		ConversationID: conversationID,
		Content:        reply,
		IsBot:          true,
		Metadata: datatypes.JSONMap{
			"model":       u.completer.Model(),
			"temperature": u.completer.Temperature(),
		},
	}
	if err := u.messages.Create(ctx, botMsg); err != nil {
		return SendMessageOutput{}, err
	}

	if err := u.conversations.Touch(ctx, conversationID, time.Now()); err != nil {
		u.log.Warn("conversation_touch_failed", zap.Int64("conversation_id", conversationID), zap.Error(err))
	}

	return SendMessageOutput{UserMessage: *userMsg, BotMessage: *botMsg}, nil
}
