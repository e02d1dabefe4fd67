package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	infraRepo "smartplant/internal/infra/repository"
	"smartplant/internal/infra/llm"
	"smartplant/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newChatUC(t *testing.T, c *fakeCompleter) (*usecase.ChatUsecase, *gorm.DB) {
	t.Helper()
	gdb := newTestDB(t)
	uc := usecase.NewChatUsecase(
		infraRepo.NewConversationGormRepository(gdb),
		infraRepo.NewChatMessageGormRepository(gdb),
		c, nopLogger(),
	)
	return uc, gdb
}

func TestChat_DefaultTitle(t *testing.T) {
	uc, gdb := newChatUC(t, &fakeCompleter{})
	u := seedUser(t, gdb, "a@example.com", true)

	conv, err := uc.CreateConversation(context.Background(), u.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "New Conversation", conv.Title)
}

func TestChat_SendMessage_HistoryAndMetadata(t *testing.T) {
	ctx := context.Background()
	c := &fakeCompleter{reply: "Water it weekly."}
	uc, gdb := newChatUC(t, c)
	u := seedUser(t, gdb, "a@example.com", true)

	conv, err := uc.CreateConversation(ctx, u.ID, "Fern")
	require.NoError(t, err)

	first, err := uc.SendMessage(ctx, u.ID, conv.ID, "How often?")
	require.NoError(t, err)
	assert.False(t, first.UserMessage.IsBot)
	assert.True(t, first.BotMessage.IsBot)
	assert.Equal(t, "Water it weekly.", first.BotMessage.Content)
	assert.Equal(t, "test-model", first.BotMessage.Metadata["model"])
	assert.Empty(t, c.history)
	assert.NotEmpty(t, c.prompt)

	_, err = uc.SendMessage(ctx, u.ID, conv.ID, "And light?")
	require.NoError(t, err)
	// 前回のやりとりだけが履歴に入る
	assert.Equal(t, []llm.Message{
		{Role: llm.RoleUser, Content: "How often?"},
		{Role: llm.RoleAssistant, Content: "Water it weekly."},
	}, c.history)

	msgs, err := uc.ListMessages(ctx, u.ID, conv.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 4)
}

func TestChat_SendMessage_Errors(t *testing.T) {
	ctx := context.Background()
	c := &fakeCompleter{err: errors.New("upstream 500")}
	uc, gdb := newChatUC(t, c)
	u := seedUser(t, gdb, "a@example.com", true)
	other := seedUser(t, gdb, "b@example.com", true)

	conv, err := uc.CreateConversation(ctx, u.ID, "")
	require.NoError(t, err)

	_, err = uc.SendMessage(ctx, u.ID, conv.ID, "  ")
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	_, err = uc.SendMessage(ctx, other.ID, conv.ID, "hi")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	_, err = uc.SendMessage(ctx, u.ID, conv.ID, "hi")
	assert.Equal(t, http.StatusBadGateway, statusOf(t, err))
	assert.True(t, errors.Is(err, usecase.ErrExternalService))

	// ユーザー発言は残る
	msgs, err := uc.ListMessages(ctx, u.ID, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Content)
}

func TestChat_DeleteConversation(t *testing.T) {
	ctx := context.Background()
	uc, gdb := newChatUC(t, &fakeCompleter{reply: "ok"})
	u := seedUser(t, gdb, "a@example.com", true)

	conv, err := uc.CreateConversation(ctx, u.ID, "x")
	require.NoError(t, err)
	_, err = uc.SendMessage(ctx, u.ID, conv.ID, "hi")
	require.NoError(t, err)

	require.NoError(t, uc.DeleteConversation(ctx, u.ID, conv.ID))
	_, err = uc.GetConversation(ctx, u.ID, conv.ID)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}
