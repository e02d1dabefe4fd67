package handler

import (
	"net/http"

	"smartplant/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ChatHandler struct {
	uc *usecase.ChatUsecase
}

func NewChatHandler(uc *usecase.ChatUsecase) *ChatHandler {
	return &ChatHandler{uc: uc}
}

type ConversationRequest struct {
	Title string `json:"title" validate:"max=255"`
}

// 空文字はusecase側で400
type SendMessageRequest struct {
	Message string `json:"message"`
}

func (h *ChatHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/chat/conversations", h.list)
	g.POST("/chat/conversations", h.create)
	g.GET("/chat/conversations/:id", h.get)
	g.DELETE("/chat/conversations/:id", h.delete)
	g.GET("/chat/conversations/:id/messages", h.messages)
	g.POST("/chat/conversations/:id/messages", h.send)
}

func (h *ChatHandler) list(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	list, err := h.uc.ListConversations(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *ChatHandler) create(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req ConversationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	conv, err := h.uc.CreateConversation(c.Request().Context(), userID, req.Title)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, conv)
}

func (h *ChatHandler) get(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	conv, err := h.uc.GetConversation(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, conv)
}

func (h *ChatHandler) delete(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	if err := h.uc.DeleteConversation(c.Request().Context(), userID, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ChatHandler) messages(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	msgs, err := h.uc.ListMessages(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, msgs)
}

func (h *ChatHandler) send(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	var req SendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.SendMessage(c.Request().Context(), userID, id, req.Message)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}
