package chat

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/moodwise/internal/apperror"
	"github.com/keyxmakerx/moodwise/internal/plugins/auth"
)

// Handler handles HTTP requests for chat.
type Handler struct {
	service ChatService
}

// NewHandler creates a new chat handler.
func NewHandler(service ChatService) *Handler {
	return &Handler{service: service}
}

// Chat returns an emotion-tagged reply (POST /api/chat).
func (h *Handler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	resp, err := h.service.Chat(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// SaveConversation stores a message list (POST /api/chat/conversations).
func (h *Handler) SaveConversation(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewMissingContext()
	}

	var messages []Message
	if err := c.Bind(&messages); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	id, err := h.service.SaveConversation(c.Request().Context(), userID, messages)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, SaveConversationResponse{ID: id})
}

// ListConversations returns the caller's saved conversations
// (GET /api/chat/conversations).
func (h *Handler) ListConversations(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewMissingContext()
	}

	convs, err := h.service.ListConversations(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convs)
}
