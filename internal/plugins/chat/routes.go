package chat

import (
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/moodwise/internal/plugins/auth"
)

// RegisterRoutes sets up the chat routes under /api/chat. All of them
// require a bearer token.
func RegisterRoutes(e *echo.Echo, h *Handler, authSvc auth.AuthService) {
	g := e.Group("/api/chat", auth.RequireAuth(authSvc))

	g.POST("", h.Chat)
	g.POST("/conversations", h.SaveConversation)
	g.GET("/conversations", h.ListConversations)
}
