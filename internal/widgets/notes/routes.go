package notes

import (
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/moodwise/internal/plugins/auth"
)

// RegisterRoutes sets up the note routes under /api/notes. Every route
// requires a bearer token; ownership is enforced by the service.
func RegisterRoutes(e *echo.Echo, h *Handler, authSvc auth.AuthService) {
	g := e.Group("/api/notes", auth.RequireAuth(authSvc))

	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:noteId", h.Get)
	g.PUT("/:noteId", h.Update)
	g.DELETE("/:noteId", h.Delete)
}
