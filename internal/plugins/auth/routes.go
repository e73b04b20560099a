package auth

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all auth routes under /api/auth. Only /users/me
// requires a token; RequireAuth is exported for other plugins' route
// groups.
func RegisterRoutes(e *echo.Echo, h *Handler, service AuthService) {
	g := e.Group("/api/auth")

	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/forgot-password", h.ForgotPassword)
	g.POST("/reset-password", h.ResetPassword)

	g.GET("/users/me", h.Me, RequireAuth(service))
}
