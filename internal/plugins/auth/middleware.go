package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Context keys for storing the caller in Echo context. Other plugins
// use these keys (via the exported getter functions below) to access
// the authenticated user's information.
const (
	contextKeyUser   = "auth_user"
	contextKeyUserID = "auth_user_id"
)

// RequireAuth returns middleware that resolves the bearer token in the
// Authorization header to an active user and stores it in the context.
// Missing or bad tokens get 401 with a Bearer challenge; disabled
// accounts get 403.
func RequireAuth(service AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c.Request())
			if token == "" {
				return challenge(c, ErrTokenInvalid)
			}

			user, err := service.ResolveToken(c.Request().Context(), token)
			if err != nil {
				return challenge(c, err)
			}

			c.Set(contextKeyUser, user)
			c.Set(contextKeyUserID, user.ID)

			return next(c)
		}
	}
}

// --- Exported getters for other plugins ---

// GetUser retrieves the authenticated user from the Echo context.
// Returns nil if the request is not authenticated (middleware not applied).
func GetUser(c echo.Context) *User {
	user, ok := c.Get(contextKeyUser).(*User)
	if !ok {
		return nil
	}
	return user
}

// GetUserID retrieves the authenticated user's ID from the Echo context.
// Returns empty string if the request is not authenticated.
func GetUserID(c echo.Context) string {
	id, ok := c.Get(contextKeyUserID).(string)
	if !ok {
		return ""
	}
	return id
}

// --- Helpers ---

// bearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get(echo.HeaderAuthorization), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// challenge converts a guard failure to its HTTP error, adding the
// WWW-Authenticate header for 401s.
func challenge(c echo.Context, err error) error {
	if isUnauthenticated(err) {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	}
	return toAppError(err)
}

// isUnauthenticated reports whether err should produce a Bearer challenge.
func isUnauthenticated(err error) bool {
	return errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrUserNotFound)
}
