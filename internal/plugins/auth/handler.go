package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/moodwise/internal/apperror"
)

// Client-facing messages. Login failures share one message whatever the
// cause; every bearer token failure shares another.
const (
	msgInvalidCredentials = "incorrect email or password"
	msgUnauthenticated    = "could not validate credentials"
	msgInactiveUser       = "inactive user"
	msgInvalidResetToken  = "invalid or expired token"
	msgResetRequested     = "If your email is registered, you will receive a password reset link"
	msgResetCompleted     = "Password has been reset successfully"
)

// Handler handles HTTP requests for authentication. Handlers are thin:
// they bind the request, call the service, and render the response. No
// business logic lives here.
type Handler struct {
	service AuthService
}

// NewHandler creates a new auth handler with the given service.
func NewHandler(service AuthService) *Handler {
	return &Handler{service: service}
}

// Register creates an account (POST /api/auth/register).
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	user, err := h.service.Register(c.Request().Context(), RegisterInput(req))
	if err != nil {
		return toAppError(err)
	}

	return c.JSON(http.StatusCreated, newUserResponse(user))
}

// Login exchanges credentials for an access token (POST /api/auth/login).
// Accepts JSON {email, password} or the OAuth2 password form, where the
// email travels in the "username" field.
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	token, _, err := h.service.Login(c.Request().Context(), LoginInput(req))
	if err != nil {
		return toAppError(err)
	}

	return c.JSON(http.StatusOK, TokenResponse{AccessToken: token, TokenType: TokenType})
}

// Me returns the authenticated user (GET /api/auth/users/me).
func (h *Handler) Me(c echo.Context) error {
	user := GetUser(c)
	if user == nil {
		return apperror.NewMissingContext()
	}
	return c.JSON(http.StatusOK, newUserResponse(user))
}

// ForgotPassword starts a password reset (POST /api/auth/forgot-password).
// The response is the same whether or not the email is registered.
func (h *Handler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	h.service.RequestPasswordReset(c.Request().Context(), req.Email)

	return c.JSON(http.StatusOK, MessageResponse{Message: msgResetRequested})
}

// ResetPassword sets a new password using a reset token
// (POST /api/auth/reset-password).
func (h *Handler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	if err := h.service.CompletePasswordReset(c.Request().Context(), req.Token, req.Password); err != nil {
		return toAppError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: msgResetCompleted})
}

// toAppError maps auth errors onto HTTP errors. Unknown errors become
// a generic 500 with the cause kept for logging.
func toAppError(err error) error {
	var validationErr *ValidationError
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return apperror.NewUnauthorized(msgInvalidCredentials)
	case errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrUserNotFound):
		return apperror.NewUnauthorized(msgUnauthenticated)
	case errors.Is(err, ErrAccountDisabled):
		return apperror.NewForbidden(msgInactiveUser)
	case errors.Is(err, ErrResetTokenInvalid):
		return apperror.NewBadRequest(msgInvalidResetToken)
	case errors.Is(err, ErrDuplicateEmail):
		return apperror.NewConflict("email already registered")
	case errors.Is(err, ErrDuplicateUsername):
		return apperror.NewConflict("username already taken")
	case errors.As(err, &validationErr):
		return apperror.NewValidation(validationErr.Message)
	default:
		return apperror.NewInternal(err)
	}
}
