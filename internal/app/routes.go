package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/moodwise/internal/config"
	"github.com/keyxmakerx/moodwise/internal/database"
	"github.com/keyxmakerx/moodwise/internal/plugins/auth"
	"github.com/keyxmakerx/moodwise/internal/plugins/chat"
	"github.com/keyxmakerx/moodwise/internal/plugins/smtp"
	"github.com/keyxmakerx/moodwise/internal/widgets/notes"
)

// RegisterRoutes builds every plugin from the shared infrastructure and
// registers its routes. This is the single place where plugins are wired.
func (a *App) RegisterRoutes() error {
	e := a.Echo

	// --- Public Routes ---

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "Welcome to MoodWise Notes API"})
	})

	e.GET("/healthz", func(c echo.Context) error {
		if err := database.Ping(c.Request().Context(), a.DB, a.Redis); err != nil {
			slog.Warn("health check failed", slog.Any("error", err))
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// --- Auth ---

	authSvc, err := a.buildAuthService()
	if err != nil {
		return err
	}
	a.auth = authSvc
	auth.RegisterRoutes(e, auth.NewHandler(authSvc), authSvc)

	// --- Notes ---

	noteSvc := notes.NewNoteService(notes.NewNoteRepository(a.DB))
	notes.RegisterRoutes(e, notes.NewHandler(noteSvc), authSvc)

	// --- Chat ---

	if a.Config.Chat.APIKey == "" {
		slog.Warn("GROQ_API_KEY not set; chat replies are disabled")
	}
	chatSvc := chat.NewChatService(
		chat.NewCompletionClient(a.Config.Chat),
		chat.NewConversationRepository(a.DB),
	)
	chat.RegisterRoutes(e, chat.NewHandler(chatSvc), authSvc)

	return nil
}

// buildAuthService assembles the auth plugin: user store, reset token
// backend, hasher, token codec and mailer.
func (a *App) buildAuthService() (auth.AuthService, error) {
	cfg := a.Config.Auth

	codec, err := auth.NewTokenCodec(cfg.SecretKey, cfg.Algorithm, cfg.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("building token codec: %w", err)
	}

	users := auth.NewUserRepository(a.DB)

	var resetRepo auth.ResetTokenRepository
	switch cfg.ResetStore {
	case config.ResetStoreRedis:
		resetRepo = auth.NewRedisResetTokenRepository(a.Redis, auth.ResetTokenLifetime)
	default:
		resetRepo = auth.NewResetTokenRepository(a.DB)
	}
	slog.Info("password reset tokens", slog.String("store", cfg.ResetStore))

	mailer := smtp.NewSMTPService(a.Config.SMTP)
	if !a.Config.SMTP.Enabled() {
		slog.Warn("SMTP not configured; password reset links will not be emailed")
	}

	return auth.NewAuthService(
		users,
		auth.NewResetTokenStore(users, resetRepo),
		auth.NewBcryptHasher(cfg.BcryptCost),
		codec,
		mailer,
		a.Config.BaseURL,
	), nil
}
