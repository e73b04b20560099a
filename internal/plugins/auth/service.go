package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"
)

// maxUsernameLength matches the users.username column.
const maxUsernameLength = 100

// TokenType is the scheme clients use when presenting an access token.
const TokenType = "bearer"

// MailSender is the slice of the smtp plugin the reset flow needs.
type MailSender interface {
	SendMail(ctx context.Context, to []string, subject, body string) error
	IsConfigured(ctx context.Context) bool
}

// AuthService defines the business logic contract for authentication.
// Handlers call these methods -- they never touch the repository directly.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*User, error)

	// Authenticate checks an email/password pair. Unknown email and wrong
	// password both fail with ErrInvalidCredentials.
	Authenticate(ctx context.Context, email, password string) (*User, error)

	// Login authenticates and mints an access token.
	Login(ctx context.Context, input LoginInput) (token string, user *User, err error)

	// ResolveToken turns a bearer token into an active user.
	ResolveToken(ctx context.Context, token string) (*User, error)

	// RequestPasswordReset never reports whether the account exists, by
	// result or by latency: the email goes out in the background.
	RequestPasswordReset(ctx context.Context, email string)

	// WaitForMail blocks until background reset emails are done or ctx
	// ends. Called on shutdown.
	WaitForMail(ctx context.Context) error

	CompletePasswordReset(ctx context.Context, token, newPassword string) error
}

// authService implements AuthService with bcrypt hashing and JWT access tokens.
type authService struct {
	users   UserRepository
	resets  *ResetTokenStore
	hasher  PasswordHasher
	tokens  TokenCodec
	mail    MailSender
	baseURL string

	// dummyHash is compared against on unknown-email logins so both
	// failure paths cost one bcrypt verification.
	dummyHash string

	// mailing counts reset emails still being delivered.
	mailing sync.WaitGroup
}

// NewAuthService creates a new auth service with the given dependencies.
// mail may be nil, in which case reset links are never sent.
func NewAuthService(users UserRepository, resets *ResetTokenStore, hasher PasswordHasher, tokens TokenCodec, mail MailSender, baseURL string) AuthService {
	dummy, err := hasher.Hash("moodwise-timing-equalizer")
	if err != nil {
		slog.Warn("could not precompute dummy password hash", slog.Any("error", err))
	}
	return &authService{
		users:     users,
		resets:    resets,
		hasher:    hasher,
		tokens:    tokens,
		mail:      mail,
		baseURL:   strings.TrimRight(baseURL, "/"),
		dummyHash: dummy,
	}
}

// Register creates a new user account. It validates the input, checks
// uniqueness, hashes the password, and persists the user.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*User, error) {
	email := normalizeEmail(input.Email)
	username := strings.TrimSpace(input.Username)

	if err := validateRegistration(email, username, input.Password); err != nil {
		return nil, err
	}

	// Check uniqueness before doing expensive hashing.
	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("checking email: %w", err)
	}
	if exists {
		return nil, ErrDuplicateEmail
	}

	exists, err = s.users.UsernameExists(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("checking username: %w", err)
	}
	if exists {
		return nil, ErrDuplicateUsername
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	// The unique keys still catch a concurrent registration that slipped
	// past the existence checks.
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) || errors.Is(err, ErrDuplicateUsername) {
			return nil, err
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// Authenticate looks the user up by email and verifies the password.
func (s *authService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		s.hasher.Verify(password, s.dummyHash)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	// Only reachable with the right password, so it reveals nothing about
	// which emails are registered.
	if user.IsDisabled {
		return nil, ErrAccountDisabled
	}
	return user, nil
}

// Login authenticates a user and issues an access token with the codec's
// default lifetime.
func (s *authService) Login(ctx context.Context, input LoginInput) (string, *User, error) {
	user, err := s.Authenticate(ctx, input.Email, input.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		slog.Warn("failed login attempt", slog.String("email", normalizeEmail(input.Email)))
		return "", nil, err
	}
	if errors.Is(err, ErrAccountDisabled) {
		slog.Warn("login attempt on disabled account", slog.String("email", normalizeEmail(input.Email)))
		return "", nil, err
	}
	if err != nil {
		return "", nil, err
	}

	token, err := s.tokens.Issue(user.Email, 0)
	if err != nil {
		return "", nil, fmt.Errorf("issuing access token: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return token, user, nil
}

// ResolveToken verifies the token, loads its subject, and rejects
// disabled accounts. Nothing is cached between calls.
func (s *authService) ResolveToken(ctx context.Context, token string) (*User, error) {
	email, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("loading token subject: %w", err)
	}

	if user.IsDisabled {
		return nil, ErrAccountDisabled
	}
	return user, nil
}

// RequestPasswordReset issues a reset token and mails a link to it. Every
// outcome, including failures, is only logged. Delivery runs in the
// background so a registered email takes no longer to answer than an
// unknown one.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) {
	email = normalizeEmail(email)
	if !govalidator.IsEmail(email) {
		slog.Info("password reset requested for malformed email")
		return
	}

	token, user, err := s.resets.Issue(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		slog.Info("password reset requested for unknown email")
		return
	}
	if err != nil {
		slog.Error("failed to issue reset token", slog.Any("error", err))
		return
	}

	mailCtx := context.WithoutCancel(ctx)
	s.mailing.Add(1)
	go func() {
		defer s.mailing.Done()
		s.sendResetMail(mailCtx, user, token)
	}()
}

// sendResetMail delivers the reset link. The token itself is never logged.
func (s *authService) sendResetMail(ctx context.Context, user *User, token string) {
	if s.mail == nil || !s.mail.IsConfigured(ctx) {
		slog.Warn("password reset token issued but SMTP is not configured",
			slog.String("user_id", user.ID),
		)
		return
	}

	link := s.baseURL + "/reset-password?token=" + url.QueryEscape(token)
	body := fmt.Sprintf(
		"Hello %s,\r\n\r\n"+
			"A password reset was requested for your MoodWise account.\r\n"+
			"Open the link below within 24 hours to choose a new password:\r\n\r\n"+
			"%s\r\n\r\n"+
			"If you did not ask for this, you can ignore this email.\r\n",
		user.Username, link,
	)

	if err := s.mail.SendMail(ctx, []string{user.Email}, "Reset your MoodWise password", body); err != nil {
		slog.Error("failed to send password reset email",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return
	}

	slog.Info("password reset email sent", slog.String("user_id", user.ID))
}

// WaitForMail waits for background reset emails to finish.
func (s *authService) WaitForMail(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.mailing.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CompletePasswordReset replaces the password of the token's owner. The
// token is consumed only after the new hash is written.
func (s *authService) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" {
		return ErrResetTokenInvalid
	}
	if newPassword == "" {
		return newValidationError("password is required")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	err = s.resets.Redeem(ctx, token, func(ctx context.Context, userID string) error {
		if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return ErrResetTokenInvalid
			}
			return fmt.Errorf("updating password: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("password reset completed")
	return nil
}

// --- Helpers ---

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegistration(email, username, password string) error {
	if !govalidator.IsEmail(email) {
		return newValidationError("a valid email address is required")
	}
	if username == "" {
		return newValidationError("username is required")
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return newValidationError(fmt.Sprintf("username must be at most %d characters", maxUsernameLength))
	}
	if password == "" {
		return newValidationError("password is required")
	}
	if len(password) > MaxPasswordBytes {
		return newValidationError(fmt.Sprintf("password must be at most %d bytes", MaxPasswordBytes))
	}
	return nil
}
