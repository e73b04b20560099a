package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ResetTokenLifetime is how long a password reset token stays usable.
const ResetTokenLifetime = 24 * time.Hour

// resetTokenBytes is the entropy of a reset token: 256 bits.
const resetTokenBytes = 32

// ResetTokenStore issues and checks single-use password reset tokens.
// Tokens are handed out in plaintext exactly once; only their SHA-256
// hash is stored.
type ResetTokenStore struct {
	users UserRepository
	repo  ResetTokenRepository
	now   func() time.Time
}

// NewResetTokenStore creates a reset token store over the given user and
// token repositories.
func NewResetTokenStore(users UserRepository, repo ResetTokenRepository) *ResetTokenStore {
	return &ResetTokenStore{users: users, repo: repo, now: time.Now}
}

// Issue creates a fresh token for the account with this email, replacing
// any earlier one. Returns ErrUserNotFound if no such account exists.
func (s *ResetTokenStore) Issue(ctx context.Context, email string) (string, *User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}

	token, err := generateResetToken()
	if err != nil {
		return "", nil, fmt.Errorf("generating reset token: %w", err)
	}

	now := s.now().UTC()
	rec := &ResetToken{
		UserID:    user.ID,
		TokenHash: hashResetToken(token),
		ExpiresAt: now.Add(ResetTokenLifetime),
		CreatedAt: now,
	}
	if err := s.repo.Upsert(ctx, rec); err != nil {
		return "", nil, err
	}

	return token, user, nil
}

// Consume returns the ID of the user a live token belongs to without
// using it up. An expired token is deleted on sight. Unknown and expired
// tokens both yield ErrResetTokenInvalid. The password reset flow uses
// Redeem instead, which checks and deletes under one lock.
func (s *ResetTokenStore) Consume(ctx context.Context, token string) (string, error) {
	hash := hashResetToken(token)

	rec, err := s.repo.FindByHash(ctx, hash)
	if errors.Is(err, errResetTokenNotFound) {
		return "", ErrResetTokenInvalid
	}
	if err != nil {
		return "", err
	}

	if rec.Expired(s.now()) {
		s.dropExpired(ctx, hash)
		return "", ErrResetTokenInvalid
	}
	return rec.UserID, nil
}

// Invalidate deletes a token. Unknown tokens are ignored. Redeem deletes
// on success, so the reset flow never calls this directly.
func (s *ResetTokenStore) Invalidate(ctx context.Context, token string) error {
	return s.repo.DeleteByHash(ctx, hashResetToken(token))
}

// Redeem runs fn for the token's owner while holding the token exclusively.
// The token is deleted only when fn succeeds, so a failed password write
// leaves it usable. A token can be redeemed at most once.
func (s *ResetTokenStore) Redeem(ctx context.Context, token string, fn func(ctx context.Context, userID string) error) error {
	hash := hashResetToken(token)
	expired := false

	err := s.repo.Redeem(ctx, hash, func(rec *ResetToken) error {
		if rec.Expired(s.now()) {
			expired = true
			return ErrResetTokenInvalid
		}
		return fn(ctx, rec.UserID)
	})

	if expired {
		s.dropExpired(ctx, hash)
	}
	if errors.Is(err, errResetTokenNotFound) {
		return ErrResetTokenInvalid
	}
	return err
}

// dropExpired deletes an expired token. Failure only delays the cleanup
// until the next lookup.
func (s *ResetTokenStore) dropExpired(ctx context.Context, hash string) {
	if err := s.repo.DeleteByHash(ctx, hash); err != nil {
		slog.Warn("failed to delete expired reset token", slog.Any("error", err))
	}
}

// generateResetToken returns a URL-safe random token.
func generateResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// hashResetToken returns the hex SHA-256 digest used as the storage key.
func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
