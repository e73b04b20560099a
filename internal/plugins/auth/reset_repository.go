package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ResetTokenRepository stores hashed password-reset tokens, at most one
// live token per user.
type ResetTokenRepository interface {
	// Upsert stores rec, replacing any token the user already had.
	Upsert(ctx context.Context, rec *ResetToken) error

	// FindByHash returns the record for a token hash, or errResetTokenNotFound.
	FindByHash(ctx context.Context, hash string) (*ResetToken, error)

	// DeleteByHash removes a record. Deleting a missing record is not an error.
	DeleteByHash(ctx context.Context, hash string) error

	// Redeem locks the record for hash and calls fn with it. The record is
	// deleted only when fn returns nil; otherwise it stays usable. Two
	// concurrent Redeem calls for the same hash never both reach fn.
	Redeem(ctx context.Context, hash string, fn func(rec *ResetToken) error) error
}

// resetTokenRepository implements ResetTokenRepository on MariaDB.
type resetTokenRepository struct {
	db *sql.DB
}

// NewResetTokenRepository creates a MariaDB-backed reset token repository.
func NewResetTokenRepository(db *sql.DB) ResetTokenRepository {
	return &resetTokenRepository{db: db}
}

// Upsert relies on the unique key on user_id so a new token replaces the
// old one in a single statement.
func (r *resetTokenRepository) Upsert(ctx context.Context, rec *ResetToken) error {
	query := `INSERT INTO password_reset_tokens (user_id, token_hash, expires_at, created_at)
	          VALUES (?, ?, ?, ?)
	          ON DUPLICATE KEY UPDATE
	              token_hash = VALUES(token_hash),
	              expires_at = VALUES(expires_at),
	              created_at = VALUES(created_at)`

	_, err := r.db.ExecContext(ctx, query, rec.UserID, rec.TokenHash, rec.ExpiresAt, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("upserting reset token: %w", err)
	}
	return nil
}

// FindByHash looks up a token record by its hash.
func (r *resetTokenRepository) FindByHash(ctx context.Context, hash string) (*ResetToken, error) {
	query := `SELECT user_id, token_hash, expires_at, created_at
	          FROM password_reset_tokens WHERE token_hash = ?`

	rec, err := scanResetToken(r.db.QueryRowContext(ctx, query, hash))
	if err != nil && !errors.Is(err, errResetTokenNotFound) {
		return nil, fmt.Errorf("querying reset token: %w", err)
	}
	return rec, err
}

// DeleteByHash removes the record for a token hash.
func (r *resetTokenRepository) DeleteByHash(ctx context.Context, hash string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE token_hash = ?`, hash)
	if err != nil {
		return fmt.Errorf("deleting reset token: %w", err)
	}
	return nil
}

// Redeem holds a row lock (SELECT ... FOR UPDATE) while fn runs, so a
// second redeemer blocks until the first commits and then finds nothing.
func (r *resetTokenRepository) Redeem(ctx context.Context, hash string, fn func(rec *ResetToken) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning reset transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT user_id, token_hash, expires_at, created_at
	          FROM password_reset_tokens WHERE token_hash = ? FOR UPDATE`

	rec, err := scanResetToken(tx.QueryRowContext(ctx, query, hash))
	if err != nil {
		if errors.Is(err, errResetTokenNotFound) {
			return err
		}
		return fmt.Errorf("locking reset token: %w", err)
	}

	if err := fn(rec); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE token_hash = ?`, hash); err != nil {
		return fmt.Errorf("deleting redeemed reset token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reset transaction: %w", err)
	}
	return nil
}

func scanResetToken(row *sql.Row) (*ResetToken, error) {
	rec := &ResetToken{}
	err := row.Scan(&rec.UserID, &rec.TokenHash, &rec.ExpiresAt, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errResetTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}
