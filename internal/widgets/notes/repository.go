package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/keyxmakerx/moodwise/internal/apperror"
)

// NoteRepository defines the data access contract for note operations.
// Every method is scoped to an owner: a note that exists but belongs to
// another user is reported as not found.
type NoteRepository interface {
	Create(ctx context.Context, note *Note) error
	FindByID(ctx context.Context, userID, id string) (*Note, error)
	Update(ctx context.Context, note *Note) error
	Delete(ctx context.Context, userID, id string) error

	// ListByUser returns the user's notes, most recently updated first.
	ListByUser(ctx context.Context, userID string, opts ListOptions) ([]Note, error)
}

// noteRepository is the MariaDB implementation of NoteRepository.
type noteRepository struct {
	db *sql.DB
}

// NewNoteRepository creates a new MariaDB-backed note repository.
func NewNoteRepository(db *sql.DB) NoteRepository {
	return &noteRepository{db: db}
}

// noteColumns is the SELECT column list for notes queries.
const noteColumns = `id, user_id, title, content, created_at, updated_at`

// Create inserts a new note into the database.
func (r *noteRepository) Create(ctx context.Context, note *Note) error {
	query := `INSERT INTO notes (` + noteColumns + `) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		note.ID, note.UserID, note.Title, note.Content, note.CreatedAt, note.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting note: %w", err)
	}
	return nil
}

// FindByID retrieves one of the user's notes.
func (r *noteRepository) FindByID(ctx context.Context, userID, id string) (*Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE id = ? AND user_id = ?`

	var n Note
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&n.ID, &n.UserID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("note not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying note: %w", err)
	}
	return &n, nil
}

// Update saves title, content and updated_at of an existing note.
func (r *noteRepository) Update(ctx context.Context, note *Note) error {
	query := `UPDATE notes SET title = ?, content = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`

	result, err := r.db.ExecContext(ctx, query,
		note.Title, note.Content, note.UpdatedAt, note.ID, note.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating note: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperror.NewNotFound("note not found")
	}
	return nil
}

// Delete removes one of the user's notes.
func (r *noteRepository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting note: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperror.NewNotFound("note not found")
	}
	return nil
}

// ListByUser returns a page of the user's notes.
func (r *noteRepository) ListByUser(ctx context.Context, userID string, opts ListOptions) ([]Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes
		WHERE user_id = ?
		ORDER BY updated_at DESC, id
		LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, userID, opts.Limit, opts.Skip)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	defer rows.Close()

	notes := []Note{}
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning note row: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating note rows: %w", err)
	}
	return notes, nil
}
