// Package notes implements personal notes for MoodWise. Every note belongs
// to exactly one user and is only ever visible to that user; requests for
// someone else's note behave as if the note did not exist.
//
// Titles and content are plain text, stored exactly as submitted apart
// from trimming the title. Escaping is the renderer's job.
package notes

import "time"

const (
	// MaxTitleLength is the longest title accepted, in characters.
	MaxTitleLength = 200

	// MaxContentBytes caps the stored HTML body.
	MaxContentBytes = 1 << 20

	// DefaultListLimit and MaxListLimit bound list pagination.
	DefaultListLimit = 100
	MaxListLimit     = 100
)

// Note is a single user note.
type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// --- Request DTOs ---

// CreateNoteRequest holds the data submitted when creating a new note.
type CreateNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// UpdateNoteRequest holds a partial update. Nil fields are left unchanged.
type UpdateNoteRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// ListOptions is the pagination window for listing notes.
type ListOptions struct {
	Skip  int
	Limit int
}
