package notes

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/keyxmakerx/moodwise/internal/apperror"
)

// NoteService defines the business logic contract for notes. The caller
// passes the authenticated user's ID; the service never trusts IDs from
// request bodies for ownership.
type NoteService interface {
	Create(ctx context.Context, userID string, req CreateNoteRequest) (*Note, error)
	Get(ctx context.Context, userID, id string) (*Note, error)
	List(ctx context.Context, userID string, opts ListOptions) ([]Note, error)
	Update(ctx context.Context, userID, id string, req UpdateNoteRequest) (*Note, error)
	Delete(ctx context.Context, userID, id string) error
}

// noteService implements NoteService.
type noteService struct {
	repo NoteRepository
	now  func() time.Time
}

// NewNoteService creates a new note service.
func NewNoteService(repo NoteRepository) NoteService {
	return &noteService{repo: repo, now: time.Now}
}

// Create validates and persists a new note.
func (s *noteService) Create(ctx context.Context, userID string, req CreateNoteRequest) (*Note, error) {
	title, err := cleanTitle(req.Title)
	if err != nil {
		return nil, err
	}
	content, err := cleanContent(req.Content)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	note := &Note{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, note); err != nil {
		return nil, apperror.NewInternal(err)
	}
	return note, nil
}

// Get returns one of the user's notes.
func (s *noteService) Get(ctx context.Context, userID, id string) (*Note, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, userID, id)
}

// List returns a page of the user's notes, newest-updated first.
func (s *noteService) List(ctx context.Context, userID string, opts ListOptions) ([]Note, error) {
	if opts.Skip < 0 {
		return nil, apperror.NewBadRequest("skip must not be negative")
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}
	if opts.Limit > MaxListLimit {
		opts.Limit = MaxListLimit
	}

	notes, err := s.repo.ListByUser(ctx, userID, opts)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return notes, nil
}

// Update applies the provided fields and bumps updated_at.
func (s *noteService) Update(ctx context.Context, userID, id string, req UpdateNoteRequest) (*Note, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	note, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title, err := cleanTitle(*req.Title)
		if err != nil {
			return nil, err
		}
		note.Title = title
	}
	if req.Content != nil {
		content, err := cleanContent(*req.Content)
		if err != nil {
			return nil, err
		}
		note.Content = content
	}

	note.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

// Delete removes one of the user's notes.
func (s *noteService) Delete(ctx context.Context, userID, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, userID, id)
}

// --- Helpers ---

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperror.NewBadRequest("invalid note ID format")
	}
	return nil
}

// cleanTitle trims surrounding whitespace and enforces the length bounds.
// Titles are otherwise stored as typed; clients escape on render.
func cleanTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", apperror.NewValidation("title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", apperror.NewValidation(fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	return title, nil
}

// cleanContent only checks the size; content is stored verbatim.
func cleanContent(raw string) (string, error) {
	if len(raw) > MaxContentBytes {
		return "", apperror.NewValidation("content is too large")
	}
	return raw, nil
}
