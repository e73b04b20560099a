package notes

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/keyxmakerx/moodwise/internal/apperror"
)

// --- Mock Repository ---

// mockNoteRepo implements NoteRepository for testing.
type mockNoteRepo struct {
	createFn     func(ctx context.Context, note *Note) error
	findByIDFn   func(ctx context.Context, userID, id string) (*Note, error)
	updateFn     func(ctx context.Context, note *Note) error
	deleteFn     func(ctx context.Context, userID, id string) error
	listByUserFn func(ctx context.Context, userID string, opts ListOptions) ([]Note, error)
}

func (m *mockNoteRepo) Create(ctx context.Context, note *Note) error {
	if m.createFn != nil {
		return m.createFn(ctx, note)
	}
	return nil
}

func (m *mockNoteRepo) FindByID(ctx context.Context, userID, id string) (*Note, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, userID, id)
	}
	return nil, apperror.NewNotFound("note not found")
}

func (m *mockNoteRepo) Update(ctx context.Context, note *Note) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, note)
	}
	return nil
}

func (m *mockNoteRepo) Delete(ctx context.Context, userID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, id)
	}
	return nil
}

func (m *mockNoteRepo) ListByUser(ctx context.Context, userID string, opts ListOptions) ([]Note, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID, opts)
	}
	return []Note{}, nil
}

// --- Test Helpers ---

const sampleNoteID = "3f1c7f6e-2a53-4b8e-9c1d-5b2a7e9d0f11"

// assertAppError checks that err is an *apperror.AppError with the expected code.
func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// sampleNote creates a note for testing.
func sampleNote() *Note {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &Note{
		ID:        sampleNoteID,
		UserID:    "user-1",
		Title:     "Morning pages",
		Content:   "<p>Slept well.</p>",
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func ptr(s string) *string { return &s }

// --- Create Tests ---

func TestCreate_Success(t *testing.T) {
	var created *Note
	repo := &mockNoteRepo{
		createFn: func(ctx context.Context, note *Note) error {
			created = note
			return nil
		},
	}

	svc := NewNoteService(repo)
	note, err := svc.Create(context.Background(), "user-1", CreateNoteRequest{
		Title:   "  My Note ",
		Content: "<p>Hello</p>",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created != note {
		t.Fatal("expected the returned note to be the persisted one")
	}
	if note.Title != "My Note" {
		t.Errorf("expected title My Note, got %q", note.Title)
	}
	if note.UserID != "user-1" {
		t.Errorf("expected user user-1, got %s", note.UserID)
	}
	if note.ID == "" {
		t.Error("expected ID to be generated")
	}
	if !note.CreatedAt.Equal(note.UpdatedAt) {
		t.Error("expected created_at == updated_at on a new note")
	}
}

func TestCreate_StoresTextVerbatim(t *testing.T) {
	var stored *Note
	svc := NewNoteService(&mockNoteRepo{
		createFn: func(ctx context.Context, note *Note) error {
			stored = note
			return nil
		},
	})

	tests := []struct {
		title, content string
	}{
		{"Math: a<b and c>d", "if x < y && y > z then"},
		{"Tom & Jerry", "AT&T &amp; friends"},
		{"<b>Plans</b>", `<p onclick="x()">ok</p><script>alert(1)</script>`},
	}
	for _, tt := range tests {
		note, err := svc.Create(context.Background(), "user-1", CreateNoteRequest{
			Title:   "  " + tt.title + "\n",
			Content: tt.content,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if note.Title != tt.title || stored.Title != tt.title {
			t.Errorf("title: expected %q, got %q", tt.title, stored.Title)
		}
		if note.Content != tt.content || stored.Content != tt.content {
			t.Errorf("content: expected %q, got %q", tt.content, stored.Content)
		}
	}
}

func TestCreate_TitleValidation(t *testing.T) {
	tests := []struct {
		name  string
		title string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"too long", strings.Repeat("a", MaxTitleLength+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewNoteService(&mockNoteRepo{
				createFn: func(ctx context.Context, note *Note) error {
					t.Fatal("repository must not be called")
					return nil
				},
			})
			_, err := svc.Create(context.Background(), "user-1", CreateNoteRequest{Title: tt.title})
			assertAppError(t, err, 422)
		})
	}
}

func TestCreate_TitleAtLimitCountsCharacters(t *testing.T) {
	svc := NewNoteService(&mockNoteRepo{})
	title := strings.Repeat("é", MaxTitleLength)
	if _, err := svc.Create(context.Background(), "user-1", CreateNoteRequest{Title: title}); err != nil {
		t.Fatalf("expected %d multi-byte characters to be accepted: %v", MaxTitleLength, err)
	}
}

func TestCreate_ContentTooLarge(t *testing.T) {
	svc := NewNoteService(&mockNoteRepo{})
	_, err := svc.Create(context.Background(), "user-1", CreateNoteRequest{
		Title:   "big",
		Content: strings.Repeat("x", MaxContentBytes+1),
	})
	assertAppError(t, err, 422)
}

func TestCreate_RepoError(t *testing.T) {
	svc := NewNoteService(&mockNoteRepo{
		createFn: func(ctx context.Context, note *Note) error {
			return errors.New("db down")
		},
	})
	_, err := svc.Create(context.Background(), "user-1", CreateNoteRequest{Title: "x"})
	assertAppError(t, err, 500)
}

// --- Get Tests ---

func TestGet_InvalidID(t *testing.T) {
	svc := NewNoteService(&mockNoteRepo{})
	_, err := svc.Get(context.Background(), "user-1", "not-a-uuid")
	assertAppError(t, err, 400)
}

func TestGet_ScopedToOwner(t *testing.T) {
	repo := &mockNoteRepo{
		findByIDFn: func(ctx context.Context, userID, id string) (*Note, error) {
			if userID != "user-1" {
				return nil, apperror.NewNotFound("note not found")
			}
			return sampleNote(), nil
		},
	}
	svc := NewNoteService(repo)

	if _, err := svc.Get(context.Background(), "user-1", sampleNoteID); err != nil {
		t.Fatalf("owner: unexpected error: %v", err)
	}
	_, err := svc.Get(context.Background(), "user-2", sampleNoteID)
	assertAppError(t, err, 404)
}

// --- List Tests ---

func TestList_LimitDefaultsAndClamp(t *testing.T) {
	tests := []struct {
		name      string
		in        ListOptions
		wantLimit int
	}{
		{"default", ListOptions{}, DefaultListLimit},
		{"explicit", ListOptions{Skip: 5, Limit: 10}, 10},
		{"clamped", ListOptions{Limit: 1000}, MaxListLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got ListOptions
			svc := NewNoteService(&mockNoteRepo{
				listByUserFn: func(ctx context.Context, userID string, opts ListOptions) ([]Note, error) {
					got = opts
					return []Note{}, nil
				},
			})
			if _, err := svc.List(context.Background(), "user-1", tt.in); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Limit != tt.wantLimit {
				t.Errorf("expected limit %d, got %d", tt.wantLimit, got.Limit)
			}
			if got.Skip != tt.in.Skip {
				t.Errorf("expected skip %d, got %d", tt.in.Skip, got.Skip)
			}
		})
	}
}

func TestList_NegativeSkip(t *testing.T) {
	svc := NewNoteService(&mockNoteRepo{})
	_, err := svc.List(context.Background(), "user-1", ListOptions{Skip: -1})
	assertAppError(t, err, 400)
}

// --- Update Tests ---

func TestUpdate_PartialTitleOnly(t *testing.T) {
	var saved *Note
	repo := &mockNoteRepo{
		findByIDFn: func(ctx context.Context, userID, id string) (*Note, error) {
			return sampleNote(), nil
		},
		updateFn: func(ctx context.Context, note *Note) error {
			saved = note
			return nil
		},
	}
	later := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	svc := &noteService{repo: repo, now: func() time.Time { return later }}

	note, err := svc.Update(context.Background(), "user-1", sampleNoteID, UpdateNoteRequest{Title: ptr("Evening pages")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved == nil {
		t.Fatal("expected repository update")
	}
	if note.Title != "Evening pages" {
		t.Errorf("expected new title, got %q", note.Title)
	}
	if note.Content != "<p>Slept well.</p>" {
		t.Errorf("expected content unchanged, got %q", note.Content)
	}
	if !note.UpdatedAt.Equal(later) {
		t.Errorf("expected updated_at %v, got %v", later, note.UpdatedAt)
	}
	if note.CreatedAt.Equal(note.UpdatedAt) {
		t.Error("expected created_at to be preserved")
	}
}

func TestUpdate_EmptyBodyStillBumpsTimestamp(t *testing.T) {
	repo := &mockNoteRepo{
		findByIDFn: func(ctx context.Context, userID, id string) (*Note, error) {
			return sampleNote(), nil
		},
	}
	later := sampleNote().CreatedAt.Add(time.Minute)
	svc := &noteService{repo: repo, now: func() time.Time { return later }}

	note, err := svc.Update(context.Background(), "user-1", sampleNoteID, UpdateNoteRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !note.UpdatedAt.After(note.CreatedAt) {
		t.Error("expected updated_at to advance")
	}
}

func TestUpdate_KeepsAngleBrackets(t *testing.T) {
	repo := &mockNoteRepo{
		findByIDFn: func(ctx context.Context, userID, id string) (*Note, error) {
			return sampleNote(), nil
		},
	}
	svc := NewNoteService(repo)

	note, err := svc.Update(context.Background(), "user-1", sampleNoteID, UpdateNoteRequest{
		Title:   ptr("<3 & more"),
		Content: ptr("a < b"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if note.Title != "<3 & more" || note.Content != "a < b" {
		t.Errorf("expected text unchanged, got %q / %q", note.Title, note.Content)
	}
}

func TestUpdate_InvalidTitle(t *testing.T) {
	repo := &mockNoteRepo{
		findByIDFn: func(ctx context.Context, userID, id string) (*Note, error) {
			return sampleNote(), nil
		},
		updateFn: func(ctx context.Context, note *Note) error {
			t.Fatal("repository update must not be called")
			return nil
		},
	}
	svc := NewNoteService(repo)

	_, err := svc.Update(context.Background(), "user-1", sampleNoteID, UpdateNoteRequest{Title: ptr("  ")})
	assertAppError(t, err, 422)
}

func TestUpdate_NotFound(t *testing.T) {
	svc := NewNoteService(&mockNoteRepo{})
	_, err := svc.Update(context.Background(), "user-2", sampleNoteID, UpdateNoteRequest{Title: ptr("x")})
	assertAppError(t, err, 404)
}

func TestUpdate_InvalidID(t *testing.T) {
	svc := NewNoteService(&mockNoteRepo{})
	_, err := svc.Update(context.Background(), "user-1", "123", UpdateNoteRequest{})
	assertAppError(t, err, 400)
}

// --- Delete Tests ---

func TestDelete_Success(t *testing.T) {
	var gotUser, gotID string
	svc := NewNoteService(&mockNoteRepo{
		deleteFn: func(ctx context.Context, userID, id string) error {
			gotUser, gotID = userID, id
			return nil
		},
	})
	if err := svc.Delete(context.Background(), "user-1", sampleNoteID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotUser != "user-1" || gotID != sampleNoteID {
		t.Errorf("expected delete scoped to owner, got user=%s id=%s", gotUser, gotID)
	}
}

func TestDelete_NotFound(t *testing.T) {
	svc := NewNoteService(&mockNoteRepo{
		deleteFn: func(ctx context.Context, userID, id string) error {
			return apperror.NewNotFound("note not found")
		},
	})
	assertAppError(t, svc.Delete(context.Background(), "user-1", sampleNoteID), 404)
}

func TestDelete_InvalidID(t *testing.T) {
	svc := NewNoteService(&mockNoteRepo{})
	assertAppError(t, svc.Delete(context.Background(), "user-1", "nope"), 400)
}
