package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/keyxmakerx/moodwise/internal/apperror"
)

// --- Mock Repositories ---

// mockUserRepo implements UserRepository for testing.
type mockUserRepo struct {
	createFn         func(ctx context.Context, user *User) error
	findByIDFn       func(ctx context.Context, id string) (*User, error)
	findByEmailFn    func(ctx context.Context, email string) (*User, error)
	emailExistsFn    func(ctx context.Context, email string) (bool, error)
	usernameExistsFn func(ctx context.Context, username string) (bool, error)
	updatePasswordFn func(ctx context.Context, userID, passwordHash string) error
}

func (m *mockUserRepo) Create(ctx context.Context, user *User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, ErrUserNotFound
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, ErrUserNotFound
}

func (m *mockUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	if m.emailExistsFn != nil {
		return m.emailExistsFn(ctx, email)
	}
	return false, nil
}

func (m *mockUserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	if m.usernameExistsFn != nil {
		return m.usernameExistsFn(ctx, username)
	}
	return false, nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	if m.updatePasswordFn != nil {
		return m.updatePasswordFn(ctx, userID, passwordHash)
	}
	return nil
}

// memoryUsers backs a mockUserRepo with a map so scenario tests can run
// register, login and reset end to end.
type memoryUsers struct {
	mu    sync.Mutex
	byID  map[string]*User
	fails map[string]error // method name -> forced error
}

func newMemoryUsers() (*memoryUsers, *mockUserRepo) {
	m := &memoryUsers{byID: map[string]*User{}, fails: map[string]error{}}
	repo := &mockUserRepo{
		createFn: func(_ context.Context, user *User) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			for _, u := range m.byID {
				if u.Email == user.Email {
					return ErrDuplicateEmail
				}
				if u.Username == user.Username {
					return ErrDuplicateUsername
				}
			}
			cp := *user
			m.byID[user.ID] = &cp
			return nil
		},
		findByIDFn: func(_ context.Context, id string) (*User, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			if u, ok := m.byID[id]; ok {
				cp := *u
				return &cp, nil
			}
			return nil, ErrUserNotFound
		},
		findByEmailFn: func(_ context.Context, email string) (*User, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			for _, u := range m.byID {
				if u.Email == email {
					cp := *u
					return &cp, nil
				}
			}
			return nil, ErrUserNotFound
		},
		emailExistsFn: func(_ context.Context, email string) (bool, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			for _, u := range m.byID {
				if u.Email == email {
					return true, nil
				}
			}
			return false, nil
		},
		usernameExistsFn: func(_ context.Context, username string) (bool, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			for _, u := range m.byID {
				if u.Username == username {
					return true, nil
				}
			}
			return false, nil
		},
		updatePasswordFn: func(_ context.Context, userID, hash string) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			if err := m.fails["UpdatePassword"]; err != nil {
				return err
			}
			u, ok := m.byID[userID]
			if !ok {
				return ErrUserNotFound
			}
			u.PasswordHash = hash
			return nil
		},
	}
	return m, repo
}

func (m *memoryUsers) byEmail(email string) *User {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			return u
		}
	}
	return nil
}

// memoryResetRepo is an in-memory ResetTokenRepository. Redeem holds the
// mutex for the whole callback, like the row lock in MariaDB.
type memoryResetRepo struct {
	mu      sync.Mutex
	byHash  map[string]*ResetToken
	deletes int
}

func newMemoryResetRepo() *memoryResetRepo {
	return &memoryResetRepo{byHash: map[string]*ResetToken{}}
}

func (r *memoryResetRepo) Upsert(_ context.Context, rec *ResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for h, existing := range r.byHash {
		if existing.UserID == rec.UserID {
			delete(r.byHash, h)
		}
	}
	cp := *rec
	r.byHash[rec.TokenHash] = &cp
	return nil
}

func (r *memoryResetRepo) FindByHash(_ context.Context, hash string) (*ResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byHash[hash]
	if !ok {
		return nil, errResetTokenNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *memoryResetRepo) DeleteByHash(_ context.Context, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes++
	delete(r.byHash, hash)
	return nil
}

func (r *memoryResetRepo) Redeem(_ context.Context, hash string, fn func(rec *ResetToken) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byHash[hash]
	if !ok {
		return errResetTokenNotFound
	}
	cp := *rec
	if err := fn(&cp); err != nil {
		return err
	}
	delete(r.byHash, hash)
	return nil
}

func (r *memoryResetRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byHash)
}

// --- Mock Mail Sender ---

// mockMailSender implements MailSender for testing.
type mockMailSender struct {
	sendMailFn     func(ctx context.Context, to []string, subject, body string) error
	isConfiguredFn func(ctx context.Context) bool
	// Capture fields for assertions.
	lastTo      []string
	lastSubject string
	lastBody    string
	sendCount   int
}

func (m *mockMailSender) SendMail(ctx context.Context, to []string, subject, body string) error {
	m.lastTo = to
	m.lastSubject = subject
	m.lastBody = body
	m.sendCount++
	if m.sendMailFn != nil {
		return m.sendMailFn(ctx, to, subject, body)
	}
	return nil
}

func (m *mockMailSender) IsConfigured(ctx context.Context) bool {
	if m.isConfiguredFn != nil {
		return m.isConfiguredFn(ctx)
	}
	return true
}

// --- Test Helpers ---

const testSecret = "test-secret-key-that-is-long-enough-for-hs256"

// testHasher uses the minimum bcrypt cost to keep tests fast.
func testHasher() PasswordHasher {
	return NewBcryptHasher(bcrypt.MinCost)
}

func testCodec(t *testing.T) TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec(testSecret, "HS256", DefaultAccessTokenTTL)
	if err != nil {
		t.Fatalf("creating codec: %v", err)
	}
	return codec
}

// newTestAuthService wires an authService over the given user repo and an
// in-memory reset repo.
func newTestAuthService(t *testing.T, users *mockUserRepo, mail MailSender) (*authService, *memoryResetRepo) {
	t.Helper()
	resets := newMemoryResetRepo()
	svc := NewAuthService(users, NewResetTokenStore(users, resets), testHasher(), testCodec(t), mail, "https://notes.example.com/")
	return svc.(*authService), resets
}

// requestReset asks for a reset link and waits for the background send.
func requestReset(t *testing.T, svc *authService, email string) {
	t.Helper()
	svc.RequestPasswordReset(context.Background(), email)
	waitForMail(t, svc)
}

func waitForMail(t *testing.T, svc *authService) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := svc.WaitForMail(ctx); err != nil {
		t.Fatalf("reset email still pending: %v", err)
	}
}

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

// tokenFromBody extracts the reset token from a mailed reset link.
func tokenFromBody(t *testing.T, body string) string {
	t.Helper()
	const marker = "/reset-password?token="
	i := strings.Index(body, marker)
	if i < 0 {
		t.Fatalf("no reset link in mail body: %q", body)
	}
	rest := body[i+len(marker):]
	if j := strings.IndexAny(rest, "\r\n "); j >= 0 {
		rest = rest[:j]
	}
	return rest
}
