package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/inkwellapp/inkwell/internal/apperror"
)

// --- Mock Repository ---

// mockUserRepo implements Repository for testing.
type mockUserRepo struct {
	createFn         func(ctx context.Context, user *User) error
	findByIDFn       func(ctx context.Context, id int64) (*User, error)
	findByUsernameFn func(ctx context.Context, username string) (*User, error)
	usernameExistsFn func(ctx context.Context, username string) (bool, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	user.ID = 1
	return nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	if m.usernameExistsFn != nil {
		return m.usernameExistsFn(ctx, username)
	}
	return false, nil
}

// --- Mock Denylist ---

// mockDenylist implements Denylist in memory.
type mockDenylist struct {
	revoked   map[string]bool
	revokeErr error
	checkErr  error
}

func newMockDenylist() *mockDenylist {
	return &mockDenylist{revoked: make(map[string]bool)}
}

func (m *mockDenylist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if m.revokeErr != nil {
		return m.revokeErr
	}
	m.revoked[token] = true
	return nil
}

func (m *mockDenylist) IsRevoked(ctx context.Context, token string) (bool, error) {
	if m.checkErr != nil {
		return false, m.checkErr
	}
	return m.revoked[token], nil
}

// --- Test Helpers ---

func newTestService(repo Repository, denylist Denylist) *Service {
	return NewService(repo, NewTokenIssuer("test-secret-key-for-unit-tests-only", time.Hour), denylist)
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

// --- Register Tests ---

func TestRegister_Success(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *User) error {
			if user.Username != "alice" {
				t.Errorf("expected username alice, got %s", user.Username)
			}
			if user.PasswordHash == "" {
				t.Error("expected password hash to be set")
			}
			if user.PasswordHash == "correct-horse-battery" {
				t.Error("password stored in plaintext")
			}
			user.ID = 42
			return nil
		},
	}

	svc := newTestService(repo, newMockDenylist())
	user, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Password: "correct-horse-battery",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != 42 {
		t.Errorf("expected ID 42, got %d", user.ID)
	}
}

func TestRegister_TrimsUsername(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *User) error {
			if user.Username != "bob" {
				t.Errorf("expected trimmed username bob, got %q", user.Username)
			}
			return nil
		},
	}

	svc := newTestService(repo, newMockDenylist())
	if _, err := svc.Register(context.Background(), RegisterInput{
		Username: "  bob  ",
		Password: "secure-password-123",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *User) error {
			return apperror.NewConflict(`username "alice" is already taken`)
		},
	}

	svc := newTestService(repo, newMockDenylist())
	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Password: "secure-password-123",
	})
	assertAppError(t, err, http.StatusConflict)
}

func TestRegister_Validation(t *testing.T) {
	badEmail := "not-an-email"
	tests := []struct {
		name  string
		input RegisterInput
	}{
		{"username too short", RegisterInput{Username: "ab", Password: "secure-password-123"}},
		{"username too long", RegisterInput{Username: strings.Repeat("a", 51), Password: "secure-password-123"}},
		{"username with spaces", RegisterInput{Username: "alice smith", Password: "secure-password-123"}},
		{"username with symbols", RegisterInput{Username: "alice!", Password: "secure-password-123"}},
		{"password too short", RegisterInput{Username: "alice", Password: "short"}},
		{"invalid email", RegisterInput{Username: "alice", Email: &badEmail, Password: "secure-password-123"}},
	}

	svc := newTestService(&mockUserRepo{}, newMockDenylist())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.input)
			assertAppError(t, err, http.StatusBadRequest)
		})
	}
}

func TestRegister_EmptyEmailTreatedAsNil(t *testing.T) {
	empty := "   "
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *User) error {
			if user.Email != nil {
				t.Errorf("expected nil email, got %q", *user.Email)
			}
			return nil
		},
	}

	svc := newTestService(repo, newMockDenylist())
	if _, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    &empty,
		Password: "secure-password-123",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- Login Tests ---

// registeredUser builds a user with a real hash of the given password.
func registeredUser(t *testing.T, id int64, username, password string) *User {
	t.Helper()
	hash, err := hashPassword(password)
	if err != nil {
		t.Fatalf("hashing test password: %v", err)
	}
	return &User{ID: id, Username: username, PasswordHash: hash}
}

func TestLogin_Success(t *testing.T) {
	user := registeredUser(t, 7, "alice", "secure-password-123")
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*User, error) {
			if username != "alice" {
				return nil, apperror.NewNotFound("user not found")
			}
			return user, nil
		},
	}

	svc := newTestService(repo, newMockDenylist())
	resp, err := svc.Login(context.Background(), LoginInput{Username: "alice", Password: "secure-password-123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.AccessToken == "" {
		t.Error("expected access token")
	}
	if resp.TokenType != "bearer" {
		t.Errorf("expected token type bearer, got %s", resp.TokenType)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	user := registeredUser(t, 7, "alice", "secure-password-123")
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*User, error) {
			return user, nil
		},
	}

	svc := newTestService(repo, newMockDenylist())
	_, err := svc.Login(context.Background(), LoginInput{Username: "alice", Password: "wrong-password"})
	assertAppError(t, err, http.StatusUnauthorized)
}

func TestLogin_UnknownUser(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, newMockDenylist())
	_, err := svc.Login(context.Background(), LoginInput{Username: "nobody", Password: "whatever-password"})
	assertAppError(t, err, http.StatusUnauthorized)
}

// Wrong username and wrong password must yield the same message, otherwise
// login doubles as a username oracle.
func TestLogin_FailureMessagesIdentical(t *testing.T) {
	user := registeredUser(t, 7, "alice", "secure-password-123")
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*User, error) {
			if username == "alice" {
				return user, nil
			}
			return nil, apperror.NewNotFound("user not found")
		},
	}

	svc := newTestService(repo, newMockDenylist())
	_, errUser := svc.Login(context.Background(), LoginInput{Username: "nobody", Password: "secure-password-123"})
	_, errPass := svc.Login(context.Background(), LoginInput{Username: "alice", Password: "wrong-password"})

	var appErrUser, appErrPass *apperror.AppError
	if !errors.As(errUser, &appErrUser) || !errors.As(errPass, &appErrPass) {
		t.Fatalf("expected AppErrors, got %v and %v", errUser, errPass)
	}
	if appErrUser.Message != appErrPass.Message {
		t.Errorf("failure messages differ: %q vs %q", appErrUser.Message, appErrPass.Message)
	}
	if appErrUser.Code != appErrPass.Code {
		t.Errorf("failure codes differ: %d vs %d", appErrUser.Code, appErrPass.Code)
	}
}

// --- Authenticate Tests ---

func TestAuthenticate_Success(t *testing.T) {
	user := &User{ID: 7, Username: "alice"}
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*User, error) {
			if username != "alice" {
				return nil, apperror.NewNotFound("user not found")
			}
			return user, nil
		},
	}

	svc := newTestService(repo, newMockDenylist())
	token, err := svc.tokens.Issue("alice")
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}

	got, err := svc.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 7 {
		t.Errorf("expected user 7, got %d", got.ID)
	}
}

func TestAuthenticate_GarbageToken(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, newMockDenylist())
	_, err := svc.Authenticate(context.Background(), "not-a-jwt")
	assertAppError(t, err, http.StatusUnauthorized)
}

func TestAuthenticate_DeletedUser(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, newMockDenylist())
	token, err := svc.tokens.Issue("ghost")
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}
	_, err = svc.Authenticate(context.Background(), token)
	assertAppError(t, err, http.StatusUnauthorized)
}

func TestAuthenticate_RevokedToken(t *testing.T) {
	user := &User{ID: 7, Username: "alice"}
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*User, error) {
			return user, nil
		},
	}
	denylist := newMockDenylist()
	svc := newTestService(repo, denylist)

	token, err := svc.tokens.Issue("alice")
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}

	// Works before logout.
	if _, err := svc.Authenticate(context.Background(), token); err != nil {
		t.Fatalf("unexpected error before logout: %v", err)
	}

	if err := svc.Logout(context.Background(), token); err != nil {
		t.Fatalf("logout: %v", err)
	}

	_, err = svc.Authenticate(context.Background(), token)
	assertAppError(t, err, http.StatusUnauthorized)
}

func TestAuthenticate_DenylistFailure(t *testing.T) {
	denylist := newMockDenylist()
	denylist.checkErr = errors.New("redis down")
	svc := newTestService(&mockUserRepo{}, denylist)

	token, err := svc.tokens.Issue("alice")
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}

	// Denylist outage is an internal error, not a silent accept.
	_, err = svc.Authenticate(context.Background(), token)
	assertAppError(t, err, http.StatusInternalServerError)
}

// --- EnsureAdmin Tests ---

func TestEnsureAdmin_CreatesWhenMissing(t *testing.T) {
	created := false
	repo := &mockUserRepo{
		usernameExistsFn: func(ctx context.Context, username string) (bool, error) {
			return false, nil
		},
		createFn: func(ctx context.Context, user *User) error {
			created = true
			if user.Username != "admin" {
				t.Errorf("expected username admin, got %s", user.Username)
			}
			return nil
		},
	}

	svc := newTestService(repo, newMockDenylist())
	if err := svc.EnsureAdmin(context.Background(), "admin", "very-secret-password", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("expected admin account to be created")
	}
}

func TestEnsureAdmin_SkipsWhenPresent(t *testing.T) {
	repo := &mockUserRepo{
		usernameExistsFn: func(ctx context.Context, username string) (bool, error) {
			return true, nil
		},
		createFn: func(ctx context.Context, user *User) error {
			t.Error("Create should not be called when admin exists")
			return nil
		},
	}

	svc := newTestService(repo, newMockDenylist())
	if err := svc.EnsureAdmin(context.Background(), "admin", "very-secret-password", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureAdmin_SkipsWhenUnconfigured(t *testing.T) {
	repo := &mockUserRepo{
		usernameExistsFn: func(ctx context.Context, username string) (bool, error) {
			t.Error("UsernameExists should not be called without credentials")
			return false, nil
		},
	}

	svc := newTestService(repo, newMockDenylist())
	if err := svc.EnsureAdmin(context.Background(), "", "", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureAdmin_ToleratesSeedRace(t *testing.T) {
	repo := &mockUserRepo{
		usernameExistsFn: func(ctx context.Context, username string) (bool, error) {
			return false, nil
		},
		createFn: func(ctx context.Context, user *User) error {
			return apperror.NewConflict(`username "admin" is already taken`)
		},
	}

	svc := newTestService(repo, newMockDenylist())
	if err := svc.EnsureAdmin(context.Background(), "admin", "very-secret-password", nil); err != nil {
		t.Fatalf("expected race to be tolerated, got: %v", err)
	}
}
