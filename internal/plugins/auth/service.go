package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/inkwellapp/inkwell/internal/apperror"
)

// credentialsMessage is the single message returned for every login failure.
// Wrong username and wrong password must be indistinguishable to a client.
const credentialsMessage = "invalid username or password"

// dummyHash is a bcrypt digest of a random throwaway value. Login runs a
// password comparison against it when the username does not exist, so the
// two failure paths take comparable time.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

const (
	minUsernameLength = 3
	maxUsernameLength = 50
	minPasswordLength = 8
	maxEmailLength    = 255
)

// Service implements account management and authentication business logic.
type Service struct {
	repo     Repository
	tokens   *TokenIssuer
	denylist Denylist
}

// NewService creates an auth service.
func NewService(repo Repository, tokens *TokenIssuer, denylist Denylist) *Service {
	return &Service{repo: repo, tokens: tokens, denylist: denylist}
}

// Register creates a new user account with a hashed password.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	username := strings.TrimSpace(input.Username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	var email *string
	if input.Email != nil {
		e := strings.TrimSpace(*input.Email)
		if e != "" {
			if err := validateEmail(e); err != nil {
				return nil, err
			}
			email = &e
		}
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	user := &User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if apperror.IsAppError(err) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("creating user: %w", err))
	}

	slog.Info("User registered", slog.Int64("user_id", user.ID), slog.String("username", user.Username))
	return user, nil
}

// Login verifies credentials and returns a signed access token. Every failure
// path returns the same Unauthorized error so the endpoint cannot be used as
// a username oracle.
func (s *Service) Login(ctx context.Context, input LoginInput) (*TokenResponse, error) {
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(input.Username))
	if err != nil {
		if apperror.IsAppError(err) {
			// Unknown username. Burn a bcrypt comparison anyway so the
			// response time matches the wrong-password path.
			verifyPassword(input.Password, dummyHash)
			return nil, apperror.NewUnauthorized(credentialsMessage)
		}
		return nil, apperror.NewInternal(fmt.Errorf("looking up user for login: %w", err))
	}

	if !verifyPassword(input.Password, user.PasswordHash) {
		return nil, apperror.NewUnauthorized(credentialsMessage)
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("issuing token: %w", err))
	}

	slog.Info("User logged in", slog.Int64("user_id", user.ID), slog.String("username", user.Username))
	return &TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}

// Authenticate resolves a bearer token to the user it was issued for.
// Revoked, invalid, and expired tokens all produce the same "invalid token"
// error; the concrete verification failure is logged at debug level only.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	revoked, err := s.denylist.IsRevoked(ctx, token)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("checking token denylist: %w", err))
	}
	if revoked {
		slog.Debug("Rejected revoked token")
		return nil, apperror.NewUnauthorized("invalid token")
	}

	username, err := s.tokens.Verify(token)
	if err != nil {
		slog.Debug("Token verification failed", slog.String("error", err.Error()))
		return nil, apperror.NewUnauthorized("invalid token")
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if apperror.IsAppError(err) {
			// Valid signature but the account is gone.
			slog.Debug("Token subject no longer exists", slog.String("username", username))
			return nil, apperror.NewUnauthorized("user not found")
		}
		return nil, apperror.NewInternal(fmt.Errorf("loading token subject: %w", err))
	}
	return user, nil
}

// Logout revokes the given token for the remainder of its lifetime. The
// token is not validated first; revoking an already-invalid token is
// harmless and keeps logout idempotent.
func (s *Service) Logout(ctx context.Context, token string) error {
	// The full configured lifetime is an upper bound on the token's remaining
	// validity, so the denylist entry always outlives the token.
	if err := s.denylist.Revoke(ctx, token, s.tokens.TTL()); err != nil {
		return apperror.NewInternal(fmt.Errorf("logout: %w", err))
	}
	return nil
}

// EnsureAdmin creates the configured admin account if no user with that
// username exists yet. Called once at startup; a no-op when the account is
// already present.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string, email *string) error {
	if username == "" || password == "" {
		slog.Debug("Admin seeding skipped: no admin credentials configured")
		return nil
	}

	exists, err := s.repo.UsernameExists(ctx, username)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("checking admin account: %w", err))
	}
	if exists {
		return nil
	}

	if _, err := s.Register(ctx, RegisterInput{Username: username, Email: email, Password: password}); err != nil {
		// Lost a race against a concurrent seeder. The account exists, which
		// is the desired end state.
		if apperror.HasCode(err, http.StatusConflict) {
			return nil
		}
		return err
	}
	slog.Info("Seeded admin account", slog.String("username", username))
	return nil
}

func validateUsername(username string) error {
	length := utf8.RuneCountInString(username)
	if length < minUsernameLength || length > maxUsernameLength {
		return apperror.NewBadRequest(fmt.Sprintf("username must be between %d and %d characters", minUsernameLength, maxUsernameLength))
	}
	for _, r := range username {
		if !isUsernameRune(r) {
			return apperror.NewBadRequest("username may only contain letters, digits, hyphens, and underscores")
		}
	}
	return nil
}

func isUsernameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_':
		return true
	}
	return false
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return apperror.NewBadRequest(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	return nil
}

func validateEmail(email string) error {
	if len(email) > maxEmailLength || strings.Count(email, "@") != 1 ||
		strings.HasPrefix(email, "@") || strings.HasSuffix(email, "@") {
		return apperror.NewBadRequest("invalid email address")
	}
	return nil
}
