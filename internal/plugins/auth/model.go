// Package auth handles user accounts, password security, and bearer-token
// authentication for Inkwell. It provides registration, login, logout, and
// token validation via signed JWT access tokens.
package auth

import (
	"time"
)

// User represents a registered Inkwell user. This is the domain model used
// throughout the application. Database scanning and JSON marshaling use this
// struct directly.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        *string   `json:"email,omitempty"`
	PasswordHash string    `json:"-"` // Never expose in JSON responses.
	CreatedAt    time.Time `json:"created_at"`
}

// --- Request DTOs (bound from HTTP requests) ---

// RegisterRequest holds the data submitted to the registration endpoint.
type RegisterRequest struct {
	Username string  `json:"username"`
	Email    *string `json:"email,omitempty"`
	Password string  `json:"password"`
}

// LoginRequest holds the data submitted to the login endpoint.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// --- Service Input DTOs (passed from handler to service) ---

// RegisterInput is the validated input for creating a new user.
type RegisterInput struct {
	Username string
	Email    *string
	Password string
}

// LoginInput is the validated input for authenticating a user.
type LoginInput struct {
	Username string
	Password string
}

// --- Responses ---

// TokenResponse is the JSON body returned by a successful login.
// The shape follows the OAuth2 bearer-token convention so off-the-shelf
// HTTP clients can consume it.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
