package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "inkwell"

// TokenIssuer creates and verifies the signed access tokens handed out at
// login. Tokens are HS256 JWTs carrying the username as the subject claim.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates a TokenIssuer with the given signing secret and
// token lifetime.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue creates a signed token for the given username, valid from now until
// now plus the configured lifetime.
func (t *TokenIssuer) Issue(username string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token string and returns the username it was
// issued for. Any defect (bad signature, expired, malformed, wrong algorithm,
// empty subject) yields the same opaque error so callers cannot build an
// oracle from the failure mode. The underlying cause is still returned
// wrapped for debug logging; it must never reach a client.
func (t *TokenIssuer) Verify(tokenString string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
		// Reject tokens signed with anything but HMAC. Without this check an
		// attacker could submit a token with alg=none or an asymmetric
		// algorithm and bypass signature verification.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return "", fmt.Errorf("invalid token: claims not valid")
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("invalid token: empty subject")
	}
	return claims.Subject, nil
}

// TTL returns the configured token lifetime. Used to cap denylist retention
// at logout.
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}
