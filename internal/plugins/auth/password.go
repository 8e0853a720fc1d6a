package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes is bcrypt's input limit. Passwords longer than this are
// truncated before hashing AND verification: the truncation must be identical
// on both paths or a legitimate long password would never verify.
const maxPasswordBytes = 72

// hashPassword creates a bcrypt hash of the given password. bcrypt generates
// a random salt per call and embeds it in the digest, so verification needs
// only the stored digest and the candidate password.
func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(truncatePassword(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// verifyPassword checks a plaintext password against a stored bcrypt digest.
// Returns true if the password matches. A malformed digest returns false,
// never an error: callers must not be able to distinguish "wrong password"
// from "corrupt hash".
func verifyPassword(password, encodedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(encodedHash), truncatePassword(password)) == nil
}

// truncatePassword clamps the encoded password to bcrypt's 72-byte limit.
func truncatePassword(password string) []byte {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}
