package auth

import (
	"strings"
	"testing"
)

func TestPasswordHashAndVerify(t *testing.T) {
	hash, err := hashPassword("secure-password-123")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	if hash == "secure-password-123" {
		t.Fatal("password stored in plaintext")
	}

	if !verifyPassword("secure-password-123", hash) {
		t.Error("expected correct password to verify")
	}
	if verifyPassword("wrong-password", hash) {
		t.Error("expected wrong password to fail")
	}
}

func TestPasswordHashesAreSalted(t *testing.T) {
	h1, err := hashPassword("secure-password-123")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	h2, err := hashPassword("secure-password-123")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	if h1 == h2 {
		t.Error("expected distinct salts to produce distinct digests")
	}
}

// bcrypt caps input at 72 bytes. Longer passwords are truncated identically
// on hash and verify, so a long password still round-trips.
func TestPasswordLongerThanBcryptLimit(t *testing.T) {
	long := strings.Repeat("x", 100)
	hash, err := hashPassword(long)
	if err != nil {
		t.Fatalf("hashing long password: %v", err)
	}

	if !verifyPassword(long, hash) {
		t.Error("expected long password to verify against its own hash")
	}
	// Truncation means bytes past 72 cannot distinguish passwords.
	if !verifyPassword(strings.Repeat("x", 80), hash) {
		t.Error("expected passwords sharing the first 72 bytes to verify")
	}
	if verifyPassword(strings.Repeat("y", 100), hash) {
		t.Error("expected different password to fail")
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	if verifyPassword("anything", "not-a-bcrypt-hash") {
		t.Error("expected malformed hash to fail verification")
	}
	if verifyPassword("anything", "") {
		t.Error("expected empty hash to fail verification")
	}
}
