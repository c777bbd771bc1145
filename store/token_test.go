package store

import (
	"testing"

	"github.com/pipify/server/utils"
)

func TestTokenHash_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"123456", "000000"} {
		hash, err := hashToken(raw)
		if err != nil {
			t.Fatalf("hashToken(%q) error: %v", raw, err)
		}
		if hash == raw {
			t.Fatalf("raw value stored unhashed")
		}
		if !tokenMatches(hash, raw) {
			t.Fatalf("issued token %q does not match its own hash", raw)
		}
	}
}

func TestTokenHash_ResetTokenLength(t *testing.T) {
	t.Parallel()

	// The reset token is 84 hex chars, past bcrypt's 72-byte input limit;
	// hashing must still succeed and round-trip.
	raw, err := utils.GenerateResetToken()
	if err != nil {
		t.Fatalf("GenerateResetToken error: %v", err)
	}
	hash, err := hashToken(raw)
	if err != nil {
		t.Fatalf("hashToken error for %d-char token: %v", len(raw), err)
	}
	if !tokenMatches(hash, raw) {
		t.Fatalf("reset token does not match its own hash")
	}
}

func TestTokenHash_Mismatch(t *testing.T) {
	t.Parallel()

	hash, err := hashToken("123456")
	if err != nil {
		t.Fatalf("hashToken error: %v", err)
	}
	for _, raw := range []string{"", "654321", "1234567", "12345"} {
		if tokenMatches(hash, raw) {
			t.Fatalf("wrong token %q accepted", raw)
		}
	}
}
