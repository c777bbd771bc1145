package utils

import (
	"encoding/hex"
	"testing"
)

func TestGenerateOTP_LengthAndDigits(t *testing.T) {
	t.Parallel()

	for _, length := range []int{4, 6, 8} {
		otp := GenerateOTP(length)
		if len(otp) != length {
			t.Fatalf("length mismatch: got %d want %d", len(otp), length)
		}
		for i := 0; i < len(otp); i++ {
			if otp[i] < '0' || otp[i] > '9' {
				t.Fatalf("non-digit character %q in OTP %q", otp[i], otp)
			}
		}
	}
}

func TestGenerateResetToken_HexAndLength(t *testing.T) {
	t.Parallel()

	tok, err := GenerateResetToken()
	if err != nil {
		t.Fatalf("GenerateResetToken error: %v", err)
	}
	if len(tok) != 84 {
		t.Fatalf("length mismatch: got %d want 84", len(tok))
	}
	if _, err := hex.DecodeString(tok); err != nil {
		t.Fatalf("token is not valid hex: %v", err)
	}
}

func TestGenerateResetToken_Unique(t *testing.T) {
	t.Parallel()

	a, err := GenerateResetToken()
	if err != nil {
		t.Fatalf("GenerateResetToken error: %v", err)
	}
	b, err := GenerateResetToken()
	if err != nil {
		t.Fatalf("GenerateResetToken error: %v", err)
	}
	if a == b {
		t.Fatalf("two generated tokens are identical")
	}
}
