package utils

import (
	"crypto/rand"
	"encoding/hex"
	mathrand "math/rand"
	"strings"
)

// GenerateOTP returns a fixed-length numeric one-time code. The digits are
// uniform but not cryptographically random; the code is single-use and
// expires within the hour.
func GenerateOTP(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		b.WriteByte(byte('0' + mathrand.Intn(10)))
	}
	return b.String()
}

// GenerateResetToken returns a 84-character hex token for password reset
// links.
func GenerateResetToken() (string, error) {
	buf := make([]byte, 42)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
