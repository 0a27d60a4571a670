package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateResetToken generates a URL-safe password-reset token with 32 bytes
// of entropy. Single-use: the auth service clears it once consumed.
func GenerateResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
