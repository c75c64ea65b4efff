package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateSecureToken returns 32 bytes of hex-encoded randomness, used for
// OAuth state parameters.
func GenerateSecureToken() (string, error) {
	token := make([]byte, 32)
	if _, err := rand.Read(token); err != nil {
		return "", err
	}
	return hex.EncodeToString(token), nil
}
