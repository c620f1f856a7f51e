package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// RandomToken returns a URL-safe random token of n bytes of entropy
// (used for invitation tokens).
func RandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
