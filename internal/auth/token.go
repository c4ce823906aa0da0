package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
)

// TokenBytes is the number of random bytes in an access token (40 hex chars).
const TokenBytes = 20

var tokenFormatRegex = regexp.MustCompile(`^[a-f0-9]{40}$`)

// GenerateToken returns a new random access token.
func GenerateToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ValidTokenFormat reports whether token looks like a GenerateToken value.
func ValidTokenFormat(token string) bool {
	return tokenFormatRegex.MatchString(token)
}

// QuickHash returns a SHA256 digest of the input for storage keys.
// This is NOT for password storage.
func QuickHash(input string) string {
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:16])
}
