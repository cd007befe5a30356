package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	sessionTokenBytes = 20
	stateBytes        = 32
)

var sessionTokenEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSessionToken returns 20 random bytes as lowercase unpadded
// base32, which is 32 characters.
func GenerateSessionToken() (string, error) {
	bytes := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return strings.ToLower(sessionTokenEncoding.EncodeToString(bytes)), nil
}

// HashToken returns the lowercase hex SHA-256 of token. Session ids are
// derived this way so a leaked table cannot be replayed as cookies.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// GenerateState returns an OAuth state value: 32 random bytes as
// URL-safe unpadded base64.
func GenerateState() (string, error) {
	bytes := make([]byte, stateBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// CompareState reports whether two state values are equal in constant
// time. An empty value never matches.
func CompareState(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
