package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// TokenGenerator produces unguessable session tokens
type TokenGenerator interface {
	Generate() (string, error)
}

// RandomTokens returns 256 bit random tokens encoded as unpadded base64url
type RandomTokens struct{}

// Generate implements TokenGenerator
func (RandomTokens) Generate() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
