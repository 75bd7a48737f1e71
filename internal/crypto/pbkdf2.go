package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DerivedKeySize is the size of the AES-256 key derived from a PIN.
	DerivedKeySize = 32
	// SaltSize is the salt length used for PIN derivation.
	SaltSize = 16
)

// DerivePINKey derives a symmetric key from a PIN using PBKDF2-HMAC-SHA256.
func DerivePINKey(pin string, salt []byte, iterations int) ([]byte, error) {
	if len(salt) < SaltSize {
		return nil, fmt.Errorf("salt too short: %d bytes (need at least %d)", len(salt), SaltSize)
	}
	if iterations <= 0 {
		return nil, fmt.Errorf("invalid iteration count: %d", iterations)
	}
	return pbkdf2.Key([]byte(pin), salt, iterations, DerivedKeySize, sha256.New), nil
}

// GenerateSalt returns a fresh random salt for PIN derivation.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}
