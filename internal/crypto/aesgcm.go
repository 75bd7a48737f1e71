package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

// GCMNonceSize is the standard AES-GCM nonce length.
const GCMNonceSize = 12

// GenerateNonce returns a fresh random AES-GCM nonce.
func GenerateNonce() ([]byte, error) {
	nonce := make([]byte, GCMNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return nonce, nil
}

// EncryptAESGCM encrypts plaintext using AES-256-GCM under the given key
// and nonce. The authentication tag is appended to the returned ciphertext.
// aad is optional additional authenticated data.
func EncryptAESGCM(key, nonce, plaintext, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key, len(nonce))
	if err != nil {
		return nil, err
	}
	return gcm.Seal(nil, nonce, plaintext, aad), nil
}

// DecryptAESGCM decrypts ciphertext produced by EncryptAESGCM. It fails
// closed: any mismatch in key, nonce, aad, or a single flipped bit in the
// ciphertext or tag yields an error and no plaintext.
func DecryptAESGCM(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key, len(nonce))
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.Overhead() {
		return nil, fmt.Errorf("ciphertext too short")
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("aes gcm decrypt: %w", err)
	}
	return plaintext, nil
}

func newGCM(key []byte, nonceSize int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes new cipher: %w", err)
	}
	if nonceSize != GCMNonceSize {
		return nil, fmt.Errorf("invalid nonce size: %d (need %d)", nonceSize, GCMNonceSize)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("aes gcm: %w", err)
	}
	return gcm, nil
}
