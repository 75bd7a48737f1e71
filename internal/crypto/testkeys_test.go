package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"sync"
	"testing"
)

// Test keys are 2048-bit and generated once per run. RSA-4096 generation
// takes seconds; the PSS and codec paths under test are size-independent.

var (
	keyOnce  sync.Once
	cachedK1 *rsa.PrivateKey
	cachedK2 *rsa.PrivateKey
	keyErr   error
)

func generateTestKeys() {
	cachedK1, keyErr = rsa.GenerateKey(rand.Reader, 2048)
	if keyErr != nil {
		return
	}
	cachedK2, keyErr = rsa.GenerateKey(rand.Reader, 2048)
}

func testRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(generateTestKeys)
	if keyErr != nil {
		t.Fatalf("generate test key: %v", keyErr)
	}
	return cachedK1
}

func otherTestRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(generateTestKeys)
	if keyErr != nil {
		t.Fatalf("generate test key: %v", keyErr)
	}
	return cachedK2
}

func benchRSAKey(b *testing.B) *rsa.PrivateKey {
	b.Helper()
	keyOnce.Do(generateTestKeys)
	if keyErr != nil {
		b.Fatalf("generate test key: %v", keyErr)
	}
	return cachedK1
}

func sha256Digest(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}
