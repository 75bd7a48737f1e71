// Package envelope implements the PIN-bound encrypted container for RSA
// private keys. A sealed envelope is opaque without the correct PIN: the
// symmetric key is derived with PBKDF2-HMAC-SHA256 and the private-key
// blob is encrypted with AES-256-GCM, so any wrong PIN or flipped bit
// fails authentication instead of yielding corrupted key material.
package envelope

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/HubGitPL/esign-go/internal/crypto"
)

const (
	// FormatVersion is the current envelope format version.
	FormatVersion = 1

	// KDFAlgorithm identifies the only key derivation function the format
	// supports.
	KDFAlgorithm = "PBKDF2-HMAC-SHA256"

	// MinPINLength is the PIN policy floor.
	MinPINLength = 6

	// MinIterations is the lowest acceptable PBKDF2 iteration count, both
	// when sealing and when accepting a stored envelope.
	MinIterations = 200_000
)

var (
	// ErrInvalidPin reports a PIN that violates the length policy.
	ErrInvalidPin = errors.New("pin must be at least 6 characters")

	// ErrAuthenticationFailed reports an unseal failure. A wrong PIN and a
	// tampered envelope are deliberately indistinguishable.
	ErrAuthenticationFailed = errors.New("envelope authentication failed")

	// ErrInvalidEnvelope reports a structurally broken serialized envelope.
	ErrInvalidEnvelope = errors.New("invalid envelope encoding")

	// ErrWeakParams reports stored KDF parameters below the policy floor.
	ErrWeakParams = errors.New("envelope kdf parameters below policy minimum")
)

// KDFParams records how the symmetric key is derived from the PIN.
type KDFParams struct {
	Algorithm  string `cbor:"alg"`
	Salt       []byte `cbor:"salt"`
	Iterations int    `cbor:"iter"`
}

// NewKDFParams returns parameters with a fresh random salt. Iteration
// counts below the policy floor are rejected.
func NewKDFParams(iterations int) (KDFParams, error) {
	if iterations < MinIterations {
		return KDFParams{}, fmt.Errorf("%w: %d iterations", ErrWeakParams, iterations)
	}
	salt, err := crypto.GenerateSalt()
	if err != nil {
		return KDFParams{}, err
	}
	return KDFParams{
		Algorithm:  KDFAlgorithm,
		Salt:       salt,
		Iterations: iterations,
	}, nil
}

// Envelope is the sealed private-key container. The GCM authentication tag
// is appended to Ciphertext.
type Envelope struct {
	Version    int       `cbor:"v"`
	KeyID      string    `cbor:"kid"`
	KDF        KDFParams `cbor:"kdf"`
	Nonce      []byte    `cbor:"nonce"`
	Ciphertext []byte    `cbor:"ct"`
}

// Seal encrypts privateKey under a key derived from pin and returns a new
// envelope carrying everything needed to unseal it except the PIN itself.
// A fresh key identifier is assigned and authenticated together with the
// ciphertext. Persistence is the caller's responsibility.
func Seal(pin string, privateKey []byte, params KDFParams) (*Envelope, error) {
	return sealAs(uuid.NewString(), pin, privateKey, params)
}

// Unseal re-derives the symmetric key from pin and the stored KDF
// parameters and decrypts the private-key blob. Every failure past
// parameter validation reports ErrAuthenticationFailed; the caller cannot
// tell a wrong PIN from a corrupted envelope.
func (e *Envelope) Unseal(pin string) ([]byte, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}

	key, err := crypto.DerivePINKey(pin, e.KDF.Salt, e.KDF.Iterations)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	defer crypto.Zero(key)

	plaintext, err := crypto.DecryptAESGCM(key, e.Nonce, e.Ciphertext, e.aad())
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

// Reseal decrypts the envelope with oldPIN and seals the same key under
// newPIN with a fresh salt and nonce. The key identifier is preserved so
// the envelope stays bound to the same public-key export.
func Reseal(env *Envelope, oldPIN, newPIN string, params KDFParams) (*Envelope, error) {
	privateKey, err := env.Unseal(oldPIN)
	if err != nil {
		return nil, err
	}
	defer crypto.Zero(privateKey)

	return sealAs(env.KeyID, newPIN, privateKey, params)
}

func sealAs(keyID, pin string, privateKey []byte, params KDFParams) (*Envelope, error) {
	if err := ValidatePIN(pin); err != nil {
		return nil, err
	}
	if params.Algorithm != KDFAlgorithm {
		return nil, fmt.Errorf("unsupported kdf algorithm %q", params.Algorithm)
	}
	if params.Iterations < MinIterations {
		return nil, fmt.Errorf("%w: %d iterations", ErrWeakParams, params.Iterations)
	}

	key, err := crypto.DerivePINKey(pin, params.Salt, params.Iterations)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	defer crypto.Zero(key)

	nonce, err := crypto.GenerateNonce()
	if err != nil {
		return nil, err
	}

	env := &Envelope{
		Version: FormatVersion,
		KeyID:   keyID,
		KDF:     params,
		Nonce:   nonce,
	}
	ciphertext, err := crypto.EncryptAESGCM(key, nonce, privateKey, env.aad())
	if err != nil {
		return nil, fmt.Errorf("encrypt private key: %w", err)
	}
	env.Ciphertext = ciphertext
	return env, nil
}

// ValidatePIN enforces the PIN length policy.
func ValidatePIN(pin string) error {
	if len(pin) < MinPINLength {
		return ErrInvalidPin
	}
	return nil
}

// aad binds the format version and key identifier to the ciphertext, so
// editing either field in a stored envelope fails authentication.
func (e *Envelope) aad() []byte {
	return fmt.Appendf(nil, "esign-envelope:v%d:%s", e.Version, e.KeyID)
}

func (e *Envelope) validate() error {
	if e.Version != FormatVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidEnvelope, e.Version)
	}
	if e.KDF.Algorithm != KDFAlgorithm {
		return fmt.Errorf("%w: unknown kdf %q", ErrInvalidEnvelope, e.KDF.Algorithm)
	}
	if len(e.KDF.Salt) < crypto.SaltSize {
		return fmt.Errorf("%w: salt too short", ErrInvalidEnvelope)
	}
	if e.KDF.Iterations < MinIterations {
		return fmt.Errorf("%w: %d iterations", ErrWeakParams, e.KDF.Iterations)
	}
	if len(e.Nonce) != crypto.GCMNonceSize {
		return fmt.Errorf("%w: bad nonce size", ErrInvalidEnvelope)
	}
	return nil
}
