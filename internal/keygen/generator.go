// Package keygen produces sealed RSA-4096 signing key pairs.
package keygen

import (
	"fmt"

	"github.com/HubGitPL/esign-go/internal/crypto"
	"github.com/HubGitPL/esign-go/internal/envelope"
)

// Result is the atomic output of one generation: the sealed private half
// and the portable public half, tied together by the key identifier.
type Result struct {
	Envelope  *envelope.Envelope
	PublicKey []byte // PEM-encoded SubjectPublicKeyInfo
	KeyID     string
}

// Generate creates a fresh RSA-4096 key pair, seals the PKCS8-encoded
// private half under pin with newly generated KDF parameters, and exports
// the public half as PEM. Every invocation yields an independent key pair,
// salt, and nonce. The operation has no side effects; persisting either
// half is the caller's job.
func Generate(pin string, iterations int) (*Result, error) {
	if err := envelope.ValidatePIN(pin); err != nil {
		return nil, err
	}

	params, err := envelope.NewKDFParams(iterations)
	if err != nil {
		return nil, err
	}

	key, err := crypto.GenerateRSAKey()
	if err != nil {
		return nil, err
	}

	privateDER, err := crypto.MarshalPrivateKey(key)
	if err != nil {
		return nil, err
	}
	defer crypto.Zero(privateDER)

	env, err := envelope.Seal(pin, privateDER, params)
	if err != nil {
		return nil, fmt.Errorf("seal private key: %w", err)
	}

	publicPEM, err := crypto.MarshalPublicKeyPEM(&key.PublicKey)
	if err != nil {
		return nil, err
	}

	return &Result{
		Envelope:  env,
		PublicKey: publicPEM,
		KeyID:     env.KeyID,
	}, nil
}
