package sign

import (
	"errors"
	"fmt"
	"time"

	"github.com/HubGitPL/esign-go/internal/crypto"
	"github.com/HubGitPL/esign-go/internal/envelope"
	"github.com/HubGitPL/esign-go/internal/pdf"
)

// ErrSigningFailure reports that the document collaborator could not
// reserve space for or embed the signature record.
var ErrSigningFailure = errors.New("signing failure")

// stage tracks the signer's linear progress. Sign either reaches
// stageEmbedded or aborts with no partial output.
type stage int

const (
	stageIdle stage = iota
	stageKeyUnsealed
	stageDigested
	stageSigned
	stageEmbedded
)

func (s stage) String() string {
	switch s {
	case stageIdle:
		return "idle"
	case stageKeyUnsealed:
		return "key-unsealed"
	case stageDigested:
		return "digested"
	case stageSigned:
		return "signed"
	case stageEmbedded:
		return "embedded"
	default:
		return "unknown"
	}
}

// Signer produces embedded signatures. Capacity is the placeholder size
// reserved per signature; it must accommodate the encoded record.
type Signer struct {
	Capacity int
}

// NewSigner returns a signer with the default placeholder capacity.
func NewSigner() *Signer {
	return &Signer{Capacity: pdf.DefaultCapacity}
}

// Sign unseals the private key from env with pin, reserves a placeholder
// in document, signs the digest over everything outside the placeholder,
// and embeds the signature record. It returns the signed document and the
// embedded record. Key material is scrubbed before returning; the private
// key never leaves this call. A wrong PIN or corrupted envelope aborts
// with envelope.ErrAuthenticationFailed and no partial output.
func (s *Signer) Sign(env *envelope.Envelope, pin string, document []byte) ([]byte, *SignatureRecord, error) {
	st := stageIdle

	privateDER, err := env.Unseal(pin)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", st, err)
	}
	defer crypto.Zero(privateDER)
	st = stageKeyUnsealed

	key, err := crypto.UnmarshalPrivateKey(privateDER)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", st, err)
	}
	defer crypto.ZeroRSAKey(key)

	res, err := pdf.Reserve(document, s.Capacity)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w: %v", st, ErrSigningFailure, err)
	}

	digest, err := ComputeDigest(res.Document, res.Ranges)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w: %v", st, ErrSigningFailure, err)
	}
	st = stageDigested

	signature, err := crypto.SignPSS(key, digest)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", st, err)
	}
	st = stageSigned

	rec := &SignatureRecord{
		Version:   RecordVersion,
		Hash:      HashAlgorithm,
		Scheme:    SignatureScheme,
		KeyID:     env.KeyID,
		SignedAt:  time.Now().UTC(),
		Ranges:    res.Ranges,
		Digest:    digest,
		Signature: signature,
	}

	payload, err := EncodeRecord(rec)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w: %v", st, ErrSigningFailure, err)
	}
	signed, err := res.Embed(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w: %v", st, ErrSigningFailure, err)
	}

	return signed, rec, nil
}
