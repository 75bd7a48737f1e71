// Package sign implements the PAdES-style signing and verification
// protocol: canonical digest binding, RSA-PSS signature production over a
// reserved byte range, and the verification decision logic.
package sign

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/HubGitPL/esign-go/internal/pdf"
)

const (
	// RecordVersion is the current signature record format version.
	RecordVersion = 1

	// HashAlgorithm is the digest algorithm identifier recorded in every
	// signature.
	HashAlgorithm = "SHA-256"

	// SignatureScheme is the signature scheme identifier. PSS with
	// MGF1-SHA256; the salt length equals the hash size.
	SignatureScheme = "RSASSA-PSS"
)

// SignatureRecord is the embedded signature payload: algorithm
// identifiers, the byte ranges the digest covers, the digest itself, and
// the signature bytes. The digest field is a commitment that lets the
// verifier tell a content mismatch from a key mismatch; trust still rests
// solely on the signature check.
type SignatureRecord struct {
	Version   int            `cbor:"v"`
	Hash      string         `cbor:"hash"`
	Scheme    string         `cbor:"scheme"`
	KeyID     string         `cbor:"kid"`
	SignedAt  time.Time      `cbor:"ts"`
	Ranges    pdf.ByteRanges `cbor:"ranges"`
	Digest    []byte         `cbor:"digest"`
	Signature []byte         `cbor:"sig"`
}

// EncodeRecord serializes a signature record for embedding.
func EncodeRecord(rec *SignatureRecord) ([]byte, error) {
	data, err := cbor.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode signature record: %w", err)
	}
	return data, nil
}

// DecodeRecord deserializes an embedded signature record.
func DecodeRecord(data []byte) (*SignatureRecord, error) {
	var rec SignatureRecord
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode signature record: %w", err)
	}
	return &rec, nil
}
