package sign

import (
	"bytes"
	"crypto/rsa"
	"fmt"

	"github.com/HubGitPL/esign-go/internal/crypto"
	"github.com/HubGitPL/esign-go/internal/pdf"
)

// Reason classifies why a verification returned Invalid.
type Reason int

const (
	// ReasonNone means the signature verified.
	ReasonNone Reason = iota
	// ReasonMalformed means no decodable signature record was found, or
	// its declared ranges do not describe this document.
	ReasonMalformed
	// ReasonHashMismatch means the recomputed digest differs from the
	// signed digest: the covered bytes were altered after signing.
	ReasonHashMismatch
	// ReasonSignatureMismatch means the digest matches but the
	// cryptographic check failed: wrong key or corrupted signature bytes.
	ReasonSignatureMismatch
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonMalformed:
		return "malformed"
	case ReasonHashMismatch:
		return "hash mismatch"
	case ReasonSignatureMismatch:
		return "signature mismatch"
	default:
		return "unknown"
	}
}

// VerificationResult is the verifier's decision. Verification never
// errors for a decidable input: the same document and public key always
// map to the same result.
type VerificationResult struct {
	Valid  bool
	Reason Reason
	Detail string
	// Record is the decoded signature record, when one was decodable.
	Record *SignatureRecord
}

func invalid(reason Reason, detail string, rec *SignatureRecord) VerificationResult {
	return VerificationResult{Reason: reason, Detail: detail, Record: rec}
}

// Verify checks the newest signature in document against pub. The newest
// signature must cover the whole file: any bytes after its declared post
// range, including a single appended byte, make the result Malformed.
func Verify(document []byte, pub *rsa.PublicKey) VerificationResult {
	block, err := pdf.ExtractLatest(document)
	if err != nil {
		return invalid(ReasonMalformed, err.Error(), nil)
	}
	return verifyBlock(document, pub, block, true)
}

// VerifyAll checks every signature in the document independently, oldest
// first. Only the newest signature is required to cover the document end;
// older ones are checked against the ranges they recorded when they were
// the newest.
func VerifyAll(document []byte, pub *rsa.PublicKey) []VerificationResult {
	blocks, err := pdf.ExtractAll(document)
	if err != nil {
		return []VerificationResult{invalid(ReasonMalformed, err.Error(), nil)}
	}

	results := make([]VerificationResult, len(blocks))
	for i := range blocks {
		requireCoverage := i == len(blocks)-1
		results[i] = verifyBlock(document, pub, &blocks[i], requireCoverage)
	}
	return results
}

func verifyBlock(document []byte, pub *rsa.PublicKey, block *pdf.Block, requireCoverage bool) VerificationResult {
	rec, err := DecodeRecord(block.Payload)
	if err != nil {
		return invalid(ReasonMalformed, err.Error(), nil)
	}

	if rec.Version != RecordVersion {
		return invalid(ReasonMalformed, fmt.Sprintf("unsupported record version %d", rec.Version), rec)
	}
	if rec.Hash != HashAlgorithm || rec.Scheme != SignatureScheme {
		return invalid(ReasonMalformed, fmt.Sprintf("unsupported algorithms %s/%s", rec.Hash, rec.Scheme), rec)
	}

	// The declared ranges must match the placeholder where the record
	// actually sits, lengths included; a record relocated to a different
	// block or rewritten with invented ranges is malformed.
	if rec.Ranges.Pre != block.Located.Pre || rec.Ranges.Post != block.Located.Post {
		return invalid(ReasonMalformed, "declared ranges do not match the embedded block", rec)
	}
	if requireCoverage && rec.Ranges.Post.End() != int64(len(document)) {
		return invalid(ReasonMalformed, "document has data beyond the signed ranges", rec)
	}

	digest, err := ComputeDigest(document, rec.Ranges)
	if err != nil {
		return invalid(ReasonMalformed, err.Error(), rec)
	}

	if !bytes.Equal(digest, rec.Digest) {
		return invalid(ReasonHashMismatch, "recomputed digest differs from signed digest", rec)
	}
	if !crypto.VerifyPSS(pub, digest, rec.Signature) {
		return invalid(ReasonSignatureMismatch, "signature does not verify under the supplied public key", rec)
	}

	return VerificationResult{Valid: true, Reason: ReasonNone, Record: rec}
}
