package sign

import (
	"crypto/sha256"
	"fmt"

	"github.com/HubGitPL/esign-go/internal/pdf"
)

// ComputeDigest hashes the document's signed segments in file order,
// excluding exactly the placeholder region between them. It is pure:
// identical bytes and ranges always produce the identical digest. The
// signer and the verifier both call this and nothing else, so they hash
// exactly the same bytes.
func ComputeDigest(document []byte, ranges pdf.ByteRanges) ([]byte, error) {
	if err := checkRange(document, ranges.Pre); err != nil {
		return nil, err
	}
	if err := checkRange(document, ranges.Post); err != nil {
		return nil, err
	}
	if ranges.Pre.Offset != 0 || ranges.Post.Offset < ranges.Pre.End() {
		return nil, fmt.Errorf("inconsistent byte ranges: pre %+v, post %+v", ranges.Pre, ranges.Post)
	}

	h := sha256.New()
	h.Write(document[ranges.Pre.Offset:ranges.Pre.End()])
	h.Write(document[ranges.Post.Offset:ranges.Post.End()])
	return h.Sum(nil), nil
}

func checkRange(document []byte, r pdf.Range) error {
	// Length is checked against the space remaining after Offset instead
	// of computing End(), which wraps negative for hostile lengths near
	// MaxInt64.
	if r.Offset < 0 || r.Length < 0 || r.Offset > int64(len(document)) || r.Length > int64(len(document))-r.Offset {
		return fmt.Errorf("byte range %+v out of bounds for %d-byte document", r, len(document))
	}
	return nil
}
