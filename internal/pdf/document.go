// Package pdf is the document collaborator for signature embedding. It
// reserves a fixed-size placeholder for a signature payload at the end of
// a document as an incremental block, reports the byte ranges around the
// placeholder, and locates previously embedded payloads. Callers treat
// the document as an opaque byte buffer; nothing here interprets PDF
// object structure.
//
// A reserved block looks like:
//
//	\n%%ESIG-BEGIN v1\n<hex placeholder>\n%%ESIG-END\n
//
// The placeholder holds the hex encoding of a length-framed payload,
// zero-padded to its fixed capacity, following the /Contents convention
// of PDF signature dictionaries.
package pdf

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	// DefaultCapacity is the default payload capacity of a reserved
	// placeholder in bytes. An RSA-4096 PSS signature is 512 bytes; the
	// rest of the capacity absorbs the record's metadata.
	DefaultCapacity = 1024

	blockHeader = "\n%%ESIG-BEGIN v1\n"
	blockFooter = "\n%%ESIG-END\n"

	// payload framing: 4-byte big-endian length before the payload bytes.
	frameLen = 4
)

var (
	// ErrNoSignature reports a document without any embedded signature block.
	ErrNoSignature = errors.New("no signature block found")

	// ErrMalformedBlock reports a signature block that cannot be decoded.
	ErrMalformedBlock = errors.New("malformed signature block")

	// ErrPayloadTooLarge reports a payload exceeding the reserved capacity.
	ErrPayloadTooLarge = errors.New("payload exceeds reserved capacity")
)

// Range is a half-open byte range [Offset, Offset+Length) of the host
// document.
type Range struct {
	Offset int64 `cbor:"off"`
	Length int64 `cbor:"len"`
}

// End returns the first offset past the range.
func (r Range) End() int64 { return r.Offset + r.Length }

// ByteRanges are the two signed segments surrounding a placeholder: all
// bytes before the hex region and all bytes after it. The placeholder
// itself is excluded so the signature never covers its own bytes.
type ByteRanges struct {
	Pre  Range `cbor:"pre"`
	Post Range `cbor:"post"`
}

// Reservation is a document with an appended, not yet filled placeholder.
type Reservation struct {
	// Document is the host document including the empty placeholder block.
	Document []byte
	// Ranges are the segments a signature over this reservation must cover.
	Ranges ByteRanges

	hexOffset int64
	hexLength int64
}

// Reserve appends a placeholder block sized for payloads up to capacity
// bytes and reports the byte ranges around it.
func Reserve(document []byte, capacity int) (*Reservation, error) {
	if capacity <= frameLen {
		return nil, fmt.Errorf("invalid placeholder capacity: %d", capacity)
	}

	hexLength := int64(2 * capacity)
	hexOffset := int64(len(document) + len(blockHeader))

	buf := make([]byte, 0, int64(len(document))+int64(len(blockHeader))+hexLength+int64(len(blockFooter)))
	buf = append(buf, document...)
	buf = append(buf, blockHeader...)
	buf = append(buf, bytes.Repeat([]byte{'0'}, int(hexLength))...)
	buf = append(buf, blockFooter...)

	return &Reservation{
		Document: buf,
		Ranges: ByteRanges{
			Pre:  Range{Offset: 0, Length: hexOffset},
			Post: Range{Offset: hexOffset + hexLength, Length: int64(len(blockFooter))},
		},
		hexOffset: hexOffset,
		hexLength: hexLength,
	}, nil
}

// Embed writes payload into the reserved placeholder and returns the
// final document. Only the placeholder region changes, so the byte ranges
// reported by Reserve keep describing the same bytes.
func (r *Reservation) Embed(payload []byte) ([]byte, error) {
	framed := make([]byte, frameLen+len(payload))
	binary.BigEndian.PutUint32(framed, uint32(len(payload)))
	copy(framed[frameLen:], payload)

	encoded := hex.EncodeToString(framed)
	if int64(len(encoded)) > r.hexLength {
		return nil, fmt.Errorf("%w: %d bytes into %d capacity", ErrPayloadTooLarge, len(payload), r.hexLength/2-frameLen)
	}

	out := bytes.Clone(r.Document)
	copy(out[r.hexOffset:], encoded)
	return out, nil
}

// Block is an embedded signature payload located inside a document.
type Block struct {
	// Payload is the exact bytes embedded at signing time.
	Payload []byte
	// Located are the byte ranges around the placeholder as found in the
	// document now. For an untampered document they match the ranges the
	// signer recorded, except that Post of an older block ends where the
	// document ended when that block was the newest one.
	Located ByteRanges
}

// ExtractAll locates every signature block in document order. Documents
// signed more than once carry one block per signing pass.
func ExtractAll(document []byte) ([]Block, error) {
	var blocks []Block
	offset := int64(0)
	rest := document

	for {
		idx := bytes.Index(rest, []byte(blockHeader))
		if idx < 0 {
			break
		}
		hexOffset := offset + int64(idx) + int64(len(blockHeader))

		end := bytes.Index(rest[idx+len(blockHeader):], []byte(blockFooter))
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated block at offset %d", ErrMalformedBlock, offset+int64(idx))
		}
		hexLength := int64(end)

		payload, err := decodePayload(document[hexOffset : hexOffset+hexLength])
		if err != nil {
			return nil, err
		}

		blocks = append(blocks, Block{
			Payload: payload,
			Located: ByteRanges{
				Pre:  Range{Offset: 0, Length: hexOffset},
				Post: Range{Offset: hexOffset + hexLength, Length: int64(len(blockFooter))},
			},
		})

		advance := idx + len(blockHeader) + end + len(blockFooter)
		offset += int64(advance)
		rest = rest[advance:]
	}

	if len(blocks) == 0 {
		return nil, ErrNoSignature
	}
	return blocks, nil
}

// ExtractLatest returns the newest signature block, the one whose ranges
// are expected to cover the entire document.
func ExtractLatest(document []byte) (*Block, error) {
	blocks, err := ExtractAll(document)
	if err != nil {
		return nil, err
	}
	return &blocks[len(blocks)-1], nil
}

func decodePayload(hexRegion []byte) ([]byte, error) {
	framed := make([]byte, hex.DecodedLen(len(hexRegion)))
	if _, err := hex.Decode(framed, hexRegion); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBlock, err)
	}
	if len(framed) < frameLen {
		return nil, fmt.Errorf("%w: placeholder too small", ErrMalformedBlock)
	}
	n := binary.BigEndian.Uint32(framed)
	if n == 0 {
		return nil, fmt.Errorf("%w: placeholder never filled", ErrMalformedBlock)
	}
	if int(n) > len(framed)-frameLen {
		return nil, fmt.Errorf("%w: framed length %d exceeds placeholder", ErrMalformedBlock, n)
	}
	return framed[frameLen : frameLen+int(n)], nil
}
