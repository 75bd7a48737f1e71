package envelope

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// magic prefixes the serialized envelope so media files are recognizable
// before any CBOR decoding happens.
var magic = []byte("ESENV1\n")

// Marshal encodes the envelope into its on-media form: a short magic
// prefix followed by a CBOR map. The layout is self-describing; only the
// key generator and the signer ever parse it.
func Marshal(env *Envelope) ([]byte, error) {
	raw, err := cbor.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return append(bytes.Clone(magic), raw...), nil
}

// Unmarshal decodes an envelope from its on-media form and validates its
// structure. The ciphertext is not touched; authentication happens at
// Unseal.
func Unmarshal(data []byte) (*Envelope, error) {
	if !bytes.HasPrefix(data, magic) {
		return nil, fmt.Errorf("%w: missing magic prefix", ErrInvalidEnvelope)
	}
	var env Envelope
	if err := cbor.Unmarshal(data[len(magic):], &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if err := env.validate(); err != nil {
		return nil, err
	}
	return &env, nil
}
