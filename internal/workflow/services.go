// Package workflow wires the signing core to removable media and the
// audit trail. Each service method is one complete user operation; all
// state is local to the call.
package workflow

import (
	"errors"
	"fmt"

	"github.com/HubGitPL/esign-go/internal/audit"
	"github.com/HubGitPL/esign-go/internal/crypto"
	"github.com/HubGitPL/esign-go/internal/envelope"
	"github.com/HubGitPL/esign-go/internal/keygen"
	"github.com/HubGitPL/esign-go/internal/sign"
	"github.com/HubGitPL/esign-go/internal/storage"
)

// Well-known file names on the removable medium.
const (
	PrivateKeyFile = "private_key.enc"
	PublicKeyFile  = "public_key.pem"
)

// KeyService generates sealed key pairs onto removable media.
type KeyService struct {
	store      storage.VolumeStore
	audit      *audit.Logger
	iterations int
}

func NewKeyService(store storage.VolumeStore, a *audit.Logger, iterations int) *KeyService {
	return &KeyService{store: store, audit: a, iterations: iterations}
}

// GenerateToVolume creates a key pair, writes the sealed envelope to the
// volume as private_key.enc, and returns the result so the caller can
// distribute the public half. The envelope write is atomic: a pulled
// medium fails the whole operation with no partial file.
func (s *KeyService) GenerateToVolume(pin, volumeID string) (*keygen.Result, error) {
	res, err := keygen.Generate(pin, s.iterations)
	if err != nil {
		s.audit.Record(audit.OpGenerateKey, "", volumeID, "ERROR", err.Error())
		return nil, err
	}

	data, err := envelope.Marshal(res.Envelope)
	if err != nil {
		s.audit.Record(audit.OpGenerateKey, res.KeyID, volumeID, "ERROR", err.Error())
		return nil, err
	}
	if err := s.store.WriteFile(volumeID, PrivateKeyFile, data); err != nil {
		s.audit.Record(audit.OpSealKey, res.KeyID, volumeID, "ERROR", err.Error())
		return nil, fmt.Errorf("write envelope: %w", err)
	}

	s.audit.Record(audit.OpGenerateKey, res.KeyID, volumeID, "OK", "")
	return res, nil
}

// SignService signs documents with a key sealed on removable media.
type SignService struct {
	store  storage.VolumeStore
	audit  *audit.Logger
	signer *sign.Signer
}

func NewSignService(store storage.VolumeStore, a *audit.Logger, signer *sign.Signer) *SignService {
	return &SignService{store: store, audit: a, signer: signer}
}

// SignDocument reads the envelope from the volume, unseals it with pin,
// and returns the signed document. Audit entries never include the PIN.
func (s *SignService) SignDocument(volumeID, pin string, document []byte) ([]byte, *sign.SignatureRecord, error) {
	data, err := s.store.ReadFile(volumeID, PrivateKeyFile)
	if err != nil {
		s.audit.Record(audit.OpUnsealKey, "", volumeID, "ERROR", err.Error())
		return nil, nil, err
	}

	env, err := envelope.Unmarshal(data)
	if err != nil {
		s.audit.Record(audit.OpUnsealKey, "", volumeID, "ERROR", err.Error())
		return nil, nil, err
	}

	signed, rec, err := s.signer.Sign(env, pin, document)
	if err != nil {
		status := "ERROR"
		if errors.Is(err, envelope.ErrAuthenticationFailed) {
			status = "DENIED"
		}
		s.audit.Record(audit.OpSign, env.KeyID, volumeID, status, err.Error())
		return nil, nil, err
	}

	s.audit.Record(audit.OpSign, env.KeyID, volumeID, "OK", "")
	return signed, rec, nil
}

// VerifyService validates signed documents against a public-key export.
type VerifyService struct {
	audit *audit.Logger
}

func NewVerifyService(a *audit.Logger) *VerifyService {
	return &VerifyService{audit: a}
}

// VerifyDocument parses a PEM public-key export and verifies the newest
// signature in the document against it.
func (s *VerifyService) VerifyDocument(document, publicKeyPEM []byte) (sign.VerificationResult, error) {
	pub, err := crypto.ParsePublicKeyPEM(publicKeyPEM)
	if err != nil {
		s.audit.Record(audit.OpVerify, "", "", "ERROR", err.Error())
		return sign.VerificationResult{}, fmt.Errorf("public key export: %w", err)
	}

	result := sign.Verify(document, pub)
	keyID := ""
	if result.Record != nil {
		keyID = result.Record.KeyID
	}
	if result.Valid {
		s.audit.Record(audit.OpVerify, keyID, "", "OK", "")
	} else {
		s.audit.Record(audit.OpVerify, keyID, "", "INVALID", result.Reason.String())
	}
	return result, nil
}
