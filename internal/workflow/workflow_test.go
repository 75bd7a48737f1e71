package workflow

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/HubGitPL/esign-go/internal/audit"
	"github.com/HubGitPL/esign-go/internal/crypto"
	"github.com/HubGitPL/esign-go/internal/envelope"
	"github.com/HubGitPL/esign-go/internal/sign"
	"github.com/HubGitPL/esign-go/internal/storage"
)

const testPIN = "123456"

type fixture struct {
	root   string
	store  *storage.DirStore
	logger *audit.Logger
	pubPEM []byte
}

// newFixture provisions one volume carrying a sealed 2048-bit key.
// RSA-4096 generation is exercised by the end-to-end test below.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "USB_A"), 0o755); err != nil {
		t.Fatalf("make volume: %v", err)
	}
	store := storage.NewDirStore(root)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := crypto.MarshalPrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	params, err := envelope.NewKDFParams(envelope.MinIterations)
	if err != nil {
		t.Fatalf("kdf params: %v", err)
	}
	env, err := envelope.Seal(testPIN, der, params)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	data, err := envelope.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	if err := store.WriteFile("USB_A", PrivateKeyFile, data); err != nil {
		t.Fatalf("write envelope: %v", err)
	}

	pubPEM, err := crypto.MarshalPublicKeyPEM(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}

	logger := audit.NewLogger(64, nil)
	t.Cleanup(logger.Close)

	return &fixture{root: root, store: store, logger: logger, pubPEM: pubPEM}
}

func TestSignAndVerifyFromVolume(t *testing.T) {
	f := newFixture(t)
	doc := []byte("%PDF-1.7 workflow test document")

	signSvc := NewSignService(f.store, f.logger, sign.NewSigner())
	signed, rec, err := signSvc.SignDocument("USB_A", testPIN, doc)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if rec.KeyID == "" {
		t.Fatal("record has no key id")
	}

	verifySvc := NewVerifyService(f.logger)
	result, err := verifySvc.VerifyDocument(signed, f.pubPEM)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !result.Valid {
		t.Fatalf("verification failed: %s (%s)", result.Reason, result.Detail)
	}
}

func TestSignWrongPIN(t *testing.T) {
	f := newFixture(t)

	signSvc := NewSignService(f.store, f.logger, sign.NewSigner())
	_, _, err := signSvc.SignDocument("USB_A", "654321", []byte("doc"))
	if !errors.Is(err, envelope.ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
}

func TestSignMediumUnavailable(t *testing.T) {
	f := newFixture(t)
	if err := os.RemoveAll(filepath.Join(f.root, "USB_A")); err != nil {
		t.Fatalf("detach volume: %v", err)
	}

	signSvc := NewSignService(f.store, f.logger, sign.NewSigner())
	_, _, err := signSvc.SignDocument("USB_A", testPIN, []byte("doc"))
	if !errors.Is(err, storage.ErrMediumUnavailable) {
		t.Fatalf("expected ErrMediumUnavailable, got %v", err)
	}
}

func TestSignMissingKeyFile(t *testing.T) {
	f := newFixture(t)
	if err := os.Remove(filepath.Join(f.root, "USB_A", PrivateKeyFile)); err != nil {
		t.Fatalf("remove key file: %v", err)
	}

	signSvc := NewSignService(f.store, f.logger, sign.NewSigner())
	_, _, err := signSvc.SignDocument("USB_A", testPIN, []byte("doc"))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVerifyRejectsBadPublicKeyExport(t *testing.T) {
	f := newFixture(t)

	verifySvc := NewVerifyService(f.logger)
	if _, err := verifySvc.VerifyDocument([]byte("doc"), []byte("not a pem")); err == nil {
		t.Fatal("bad public key export should fail")
	}
}

func TestGenerateSignVerifyEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping RSA-4096 generation in short mode")
	}

	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "USB_A"), 0o755); err != nil {
		t.Fatalf("make volume: %v", err)
	}
	store := storage.NewDirStore(root)
	logger := audit.NewLogger(64, nil)

	keySvc := NewKeyService(store, logger, envelope.MinIterations)
	res, err := keySvc.GenerateToVolume(testPIN, "USB_A")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := store.ReadFile("USB_A", PrivateKeyFile); err != nil {
		t.Fatalf("envelope not on volume: %v", err)
	}

	doc := []byte("%PDF-1.7 end to end document")
	signSvc := NewSignService(store, logger, sign.NewSigner())
	signed, _, err := signSvc.SignDocument("USB_A", testPIN, doc)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	verifySvc := NewVerifyService(logger)
	result, err := verifySvc.VerifyDocument(signed, res.PublicKey)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !result.Valid {
		t.Fatalf("verification failed: %s (%s)", result.Reason, result.Detail)
	}
	if result.Record.KeyID != res.KeyID {
		t.Fatalf("record key id %q, want %q", result.Record.KeyID, res.KeyID)
	}

	logger.Close()
	if entries := logger.Query(audit.Filter{KeyID: res.KeyID}); len(entries) < 2 {
		t.Fatalf("expected audit trail for key, got %d entries", len(entries))
	}
}

func TestGenerateRejectsShortPIN(t *testing.T) {
	f := newFixture(t)

	keySvc := NewKeyService(f.store, f.logger, envelope.MinIterations)
	_, err := keySvc.GenerateToVolume("123", "USB_A")
	if !errors.Is(err, envelope.ErrInvalidPin) {
		t.Fatalf("expected ErrInvalidPin, got %v", err)
	}
}
