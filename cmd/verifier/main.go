// Command verifier checks the newest embedded signature of a document
// against a PEM public-key export. Exit code 0 means valid, 1 means
// invalid, 2 means the inputs could not be read.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/HubGitPL/esign-go/internal/audit"
	"github.com/HubGitPL/esign-go/internal/config"
	"github.com/HubGitPL/esign-go/internal/workflow"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	inPath := flag.String("in", "", "signed document to verify")
	pubPath := flag.String("pub", "public_key.pem", "public key export (PEM)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if *inPath == "" {
		slog.Error("-in is required")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(2)
	}

	auditLogger := audit.NewLogger(cfg.AuditBuffer, os.Stdout)
	defer auditLogger.Close()

	document, err := os.ReadFile(*inPath)
	if err != nil {
		slog.Error("read document", "path", *inPath, "error", err)
		os.Exit(2)
	}
	publicKeyPEM, err := os.ReadFile(*pubPath)
	if err != nil {
		slog.Error("read public key", "path", *pubPath, "error", err)
		os.Exit(2)
	}

	verifySvc := workflow.NewVerifyService(auditLogger)
	result, err := verifySvc.VerifyDocument(document, publicKeyPEM)
	if err != nil {
		slog.Error("verify", "error", err)
		os.Exit(2)
	}

	if result.Valid {
		slog.Info("signature valid",
			"key_id", result.Record.KeyID,
			"scheme", result.Record.Scheme,
			"signed_at", result.Record.SignedAt,
		)
		return
	}

	slog.Error("signature invalid",
		"reason", result.Reason.String(),
		"detail", result.Detail,
	)
	os.Exit(1)
}
