// Command keygen generates an RSA-4096 key pair, seals the private half
// under a PIN onto a removable volume, and exports the public half as a
// PEM file.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/HubGitPL/esign-go/internal/audit"
	"github.com/HubGitPL/esign-go/internal/config"
	"github.com/HubGitPL/esign-go/internal/storage"
	"github.com/HubGitPL/esign-go/internal/workflow"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	volumeID := flag.String("volume", "", "target volume id (auto-detected when exactly one is attached)")
	pubOut := flag.String("pub", "public_key.pem", "output path for the public key export")
	pin := flag.String("pin", "", "PIN for sealing the private key (prompted when empty)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	auditLogger := audit.NewLogger(cfg.AuditBuffer, os.Stdout)
	defer auditLogger.Close()

	store := storage.NewDirStore(cfg.VolumeRoot)
	target, err := pickVolume(store, *volumeID)
	if err != nil {
		slog.Error("select volume", "error", err)
		os.Exit(1)
	}

	secret := *pin
	if secret == "" {
		secret, err = promptPIN()
		if err != nil {
			slog.Error("read pin", "error", err)
			os.Exit(1)
		}
	}

	keySvc := workflow.NewKeyService(store, auditLogger, cfg.KDFIterations)
	slog.Info("generating key pair", "volume", target)
	res, err := keySvc.GenerateToVolume(secret, target)
	if err != nil {
		slog.Error("generate", "error", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*pubOut, res.PublicKey, 0o644); err != nil {
		slog.Error("write public key", "path", *pubOut, "error", err)
		os.Exit(1)
	}

	slog.Info("key pair generated",
		"key_id", res.KeyID,
		"volume", target,
		"envelope", workflow.PrivateKeyFile,
		"public_key", *pubOut,
	)
}

func pickVolume(store storage.VolumeStore, requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	volumes, err := store.ListVolumes()
	if err != nil {
		return "", err
	}
	switch len(volumes) {
	case 0:
		return "", fmt.Errorf("no volumes attached")
	case 1:
		return volumes[0].ID, nil
	default:
		ids := make([]string, len(volumes))
		for i, v := range volumes {
			ids[i] = v.ID
		}
		return "", fmt.Errorf("multiple volumes attached (%s), pass -volume", strings.Join(ids, ", "))
	}
}

func promptPIN() (string, error) {
	fmt.Fprint(os.Stderr, "Enter PIN (min 6 characters): ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
