// Command signer embeds a PAdES-style signature into a document using a
// private key sealed on a removable volume. With -wait it blocks until a
// volume carrying the key envelope is attached, mirroring the original
// application's USB monitoring.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/HubGitPL/esign-go/internal/audit"
	"github.com/HubGitPL/esign-go/internal/config"
	"github.com/HubGitPL/esign-go/internal/pdf"
	"github.com/HubGitPL/esign-go/internal/sign"
	"github.com/HubGitPL/esign-go/internal/storage"
	"github.com/HubGitPL/esign-go/internal/workflow"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	inPath := flag.String("in", "", "document to sign")
	outPath := flag.String("out", "", "output path for the signed document")
	volumeID := flag.String("volume", "", "volume holding the key envelope (auto-detected when empty)")
	pin := flag.String("pin", "", "PIN for unsealing the private key (prompted when empty)")
	wait := flag.Bool("wait", false, "wait for a volume carrying the key envelope")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if *inPath == "" || *outPath == "" {
		slog.Error("both -in and -out are required")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	auditLogger := audit.NewLogger(cfg.AuditBuffer, os.Stdout)
	defer auditLogger.Close()

	store := storage.NewDirStore(cfg.VolumeRoot)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	target := *volumeID
	if target == "" {
		target, err = findKeyVolume(ctx, store, *wait, time.Duration(cfg.WatchIntervalSeconds)*time.Second)
		if err != nil {
			slog.Error("locate key volume", "error", err)
			os.Exit(1)
		}
	}

	document, err := os.ReadFile(*inPath)
	if err != nil {
		slog.Error("read document", "path", *inPath, "error", err)
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

	signer := &sign.Signer{Capacity: cfg.PlaceholderCapacity}
	if signer.Capacity <= 0 {
		signer.Capacity = pdf.DefaultCapacity
	}

	signSvc := workflow.NewSignService(store, auditLogger, signer)
	signed, rec, err := signSvc.SignDocument(target, secret, document)
	if err != nil {
		slog.Error("sign", "volume", target, "error", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*outPath, signed, 0o644); err != nil {
		slog.Error("write signed document", "path", *outPath, "error", err)
		os.Exit(1)
	}

	slog.Info("document signed",
		"key_id", rec.KeyID,
		"scheme", rec.Scheme,
		"in", *inPath,
		"out", *outPath,
	)
}

// findKeyVolume returns the first attached volume carrying the key
// envelope. Without -wait it checks once; with -wait it watches
// attach events until a suitable volume appears or the context ends.
func findKeyVolume(ctx context.Context, store storage.VolumeStore, wait bool, interval time.Duration) (string, error) {
	volumes, err := store.ListVolumes()
	if err != nil && !errors.Is(err, storage.ErrMediumUnavailable) {
		return "", err
	}
	for _, v := range volumes {
		if hasKeyFile(store, v.ID) {
			return v.ID, nil
		}
	}
	if !wait {
		return "", fmt.Errorf("no attached volume carries %s", workflow.PrivateKeyFile)
	}

	slog.Info("waiting for a volume with a key envelope", "file", workflow.PrivateKeyFile)
	watcher := storage.NewWatcher(store, interval)
	go watcher.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case ev, ok := <-watcher.Events():
			if !ok {
				return "", ctx.Err()
			}
			if ev.Type != storage.VolumeAttached {
				continue
			}
			slog.Info("volume attached", "volume", ev.Volume.ID)
			if hasKeyFile(store, ev.Volume.ID) {
				return ev.Volume.ID, nil
			}
		}
	}
}

func hasKeyFile(store storage.VolumeStore, volumeID string) bool {
	_, err := store.ReadFile(volumeID, workflow.PrivateKeyFile)
	return err == nil
}

func promptPIN() (string, error) {
	fmt.Fprint(os.Stderr, "Enter PIN: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
