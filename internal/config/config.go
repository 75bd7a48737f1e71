// Package config loads runtime settings from an optional YAML file with
// environment-variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the tunables shared by the keygen, signer, and verifier
// binaries.
type Config struct {
	// VolumeRoot is the directory whose subdirectories are treated as
	// removable volumes.
	VolumeRoot string `yaml:"volume_root"`
	// KDFIterations is the PBKDF2 iteration count for new envelopes.
	KDFIterations int `yaml:"kdf_iterations"`
	// PlaceholderCapacity is the reserved signature payload size in bytes.
	PlaceholderCapacity int `yaml:"placeholder_capacity"`
	// WatchIntervalSeconds is the volume poll interval.
	WatchIntervalSeconds int `yaml:"watch_interval_seconds"`
	// AuditBuffer is the async audit queue size.
	AuditBuffer int `yaml:"audit_buffer"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		VolumeRoot:           "/media",
		KDFIterations:        200_000,
		PlaceholderCapacity:  1024,
		WatchIntervalSeconds: 1,
		AuditBuffer:          1024,
	}
}

// Load reads path (if it exists) over the defaults, then applies
// environment overrides. An empty path skips the file entirely.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			// Fall through to env-only configuration.
		} else if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.VolumeRoot = envOr("ESIGN_VOLUME_ROOT", cfg.VolumeRoot)
	cfg.KDFIterations = envInt("ESIGN_KDF_ITERATIONS", cfg.KDFIterations)
	cfg.PlaceholderCapacity = envInt("ESIGN_PLACEHOLDER_CAPACITY", cfg.PlaceholderCapacity)
	cfg.WatchIntervalSeconds = envInt("ESIGN_WATCH_INTERVAL", cfg.WatchIntervalSeconds)
	cfg.AuditBuffer = envInt("ESIGN_AUDIT_BUFFER", cfg.AuditBuffer)
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
