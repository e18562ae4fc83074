package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Called after loading configuration from file and environment variables to
// fill in missing values. Zero values (0, "", false, nil) are replaced with
// defaults; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	cfg.Server.ApplyDefaults()
	cfg.Database.ApplyDefaults()
	applyStorageDefaults(&cfg.Storage)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyStorageDefaults sets blob backend defaults.
func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.Provider == "" {
		cfg.Provider = StorageProviderLocal
	}
	if cfg.Local.BasePath == "" {
		cfg.Local.BasePath = defaultBlobDir()
	}
	if cfg.Provider == StorageProviderS3 && cfg.S3.Region == "" {
		cfg.S3.Region = "us-east-1"
	}
}

// defaultBlobDir returns the default local blob directory:
// $XDG_DATA_HOME/excalidrive/blobs, falling back to ~/.local/share.
func defaultBlobDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "excalidrive", "blobs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "excalidrive-blobs")
	}

	return filepath.Join(home, ".local", "share", "excalidrive", "blobs")
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
