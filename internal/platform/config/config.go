package config

import (
	"fmt"
	"os"
	"time"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config carries the deployment-provided settings for the API process.
type Config struct {
	Addr string

	// StorageBackend selects the repository adapters: "memory" or "postgres".
	StorageBackend string
	DatabaseURL    string

	ShutdownTimeout time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:            ":8080",
		StorageBackend:  BackendMemory,
		ShutdownTimeout: 10 * time.Second,
	}

	if v := os.Getenv("ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		cfg.StorageBackend = v
	}
	switch cfg.StorageBackend {
	case BackendMemory:
	case BackendPostgres:
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND=postgres")
		}
	default:
		return Config{}, fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", BackendMemory, BackendPostgres, cfg.StorageBackend)
	}

	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("SHUTDOWN_TIMEOUT must be a duration (e.g. 10s): %w", err)
		}
		cfg.ShutdownTimeout = d
	}

	return cfg, nil
}
