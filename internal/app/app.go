// Package app wires configuration into a ready object service; both binaries share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"front50store/internal/config"
	"front50store/internal/objects"
	"front50store/internal/storage"
)

// LoadConfig reads an optional .env file into the environment and then loads
// the TOML config, which applies FRONT50STORE_* overrides.
func LoadConfig(path, envFile string) (*config.Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	return cfg, nil
}

// OpenService builds the configured backend and the adapter on top of it.
// reg may be nil when metrics are not exported.
func OpenService(ctx context.Context, cfg *config.Config, logger zerolog.Logger, reg prometheus.Registerer) (*objects.Service, error) {
	store, err := storage.NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage backend: %w", err)
	}
	var metrics *objects.Metrics
	if reg != nil {
		metrics = objects.NewMetrics(reg)
	}
	svc, err := objects.New(store, objects.OptionsFromConfig(cfg, logger, metrics))
	if err != nil {
		return nil, err
	}
	backend, bucket := svc.Describe()
	logger.Debug().
		Str("backend", backend).
		Str("bucket", bucket).
		Str("root_folder", svc.RootFolder()).
		Msg("object service ready")
	return svc, nil
}
