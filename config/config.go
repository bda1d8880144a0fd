// Package config loads the function's settings from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/compute/metadata"
	"github.com/caarlos0/env/v6"
)

var ErrMissingProjectID = errors.New("project id not set and metadata server unavailable")

type Config struct {
	ProjectID       string     `env:"GOOGLE_CLOUD_PROJECT"`
	StorageBucket   string     `env:"STORAGE_BUCKET"`
	Port            string     `env:"PORT" envDefault:"8082"`
	LogLevel        slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	CloudLogging    bool       `env:"CLOUD_LOGGING" envDefault:"false"`
	MaxPhotoBytes   int        `env:"MAX_PHOTO_BYTES" envDefault:"4194304"`
	UserSearchLimit int        `env:"USER_SEARCH_LIMIT" envDefault:"20"`
}

// ProjectIDFunc looks up the project id when the environment does not carry
// one.
type ProjectIDFunc func(ctx context.Context) (string, error)

// Load parses the process environment, asking the metadata server for the
// project id if needed.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, env.Options{}, metadataProjectID)
}

func load(ctx context.Context, opts env.Options, projectID ProjectIDFunc) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg, opts); err != nil {
		return nil, fmt.Errorf("error parsing env config: %w", err)
	}
	if cfg.ProjectID == "" {
		id, err := projectID(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMissingProjectID, err)
		}
		cfg.ProjectID = id
	}
	if cfg.StorageBucket == "" {
		cfg.StorageBucket = cfg.ProjectID + ".appspot.com"
	}
	return cfg, nil
}

func metadataProjectID(ctx context.Context) (string, error) {
	if !metadata.OnGCE() {
		return "", errors.New("not running on GCE")
	}
	return metadata.ProjectIDWithContext(ctx)
}
