package config

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/caarlos0/env/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noMetadata(context.Context) (string, error) {
	return "", errors.New("offline")
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		environment map[string]string
		projectID   ProjectIDFunc
		expected    *Config
		expectedErr error
	}{
		{
			name:        "defaults",
			environment: map[string]string{"GOOGLE_CLOUD_PROJECT": "uconnect"},
			projectID:   noMetadata,
			expected: &Config{
				ProjectID:       "uconnect",
				StorageBucket:   "uconnect.appspot.com",
				Port:            "8082",
				LogLevel:        slog.LevelInfo,
				MaxPhotoBytes:   4194304,
				UserSearchLimit: 20,
			},
		},
		{
			name: "overrides",
			environment: map[string]string{
				"GOOGLE_CLOUD_PROJECT": "uconnect",
				"STORAGE_BUCKET":       "photos",
				"PORT":                 "9000",
				"LOG_LEVEL":            "DEBUG",
				"CLOUD_LOGGING":        "true",
				"MAX_PHOTO_BYTES":      "1024",
				"USER_SEARCH_LIMIT":    "5",
			},
			projectID: noMetadata,
			expected: &Config{
				ProjectID:       "uconnect",
				StorageBucket:   "photos",
				Port:            "9000",
				LogLevel:        slog.LevelDebug,
				CloudLogging:    true,
				MaxPhotoBytes:   1024,
				UserSearchLimit: 5,
			},
		},
		{
			name:        "metadata fallback",
			environment: map[string]string{},
			projectID:   func(context.Context) (string, error) { return "from-metadata", nil },
			expected: &Config{
				ProjectID:       "from-metadata",
				StorageBucket:   "from-metadata.appspot.com",
				Port:            "8082",
				LogLevel:        slog.LevelInfo,
				MaxPhotoBytes:   4194304,
				UserSearchLimit: 20,
			},
		},
		{
			name:        "no project",
			environment: map[string]string{},
			projectID:   noMetadata,
			expectedErr: ErrMissingProjectID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := load(context.Background(), env.Options{Environment: tt.environment}, tt.projectID)
			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg)
		})
	}

	_, err := load(context.Background(), env.Options{Environment: map[string]string{"PORT": "1", "MAX_PHOTO_BYTES": "lots"}}, noMetadata)
	require.Error(t, err)
}
