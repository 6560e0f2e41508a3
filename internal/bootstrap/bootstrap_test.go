package bootstrap

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/wavsegment/internal/config"
	"github.com/maauso/wavsegment/internal/storage"
)

func TestNewDependencies_LocalStorage(t *testing.T) {
	cfg := &config.Config{WorkDir: t.TempDir(), MaxConcurrentFiles: 3}

	deps, err := NewDependencies(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	assert.NotNil(t, deps.Service)
	assert.NotNil(t, deps.Jobs)
	assert.NotNil(t, deps.Metrics)
	assert.IsType(t, &storage.LocalStorage{}, deps.Storage)
	assert.False(t, deps.Storage.CanPublish())
}

func TestNewDependencies_S3Storage(t *testing.T) {
	cfg := &config.Config{
		WorkDir:            t.TempDir(),
		MaxConcurrentFiles: 1,
		S3Bucket:           "segments",
		S3Region:           "us-east-1",
		S3Endpoint:         "http://localhost:9000",
		AWSAccessKeyID:     "key",
		AWSSecretAccessKey: "secret",
	}

	deps, err := NewDependencies(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	assert.IsType(t, &storage.S3Storage{}, deps.Storage)
	assert.True(t, deps.Storage.CanPublish())
}
