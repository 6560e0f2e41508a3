// Package bootstrap provides dependency initialization for the segmenter.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/maauso/wavsegment/internal/config"
	"github.com/maauso/wavsegment/internal/job"
	"github.com/maauso/wavsegment/internal/metrics"
	"github.com/maauso/wavsegment/internal/segment"
	"github.com/maauso/wavsegment/internal/storage"
)

// Dependencies holds all initialized dependencies for the command line.
type Dependencies struct {
	Service *job.Service
	Jobs    job.Repository
	Storage storage.Storage
	Metrics *metrics.Metrics
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	// Initialize storage
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize the segmentation engine
	engine := segment.New(segment.WithLogger(logger))

	// Initialize job repository and metrics
	repo := job.NewMemoryRepository()
	m := metrics.NewMetrics()

	svc := job.NewService(repo, engine, logger)
	svc.SetStorage(store)
	svc.SetMetrics(m)
	svc.SetMaxConcurrentFiles(cfg.MaxConcurrentFiles)
	svc.SetRemoveAfterPublish(cfg.RemoveAfterPublish)

	return &Dependencies{
		Service: svc,
		Jobs:    repo,
		Storage: store,
		Metrics: m,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			Prefix:          cfg.S3Prefix,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.WorkDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 publishing configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("prefix", cfg.S3Prefix),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Debug("local storage configured",
		slog.String("work_dir", localStore.WorkDir()),
	)
	return localStore, nil
}
