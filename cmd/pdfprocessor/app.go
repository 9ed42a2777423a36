package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdfprocessor/service/internal/blobcopy"
	"github.com/pdfprocessor/service/internal/config"
	"github.com/pdfprocessor/service/internal/storage"
)

// app holds the process-wide resources shared by every invocation. It is
// built once before any request is served.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	store  storage.Service
	copier *blobcopy.Handler
}

func setup(ctx context.Context) (*app, error) {
	cfg := config.Load()

	log, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	if !cfg.DotEnvLoaded {
		log.Debug("no .env file found, reading from environment")
	}

	store, err := newStorage(cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("object storage init failed: %w", err)
	}
	if cfg.EnsureContainers {
		if err := store.EnsureContainers(ctx, config.SourceContainer, config.DestinationContainer); err != nil {
			_ = log.Sync()
			return nil, fmt.Errorf("ensure containers: %w", err)
		}
	}
	log.Info("storage ready", zap.String("backend", cfg.StorageBackend))

	return &app{
		cfg:    cfg,
		log:    log,
		store:  store,
		copier: blobcopy.NewHandler(blobcopy.FromService(store, config.DestinationContainer), log),
	}, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if !cfg.IsProduction() {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.LogLevel, err)
	}
	zcfg.Level = level
	return zcfg.Build()
}

func newStorage(cfg *config.Config, log *zap.Logger) (storage.Service, error) {
	switch cfg.StorageBackend {
	case config.BackendAzure:
		svc, err := storage.NewAzureService(storage.AzureConfig{
			ConnectionString: cfg.StorageConnection,
			ServiceURI:       cfg.StorageServiceURI,
		}, log)
		if err != nil {
			return nil, err
		}
		return svc, nil
	case config.BackendMinio:
		svc, err := storage.NewMinioService(storage.MinioConfig{
			Endpoint:  cfg.StorageEndpoint,
			AccessKey: cfg.StorageAccessKey,
			SecretKey: cfg.StorageSecretKey,
			UseSSL:    cfg.StorageUseSSL,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil
	case config.BackendMemory:
		return storage.NewMemoryService(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
