package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/m3rciful/relaybot/core/bootstrap"
	"github.com/m3rciful/relaybot/core/logger"
	"github.com/m3rciful/relaybot/internal/docstore"
)

// databaseDriver maps a storage backend to the SQL driver bootstrap must open.
func databaseDriver(backend string) string {
	switch backend {
	case BackendSQLite:
		return bootstrap.DriverSQLite
	case BackendPostgres:
		return bootstrap.DriverPostgres
	default:
		return bootstrap.DriverNone
	}
}

// openBackend builds the document backend for cfg. db is the handle bootstrap
// opened for SQL backends and nil otherwise.
func openBackend(ctx context.Context, cfg *Config, boot *bootstrap.Result) (docstore.Backend, error) {
	var (
		backend docstore.Backend
		err     error
	)
	switch cfg.Storage.Backend {
	case BackendMemory:
		backend = docstore.NewMemoryBackend()
	case BackendFile:
		backend, err = docstore.NewFileBackend(cfg.Storage.Dir)
	case BackendSQLite, BackendPostgres:
		if boot == nil || boot.DB == nil {
			return nil, fmt.Errorf("app: %s backend without database handle", cfg.Storage.Backend)
		}
		backend = docstore.NewSQLBackend(boot.DB)
	case BackendS3:
		backend, err = openS3(ctx, cfg.S3)
	default:
		err = fmt.Errorf("app: unknown storage backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "store", "storage.open",
		slog.String("backend", backend.Kind()),
	)
	return backend, nil
}

func openS3(ctx context.Context, cfg S3Config) (*docstore.S3Backend, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: !cfg.Insecure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("app: init s3 client: %w", err)
	}
	return docstore.NewS3Backend(ctx, client, cfg.Bucket, cfg.Prefix)
}
