// Package bootstrap wires the process-wide collaborators shared by the commands.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"pictogram/internal/cache"
	"pictogram/internal/config"
	"pictogram/internal/database"
	"pictogram/internal/imaging"
	"pictogram/internal/mailer"
	"pictogram/internal/middleware"
	"pictogram/internal/observability"
	"pictogram/internal/server"
	"pictogram/internal/storage"
)

// Runtime holds the initialized dependencies and how to release them.
type Runtime struct {
	Deps            server.Deps
	ShutdownTracing func(context.Context) error
}

// InitRuntime configures logging and tracing, connects the database and Redis,
// and builds the blob store, mailer and image worker pool.
func InitRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	middleware.Logger = middleware.NewLogger(os.Stdout, cfg.Env, os.Getenv("LOG_LEVEL"))

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "pictogram-api",
		ServiceVersion: "1.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Redis is optional; the cache and the revocation list degrade without it.
	cache.InitRedis(cfg.RedisURL)
	rdb := cache.GetClient()

	blobs, mediaDir, err := NewBlobStore(ctx, cfg)
	if err != nil {
		database.Close(db)
		return nil, err
	}

	return &Runtime{
		Deps: server.Deps{
			DB:       db,
			Redis:    rdb,
			Blobs:    blobs,
			Mailer:   mailer.New(cfg),
			Images:   imaging.NewPool(cfg.ImageWorkers),
			MediaDir: mediaDir,
		},
		ShutdownTracing: shutdownTracing,
	}, nil
}

// NewBlobStore builds the configured blob store wrapped with instrumentation.
// The returned directory is non-empty for the local driver.
func NewBlobStore(ctx context.Context, cfg *config.Config) (storage.BlobStore, string, error) {
	switch cfg.BlobDriver {
	case "s3":
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		if err != nil {
			return nil, "", fmt.Errorf("blob storage init failed: %w", err)
		}
		middleware.Logger.Info("Blob storage ready", slog.String("driver", "s3"), slog.String("bucket", cfg.S3Bucket))
		return storage.Instrument(s3Store), "", nil
	default:
		local, err := storage.NewLocalStore(cfg.LocalBlobDir, cfg.LocalBlobBaseURL)
		if err != nil {
			return nil, "", fmt.Errorf("blob storage init failed: %w", err)
		}
		middleware.Logger.Info("Blob storage ready", slog.String("driver", "local"), slog.String("dir", local.Dir()))
		return storage.Instrument(local), local.Dir(), nil
	}
}
