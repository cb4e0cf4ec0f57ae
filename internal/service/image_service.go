package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"pictogram/internal/config"
	"pictogram/internal/featureflags"
	"pictogram/internal/imaging"
	"pictogram/internal/middleware"
	"pictogram/internal/models"
	"pictogram/internal/storage"
)

// DefaultImageMaxUploadSizeMB applies when the configuration leaves the limit unset.
const DefaultImageMaxUploadSizeMB = 10

// StoredImage is a rendition written to the blob store.
type StoredImage struct {
	Key string
	URL string
}

// ImageService validates uploads, renders them on the bounded pool and
// writes the result to the blob store.
type ImageService struct {
	pool               *imaging.Pool
	blobs              storage.BlobStore
	flags              *featureflags.Manager
	maxUploadSizeBytes int64
	now                func() time.Time
}

// NewImageService wires the image pipeline. cfg may be nil.
func NewImageService(pool *imaging.Pool, blobs storage.BlobStore, flags *featureflags.Manager, cfg *config.Config) *ImageService {
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB
	if cfg != nil && cfg.ImageMaxUploadSizeMB > 0 {
		maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
	}
	if pool == nil {
		pool = imaging.NewPool(0)
	}
	return &ImageService{
		pool:               pool,
		blobs:              blobs,
		flags:              flags,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
		now:                time.Now,
	}
}

// presetFor switches post and story renditions to WebP for users in the rollout.
func (s *ImageService) presetFor(base imaging.Preset, userID uint) imaging.Preset {
	if base.Name == imaging.ProfilePreset.Name {
		return base
	}
	if s.flags.Enabled(featureflags.WebPUploads, userID) {
		return base.AsWebP()
	}
	return base
}

// Store renders content with preset and writes it under the key built by keyFor.
// Invalid input is a validation error; a blob store failure is Unprocessable
// with failMsg.
func (s *ImageService) Store(
	ctx context.Context,
	userID uint,
	content []byte,
	preset imaging.Preset,
	keyFor func(ext string) string,
	failMsg string,
) (*StoredImage, error) {
	if err := imaging.Validate(content, s.maxUploadSizeBytes); err != nil {
		return nil, err
	}

	rendition, err := s.pool.Render(ctx, content, s.presetFor(preset, userID))
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, models.NewInternalError(err)
	}

	key := keyFor(string(rendition.Format))
	url, err := s.blobs.Put(ctx, key, rendition.Format.ContentType(), rendition.Data)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "blob upload failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, models.NewUnprocessableError(failMsg, err)
	}
	return &StoredImage{Key: key, URL: url}, nil
}

// Discard removes a stored image whose owning record could not be written.
func (s *ImageService) Discard(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		middleware.Logger.WarnContext(ctx, "orphaned blob left behind",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// Now is the clock used for blob key timestamps.
func (s *ImageService) Now() time.Time {
	return s.now()
}
