// Package storage stores image blobs and hands back their public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pictogram/internal/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ErrNotFound is returned by Delete when no blob exists under the key.
var ErrNotFound = errors.New("blob not found")

// BlobStore is an object store addressed by slash-separated keys.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
}

// ProfileKey is the key of a user's profile photo.
func ProfileKey(userID uint) string {
	return fmt.Sprintf("users/%d.png", userID)
}

// PostPrefix holds every post photo of a user.
func PostPrefix(userID uint) string {
	return fmt.Sprintf("posts/%d/", userID)
}

// StoryPrefix holds every story photo of a user.
func StoryPrefix(userID uint) string {
	return fmt.Sprintf("stories/%d/", userID)
}

// PostKey names a new post photo with the given extension (without the dot).
// The random suffix keeps uploads within the same millisecond apart.
func PostKey(userID uint, at time.Time, ext string) string {
	return fmt.Sprintf("%s%d-%s.%s", PostPrefix(userID), at.UnixMilli(), shortID(), ext)
}

// StoryKey names a new story photo with the given extension (without the dot).
func StoryKey(userID uint, at time.Time, ext string) string {
	return fmt.Sprintf("%s%d-%s.%s", StoryPrefix(userID), at.UnixMilli(), shortID(), ext)
}

func shortID() string {
	return uuid.NewString()[:8]
}

type instrumented struct {
	next BlobStore
}

// Instrument wraps store with spans and blob operation metrics.
func Instrument(store BlobStore) BlobStore {
	return &instrumented{next: store}
}

func (s *instrumented) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	span, ctx := observability.StartSpan(ctx, "blob.put",
		attribute.String("blob.key", key),
		attribute.Int("blob.size", len(data)),
	)
	url, err := s.next.Put(ctx, key, contentType, data)
	span.End(err)
	observability.BlobOperations.WithLabelValues("put", observability.Outcome(err)).Inc()
	return url, err
}

func (s *instrumented) Delete(ctx context.Context, key string) error {
	span, ctx := observability.StartSpan(ctx, "blob.delete", attribute.String("blob.key", key))
	err := s.next.Delete(ctx, key)
	outcome := observability.Outcome(err)
	if errors.Is(err, ErrNotFound) {
		outcome = "not_found"
		span.End(nil)
	} else {
		span.End(err)
	}
	observability.BlobOperations.WithLabelValues("delete", outcome).Inc()
	return err
}

func (s *instrumented) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	span, ctx := observability.StartSpan(ctx, "blob.delete_prefix", attribute.String("blob.prefix", prefix))
	n, err := s.next.DeleteByPrefix(ctx, prefix)
	span.AddAttributes(attribute.Int("blob.deleted", n))
	span.End(err)
	observability.BlobOperations.WithLabelValues("delete_prefix", observability.Outcome(err)).Inc()
	return n, err
}
