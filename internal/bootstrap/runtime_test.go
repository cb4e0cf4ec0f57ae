package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"pictogram/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBlobStore_Local(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blobs")
	cfg := &config.Config{
		BlobDriver:       "local",
		LocalBlobDir:     dir,
		LocalBlobBaseURL: "http://localhost:8375/media/",
	}

	store, mediaDir, err := NewBlobStore(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, dir, mediaDir)

	url, err := store.Put(context.Background(), "users/1.png", "image/png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8375/media/users/1.png", url)

	_, err = os.Stat(filepath.Join(dir, "users", "1.png"))
	assert.NoError(t, err)
}

func TestNewBlobStore_S3RequiresBucket(t *testing.T) {
	_, _, err := NewBlobStore(context.Background(), &config.Config{BlobDriver: "s3"})
	assert.Error(t, err)
}

func TestInitRuntime_SQLite(t *testing.T) {
	cfg := &config.Config{
		Env:              "test",
		DBDriver:         "sqlite",
		SQLitePath:       filepath.Join(t.TempDir(), "pictogram.db"),
		RedisURL:         "127.0.0.1:1",
		BlobDriver:       "local",
		LocalBlobDir:     t.TempDir(),
		LocalBlobBaseURL: "http://localhost:8375/media",
		MailDriver:       "log",
		ImageWorkers:     1,
	}

	rt, err := InitRuntime(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = rt.ShutdownTracing(context.Background())
		if sqlDB, err := rt.Deps.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	assert.NotNil(t, rt.Deps.DB)
	assert.Nil(t, rt.Deps.Redis, "unreachable redis leaves the cache disabled")
	assert.NotNil(t, rt.Deps.Blobs)
	assert.NotNil(t, rt.Deps.Mailer)
	assert.NotNil(t, rt.Deps.Images)
	assert.Equal(t, cfg.LocalBlobDir, rt.Deps.MediaDir)
}
