package database

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"pictogram/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, Migrate(db))
	return db
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	db := openSQLite(t)
	for _, m := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(m), "missing table for %T", m)
	}
}

func TestFollowRejectsSelfEdge(t *testing.T) {
	db := openSQLite(t)
	err := db.Create(&models.Follow{FollowerID: 1, FollowingID: 1}).Error
	assert.Error(t, err)
}

func TestLikePairIsUnique(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, db.Create(&models.Like{UserID: 1, PostID: 2}).Error)
	assert.Error(t, db.Create(&models.Like{UserID: 1, PostID: 2}).Error)
}

func TestWithTx(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		err := WithTx(ctx, db, func(tx *gorm.DB) error {
			return tx.Create(&models.Follow{FollowerID: 1, FollowingID: 2}).Error
		})
		require.NoError(t, err)

		var count int64
		db.Model(&models.Follow{}).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := WithTx(ctx, db, func(tx *gorm.DB) error {
			if err := tx.Create(&models.Follow{FollowerID: 3, FollowingID: 4}).Error; err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		var count int64
		db.Model(&models.Follow{}).Where("follower_id = ?", 3).Count(&count)
		assert.Zero(t, count)
	})
}

func TestCustomGormLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	l := NewGormLogger(slog.New(slog.NewTextHandler(&buf, nil)), logger.Warn)
	ctx := context.Background()
	sql := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(ctx, time.Now(), sql, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	l.Trace(ctx, time.Now(), sql, errors.New("syntax error"))
	assert.Contains(t, buf.String(), "GORM query error")

	buf.Reset()
	l.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	assert.Contains(t, buf.String(), "GORM slow query")

	buf.Reset()
	l.LogMode(logger.Silent).Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	assert.Empty(t, buf.String())
}
