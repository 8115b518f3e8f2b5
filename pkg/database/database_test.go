package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeflow-go/pkg/config"
	"github.com/nodeflow-go/pkg/logger"
)

type document struct {
	ID   int64 `gorm:"primaryKey"`
	Name string
	Data JSONMap
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(config.DatabaseConfig{Driver: DriverSQLite, Path: ":memory:"}, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(&document{}))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(config.DatabaseConfig{Driver: "oracle"}, logger.NewNop())
	assert.Error(t, err)
}

func TestTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("commits", func(t *testing.T) {
		db := setupTestDB(t)
		err := db.Transaction(ctx, func(ctx context.Context) error {
			return db.Conn(ctx).Create(&document{Name: "a"}).Error
		})
		require.NoError(t, err)

		var count int64
		require.NoError(t, db.Conn(ctx).Model(&document{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db := setupTestDB(t)
		boom := errors.New("boom")
		err := db.Transaction(ctx, func(ctx context.Context) error {
			require.NoError(t, db.Conn(ctx).Create(&document{Name: "a"}).Error)
			return boom
		})
		assert.ErrorIs(t, err, boom)

		var count int64
		require.NoError(t, db.Conn(ctx).Model(&document{}).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("nested call joins outer transaction", func(t *testing.T) {
		db := setupTestDB(t)
		boom := errors.New("boom")
		err := db.Transaction(ctx, func(ctx context.Context) error {
			inner := db.Transaction(ctx, func(ctx context.Context) error {
				return db.Conn(ctx).Create(&document{Name: "inner"}).Error
			})
			require.NoError(t, inner)
			return boom
		})
		assert.ErrorIs(t, err, boom)

		var count int64
		require.NoError(t, db.Conn(ctx).Model(&document{}).Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestJSONMap(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	doc := &document{Name: "a", Data: JSONMap{"x": float64(1)}}
	require.NoError(t, db.Conn(ctx).Create(doc).Error)

	require.NoError(t, db.Conn(ctx).Model(doc).Updates(map[string]any{
		"data": JSONMap{"y": "two"},
	}).Error)

	var got document
	require.NoError(t, db.Conn(ctx).First(&got, doc.ID).Error)
	assert.Equal(t, JSONMap{"y": "two"}, got.Data)

	var empty document
	require.NoError(t, db.Conn(ctx).Create(&document{Name: "b"}).Error)
	require.NoError(t, db.Conn(ctx).Where("name = ?", "b").First(&empty).Error)
	assert.Nil(t, empty.Data)
}

func TestPing(t *testing.T) {
	db := setupTestDB(t)
	assert.NoError(t, db.Ping(context.Background()))
}
