package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeflow-go/pkg/config"
	"github.com/nodeflow-go/pkg/database"
	"github.com/nodeflow-go/pkg/logger"
)

type widget struct {
	ID       int64 `gorm:"primaryKey"`
	Category string
	Name     string
	Attrs    database.JSONMap
}

func setupTestRepo(t *testing.T) *GormRepository[widget] {
	t.Helper()

	db, err := database.New(config.DatabaseConfig{Driver: database.DriverSQLite, Path: ":memory:"}, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(&widget{}))
	t.Cleanup(func() { _ = db.Close() })

	return New[widget](db, "id")
}

func TestGormRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		repo := setupTestRepo(t)
		w := &widget{Category: "a", Name: "first"}
		require.NoError(t, repo.Create(ctx, w))
		assert.NotZero(t, w.ID)

		got, err := repo.GetBy(ctx, Filters{"id": w.ID})
		require.NoError(t, err)
		assert.Equal(t, "first", got.Name)
	})

	t.Run("get missing returns ErrNotFound", func(t *testing.T) {
		repo := setupTestRepo(t)
		_, err := repo.GetBy(ctx, Filters{"id": 99})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("get all filters by equality", func(t *testing.T) {
		repo := setupTestRepo(t)
		require.NoError(t, repo.Create(ctx, &widget{Category: "a", Name: "one"}))
		require.NoError(t, repo.Create(ctx, &widget{Category: "b", Name: "two"}))
		require.NoError(t, repo.Create(ctx, &widget{Category: "a", Name: "three"}))

		all, err := repo.GetAll(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, all, 3)

		categoryA, err := repo.GetAll(ctx, Filters{"category": "a"})
		require.NoError(t, err)
		require.Len(t, categoryA, 2)
		assert.Equal(t, "one", categoryA[0].Name)
		assert.Equal(t, "three", categoryA[1].Name)

		none, err := repo.GetAll(ctx, Filters{"category": "z"})
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})

	t.Run("update applies only given fields", func(t *testing.T) {
		repo := setupTestRepo(t)
		w := &widget{Category: "a", Name: "old", Attrs: database.JSONMap{"k": "v"}}
		require.NoError(t, repo.Create(ctx, w))

		updated, err := repo.UpdateBy(ctx, Filters{"id": w.ID}, map[string]any{"name": "new"})
		require.NoError(t, err)
		assert.Equal(t, "new", updated.Name)
		assert.Equal(t, "a", updated.Category)
		assert.Equal(t, database.JSONMap{"k": "v"}, updated.Attrs)

		updated, err = repo.UpdateBy(ctx, Filters{"id": w.ID}, map[string]any{"attrs": database.JSONMap{"n": float64(2)}})
		require.NoError(t, err)
		assert.Equal(t, database.JSONMap{"n": float64(2)}, updated.Attrs)
	})

	t.Run("update with no fields returns current row", func(t *testing.T) {
		repo := setupTestRepo(t)
		w := &widget{Category: "a", Name: "same"}
		require.NoError(t, repo.Create(ctx, w))

		got, err := repo.UpdateBy(ctx, Filters{"id": w.ID}, map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, "same", got.Name)
	})

	t.Run("update missing returns ErrNotFound", func(t *testing.T) {
		repo := setupTestRepo(t)
		_, err := repo.UpdateBy(ctx, Filters{"id": 42}, map[string]any{"name": "x"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete reports whether a row was removed", func(t *testing.T) {
		repo := setupTestRepo(t)
		w := &widget{Category: "a", Name: "gone"}
		require.NoError(t, repo.Create(ctx, w))

		deleted, err := repo.DeleteBy(ctx, Filters{"id": w.ID})
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.DeleteBy(ctx, Filters{"id": w.ID})
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("delete without filters is refused", func(t *testing.T) {
		repo := setupTestRepo(t)
		_, err := repo.DeleteBy(ctx, Filters{})
		assert.Error(t, err)
	})
}

func TestNotFoundHelpers(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)
	errMissing := errors.New("widget not found")

	_, err := GetOr[widget](ctx, repo, Filters{"id": 1}, errMissing)
	assert.ErrorIs(t, err, errMissing)

	_, err = UpdateOr[widget](ctx, repo, Filters{"id": 1}, map[string]any{"name": "x"}, errMissing)
	assert.ErrorIs(t, err, errMissing)

	assert.ErrorIs(t, DeleteOr[widget](ctx, repo, Filters{"id": 1}, errMissing), errMissing)

	w := &widget{Category: "a", Name: "present"}
	require.NoError(t, repo.Create(ctx, w))

	got, err := GetOr[widget](ctx, repo, Filters{"id": w.ID}, errMissing)
	require.NoError(t, err)
	assert.Equal(t, "present", got.Name)
	assert.NoError(t, DeleteOr[widget](ctx, repo, Filters{"id": w.ID}, errMissing))
}
