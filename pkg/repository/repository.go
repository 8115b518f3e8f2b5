package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/nodeflow-go/pkg/database"
)

var ErrNotFound = errors.New("record not found")

// Filters are exact-match column=value pairs, combined with AND.
type Filters map[string]any

// Repository is the storage contract every usecase depends on.
type Repository[T any] interface {
	Create(ctx context.Context, entity *T) error
	GetBy(ctx context.Context, filters Filters) (*T, error)
	GetAll(ctx context.Context, filters Filters) ([]*T, error)
	UpdateBy(ctx context.Context, filters Filters, fields map[string]any) (*T, error)
	DeleteBy(ctx context.Context, filters Filters) (bool, error)
}

// GormRepository implements Repository on top of gorm. Every call runs on the
// transaction bound to ctx, when there is one.
type GormRepository[T any] struct {
	db      *database.DB
	orderBy string
}

func New[T any](db *database.DB, orderBy string) *GormRepository[T] {
	return &GormRepository[T]{db: db, orderBy: orderBy}
}

func (r *GormRepository[T]) conn(ctx context.Context, filters Filters) *gorm.DB {
	q := r.db.Conn(ctx).Model(new(T))
	if len(filters) > 0 {
		q = q.Where(map[string]any(filters))
	}
	return q
}

func (r *GormRepository[T]) Create(ctx context.Context, entity *T) error {
	if err := r.db.Conn(ctx).Create(entity).Error; err != nil {
		return fmt.Errorf("create: %w", err)
	}
	return nil
}

func (r *GormRepository[T]) GetBy(ctx context.Context, filters Filters) (*T, error) {
	var entity T
	err := r.conn(ctx, filters).Take(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	return &entity, nil
}

func (r *GormRepository[T]) GetAll(ctx context.Context, filters Filters) ([]*T, error) {
	q := r.conn(ctx, filters)
	if r.orderBy != "" {
		q = q.Order(r.orderBy)
	}

	entities := make([]*T, 0)
	if err := q.Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("get all: %w", err)
	}
	return entities, nil
}

// UpdateBy applies fields to the first row matching filters and returns the
// row as stored afterwards. Empty fields perform no write.
func (r *GormRepository[T]) UpdateBy(ctx context.Context, filters Filters, fields map[string]any) (*T, error) {
	entity, err := r.GetBy(ctx, filters)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return entity, nil
	}

	if err := r.db.Conn(ctx).Model(entity).Updates(fields).Error; err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}

	// Take on a struct with its primary key set reloads that row.
	if err := r.db.Conn(ctx).Take(entity).Error; err != nil {
		return nil, fmt.Errorf("reload: %w", err)
	}
	return entity, nil
}

func (r *GormRepository[T]) DeleteBy(ctx context.Context, filters Filters) (bool, error) {
	if len(filters) == 0 {
		return false, errors.New("delete: refusing to delete without filters")
	}
	res := r.db.Conn(ctx).Where(map[string]any(filters)).Delete(new(T))
	if res.Error != nil {
		return false, fmt.Errorf("delete: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// GetOr is GetBy with ErrNotFound replaced by notFound.
func GetOr[T any](ctx context.Context, repo Repository[T], filters Filters, notFound error) (*T, error) {
	entity, err := repo.GetBy(ctx, filters)
	if errors.Is(err, ErrNotFound) {
		return nil, notFound
	}
	return entity, err
}

// UpdateOr is UpdateBy with ErrNotFound replaced by notFound.
func UpdateOr[T any](ctx context.Context, repo Repository[T], filters Filters, fields map[string]any, notFound error) (*T, error) {
	entity, err := repo.UpdateBy(ctx, filters, fields)
	if errors.Is(err, ErrNotFound) {
		return nil, notFound
	}
	return entity, err
}

// DeleteOr is DeleteBy returning notFound when no row matched.
func DeleteOr[T any](ctx context.Context, repo Repository[T], filters Filters, notFound error) error {
	deleted, err := repo.DeleteBy(ctx, filters)
	if err != nil {
		return err
	}
	if !deleted {
		return notFound
	}
	return nil
}
