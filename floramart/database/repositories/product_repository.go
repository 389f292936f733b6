package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/floramart/floramart/floramart/database/models"
	"github.com/uptrace/bun"
)

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	ListBySeller(ctx context.Context, sellerID int64) ([]*models.Product, error)
	ListActive(ctx context.Context, limit, offset int) ([]*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	SoftDelete(ctx context.Context, id int64) error
}

type productRepository struct {
	db *bun.DB
}

func NewProductRepository(db *bun.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *models.Product) error {
	product.CreatedAt = time.Now()
	product.UpdatedAt = time.Now()
	if product.Status == "" {
		product.Status = models.ProductStatusActive
	}

	_, err := idb(ctx, r.db).NewInsert().Model(product).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *productRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	product := new(models.Product)
	err := idb(ctx, r.db).NewSelect().
		Model(product).
		Where("p.id = ? AND p.deleted_at IS NULL", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func (r *productRepository) ListBySeller(ctx context.Context, sellerID int64) ([]*models.Product, error) {
	var products []*models.Product
	err := idb(ctx, r.db).NewSelect().
		Model(&products).
		Where("p.seller_id = ? AND p.deleted_at IS NULL", sellerID).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list seller products: %w", err)
	}
	return products, nil
}

func (r *productRepository) ListActive(ctx context.Context, limit, offset int) ([]*models.Product, error) {
	var products []*models.Product

	q := idb(ctx, r.db).NewSelect().
		Model(&products).
		Where("p.status = ? AND p.deleted_at IS NULL", models.ProductStatusActive).
		Order("created_at DESC")

	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (r *productRepository) Update(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = time.Now()
	_, err := idb(ctx, r.db).NewUpdate().
		Model(product).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

func (r *productRepository) SoftDelete(ctx context.Context, id int64) error {
	now := time.Now()
	_, err := idb(ctx, r.db).NewUpdate().
		Model((*models.Product)(nil)).
		Set("deleted_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ? AND deleted_at IS NULL", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to soft delete product: %w", err)
	}
	return nil
}
