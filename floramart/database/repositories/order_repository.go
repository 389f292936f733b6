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

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	GetByAuction(ctx context.Context, auctionID int64) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID int64) ([]*models.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, status models.OrderStatus) (bool, error)
}

type orderRepository struct {
	db *bun.DB
}

func NewOrderRepository(db *bun.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	order.CreatedAt = time.Now()
	order.UpdatedAt = time.Now()
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}

	_, err := idb(ctx, r.db).NewInsert().Model(order).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	order := new(models.Order)
	err := idb(ctx, r.db).NewSelect().
		Model(order).
		Where("o.id = ? AND o.deleted_at IS NULL", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

func (r *orderRepository) GetByAuction(ctx context.Context, auctionID int64) (*models.Order, error) {
	order := new(models.Order)
	err := idb(ctx, r.db).NewSelect().
		Model(order).
		Where("o.auction_id = ? AND o.deleted_at IS NULL", auctionID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order by auction: %w", err)
	}
	return order, nil
}

func (r *orderRepository) ListByBuyer(ctx context.Context, buyerID int64) ([]*models.Order, error) {
	var orders []*models.Order
	err := idb(ctx, r.db).NewSelect().
		Model(&orders).
		Where("o.buyer_id = ? AND o.deleted_at IS NULL", buyerID).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list buyer orders: %w", err)
	}
	return orders, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, orderID int64, status models.OrderStatus) (bool, error) {
	result, err := idb(ctx, r.db).NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now()).
		Where("id = ? AND deleted_at IS NULL", orderID).
		Exec(ctx)

	if err != nil {
		return false, fmt.Errorf("failed to update order status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}
