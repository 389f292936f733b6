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

// AuctionFilter narrows auction listings. Zero values mean "no constraint".
type AuctionFilter struct {
	Status       models.AuctionStatus
	EndingBefore time.Time
	EndingAfter  time.Time
	CreatorID    int64
	Limit        int
	Offset       int
}

type AuctionRepository interface {
	Create(ctx context.Context, auction *models.Auction) error
	GetByID(ctx context.Context, id int64) (*models.Auction, error)
	GetByReference(ctx context.Context, reference string) (*models.Auction, error)
	GetForUpdate(ctx context.Context, id int64) (*models.Auction, error)
	List(ctx context.Context, filter AuctionFilter) ([]*models.Auction, error)
	ActiveByProduct(ctx context.Context, productID int64) (*models.Auction, error)
	Update(ctx context.Context, auction *models.Auction) error
	ApplyBid(ctx context.Context, auctionID int64, amount int64, at time.Time) error
	SetCurrentPrice(ctx context.Context, auctionID int64, price int64) error
	ExtendEndTime(ctx context.Context, auctionID int64, version int64, newEnd time.Time) (bool, error)
	MarkEnded(ctx context.Context, auctionID int64, winnerID *int64) (bool, error)
	Cancel(ctx context.Context, auctionID int64) error
	SoftDelete(ctx context.Context, auctionID int64, actorID int64) error
	ExpiredActive(ctx context.Context, now time.Time, limit int) ([]*models.Auction, error)
	IncrementViews(ctx context.Context, auctionID int64) error
}

type auctionRepository struct {
	db *bun.DB
}

func NewAuctionRepository(db *bun.DB) AuctionRepository {
	return &auctionRepository{db: db}
}

func (r *auctionRepository) Create(ctx context.Context, auction *models.Auction) error {
	auction.CreatedAt = time.Now()
	auction.UpdatedAt = time.Now()
	auction.Status = models.AuctionStatusActive

	_, err := idb(ctx, r.db).NewInsert().Model(auction).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create auction: %w", err)
	}
	return nil
}

func (r *auctionRepository) GetByID(ctx context.Context, id int64) (*models.Auction, error) {
	auction := new(models.Auction)
	err := idb(ctx, r.db).NewSelect().
		Model(auction).
		Where("a.id = ? AND a.deleted_at IS NULL", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	return auction, nil
}

func (r *auctionRepository) GetByReference(ctx context.Context, reference string) (*models.Auction, error) {
	auction := new(models.Auction)
	err := idb(ctx, r.db).NewSelect().
		Model(auction).
		Where("a.reference = ? AND a.deleted_at IS NULL", reference).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get auction by reference: %w", err)
	}
	return auction, nil
}

// GetForUpdate locks the auction row for the duration of the ambient
// transaction. Callers must be inside RunInTx.
func (r *auctionRepository) GetForUpdate(ctx context.Context, id int64) (*models.Auction, error) {
	auction := new(models.Auction)
	err := idb(ctx, r.db).NewSelect().
		Model(auction).
		Where("a.id = ? AND a.deleted_at IS NULL", id).
		For("UPDATE").
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get auction for update: %w", err)
	}
	return auction, nil
}

func (r *auctionRepository) List(ctx context.Context, filter AuctionFilter) ([]*models.Auction, error) {
	var auctions []*models.Auction

	q := idb(ctx, r.db).NewSelect().
		Model(&auctions).
		Where("a.deleted_at IS NULL")

	if filter.Status != "" {
		q = q.Where("a.status = ?", filter.Status)
	}
	if !filter.EndingBefore.IsZero() {
		q = q.Where("a.end_time < ?", filter.EndingBefore)
	}
	if !filter.EndingAfter.IsZero() {
		q = q.Where("a.end_time > ?", filter.EndingAfter)
	}
	if filter.CreatorID != 0 {
		q = q.Where("a.creator_id = ?", filter.CreatorID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	if err := q.Order("created_at DESC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list auctions: %w", err)
	}
	return auctions, nil
}

func (r *auctionRepository) ActiveByProduct(ctx context.Context, productID int64) (*models.Auction, error) {
	auction := new(models.Auction)
	err := idb(ctx, r.db).NewSelect().
		Model(auction).
		Where("a.product_id = ? AND a.status = ? AND a.deleted_at IS NULL",
			productID, models.AuctionStatusActive).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active auction for product: %w", err)
	}
	return auction, nil
}

func (r *auctionRepository) Update(ctx context.Context, auction *models.Auction) error {
	auction.UpdatedAt = time.Now()
	_, err := idb(ctx, r.db).NewUpdate().
		Model(auction).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update auction: %w", err)
	}
	return nil
}

// ApplyBid records a committed bid on the auction row.
func (r *auctionRepository) ApplyBid(ctx context.Context, auctionID int64, amount int64, at time.Time) error {
	_, err := idb(ctx, r.db).NewUpdate().
		Model((*models.Auction)(nil)).
		Set("current_price = ?", amount).
		Set("total_bids = total_bids + 1").
		Set("last_bid_at = ?", at).
		Set("updated_at = ?", at).
		Where("id = ?", auctionID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to apply bid to auction: %w", err)
	}
	return nil
}

func (r *auctionRepository) SetCurrentPrice(ctx context.Context, auctionID int64, price int64) error {
	_, err := idb(ctx, r.db).NewUpdate().
		Model((*models.Auction)(nil)).
		Set("current_price = ?", price).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", auctionID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to set current price: %w", err)
	}
	return nil
}

// ExtendEndTime pushes end_time out, guarded by the version the caller read.
// A zero rows-affected result means another writer advanced the version
// first; the caller treats that as a lost race, not an error.
func (r *auctionRepository) ExtendEndTime(ctx context.Context, auctionID int64, version int64, newEnd time.Time) (bool, error) {
	result, err := idb(ctx, r.db).NewUpdate().
		Model((*models.Auction)(nil)).
		Set("end_time = ?", newEnd).
		Set("version = version + 1").
		Set("updated_at = ?", time.Now()).
		Where("id = ? AND version = ? AND status = ?",
			auctionID, version, models.AuctionStatusActive).
		Exec(ctx)

	if err != nil {
		return false, fmt.Errorf("failed to extend auction end time: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

// MarkEnded transitions an active auction to ended and assigns the winner.
// Returns false when the auction was no longer active.
func (r *auctionRepository) MarkEnded(ctx context.Context, auctionID int64, winnerID *int64) (bool, error) {
	result, err := idb(ctx, r.db).NewUpdate().
		Model((*models.Auction)(nil)).
		Set("status = ?", models.AuctionStatusEnded).
		Set("winner_id = ?", winnerID).
		Set("updated_at = ?", time.Now()).
		Where("id = ? AND status = ?", auctionID, models.AuctionStatusActive).
		Exec(ctx)

	if err != nil {
		return false, fmt.Errorf("failed to end auction: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

func (r *auctionRepository) Cancel(ctx context.Context, auctionID int64) error {
	_, err := idb(ctx, r.db).NewUpdate().
		Model((*models.Auction)(nil)).
		Set("status = ?", models.AuctionStatusCancelled).
		Set("updated_at = ?", time.Now()).
		Where("id = ? AND status = ?", auctionID, models.AuctionStatusActive).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to cancel auction: %w", err)
	}
	return nil
}

func (r *auctionRepository) SoftDelete(ctx context.Context, auctionID int64, actorID int64) error {
	now := time.Now()
	_, err := idb(ctx, r.db).NewUpdate().
		Model((*models.Auction)(nil)).
		Set("deleted_at = ?", now).
		Set("deleted_by = ?", actorID).
		Set("updated_at = ?", now).
		Where("id = ? AND deleted_at IS NULL", auctionID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to soft delete auction: %w", err)
	}
	return nil
}

func (r *auctionRepository) ExpiredActive(ctx context.Context, now time.Time, limit int) ([]*models.Auction, error) {
	var auctions []*models.Auction

	err := idb(ctx, r.db).NewSelect().
		Model(&auctions).
		Where("a.status = ?", models.AuctionStatusActive).
		Where("a.end_time <= ?", now).
		Where("a.deleted_at IS NULL").
		Order("end_time ASC").
		Limit(limit).
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get expired auctions: %w", err)
	}
	return auctions, nil
}

func (r *auctionRepository) IncrementViews(ctx context.Context, auctionID int64) error {
	_, err := idb(ctx, r.db).NewUpdate().
		Model((*models.Auction)(nil)).
		Set("views = views + 1").
		Where("id = ?", auctionID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to increment views: %w", err)
	}
	return nil
}
