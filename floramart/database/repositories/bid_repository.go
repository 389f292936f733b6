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

type BidRepository interface {
	Insert(ctx context.Context, bid *models.Bid) error
	GetByID(ctx context.Context, id int64) (*models.Bid, error)
	WinningBid(ctx context.Context, auctionID int64) (*models.Bid, error)
	HighestActive(ctx context.Context, auctionID int64) (*models.Bid, error)
	DemoteWinning(ctx context.Context, auctionID int64) error
	DemoteOthers(ctx context.Context, auctionID int64, keepBidID int64) error
	SetWinning(ctx context.Context, bidID int64, winning bool) error
	Retract(ctx context.Context, bidID int64) error
	ListByAuction(ctx context.Context, auctionID int64) ([]*models.Bid, error)
	ListByBidder(ctx context.Context, bidderID int64) ([]*models.Bid, error)
	AggregateBidders(ctx context.Context, auctionID int64, limit int) ([]*models.BidderSummary, error)
}

type bidRepository struct {
	db *bun.DB
}

func NewBidRepository(db *bun.DB) BidRepository {
	return &bidRepository{db: db}
}

func (r *bidRepository) Insert(ctx context.Context, bid *models.Bid) error {
	if bid.CreatedAt.IsZero() {
		bid.CreatedAt = time.Now()
	}
	_, err := idb(ctx, r.db).NewInsert().Model(bid).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	return nil
}

func (r *bidRepository) GetByID(ctx context.Context, id int64) (*models.Bid, error) {
	bid := new(models.Bid)
	err := idb(ctx, r.db).NewSelect().
		Model(bid).
		Where("b.id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get bid: %w", err)
	}
	return bid, nil
}

// WinningBid returns the standing winner: the single bid flagged winning
// among non-retracted bids, or nil when the auction has none.
func (r *bidRepository) WinningBid(ctx context.Context, auctionID int64) (*models.Bid, error) {
	bid := new(models.Bid)
	err := idb(ctx, r.db).NewSelect().
		Model(bid).
		Where("b.auction_id = ? AND b.is_winning = true AND b.is_retracted = false", auctionID).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get winning bid: %w", err)
	}
	return bid, nil
}

// HighestActive returns the highest non-retracted bid; earlier bid wins a
// tie on amount.
func (r *bidRepository) HighestActive(ctx context.Context, auctionID int64) (*models.Bid, error) {
	bid := new(models.Bid)
	err := idb(ctx, r.db).NewSelect().
		Model(bid).
		Where("b.auction_id = ? AND b.is_retracted = false", auctionID).
		Order("amount DESC", "created_at ASC").
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get highest bid: %w", err)
	}
	return bid, nil
}

func (r *bidRepository) DemoteWinning(ctx context.Context, auctionID int64) error {
	_, err := idb(ctx, r.db).NewUpdate().
		Model((*models.Bid)(nil)).
		Set("is_winning = false").
		Where("auction_id = ? AND is_winning = true AND is_retracted = false", auctionID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to demote winning bid: %w", err)
	}
	return nil
}

// DemoteOthers clears the winning flag on every bid for the auction
// except the given one.
func (r *bidRepository) DemoteOthers(ctx context.Context, auctionID int64, keepBidID int64) error {
	_, err := idb(ctx, r.db).NewUpdate().
		Model((*models.Bid)(nil)).
		Set("is_winning = false").
		Where("auction_id = ? AND id != ? AND is_winning = true", auctionID, keepBidID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to demote other winning bids: %w", err)
	}
	return nil
}

func (r *bidRepository) SetWinning(ctx context.Context, bidID int64, winning bool) error {
	_, err := idb(ctx, r.db).NewUpdate().
		Model((*models.Bid)(nil)).
		Set("is_winning = ?", winning).
		Where("id = ?", bidID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to set winning flag: %w", err)
	}
	return nil
}

func (r *bidRepository) Retract(ctx context.Context, bidID int64) error {
	_, err := idb(ctx, r.db).NewUpdate().
		Model((*models.Bid)(nil)).
		Set("is_retracted = true").
		Set("is_winning = false").
		Where("id = ?", bidID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to retract bid: %w", err)
	}
	return nil
}

func (r *bidRepository) ListByAuction(ctx context.Context, auctionID int64) ([]*models.Bid, error) {
	var bids []*models.Bid
	err := idb(ctx, r.db).NewSelect().
		Model(&bids).
		Where("b.auction_id = ?", auctionID).
		Order("amount DESC", "created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list auction bids: %w", err)
	}
	return bids, nil
}

func (r *bidRepository) ListByBidder(ctx context.Context, bidderID int64) ([]*models.Bid, error) {
	var bids []*models.Bid
	err := idb(ctx, r.db).NewSelect().
		Model(&bids).
		Where("b.bidder_id = ?", bidderID).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list bidder bids: %w", err)
	}
	return bids, nil
}

// AggregateBidders groups non-retracted bids by bidder, skipping bidders
// whose account has been soft-deleted. Ordered by highest bid, then bid
// count. limit <= 0 returns all bidders.
func (r *bidRepository) AggregateBidders(ctx context.Context, auctionID int64, limit int) ([]*models.BidderSummary, error) {
	var summaries []*models.BidderSummary

	q := idb(ctx, r.db).NewSelect().
		Model((*models.Bid)(nil)).
		ColumnExpr("b.bidder_id").
		ColumnExpr("u.name AS bidder_name").
		ColumnExpr("count(*) AS bid_count").
		ColumnExpr("max(b.amount) AS highest_bid").
		ColumnExpr("sum(b.amount) AS total_bid_amount").
		ColumnExpr("max(b.created_at) AS last_bid_at").
		Join("JOIN users AS u ON u.id = b.bidder_id").
		Where("b.auction_id = ? AND b.is_retracted = false", auctionID).
		Where("u.deleted_at IS NULL").
		GroupExpr("b.bidder_id, u.name").
		OrderExpr("highest_bid DESC, bid_count DESC")

	if limit > 0 {
		q = q.Limit(limit)
	}

	if err := q.Scan(ctx, &summaries); err != nil {
		return nil, fmt.Errorf("failed to aggregate bidders: %w", err)
	}
	return summaries, nil
}
