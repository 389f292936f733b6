package auction

import (
	"context"

	"github.com/floramart/floramart/floramart/database/models"
	"github.com/floramart/floramart/floramart/errs"
)

const (
	winnersLimit        = 3
	maxLeaderboardLimit = 100
)

// Participants returns every distinct bidder on the auction with their bid
// stats, ordered by highest bid then bid count. Retracted bids and deleted
// bidder accounts are excluded.
func (m *Manager) Participants(ctx context.Context, auctionID int64) ([]*models.BidderSummary, error) {
	if err := m.ensureAuctionExists(ctx, auctionID); err != nil {
		return nil, err
	}
	return m.bids.AggregateBidders(ctx, auctionID, 0)
}

// Winners returns the top three bidders, ranked from 1.
func (m *Manager) Winners(ctx context.Context, auctionID int64) ([]*models.BidderSummary, error) {
	if err := m.ensureAuctionExists(ctx, auctionID); err != nil {
		return nil, err
	}

	winners, err := m.bids.AggregateBidders(ctx, auctionID, winnersLimit)
	if err != nil {
		return nil, err
	}
	rank(winners)
	return winners, nil
}

// Leaderboard returns ranked bidder stats with a caller-supplied limit,
// capped at 100. A non-positive limit returns up to the cap.
func (m *Manager) Leaderboard(ctx context.Context, auctionID int64, limit int) ([]*models.BidderSummary, error) {
	if err := m.ensureAuctionExists(ctx, auctionID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	entries, err := m.bids.AggregateBidders(ctx, auctionID, limit)
	if err != nil {
		return nil, err
	}
	rank(entries)
	return entries, nil
}

// BidHistory lists every bid on the auction, retracted included, highest
// first. Retained as an audit trail.
func (m *Manager) BidHistory(ctx context.Context, auctionID int64) ([]*models.Bid, error) {
	if err := m.ensureAuctionExists(ctx, auctionID); err != nil {
		return nil, err
	}
	return m.bids.ListByAuction(ctx, auctionID)
}

func (m *Manager) ensureAuctionExists(ctx context.Context, auctionID int64) error {
	auction, err := m.auctions.GetByID(ctx, auctionID)
	if err != nil {
		return err
	}
	if auction == nil {
		return errs.NotFound("auction %d not found", auctionID)
	}
	return nil
}

func rank(entries []*models.BidderSummary) {
	for i, e := range entries {
		e.Rank = i + 1
	}
}
