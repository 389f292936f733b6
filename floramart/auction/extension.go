package auction

import (
	"context"
	"log/slog"
	"time"

	"github.com/floramart/floramart/floramart/database/models"
)

// ExtendIfNeeded pushes the auction deadline out when a bid lands inside the
// extension window. The update is conditional on the version read here; a
// stale write affects zero rows and is absorbed as a lost race. Returns
// whether an extension actually happened.
func (m *Manager) ExtendIfNeeded(ctx context.Context, auctionID int64) (bool, error) {
	auction, err := m.auctions.GetByID(ctx, auctionID)
	if err != nil {
		return false, err
	}
	if auction == nil || auction.Status != models.AuctionStatusActive || !auction.AutoExtend {
		return false, nil
	}

	now := m.now()
	timeUntilEnd := auction.EndTime.Sub(now)
	window := time.Duration(auction.ExtendMinutes) * time.Minute

	// Already expired: the sweeper owns that transition, not this policy.
	if timeUntilEnd <= 0 {
		return false, nil
	}
	if timeUntilEnd > window {
		return false, nil
	}

	newEnd := now.Add(window)
	extended, err := m.auctions.ExtendEndTime(ctx, auctionID, auction.Version, newEnd)
	if err != nil {
		return false, err
	}
	if !extended {
		// Another writer advanced the version first. Expected under
		// concurrency; the next bid or sweep re-evaluates.
		slog.Debug("Auction extension lost version race",
			slog.String("type", "auction"),
			slog.Int64("auction_id", auctionID),
			slog.Int64("version", auction.Version))
		return false, nil
	}

	slog.Info("Auction extended",
		slog.String("type", "auction"),
		slog.Int64("auction_id", auctionID),
		slog.Time("new_end_time", newEnd))
	return true, nil
}
