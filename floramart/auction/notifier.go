package auction

import (
	"context"

	"github.com/floramart/floramart/floramart/database/models"
)

// Notifier receives auction events after the owning transaction commits.
// Delivery is fire-and-forget; implementations must not block bidding.
type Notifier interface {
	NotifyOutbid(ctx context.Context, auctionID, outbidUserID, newBidderID, amount int64)
	NotifyAuctionEnded(ctx context.Context, auction *models.Auction)
}

type NoopNotifier struct{}

func (NoopNotifier) NotifyOutbid(context.Context, int64, int64, int64, int64) {}

func (NoopNotifier) NotifyAuctionEnded(context.Context, *models.Auction) {}
