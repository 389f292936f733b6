package auction

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/floramart/floramart/floramart/database/models"
	"github.com/floramart/floramart/floramart/database/repositories"
	"github.com/floramart/floramart/floramart/errs"
)

const (
	MinAuctionDuration = 1 * time.Hour
	MaxAuctionDuration = 14 * 24 * time.Hour
)

// Manager owns the auction lifecycle: creation, bidding, retraction,
// cancellation. All multi-step mutations run inside a single serializable
// transaction with the auction row locked, so two concurrent bidders can
// never both clear the increment threshold.
type Manager struct {
	tx       repositories.TxRunner
	auctions repositories.AuctionRepository
	bids     repositories.BidRepository
	products repositories.ProductRepository
	notifier Notifier

	now func() time.Time
}

func NewManager(
	tx repositories.TxRunner,
	auctions repositories.AuctionRepository,
	bids repositories.BidRepository,
	products repositories.ProductRepository,
	notifier Notifier,
) *Manager {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &Manager{
		tx:       tx,
		auctions: auctions,
		bids:     bids,
		products: products,
		notifier: notifier,
		now:      time.Now,
	}
}

type CreateAuctionInput struct {
	ProductID     int64
	CreatorID     int64
	StartPrice    int64
	BidIncrement  int64
	MinBidAmount  int64
	DurationHours int
	AutoExtend    bool
	ExtendMinutes int
}

func (m *Manager) CreateAuction(ctx context.Context, in CreateAuctionInput) (*models.Auction, error) {
	if in.StartPrice <= 0 {
		return nil, errs.InvalidArgument("start price must be positive")
	}
	if in.BidIncrement <= 0 {
		return nil, errs.InvalidArgument("bid increment must be positive")
	}
	if in.MinBidAmount <= 0 {
		in.MinBidAmount = in.StartPrice
	}
	if in.MinBidAmount > in.StartPrice {
		return nil, errs.InvalidArgument("Minimum bid amount cannot be greater than start price")
	}
	duration := time.Duration(in.DurationHours) * time.Hour
	if duration < MinAuctionDuration || duration > MaxAuctionDuration {
		return nil, errs.InvalidArgument("auction duration must be between %s and %s",
			MinAuctionDuration, MaxAuctionDuration)
	}
	if in.AutoExtend && in.ExtendMinutes <= 0 {
		return nil, errs.InvalidArgument("extend minutes must be positive when auto extend is enabled")
	}

	var auction *models.Auction
	err := m.tx.RunInTx(ctx, func(ctx context.Context) error {
		product, err := m.products.GetByID(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return errs.NotFound("product %d not found", in.ProductID)
		}
		if product.SellerID != in.CreatorID {
			return errs.Forbidden("only the product owner can auction it")
		}
		if product.Status != models.ProductStatusActive {
			return errs.InvalidState("product is not active")
		}

		existing, err := m.auctions.ActiveByProduct(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if existing != nil {
			return errs.Conflict("product %d already has an active auction", in.ProductID)
		}

		now := m.now()
		auction = &models.Auction{
			Reference:     newReference(),
			ProductID:     in.ProductID,
			CreatorID:     in.CreatorID,
			StartPrice:    in.StartPrice,
			CurrentPrice:  in.StartPrice,
			BidIncrement:  in.BidIncrement,
			MinBidAmount:  in.MinBidAmount,
			StartTime:     now,
			EndTime:       now.Add(duration),
			DurationHours: in.DurationHours,
			AutoExtend:    in.AutoExtend,
			ExtendMinutes: in.ExtendMinutes,
			Status:        models.AuctionStatusActive,
		}
		return m.auctions.Create(ctx, auction)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Auction created",
		slog.String("type", "auction"),
		slog.Int64("auction_id", auction.ID),
		slog.String("reference", auction.Reference),
		slog.Int64("product_id", auction.ProductID),
		slog.Int64("creator_id", auction.CreatorID),
		slog.Int64("start_price", auction.StartPrice))

	return auction, nil
}

// GetAuction loads a live auction and counts the view.
func (m *Manager) GetAuction(ctx context.Context, id int64) (*models.Auction, error) {
	auction, err := m.auctions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if auction == nil {
		return nil, errs.NotFound("auction %d not found", id)
	}

	if err := m.auctions.IncrementViews(ctx, id); err != nil {
		slog.Warn("Failed to count auction view",
			slog.String("type", "auction"),
			slog.Int64("auction_id", id),
			slog.Any("error", err))
	}
	return auction, nil
}

func (m *Manager) ListAuctions(ctx context.Context, filter repositories.AuctionFilter) ([]*models.Auction, error) {
	return m.auctions.List(ctx, filter)
}

// PlaceBid validates and commits a bid. Checks run in a fixed order, each
// failing with a distinct error, all inside one transaction holding the
// auction row lock so price bounds are re-validated against committed state.
func (m *Manager) PlaceBid(ctx context.Context, auctionID, bidderID, amount int64) (*models.Bid, error) {
	var (
		bid        *models.Bid
		outbid     *models.Bid
		autoExtend bool
	)

	err := m.tx.RunInTx(ctx, func(ctx context.Context) error {
		auction, err := m.auctions.GetForUpdate(ctx, auctionID)
		if err != nil {
			return err
		}
		if auction == nil {
			return errs.NotFound("auction %d not found", auctionID)
		}

		now := m.now()
		if !auction.Biddable(now) {
			return errs.InvalidState("bidding is closed for this auction")
		}
		if auction.CreatorID == bidderID {
			return errs.Forbidden("you cannot bid on your own auction")
		}

		minBid := auction.MinimumNextBid()
		if amount < minBid {
			return errs.InvalidArgument("bid must be at least %d", minBid)
		}

		outbid, err = m.bids.WinningBid(ctx, auctionID)
		if err != nil {
			return err
		}
		if err := m.bids.DemoteWinning(ctx, auctionID); err != nil {
			return err
		}

		bid = &models.Bid{
			AuctionID: auctionID,
			BidderID:  bidderID,
			Amount:    amount,
			IsWinning: true,
			CreatedAt: now,
		}
		if err := m.bids.Insert(ctx, bid); err != nil {
			return err
		}

		if err := m.auctions.ApplyBid(ctx, auctionID, amount, now); err != nil {
			return err
		}

		autoExtend = auction.AutoExtend
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Bid placed",
		slog.String("type", "auction"),
		slog.Int64("auction_id", auctionID),
		slog.Int64("bidder_id", bidderID),
		slog.Int64("amount", amount))

	// Anti-snipe check rides on the same logical operation but commits
	// separately, guarded by the auction version.
	if autoExtend {
		if _, err := m.ExtendIfNeeded(ctx, auctionID); err != nil {
			slog.Error("Auction extension check failed",
				slog.String("type", "auction"),
				slog.Int64("auction_id", auctionID),
				slog.Any("error", err))
		}
	}

	if outbid != nil && outbid.BidderID != bidderID {
		m.notifier.NotifyOutbid(ctx, auctionID, outbid.BidderID, bidderID, amount)
	}

	return bid, nil
}

// RetractBid withdraws a bid. The bidder may retract their own bid; the
// auction owner or an admin may remove any bid. When the standing winner is
// retracted, the winner flag and current price are re-derived from the
// remaining non-retracted bids in the same transaction.
func (m *Manager) RetractBid(ctx context.Context, bidID, actorID int64, role models.UserRole) error {
	return m.tx.RunInTx(ctx, func(ctx context.Context) error {
		bid, err := m.bids.GetByID(ctx, bidID)
		if err != nil {
			return err
		}
		if bid == nil {
			return errs.NotFound("bid %d not found", bidID)
		}
		if bid.IsRetracted {
			return errs.InvalidState("bid is already retracted")
		}

		auction, err := m.auctions.GetForUpdate(ctx, bid.AuctionID)
		if err != nil {
			return err
		}
		if auction == nil {
			return errs.NotFound("auction %d not found", bid.AuctionID)
		}
		if auction.Status != models.AuctionStatusActive {
			return errs.InvalidState("bids can only be retracted while the auction is active")
		}

		isOwnBid := bid.BidderID == actorID
		isOwner := auction.CreatorID == actorID
		isAdmin := role == models.UserRoleAdmin
		if !isOwnBid && !isOwner && !isAdmin {
			return errs.Forbidden("you cannot retract this bid")
		}

		if err := m.bids.Retract(ctx, bidID); err != nil {
			return err
		}

		// Re-derive the standing winner and current price from what is left.
		next, err := m.bids.HighestActive(ctx, auction.ID)
		if err != nil {
			return err
		}
		if next != nil {
			if err := m.bids.SetWinning(ctx, next.ID, true); err != nil {
				return err
			}
			return m.auctions.SetCurrentPrice(ctx, auction.ID, next.Amount)
		}
		return m.auctions.SetCurrentPrice(ctx, auction.ID, auction.StartPrice)
	})
}

// CancelAuction cancels an active auction that has not attracted any bids.
func (m *Manager) CancelAuction(ctx context.Context, auctionID, actorID int64, role models.UserRole) error {
	return m.tx.RunInTx(ctx, func(ctx context.Context) error {
		auction, err := m.auctions.GetForUpdate(ctx, auctionID)
		if err != nil {
			return err
		}
		if auction == nil {
			return errs.NotFound("auction %d not found", auctionID)
		}
		if auction.CreatorID != actorID && role != models.UserRoleAdmin {
			return errs.Forbidden("only the auction creator can cancel it")
		}
		if auction.Status != models.AuctionStatusActive {
			return errs.InvalidState("only active auctions can be cancelled")
		}
		if auction.TotalBids > 0 {
			return errs.InvalidState("auction with bids cannot be cancelled")
		}
		return m.auctions.Cancel(ctx, auctionID)
	})
}

type UpdateAuctionInput struct {
	StartPrice    *int64
	MinBidAmount  *int64
	BidIncrement  *int64
	EndTime       *time.Time
	AutoExtend    *bool
	ExtendMinutes *int
}

// UpdateAuction applies a partial update. Price fields are frozen once the
// first bid lands, and end_time may only move forward.
func (m *Manager) UpdateAuction(ctx context.Context, auctionID, actorID int64, role models.UserRole, in UpdateAuctionInput) (*models.Auction, error) {
	var updated *models.Auction
	err := m.tx.RunInTx(ctx, func(ctx context.Context) error {
		auction, err := m.auctions.GetForUpdate(ctx, auctionID)
		if err != nil {
			return err
		}
		if auction == nil {
			return errs.NotFound("auction %d not found", auctionID)
		}
		if auction.CreatorID != actorID && role != models.UserRoleAdmin {
			return errs.Forbidden("only the auction creator can update it")
		}
		if auction.Status != models.AuctionStatusActive {
			return errs.InvalidState("only active auctions can be updated")
		}

		priceChange := in.StartPrice != nil || in.MinBidAmount != nil || in.BidIncrement != nil
		if priceChange && auction.TotalBids > 0 {
			return errs.InvalidState("price settings cannot be changed after bids exist")
		}

		if in.StartPrice != nil {
			if *in.StartPrice <= 0 {
				return errs.InvalidArgument("start price must be positive")
			}
			auction.StartPrice = *in.StartPrice
			auction.CurrentPrice = *in.StartPrice
		}
		if in.MinBidAmount != nil {
			if *in.MinBidAmount > auction.StartPrice {
				return errs.InvalidArgument("Minimum bid amount cannot be greater than start price")
			}
			auction.MinBidAmount = *in.MinBidAmount
		}
		if in.BidIncrement != nil {
			if *in.BidIncrement <= 0 {
				return errs.InvalidArgument("bid increment must be positive")
			}
			auction.BidIncrement = *in.BidIncrement
		}
		if in.EndTime != nil {
			if !in.EndTime.After(auction.EndTime) {
				return errs.InvalidArgument("end time can only be moved forward")
			}
			auction.EndTime = *in.EndTime
			auction.Version++
		}
		if in.AutoExtend != nil {
			auction.AutoExtend = *in.AutoExtend
		}
		if in.ExtendMinutes != nil {
			if *in.ExtendMinutes <= 0 {
				return errs.InvalidArgument("extend minutes must be positive")
			}
			auction.ExtendMinutes = *in.ExtendMinutes
		}

		if err := m.auctions.Update(ctx, auction); err != nil {
			return err
		}
		updated = auction
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteAuction soft-deletes an auction. An active auction with standing
// bids cannot be removed.
func (m *Manager) DeleteAuction(ctx context.Context, auctionID, actorID int64, role models.UserRole) error {
	return m.tx.RunInTx(ctx, func(ctx context.Context) error {
		auction, err := m.auctions.GetForUpdate(ctx, auctionID)
		if err != nil {
			return err
		}
		if auction == nil {
			return errs.NotFound("auction %d not found", auctionID)
		}
		if auction.CreatorID != actorID && role != models.UserRoleAdmin {
			return errs.Forbidden("only the auction creator can delete it")
		}
		if auction.Status == models.AuctionStatusActive && auction.TotalBids > 0 {
			return errs.InvalidState("active auction with bids cannot be deleted")
		}
		return m.auctions.SoftDelete(ctx, auctionID, actorID)
	})
}

func newReference() string {
	return strings.ToUpper(uuid.NewString()[:8])
}

// SetClock overrides the time source. Intended for tests.
func (m *Manager) SetClock(now func() time.Time) {
	if now != nil {
		m.now = now
	}
}
