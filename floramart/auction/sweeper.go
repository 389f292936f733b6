package auction

import (
	"context"
	"log/slog"
	"time"

	"github.com/floramart/floramart/floramart/database/models"
)

// Sweeper periodically finalizes expired auctions: ACTIVE auctions past
// their end_time move to ENDED and get their winner assigned. Each auction
// is finalized in its own transaction so one failure never blocks the rest;
// failed auctions stay ACTIVE-but-expired and are retried next cycle.
type Sweeper struct {
	manager   *Manager
	interval  time.Duration
	batchSize int
	ticker    *time.Ticker
	shutdown  chan struct{}
}

func NewSweeper(manager *Manager, interval time.Duration, batchSize int) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Sweeper{
		manager:   manager,
		interval:  interval,
		batchSize: batchSize,
		shutdown:  make(chan struct{}),
	}
}

// Start launches the sweep loop. Call Shutdown to stop it.
func (s *Sweeper) Start() {
	s.ticker = time.NewTicker(s.interval)
	go func() {
		defer s.ticker.Stop()
		for {
			select {
			case <-s.ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				ended, errs := s.SweepExpired(ctx)
				if len(errs) > 0 {
					slog.Error("Sweep cycle finished with failures",
						slog.String("type", "auction"),
						slog.Int("ended", ended),
						slog.Int("failed", len(errs)))
				} else if ended > 0 {
					slog.Info("Sweep cycle finished",
						slog.String("type", "auction"),
						slog.Int("ended", ended))
				}
				cancel()
			case <-s.shutdown:
				return
			}
		}
	}()
}

func (s *Sweeper) Shutdown() {
	close(s.shutdown)
	slog.Info("Auction sweeper shutdown completed", slog.String("type", "auction"))
}

// SweepExpired finalizes up to one batch of expired auctions. Per-auction
// failures are logged and collected; only the batch query itself is fatal.
// Returns the number of auctions successfully ended.
func (s *Sweeper) SweepExpired(ctx context.Context) (int, []error) {
	m := s.manager

	expired, err := m.auctions.ExpiredActive(ctx, m.now(), s.batchSize)
	if err != nil {
		return 0, []error{err}
	}

	var (
		ended    int
		failures []error
	)
	for _, candidate := range expired {
		auctionCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		finalized, err := s.finalizeAuction(auctionCtx, candidate.ID)
		cancel()

		if err != nil {
			slog.Error("Failed to finalize expired auction",
				slog.String("type", "auction"),
				slog.Int64("auction_id", candidate.ID),
				slog.Any("error", err))
			failures = append(failures, err)
			continue
		}
		if finalized != nil {
			ended++
			m.notifier.NotifyAuctionEnded(ctx, finalized)
		}
	}

	return ended, failures
}

// finalizeAuction ends one auction in its own transaction. Returns the ended
// auction, or nil when another worker got there first.
func (s *Sweeper) finalizeAuction(ctx context.Context, auctionID int64) (*models.Auction, error) {
	m := s.manager

	var finalized *models.Auction
	err := m.tx.RunInTx(ctx, func(ctx context.Context) error {
		auction, err := m.auctions.GetForUpdate(ctx, auctionID)
		if err != nil {
			return err
		}
		if auction == nil || auction.Status != models.AuctionStatusActive {
			return nil
		}

		winning, err := m.bids.WinningBid(ctx, auctionID)
		if err != nil {
			return err
		}

		var winnerID *int64
		if winning != nil {
			winnerID = &winning.BidderID
		}

		endedNow, err := m.auctions.MarkEnded(ctx, auctionID, winnerID)
		if err != nil {
			return err
		}
		if !endedNow {
			return nil
		}

		// Defensive cleanup: no bid other than the winner may stay flagged.
		if winning != nil {
			if err := m.bids.DemoteOthers(ctx, auctionID, winning.ID); err != nil {
				return err
			}
		} else {
			if err := m.bids.DemoteWinning(ctx, auctionID); err != nil {
				return err
			}
		}

		auction.Status = models.AuctionStatusEnded
		auction.WinnerID = winnerID
		finalized = auction

		slog.Info("Auction ended",
			slog.String("type", "auction"),
			slog.Int64("auction_id", auctionID),
			slog.Any("winner_id", winnerID),
			slog.Int64("final_price", auction.CurrentPrice))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return finalized, nil
}
