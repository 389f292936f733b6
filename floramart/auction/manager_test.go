package auction

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floramart/floramart/floramart/database/models"
	"github.com/floramart/floramart/floramart/errs"
)

func TestCreateAuction_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateAuctionInput)
		wantErr errs.Code
	}{
		{
			name:    "zero start price",
			mutate:  func(in *CreateAuctionInput) { in.StartPrice = 0 },
			wantErr: errs.CodeInvalidArgument,
		},
		{
			name:    "zero increment",
			mutate:  func(in *CreateAuctionInput) { in.BidIncrement = 0 },
			wantErr: errs.CodeInvalidArgument,
		},
		{
			name:    "min bid above start price",
			mutate:  func(in *CreateAuctionInput) { in.MinBidAmount = 2000 },
			wantErr: errs.CodeInvalidArgument,
		},
		{
			name:    "duration too short",
			mutate:  func(in *CreateAuctionInput) { in.DurationHours = 0 },
			wantErr: errs.CodeInvalidArgument,
		},
		{
			name:    "duration too long",
			mutate:  func(in *CreateAuctionInput) { in.DurationHours = 15 * 24 },
			wantErr: errs.CodeInvalidArgument,
		},
		{
			name:    "auto extend without window",
			mutate:  func(in *CreateAuctionInput) { in.AutoExtend = true; in.ExtendMinutes = 0 },
			wantErr: errs.CodeInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			p := f.seedProduct(1)

			in := CreateAuctionInput{
				ProductID:     p.ID,
				CreatorID:     1,
				StartPrice:    1000,
				BidIncrement:  100,
				MinBidAmount:  1000,
				DurationHours: 24,
			}
			tt.mutate(&in)

			_, err := f.manager.CreateAuction(context.Background(), in)
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, errs.CodeOf(err))
		})
	}
}

func TestCreateAuction_ProductChecks(t *testing.T) {
	t.Run("unknown product", func(t *testing.T) {
		f := newFixture()
		_, err := f.manager.CreateAuction(context.Background(), CreateAuctionInput{
			ProductID: 99, CreatorID: 1, StartPrice: 1000, BidIncrement: 100, DurationHours: 24,
		})
		assert.Equal(t, errs.CodeNotFound, errs.CodeOf(err))
	})

	t.Run("not the seller", func(t *testing.T) {
		f := newFixture()
		p := f.seedProduct(1)
		_, err := f.manager.CreateAuction(context.Background(), CreateAuctionInput{
			ProductID: p.ID, CreatorID: 2, StartPrice: 1000, BidIncrement: 100, DurationHours: 24,
		})
		assert.Equal(t, errs.CodeForbidden, errs.CodeOf(err))
	})

	t.Run("second active auction for same product", func(t *testing.T) {
		f := newFixture()
		a := f.seedAuction(1)
		_, err := f.manager.CreateAuction(context.Background(), CreateAuctionInput{
			ProductID: a.ProductID, CreatorID: 1, StartPrice: 1000, BidIncrement: 100, DurationHours: 24,
		})
		assert.Equal(t, errs.CodeConflict, errs.CodeOf(err))
	})
}

func TestCreateAuction_Defaults(t *testing.T) {
	f := newFixture()
	a := f.seedAuction(1, func(in *CreateAuctionInput) { in.MinBidAmount = 0 })

	assert.Equal(t, int64(1000), a.MinBidAmount, "min bid defaults to start price")
	assert.Equal(t, int64(1000), a.CurrentPrice)
	assert.Equal(t, models.AuctionStatusActive, a.Status)
	assert.Len(t, a.Reference, 8)
	assert.Equal(t, f.now.Add(24*time.Hour), a.EndTime)
}

func TestPlaceBid_FirstBid(t *testing.T) {
	f := newFixture()
	a := f.seedAuction(1)

	bid, err := f.manager.PlaceBid(context.Background(), a.ID, 2, 1100)
	require.NoError(t, err)
	assert.True(t, bid.IsWinning)
	assert.Equal(t, int64(1100), bid.Amount)

	reloaded, _ := f.auctions.GetByID(context.Background(), a.ID)
	assert.Equal(t, int64(1100), reloaded.CurrentPrice)
	assert.Equal(t, 1, reloaded.TotalBids)
	require.NotNil(t, reloaded.LastBidAt)
	assert.Equal(t, f.now, *reloaded.LastBidAt)
}

func TestPlaceBid_FirstBidMustClearIncrement(t *testing.T) {
	f := newFixture()
	a := f.seedAuction(1, func(in *CreateAuctionInput) {
		in.StartPrice = 100000
		in.BidIncrement = 5000
		in.MinBidAmount = 0
	})

	_, err := f.manager.PlaceBid(context.Background(), a.ID, 2, 104000)
	assert.Equal(t, errs.CodeInvalidArgument, errs.CodeOf(err),
		"first bid must clear start price plus one increment")

	bid, err := f.manager.PlaceBid(context.Background(), a.ID, 2, 105000)
	require.NoError(t, err)
	assert.True(t, bid.IsWinning)
}

func TestPlaceBid_Rejections(t *testing.T) {
	f := newFixture()
	a := f.seedAuction(1)

	t.Run("below minimum first bid", func(t *testing.T) {
		_, err := f.manager.PlaceBid(context.Background(), a.ID, 2, 999)
		assert.Equal(t, errs.CodeInvalidArgument, errs.CodeOf(err))
	})

	t.Run("first bid at start price", func(t *testing.T) {
		_, err := f.manager.PlaceBid(context.Background(), a.ID, 2, 1000)
		assert.Equal(t, errs.CodeInvalidArgument, errs.CodeOf(err))
	})

	t.Run("own auction", func(t *testing.T) {
		_, err := f.manager.PlaceBid(context.Background(), a.ID, 1, 1100)
		assert.Equal(t, errs.CodeForbidden, errs.CodeOf(err))
	})

	t.Run("unknown auction", func(t *testing.T) {
		_, err := f.manager.PlaceBid(context.Background(), 999, 2, 1100)
		assert.Equal(t, errs.CodeNotFound, errs.CodeOf(err))
	})

	t.Run("below increment threshold", func(t *testing.T) {
		_, err := f.manager.PlaceBid(context.Background(), a.ID, 2, 1100)
		require.NoError(t, err)
		_, err = f.manager.PlaceBid(context.Background(), a.ID, 3, 1150)
		assert.Equal(t, errs.CodeInvalidArgument, errs.CodeOf(err))
	})

	t.Run("after end time", func(t *testing.T) {
		f.advance(25 * time.Hour)
		_, err := f.manager.PlaceBid(context.Background(), a.ID, 2, 5000)
		assert.Equal(t, errs.CodeInvalidState, errs.CodeOf(err))
	})
}

func TestPlaceBid_OutbidFlipsWinner(t *testing.T) {
	f := newFixture()
	a := f.seedAuction(1)

	first, err := f.manager.PlaceBid(context.Background(), a.ID, 2, 1100)
	require.NoError(t, err)

	second, err := f.manager.PlaceBid(context.Background(), a.ID, 3, 1200)
	require.NoError(t, err)
	assert.True(t, second.IsWinning)

	// Exactly one winning bid, and it is the newest.
	winning, err := f.bids.WinningBid(context.Background(), a.ID)
	require.NoError(t, err)
	require.NotNil(t, winning)
	assert.Equal(t, second.ID, winning.ID)

	old, _ := f.bids.GetByID(context.Background(), first.ID)
	assert.False(t, old.IsWinning)

	assert.Equal(t, []int64{2}, f.notifier.outbid, "previous leader gets notified")
}

func TestPlaceBid_SelfOutbidNotNotified(t *testing.T) {
	f := newFixture()
	a := f.seedAuction(1)

	_, err := f.manager.PlaceBid(context.Background(), a.ID, 2, 1100)
	require.NoError(t, err)
	_, err = f.manager.PlaceBid(context.Background(), a.ID, 2, 1200)
	require.NoError(t, err)

	assert.Empty(t, f.notifier.outbid)
}

func TestPlaceBid_ConcurrentBidders(t *testing.T) {
	f := newFixture()
	a := f.seedAuction(1)

	const bidders = 20
	var wg sync.WaitGroup
	accepted := make(chan int64, bidders)

	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			amount := 1100 + n*100
			if _, err := f.manager.PlaceBid(context.Background(), a.ID, 100+n, amount); err == nil {
				accepted <- amount
			}
		}(int64(i))
	}
	wg.Wait()
	close(accepted)

	reloaded, _ := f.auctions.GetByID(context.Background(), a.ID)

	var maxAccepted int64
	count := 0
	for amount := range accepted {
		count++
		if amount > maxAccepted {
			maxAccepted = amount
		}
	}
	require.Greater(t, count, 0)

	// The auction price equals the highest accepted amount and at most one
	// bid holds the winner flag.
	assert.Equal(t, maxAccepted, reloaded.CurrentPrice)
	assert.Equal(t, count, reloaded.TotalBids)

	all, _ := f.bids.ListByAuction(context.Background(), a.ID)
	winners := 0
	for _, b := range all {
		if b.IsWinning {
			winners++
			assert.Equal(t, maxAccepted, b.Amount)
		}
	}
	assert.Equal(t, 1, winners)
}

func TestRetractBid_RederivesWinner(t *testing.T) {
	f := newFixture()
	a := f.seedAuction(1)

	_, err := f.manager.PlaceBid(context.Background(), a.ID, 2, 1100)
	require.NoError(t, err)
	top, err := f.manager.PlaceBid(context.Background(), a.ID, 3, 1200)
	require.NoError(t, err)

	require.NoError(t, f.manager.RetractBid(context.Background(), top.ID, 3, models.UserRoleBuyer))

	winning, _ := f.bids.WinningBid(context.Background(), a.ID)
	require.NotNil(t, winning)
	assert.Equal(t, int64(2), winning.BidderID)

	reloaded, _ := f.auctions.GetByID(context.Background(), a.ID)
	assert.Equal(t, int64(1100), reloaded.CurrentPrice)
}

func TestRetractBid_LastBidRollsBackToStartPrice(t *testing.T) {
	f := newFixture()
	a := f.seedAuction(1)

	bid, err := f.manager.PlaceBid(context.Background(), a.ID, 2, 1500)
	require.NoError(t, err)

	require.NoError(t, f.manager.RetractBid(context.Background(), bid.ID, 2, models.UserRoleBuyer))

	winning, _ := f.bids.WinningBid(context.Background(), a.ID)
	assert.Nil(t, winning)

	reloaded, _ := f.auctions.GetByID(context.Background(), a.ID)
	assert.Equal(t, a.StartPrice, reloaded.CurrentPrice)
}

func TestRetractBid_Permissions(t *testing.T) {
	f := newFixture()
	a := f.seedAuction(1)

	bid, err := f.manager.PlaceBid(context.Background(), a.ID, 2, 1100)
	require.NoError(t, err)

	t.Run("stranger cannot retract", func(t *testing.T) {
		err := f.manager.RetractBid(context.Background(), bid.ID, 99, models.UserRoleBuyer)
		assert.Equal(t, errs.CodeForbidden, errs.CodeOf(err))
	})

	t.Run("auction owner can retract any bid", func(t *testing.T) {
		err := f.manager.RetractBid(context.Background(), bid.ID, 1, models.UserRoleSeller)
		assert.NoError(t, err)
	})

	t.Run("double retraction rejected", func(t *testing.T) {
		err := f.manager.RetractBid(context.Background(), bid.ID, 2, models.UserRoleBuyer)
		assert.Equal(t, errs.CodeInvalidState, errs.CodeOf(err))
	})
}

func TestRetractBid_OnlyWhileActive(t *testing.T) {
	f := newFixture()
	a := f.seedAuction(1)

	bid, err := f.manager.PlaceBid(context.Background(), a.ID, 2, 1100)
	require.NoError(t, err)

	_, err = f.auctions.MarkEnded(context.Background(), a.ID, &bid.BidderID)
	require.NoError(t, err)

	err = f.manager.RetractBid(context.Background(), bid.ID, 2, models.UserRoleBuyer)
	assert.Equal(t, errs.CodeInvalidState, errs.CodeOf(err))
}

func TestCancelAuction(t *testing.T) {
	t.Run("without bids", func(t *testing.T) {
		f := newFixture()
		a := f.seedAuction(1)

		require.NoError(t, f.manager.CancelAuction(context.Background(), a.ID, 1, models.UserRoleSeller))
		reloaded, _ := f.auctions.GetByID(context.Background(), a.ID)
		assert.Equal(t, models.AuctionStatusCancelled, reloaded.Status)
	})

	t.Run("with bids rejected", func(t *testing.T) {
		f := newFixture()
		a := f.seedAuction(1)
		_, err := f.manager.PlaceBid(context.Background(), a.ID, 2, 1100)
		require.NoError(t, err)

		err = f.manager.CancelAuction(context.Background(), a.ID, 1, models.UserRoleSeller)
		assert.Equal(t, errs.CodeInvalidState, errs.CodeOf(err))
	})

	t.Run("stranger rejected", func(t *testing.T) {
		f := newFixture()
		a := f.seedAuction(1)

		err := f.manager.CancelAuction(context.Background(), a.ID, 2, models.UserRoleBuyer)
		assert.Equal(t, errs.CodeForbidden, errs.CodeOf(err))
	})

	t.Run("admin allowed", func(t *testing.T) {
		f := newFixture()
		a := f.seedAuction(1)

		assert.NoError(t, f.manager.CancelAuction(context.Background(), a.ID, 42, models.UserRoleAdmin))
	})
}

func TestUpdateAuction(t *testing.T) {
	t.Run("price frozen after first bid", func(t *testing.T) {
		f := newFixture()
		a := f.seedAuction(1)
		_, err := f.manager.PlaceBid(context.Background(), a.ID, 2, 1100)
		require.NoError(t, err)

		newPrice := int64(2000)
		_, err = f.manager.UpdateAuction(context.Background(), a.ID, 1, models.UserRoleSeller, UpdateAuctionInput{
			StartPrice: &newPrice,
		})
		assert.Equal(t, errs.CodeInvalidState, errs.CodeOf(err))
	})

	t.Run("end time forward only", func(t *testing.T) {
		f := newFixture()
		a := f.seedAuction(1)

		earlier := a.EndTime.Add(-time.Hour)
		_, err := f.manager.UpdateAuction(context.Background(), a.ID, 1, models.UserRoleSeller, UpdateAuctionInput{
			EndTime: &earlier,
		})
		assert.Equal(t, errs.CodeInvalidArgument, errs.CodeOf(err))

		later := a.EndTime.Add(time.Hour)
		updated, err := f.manager.UpdateAuction(context.Background(), a.ID, 1, models.UserRoleSeller, UpdateAuctionInput{
			EndTime: &later,
		})
		require.NoError(t, err)
		assert.Equal(t, later, updated.EndTime)
		assert.Equal(t, a.Version+1, updated.Version, "deadline change bumps the version")
	})
}

func TestDeleteAuction(t *testing.T) {
	t.Run("active with bids rejected", func(t *testing.T) {
		f := newFixture()
		a := f.seedAuction(1)
		_, err := f.manager.PlaceBid(context.Background(), a.ID, 2, 1100)
		require.NoError(t, err)

		err = f.manager.DeleteAuction(context.Background(), a.ID, 1, models.UserRoleSeller)
		assert.Equal(t, errs.CodeInvalidState, errs.CodeOf(err))
	})

	t.Run("cancelled auction deletable", func(t *testing.T) {
		f := newFixture()
		a := f.seedAuction(1)
		require.NoError(t, f.manager.CancelAuction(context.Background(), a.ID, 1, models.UserRoleSeller))

		require.NoError(t, f.manager.DeleteAuction(context.Background(), a.ID, 1, models.UserRoleSeller))
		gone, _ := f.auctions.GetByID(context.Background(), a.ID)
		assert.Nil(t, gone)
	})
}

func TestGetAuction_CountsView(t *testing.T) {
	f := newFixture()
	a := f.seedAuction(1)

	_, err := f.manager.GetAuction(context.Background(), a.ID)
	require.NoError(t, err)
	_, err = f.manager.GetAuction(context.Background(), a.ID)
	require.NoError(t, err)

	reloaded, _ := f.auctions.GetByID(context.Background(), a.ID)
	assert.Equal(t, int64(2), reloaded.Views)
}
