package models

import (
	"time"

	"github.com/uptrace/bun"
)

type AuctionStatus string

const (
	AuctionStatusActive    AuctionStatus = "active"
	AuctionStatusEnded     AuctionStatus = "ended"
	AuctionStatusCancelled AuctionStatus = "cancelled"
)

// Auction is a time-boxed sale of a single product. The current price only
// rises while the auction is active, and end_time only moves forward.
// Version guards end_time mutations (optimistic locking).
type Auction struct {
	bun.BaseModel `bun:"table:auctions,alias:a"`

	ID        int64  `bun:"id,pk,autoincrement" json:"id"`
	Reference string `bun:"reference,notnull,unique" json:"reference"`
	ProductID int64  `bun:"product_id,notnull" json:"product_id"`
	CreatorID int64  `bun:"creator_id,notnull" json:"creator_id"`
	WinnerID  *int64 `bun:"winner_id" json:"winner_id,omitempty"`

	StartPrice   int64 `bun:"start_price,notnull" json:"start_price"`
	CurrentPrice int64 `bun:"current_price,notnull" json:"current_price"`
	BidIncrement int64 `bun:"bid_increment,notnull" json:"bid_increment"`
	MinBidAmount int64 `bun:"min_bid_amount,notnull" json:"min_bid_amount"`

	StartTime     time.Time `bun:"start_time,notnull" json:"start_time"`
	EndTime       time.Time `bun:"end_time,notnull" json:"end_time"`
	DurationHours int       `bun:"duration_hours,notnull" json:"duration_hours"`

	AutoExtend    bool `bun:"auto_extend,notnull,default:false" json:"auto_extend"`
	ExtendMinutes int  `bun:"extend_minutes,notnull,default:0" json:"extend_minutes"`

	TotalBids int        `bun:"total_bids,notnull,default:0" json:"total_bids"`
	Views     int64      `bun:"views,notnull,default:0" json:"views"`
	LastBidAt *time.Time `bun:"last_bid_at" json:"last_bid_at,omitempty"`

	// Incremented on every end_time mutation; stale extenders lose silently.
	Version int64 `bun:"version,notnull,default:0" json:"version"`

	Status AuctionStatus `bun:"status,notnull" json:"status"`

	CreatedAt time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
	DeletedAt *time.Time `bun:"deleted_at" json:"-"`
	DeletedBy *int64     `bun:"deleted_by" json:"-"`
}

// MinimumNextBid returns the smallest amount the next bid must reach. Every
// bid must clear the current price by at least one increment; the first bid
// is additionally floored by the minimum bid amount.
func (a *Auction) MinimumNextBid() int64 {
	next := a.CurrentPrice + a.BidIncrement
	if a.TotalBids == 0 && a.MinBidAmount > next {
		return a.MinBidAmount
	}
	return next
}

// Biddable reports whether the auction can accept bids at the given time.
func (a *Auction) Biddable(now time.Time) bool {
	return a.Status == AuctionStatusActive && now.Before(a.EndTime) && a.DeletedAt == nil
}
