package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Bid is an offer on an auction. Bids are never deleted; superseded bids keep
// their row with is_winning = false and withdrawn bids are flagged retracted.
// At most one non-retracted bid per auction is winning at any time.
type Bid struct {
	bun.BaseModel `bun:"table:bids,alias:b"`

	ID        int64 `bun:"id,pk,autoincrement" json:"id"`
	AuctionID int64 `bun:"auction_id,notnull" json:"auction_id"`
	BidderID  int64 `bun:"bidder_id,notnull" json:"bidder_id"`
	Amount    int64 `bun:"amount,notnull" json:"amount"`

	IsWinning   bool `bun:"is_winning,notnull,default:false" json:"is_winning"`
	IsRetracted bool `bun:"is_retracted,notnull,default:false" json:"is_retracted"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}
