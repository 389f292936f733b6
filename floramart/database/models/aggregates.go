package models

import "time"

// BidderSummary is the per-bidder aggregation over non-retracted bids used by
// the participants, winners and leaderboard views. Rank is assigned by the
// service after ordering.
type BidderSummary struct {
	BidderID       int64      `bun:"bidder_id" json:"bidder_id"`
	BidderName     string     `bun:"bidder_name" json:"bidder_name"`
	BidCount       int        `bun:"bid_count" json:"bid_count"`
	HighestBid     int64      `bun:"highest_bid" json:"highest_bid"`
	TotalBidAmount int64      `bun:"total_bid_amount" json:"total_bid_amount"`
	LastBidAt      *time.Time `bun:"last_bid_at" json:"last_bid_at,omitempty"`
	Rank           int        `bun:"-" json:"rank,omitempty"`
}
