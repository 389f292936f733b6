package models

import (
	"time"

	"github.com/uptrace/bun"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order records a purchase of an ended auction by its winner. One order per
// auction, enforced by a unique index on auction_id.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID        int64       `bun:"id,pk,autoincrement" json:"id"`
	AuctionID int64       `bun:"auction_id,notnull,unique" json:"auction_id"`
	BuyerID   int64       `bun:"buyer_id,notnull" json:"buyer_id"`
	SellerID  int64       `bun:"seller_id,notnull" json:"seller_id"`
	ProductID int64       `bun:"product_id,notnull" json:"product_id"`
	Amount    int64       `bun:"amount,notnull" json:"amount"`
	Address   string      `bun:"address" json:"address"`
	Status    OrderStatus `bun:"status,notnull" json:"status"`

	CreatedAt time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
	DeletedAt *time.Time `bun:"deleted_at" json:"-"`
}
