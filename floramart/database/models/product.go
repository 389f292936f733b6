package models

import (
	"time"

	"github.com/uptrace/bun"
)

type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
	ProductStatusSoldOut  ProductStatus = "sold_out"
)

type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID          int64         `bun:"id,pk,autoincrement" json:"id"`
	SellerID    int64         `bun:"seller_id,notnull" json:"seller_id"`
	Name        string        `bun:"name,notnull" json:"name"`
	Description string        `bun:"description" json:"description"`
	Price       int64         `bun:"price,notnull" json:"price"`
	Stock       int           `bun:"stock,notnull,default:0" json:"stock"`
	ImageURL    string        `bun:"image_url" json:"image_url"`
	Status      ProductStatus `bun:"status,notnull" json:"status"`

	CreatedAt time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
	DeletedAt *time.Time `bun:"deleted_at" json:"-"`
}
