package models

import (
	"time"

	"github.com/uptrace/bun"
)

type UserRole string

const (
	UserRoleBuyer  UserRole = "buyer"
	UserRoleSeller UserRole = "seller"
	UserRoleAdmin  UserRole = "admin"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64    `bun:"id,pk,autoincrement" json:"id"`
	Email        string   `bun:"email,notnull,unique" json:"email"`
	Name         string   `bun:"name,notnull" json:"name"`
	PasswordHash string   `bun:"password_hash,notnull" json:"-"`
	Role         UserRole `bun:"role,notnull" json:"role"`

	CreatedAt time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
	DeletedAt *time.Time `bun:"deleted_at" json:"-"`
}
