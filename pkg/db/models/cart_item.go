package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one (book, quantity) pair inside a cart. Quantity is unique per
// book reference; repeat adds merge into the existing row.
type CartItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CartID    uuid.UUID `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:idx_cart_items_cart_book"`
	BookID    uuid.UUID `gorm:"column:book_id;type:uuid;not null;uniqueIndex:idx_cart_items_cart_book"`
	Qty       int       `gorm:"column:qty;not null;check:qty >= 1"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
