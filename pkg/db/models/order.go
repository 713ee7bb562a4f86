package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mrdelgado-dev/bookbarn-backend/pkg/enums"
)

// Order is the append-only record of a settled checkout attempt. The unique
// payment_intent_id column is the idempotency key: at most one order exists
// per real-world charge.
type Order struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	Status          enums.OrderStatus     `gorm:"column:status;type:text;not null;default:'pending'"`
	Provider        enums.PaymentProvider `gorm:"column:provider;type:text;not null"`
	PaymentIntentID string                `gorm:"column:payment_intent_id;not null;uniqueIndex:idx_orders_payment_intent_id"`
	Total           decimal.Decimal       `gorm:"column:total;type:numeric(10,2);not null"`
	Currency        enums.Currency        `gorm:"column:currency;type:text;not null;default:'USD'"`
	Items           []OrderLineItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CompletedAt     *time.Time            `gorm:"column:completed_at"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
