package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mrdelgado-dev/bookbarn-backend/pkg/enums"
)

// Book is the inventory unit of the catalog. Stock is mutated exclusively
// through conditional updates; see internal/inventory.
type Book struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	Title          string               `gorm:"column:title;not null"`
	Author         string               `gorm:"column:author;not null"`
	Description    *string              `gorm:"column:description"`
	Category       string               `gorm:"column:category;not null"`
	Price          decimal.Decimal      `gorm:"column:price;type:numeric(10,2);not null"`
	Stock          int                  `gorm:"column:stock;not null;default:0;check:stock >= 0"`
	ApprovalStatus enums.ApprovalStatus `gorm:"column:approval_status;type:text;not null;default:'pending'"`
	CreatedByID    *uuid.UUID           `gorm:"column:created_by_id;type:uuid"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
