package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mrdelgado-dev/bookbarn-backend/pkg/db/models"
)

// Repository exposes persistence operations for the per-user cart snapshot.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrCreateByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, cartID, bookID uuid.UUID, qty int) (*models.CartItem, error)
	RemoveItems(ctx context.Context, cartID uuid.UUID, bookIDs []uuid.UUID) error
}
