package books

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mrdelgado-dev/bookbarn-backend/pkg/db/models"
)

// Repository defines catalog reads used by settlement pricing. Only approved
// books are visible to buyers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Book, error)
}
