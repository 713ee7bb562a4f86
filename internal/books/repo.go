package books

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mrdelgado-dev/bookbarn-backend/pkg/db/models"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a books repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	var book models.Book
	err := r.db.WithContext(ctx).
		Where("id = ? AND approval_status = ?", id, enums.ApprovalStatusApproved).
		First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Book, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []models.Book
	err := r.db.WithContext(ctx).
		Where("id IN ? AND approval_status = ?", ids, enums.ApprovalStatusApproved).
		Find(&found).Error
	if err != nil {
		return nil, err
	}
	return found, nil
}
