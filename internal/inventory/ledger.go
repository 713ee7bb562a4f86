package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mrdelgado-dev/bookbarn-backend/pkg/db/models"
	pkgerrors "github.com/mrdelgado-dev/bookbarn-backend/pkg/errors"
)

// ReservationRequest asks for qty units of a single book.
type ReservationRequest struct {
	BookID uuid.UUID
	Qty    int
}

// ReservationResult reports whether a single request was satisfied. A failed
// request carries a reason instead of an error so the caller can report every
// shortfall in one pass.
type ReservationResult struct {
	BookID   uuid.UUID
	Qty      int
	Reserved bool
	Reason   string
}

// Reserve decrements stock for each request inside the caller's transaction.
// Each decrement is a single conditional UPDATE, so concurrent settlements
// arbitrate on rows affected rather than on a read-then-write race. Requests
// are all-or-nothing only insofar as the caller rolls back on any failure;
// Reserve itself reports per-request outcomes.
func Reserve(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) ([]ReservationResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inventory: transaction handle is required")
	}
	results := make([]ReservationResult, 0, len(requests))
	for _, req := range requests {
		if req.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("reservation qty must be positive, got %d", req.Qty))
		}

		res := tx.WithContext(ctx).
			Model(&models.Book{}).
			Where("id = ? AND stock >= ?", req.BookID, req.Qty).
			UpdateColumn("stock", gorm.Expr("stock - ?", req.Qty))
		if res.Error != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "reserve inventory")
		}

		result := ReservationResult{BookID: req.BookID, Qty: req.Qty, Reserved: res.RowsAffected == 1}
		if !result.Reserved {
			result.Reason = "insufficient stock"
		}
		results = append(results, result)
	}
	return results, nil
}

// Release restores stock previously taken by Reserve. It is the compensation
// path for settlements that fail after reservation, so it tolerates books that
// have since been removed.
func Release(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "inventory: transaction handle is required")
	}
	for _, req := range requests {
		if req.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("release qty must be positive, got %d", req.Qty))
		}
		res := tx.WithContext(ctx).
			Model(&models.Book{}).
			Where("id = ?", req.BookID).
			UpdateColumn("stock", gorm.Expr("stock + ?", req.Qty))
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "release inventory")
		}
	}
	return nil
}
