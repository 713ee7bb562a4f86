package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mrdelgado-dev/bookbarn-backend/api/responses"
	"github.com/mrdelgado-dev/bookbarn-backend/api/validators"
	cartrepo "github.com/mrdelgado-dev/bookbarn-backend/internal/cart"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/db/models"
	pkgerrors "github.com/mrdelgado-dev/bookbarn-backend/pkg/errors"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/logger"
)

type cartResponse struct {
	CartID uuid.UUID          `json:"cart_id"`
	Items  []cartItemResponse `json:"items"`
}

type cartItemResponse struct {
	BookID uuid.UUID `json:"book_id"`
	Qty    int       `json:"qty"`
}

type addCartItemRequest struct {
	BookID uuid.UUID `json:"book_id" validate:"required"`
	Qty    int       `json:"qty" validate:"required,gt=0"`
}

func newCartResponse(record *models.Cart) cartResponse {
	items := make([]cartItemResponse, 0, len(record.Items))
	for _, item := range record.Items {
		items = append(items, cartItemResponse{BookID: item.BookID, Qty: item.Qty})
	}
	return cartResponse{CartID: record.ID, Items: items}
}

// GetCart returns the authenticated user's cart, creating it on first read.
func GetCart(repo cartrepo.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart repository unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := repo.FindOrCreateByUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart"))
			return
		}

		responses.WriteSuccess(w, newCartResponse(record))
	}
}

// AddCartItem merges a line into the user's cart.
func AddCartItem(repo cartrepo.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart repository unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := repo.FindOrCreateByUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart"))
			return
		}
		if _, err := repo.AddItem(r.Context(), record.ID, payload.BookID, payload.Qty); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart item"))
			return
		}

		updated, err := repo.FindByUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart"))
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse(updated))
	}
}
