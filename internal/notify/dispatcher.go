package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mrdelgado-dev/bookbarn-backend/pkg/db/models"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/logger"
)

// EventOrderSettled announces a committed settlement to admin channels.
const EventOrderSettled = "order.settled"

type adminLister interface {
	ListAdminIDs(ctx context.Context) ([]uuid.UUID, error)
}

// OrderSettledPayload is the event body fanned out to admins.
type OrderSettledPayload struct {
	OrderID  uuid.UUID       `json:"order_id"`
	UserID   uuid.UUID       `json:"user_id"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
	Provider string          `json:"provider"`
}

// Dispatcher fans settlement events out to every connected admin. Delivery is
// fire and forget; a failed or dropped notification never affects the
// settlement that produced it.
type Dispatcher struct {
	directory *Directory
	admins    adminLister
	log       *logger.Logger
}

// NewDispatcher wires the dispatcher's collaborators.
func NewDispatcher(directory *Directory, admins adminLister, log *logger.Logger) (*Dispatcher, error) {
	if directory == nil {
		return nil, fmt.Errorf("notification directory required")
	}
	if admins == nil {
		return nil, fmt.Errorf("admin lister required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Dispatcher{directory: directory, admins: admins, log: log}, nil
}

// OrderSettled pushes an order.settled event to all admins.
func (d *Dispatcher) OrderSettled(ctx context.Context, order *models.Order) {
	if order == nil {
		return
	}
	adminIDs, err := d.admins.ListAdminIDs(ctx)
	if err != nil {
		d.log.Warn(ctx, fmt.Sprintf("list admins for settlement notification: %v", err))
		return
	}

	event := Event{
		Type:       EventOrderSettled,
		OccurredAt: time.Now().UTC(),
		Payload: OrderSettledPayload{
			OrderID:  order.ID,
			UserID:   order.UserID,
			Total:    order.Total,
			Currency: string(order.Currency),
			Provider: string(order.Provider),
		},
	}
	for _, adminID := range adminIDs {
		d.directory.Deliver(adminID, event)
	}
}
