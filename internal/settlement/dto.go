package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mrdelgado-dev/bookbarn-backend/pkg/enums"
)

// ChargeItemInput is a client-requested line. Prices never come from the
// client; only the book reference and quantity do.
type ChargeItemInput struct {
	BookID uuid.UUID `json:"book_id" validate:"required"`
	Qty    int       `json:"qty" validate:"required,gt=0"`
}

// ChargeInput selects the provider and, optionally, explicit lines. With no
// explicit lines the user's cart is priced instead.
type ChargeInput struct {
	Provider enums.PaymentProvider `json:"provider" validate:"required"`
	Items    []ChargeItemInput     `json:"items" validate:"omitempty,dive"`
}

// QuoteLine is one priced line of a charge quote.
type QuoteLine struct {
	BookID    uuid.UUID       `json:"book_id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Qty       int             `json:"qty"`
}

// ChargeQuote is the result of CreateCharge: a gateway intent priced from the
// catalog, waiting for payment authorization.
type ChargeQuote struct {
	PaymentIntentID    string                `json:"payment_intent_id"`
	Provider           enums.PaymentProvider `json:"provider"`
	ContinuationSecret string                `json:"continuation_secret,omitempty"`
	AmountCents        int64                 `json:"amount_cents"`
	Currency           enums.Currency        `json:"currency"`
	Lines              []QuoteLine           `json:"lines"`
}

// ConfirmInput carries the confirmation request for a previously created charge.
type ConfirmInput struct {
	Provider        enums.PaymentProvider `json:"provider" validate:"required"`
	PaymentIntentID string                `json:"payment_intent_id" validate:"required"`
	PaymentMethod   string                `json:"payment_method,omitempty"`
}

// ConfirmResult reports the settlement outcome. RequiresAction is a resumable
// state, not a failure: the caller completes the gateway challenge and
// confirms again with the same intent id.
type ConfirmResult struct {
	Settled            bool                  `json:"settled"`
	RequiresAction     bool                  `json:"requires_action"`
	ContinuationSecret string                `json:"continuation_secret,omitempty"`
	OrderID            uuid.UUID             `json:"order_id,omitempty"`
	Status             enums.OrderStatus     `json:"status,omitempty"`
	Provider           enums.PaymentProvider `json:"provider"`
	PaymentIntentID    string                `json:"payment_intent_id"`
	AmountCents        int64                 `json:"amount_cents,omitempty"`
}

// StatusLine is a line item snapshot in a settlement status view.
type StatusLine struct {
	BookID    uuid.UUID       `json:"book_id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Qty       int             `json:"qty"`
}

// Status is the owner-scoped view of a settled order.
type Status struct {
	OrderID         uuid.UUID             `json:"order_id"`
	Status          enums.OrderStatus     `json:"status"`
	Provider        enums.PaymentProvider `json:"provider"`
	PaymentIntentID string                `json:"payment_intent_id"`
	Total           decimal.Decimal       `json:"total"`
	Currency        enums.Currency        `json:"currency"`
	Lines           []StatusLine          `json:"lines"`
	CompletedAt     *time.Time            `json:"completed_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
}
