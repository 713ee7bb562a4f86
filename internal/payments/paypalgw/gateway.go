package paypalgw

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/plutov/paypal/v4"

	"github.com/mrdelgado-dev/bookbarn-backend/internal/payments"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/enums"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/money"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/paypalclient"
)

// customIDLimit is PayPal's custom_id capacity. Metadata that encodes past it
// is a programming error upstream, not something to truncate silently.
const customIDLimit = 255

// Gateway settles charges through PayPal orders. An order created with intent
// CAPTURE plays the payment-intent role: create opens it, the buyer approves it
// out of band, and confirm captures it.
type Gateway struct {
	client *paypalclient.Client
}

func New(client *paypalclient.Client) (*Gateway, error) {
	if client == nil {
		return nil, fmt.Errorf("paypalgw.New: client is required")
	}
	return &Gateway{client: client}, nil
}

func (g *Gateway) Provider() enums.PaymentProvider {
	return enums.PaymentProviderPayPal
}

func (g *Gateway) MinimumAmountCents(currency enums.Currency) int64 {
	return 50
}

func (g *Gateway) CreateIntent(ctx context.Context, params payments.CreateIntentParams) (*payments.Intent, error) {
	customID, err := encodeMetadata(params.Metadata)
	if err != nil {
		return nil, err
	}

	units := []paypal.PurchaseUnitRequest{{
		CustomID: customID,
		Amount: &paypal.PurchaseUnitAmount{
			Currency: string(params.Currency),
			Value:    money.FromCents(params.AmountCents).StringFixed(2),
		},
	}}

	order, err := g.client.API().CreateOrder(ctx, paypal.OrderIntentCapture, units, nil, nil)
	if err != nil {
		return nil, g.wrapErr("create order", err)
	}

	intent := fromOrder(order)
	intent.AmountCents = params.AmountCents
	intent.Currency = params.Currency
	intent.Metadata = params.Metadata
	return intent, nil
}

func (g *Gateway) ConfirmIntent(ctx context.Context, reference string, _ payments.ConfirmParams) (*payments.Intent, error) {
	_, err := g.client.API().CaptureOrder(ctx, reference, paypal.CaptureOrderRequest{})
	if err != nil && !isOrderNotApproved(err) {
		return nil, g.wrapErr("capture order", err)
	}
	// Re-read the order either way: the capture response omits purchase unit
	// detail, and a not-yet-approved order maps to requires_action rather than
	// a hard failure.
	return g.RetrieveIntent(ctx, reference)
}

func (g *Gateway) RetrieveIntent(ctx context.Context, reference string) (*payments.Intent, error) {
	order, err := g.client.API().GetOrder(ctx, reference)
	if err != nil {
		return nil, g.wrapErr("get order", err)
	}
	return fromOrder(order), nil
}

func (g *Gateway) wrapErr(op string, err error) error {
	var apiErr *paypal.ErrorResponse
	if errors.As(err, &apiErr) {
		reason := apiErr.Name
		if reason == "" {
			reason = apiErr.Message
		}
		return &payments.GatewayError{
			Provider: enums.PaymentProviderPayPal,
			Reason:   reason,
			Err:      err,
		}
	}
	return fmt.Errorf("paypal: %s: %w", op, err)
}

func isOrderNotApproved(err error) bool {
	var apiErr *paypal.ErrorResponse
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, detail := range apiErr.Details {
		if detail.Issue == "ORDER_NOT_APPROVED" {
			return true
		}
	}
	return false
}

func fromOrder(order *paypal.Order) *payments.Intent {
	intent := &payments.Intent{
		Reference: order.ID,
		Status:    mapStatus(order.Status),
	}
	for _, link := range order.Links {
		if link.Rel == "approve" {
			intent.ContinuationSecret = link.Href
			break
		}
	}
	if len(order.PurchaseUnits) > 0 {
		unit := order.PurchaseUnits[0]
		if unit.Amount != nil {
			intent.Currency = enums.Currency(unit.Amount.Currency)
			if cents, err := money.CentsFromString(unit.Amount.Value); err == nil {
				intent.AmountCents = cents
			}
		}
		if unit.CustomID != "" {
			if metadata, err := decodeMetadata(unit.CustomID); err == nil {
				intent.Metadata = metadata
			}
		}
	}
	return intent
}

func mapStatus(status string) enums.IntentStatus {
	switch strings.ToUpper(status) {
	case "COMPLETED":
		return enums.IntentStatusSucceeded
	case "VOIDED":
		return enums.IntentStatusFailed
	case "CREATED", "SAVED", "PAYER_ACTION_REQUIRED":
		return enums.IntentStatusRequiresAction
	default:
		// APPROVED and anything unrecognized: capture has not landed yet.
		return enums.IntentStatusPending
	}
}

func encodeMetadata(metadata map[string]string) (string, error) {
	if len(metadata) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("paypal: encode metadata: %w", err)
	}
	if len(raw) > customIDLimit {
		return "", fmt.Errorf("paypal: metadata exceeds custom_id capacity (%d > %d bytes)", len(raw), customIDLimit)
	}
	return string(raw), nil
}

func decodeMetadata(customID string) (map[string]string, error) {
	metadata := map[string]string{}
	if err := json.Unmarshal([]byte(customID), &metadata); err != nil {
		return nil, fmt.Errorf("paypal: decode metadata: %w", err)
	}
	return metadata, nil
}
