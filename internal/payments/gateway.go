package payments

import (
	"context"
	"fmt"

	"github.com/mrdelgado-dev/bookbarn-backend/pkg/enums"
)

// CreateIntentParams carries everything a gateway needs to open a payable
// session. Metadata must make the session self-describing: confirmation never
// re-trusts client-supplied line items.
type CreateIntentParams struct {
	AmountCents int64
	Currency    enums.Currency
	Metadata    map[string]string
}

// ConfirmParams carries the externally supplied authorization detail, e.g. a
// Stripe payment method id. PayPal captures approved orders without it.
type ConfirmParams struct {
	PaymentMethod string
}

// Intent is the normalized view of a gateway payment session.
type Intent struct {
	Reference          string
	ContinuationSecret string
	AmountCents        int64
	Currency           enums.Currency
	Status             enums.IntentStatus
	Metadata           map[string]string
	FailureReason      string
}

// Gateway abstracts a payment processor exposing intent create/confirm/retrieve
// semantics. Implementations must never retry a confirmation on their own.
type Gateway interface {
	Provider() enums.PaymentProvider
	CreateIntent(ctx context.Context, params CreateIntentParams) (*Intent, error)
	ConfirmIntent(ctx context.Context, reference string, params ConfirmParams) (*Intent, error)
	RetrieveIntent(ctx context.Context, reference string) (*Intent, error)
	MinimumAmountCents(currency enums.Currency) int64
}

// GatewayError reports a processor-side rejection verbatim.
type GatewayError struct {
	Provider enums.PaymentProvider
	Reason   string
	Err      error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s gateway: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s gateway: %s", e.Provider, e.Reason)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Registry resolves gateways by provider.
type Registry struct {
	gateways map[enums.PaymentProvider]Gateway
}

// NewRegistry indexes the provided gateways by provider.
func NewRegistry(gateways ...Gateway) *Registry {
	indexed := make(map[enums.PaymentProvider]Gateway, len(gateways))
	for _, gw := range gateways {
		if gw == nil {
			continue
		}
		indexed[gw.Provider()] = gw
	}
	return &Registry{gateways: indexed}
}

// Resolve returns the gateway for the provider.
func (r *Registry) Resolve(provider enums.PaymentProvider) (Gateway, error) {
	if r == nil {
		return nil, fmt.Errorf("gateway registry not configured")
	}
	gw, ok := r.gateways[provider]
	if !ok {
		return nil, fmt.Errorf("no gateway registered for provider %q", provider)
	}
	return gw, nil
}
