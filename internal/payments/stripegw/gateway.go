package stripegw

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"

	"github.com/mrdelgado-dev/bookbarn-backend/internal/payments"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/enums"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/stripeclient"
)

// minimumAmountCents mirrors Stripe's smallest chargeable amount for the
// currencies we settle in.
var minimumAmountCents = map[enums.Currency]int64{
	enums.CurrencyUSD: 50,
	enums.CurrencyEUR: 50,
	enums.CurrencyGBP: 30,
}

// Gateway settles charges through Stripe PaymentIntents.
type Gateway struct {
	client *stripeclient.Client
}

func New(client *stripeclient.Client) (*Gateway, error) {
	if client == nil {
		return nil, fmt.Errorf("stripegw.New: client is required")
	}
	return &Gateway{client: client}, nil
}

func (g *Gateway) Provider() enums.PaymentProvider {
	return enums.PaymentProviderStripe
}

func (g *Gateway) MinimumAmountCents(currency enums.Currency) int64 {
	if min, ok := minimumAmountCents[currency]; ok {
		return min
	}
	return 50
}

func (g *Gateway) CreateIntent(ctx context.Context, params payments.CreateIntentParams) (*payments.Intent, error) {
	piParams := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(params.AmountCents),
		Currency:           stripe.String(strings.ToLower(string(params.Currency))),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	piParams.Context = ctx
	for key, value := range params.Metadata {
		piParams.AddMetadata(key, value)
	}

	pi, err := paymentintent.New(piParams)
	if err != nil {
		return nil, g.wrapErr("create payment intent", err)
	}
	return fromPaymentIntent(pi), nil
}

func (g *Gateway) ConfirmIntent(ctx context.Context, reference string, params payments.ConfirmParams) (*payments.Intent, error) {
	confirmParams := &stripe.PaymentIntentConfirmParams{}
	confirmParams.Context = ctx
	if params.PaymentMethod != "" {
		confirmParams.PaymentMethod = stripe.String(params.PaymentMethod)
	}

	pi, err := paymentintent.Confirm(reference, confirmParams)
	if err != nil {
		if intent := intentFromConfirmError(err); intent != nil {
			return intent, nil
		}
		return nil, g.wrapErr("confirm payment intent", err)
	}
	return fromPaymentIntent(pi), nil
}

// intentFromConfirmError recovers the intent embedded in a rejected confirm.
// A declined card still yields a retrievable intent, and a confirm retried
// against an already-succeeded intent is rejected with
// payment_intent_unexpected_state while the embedded intent reports its real
// status. Succeeded and requires_action outcomes pass through unchanged so a
// retry settles instead of reporting a decline to a charged customer;
// everything else is a failure carrying the decline reason.
func intentFromConfirmError(err error) *payments.Intent {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) || stripeErr.PaymentIntent == nil {
		return nil
	}
	intent := fromPaymentIntent(stripeErr.PaymentIntent)
	switch intent.Status {
	case enums.IntentStatusSucceeded, enums.IntentStatusRequiresAction:
		return intent
	}
	intent.Status = enums.IntentStatusFailed
	intent.FailureReason = declineReason(stripeErr)
	return intent
}

func (g *Gateway) RetrieveIntent(ctx context.Context, reference string) (*payments.Intent, error) {
	getParams := &stripe.PaymentIntentParams{}
	getParams.Context = ctx

	pi, err := paymentintent.Get(reference, getParams)
	if err != nil {
		return nil, g.wrapErr("retrieve payment intent", err)
	}
	return fromPaymentIntent(pi), nil
}

func (g *Gateway) wrapErr(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return &payments.GatewayError{
			Provider: enums.PaymentProviderStripe,
			Reason:   declineReason(stripeErr),
			Err:      err,
		}
	}
	return fmt.Errorf("stripe: %s: %w", op, err)
}

func declineReason(err *stripe.Error) string {
	if err.DeclineCode != "" {
		return string(err.DeclineCode)
	}
	if err.Code != "" {
		return string(err.Code)
	}
	return err.Msg
}

func fromPaymentIntent(pi *stripe.PaymentIntent) *payments.Intent {
	intent := &payments.Intent{
		Reference:          pi.ID,
		ContinuationSecret: pi.ClientSecret,
		AmountCents:        pi.Amount,
		Currency:           enums.Currency(strings.ToUpper(string(pi.Currency))),
		Status:             mapStatus(pi.Status),
		Metadata:           pi.Metadata,
	}
	if pi.LastPaymentError != nil {
		intent.FailureReason = declineReason(pi.LastPaymentError)
	}
	return intent
}

func mapStatus(status stripe.PaymentIntentStatus) enums.IntentStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return enums.IntentStatusSucceeded
	case stripe.PaymentIntentStatusRequiresAction:
		return enums.IntentStatusRequiresAction
	case stripe.PaymentIntentStatusCanceled:
		return enums.IntentStatusFailed
	default:
		return enums.IntentStatusPending
	}
}
