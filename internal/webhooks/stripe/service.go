package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v84"

	"github.com/mrdelgado-dev/bookbarn-backend/internal/settlement"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/enums"
	pkgerrors "github.com/mrdelgado-dev/bookbarn-backend/pkg/errors"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/logger"
)

type settler interface {
	SettleFromGateway(ctx context.Context, provider enums.PaymentProvider, paymentIntentID string) (*settlement.ConfirmResult, error)
}

// Service turns Stripe completion events into settlements. Signature
// verification and event dedupe happen at the controller; by the time an event
// reaches HandleEvent it is authentic and first-seen.
type Service struct {
	settler settler
	log     *logger.Logger
}

func NewService(settler settler, log *logger.Logger) (*Service, error) {
	if settler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settlement service required")
	}
	if log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{settler: settler, log: log}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
		}
		result, err := s.settler.SettleFromGateway(ctx, enums.PaymentProviderStripe, intent.ID)
		if err != nil {
			return err
		}
		if !result.Settled {
			s.log.Warn(s.log.WithPaymentIntent(ctx, intent.ID), "succeeded event arrived for an unsettleable intent")
		}
		return nil
	case stripe.EventTypePaymentIntentPaymentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
		}
		s.log.Info(s.log.WithPaymentIntent(ctx, intent.ID), "payment failed at gateway")
		return nil
	default:
		return nil
	}
}
