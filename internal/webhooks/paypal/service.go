package paypalwebhook

import (
	"context"
	"encoding/json"

	"github.com/mrdelgado-dev/bookbarn-backend/internal/settlement"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/enums"
	pkgerrors "github.com/mrdelgado-dev/bookbarn-backend/pkg/errors"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/logger"
)

// Event is the subset of a PayPal webhook envelope the settlement path needs.
type Event struct {
	ID           string          `json:"id"`
	EventType    string          `json:"event_type"`
	ResourceType string          `json:"resource_type"`
	Resource     json.RawMessage `json:"resource"`
}

// eventCheckoutOrderApproved and eventCaptureCompleted are the two signals
// PayPal sends for a capturable order; either one may arrive first. Approval
// leaves the order uncaptured, so that event takes the capturing path.
const (
	eventCheckoutOrderApproved = "CHECKOUT.ORDER.APPROVED"
	eventCaptureCompleted      = "PAYMENT.CAPTURE.COMPLETED"
)

type settler interface {
	SettleFromGateway(ctx context.Context, provider enums.PaymentProvider, paymentIntentID string) (*settlement.ConfirmResult, error)
	CaptureFromGateway(ctx context.Context, provider enums.PaymentProvider, paymentIntentID string) (*settlement.ConfirmResult, error)
}

// Service turns PayPal webhook events into settlements.
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

func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	if event == nil || len(event.Resource) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "paypal event resource required")
	}

	switch event.EventType {
	case eventCheckoutOrderApproved, eventCaptureCompleted:
		orderID, err := orderIDFromResource(event)
		if err != nil {
			return err
		}
		var result *settlement.ConfirmResult
		if event.EventType == eventCheckoutOrderApproved {
			result, err = s.settler.CaptureFromGateway(ctx, enums.PaymentProviderPayPal, orderID)
		} else {
			result, err = s.settler.SettleFromGateway(ctx, enums.PaymentProviderPayPal, orderID)
		}
		if err != nil {
			return err
		}
		if !result.Settled {
			s.log.Warn(s.log.WithPaymentIntent(ctx, orderID), "completion event arrived for an unsettleable order")
		}
		return nil
	default:
		return nil
	}
}

// orderIDFromResource pulls the PayPal order id out of the event resource. An
// order event carries it as "id"; a capture event points back at the order
// through supplementary_data.
func orderIDFromResource(event *Event) (string, error) {
	var resource struct {
		ID                string `json:"id"`
		SupplementaryData struct {
			RelatedIDs struct {
				OrderID string `json:"order_id"`
			} `json:"related_ids"`
		} `json:"supplementary_data"`
	}
	if err := json.Unmarshal(event.Resource, &resource); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode paypal event resource")
	}
	if event.EventType == eventCaptureCompleted && resource.SupplementaryData.RelatedIDs.OrderID != "" {
		return resource.SupplementaryData.RelatedIDs.OrderID, nil
	}
	if resource.ID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "paypal event carries no order id")
	}
	return resource.ID, nil
}
