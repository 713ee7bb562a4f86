package stripewebhook

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/stripe/stripe-go/v84"

	"github.com/mrdelgado-dev/bookbarn-backend/internal/settlement"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/enums"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/logger"
)

type stubSettler struct {
	calls   []string
	settled bool
	err     error
}

func (s *stubSettler) SettleFromGateway(_ context.Context, _ enums.PaymentProvider, paymentIntentID string) (*settlement.ConfirmResult, error) {
	s.calls = append(s.calls, paymentIntentID)
	if s.err != nil {
		return nil, s.err
	}
	return &settlement.ConfirmResult{Settled: s.settled, PaymentIntentID: paymentIntentID}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "stripe-webhook-test", Output: io.Discard})
}

func buildEvent(t *testing.T, eventType stripe.EventType, intentID string) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"id": intentID})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &stripe.Event{
		Type: eventType,
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestHandleEventSettlesSucceededIntent(t *testing.T) {
	t.Parallel()

	settler := &stubSettler{settled: true}
	svc, err := NewService(settler, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	event := buildEvent(t, stripe.EventTypePaymentIntentSucceeded, "pi_webhook")
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(settler.calls) != 1 || settler.calls[0] != "pi_webhook" {
		t.Fatalf("expected one settle call for pi_webhook, got %v", settler.calls)
	}
}

func TestHandleEventIgnoresUnrelatedTypes(t *testing.T) {
	t.Parallel()

	settler := &stubSettler{}
	svc, err := NewService(settler, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	event := buildEvent(t, stripe.EventTypeCustomerCreated, "cus_1")
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(settler.calls) != 0 {
		t.Fatalf("expected no settle calls, got %v", settler.calls)
	}
}

func TestHandleEventFailedPaymentDoesNotSettle(t *testing.T) {
	t.Parallel()

	settler := &stubSettler{}
	svc, err := NewService(settler, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	event := buildEvent(t, stripe.EventTypePaymentIntentPaymentFailed, "pi_failed")
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(settler.calls) != 0 {
		t.Fatalf("expected no settle calls, got %v", settler.calls)
	}
}

func TestHandleEventRejectsEmptyEvent(t *testing.T) {
	t.Parallel()

	svc, err := NewService(&stubSettler{}, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.HandleEvent(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil event")
	}
}
