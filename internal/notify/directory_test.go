package notify

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mrdelgado-dev/bookbarn-backend/pkg/db/models"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/enums"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/logger"
)

func TestDeliverReachesEveryRegisteredChannel(t *testing.T) {
	t.Parallel()

	dir := NewDirectory()
	userID := uuid.New()
	first := make(chan Event, 1)
	second := make(chan Event, 1)
	dir.Register(userID, first)
	dir.Register(userID, second)

	if got := dir.Deliver(userID, Event{Type: "test"}); got != 2 {
		t.Fatalf("expected 2 deliveries, got %d", got)
	}
	for _, ch := range []chan Event{first, second} {
		select {
		case event := <-ch:
			if event.Type != "test" {
				t.Fatalf("unexpected event type %q", event.Type)
			}
		default:
			t.Fatal("expected event on channel")
		}
	}
}

func TestDeliverDropsSilently(t *testing.T) {
	t.Parallel()

	dir := NewDirectory()
	userID := uuid.New()

	// Nobody registered.
	if got := dir.Deliver(userID, Event{Type: "test"}); got != 0 {
		t.Fatalf("expected 0 deliveries for absent user, got %d", got)
	}

	// Registered but full.
	full := make(chan Event, 1)
	full <- Event{Type: "stale"}
	dir.Register(userID, full)
	if got := dir.Deliver(userID, Event{Type: "test"}); got != 0 {
		t.Fatalf("expected full channel to be skipped, got %d deliveries", got)
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	t.Parallel()

	dir := NewDirectory()
	userID := uuid.New()
	ch := make(chan Event, 1)
	dir.Register(userID, ch)
	dir.Unregister(userID, ch)

	if got := dir.Deliver(userID, Event{Type: "test"}); got != 0 {
		t.Fatalf("expected 0 deliveries after unregister, got %d", got)
	}
}

func TestCloseShutsDownChannels(t *testing.T) {
	t.Parallel()

	dir := NewDirectory()
	userID := uuid.New()
	ch := make(chan Event, 1)
	dir.Register(userID, ch)

	dir.Close()
	if _, open := <-ch; open {
		t.Fatal("expected channel to be closed")
	}
	if dir.Register(userID, make(chan Event, 1)) {
		t.Fatal("expected registration on closed directory to be refused")
	}
	if got := dir.Deliver(userID, Event{Type: "test"}); got != 0 {
		t.Fatalf("expected 0 deliveries after close, got %d", got)
	}
}

type stubAdminLister struct {
	ids []uuid.UUID
}

func (s *stubAdminLister) ListAdminIDs(context.Context) ([]uuid.UUID, error) {
	return s.ids, nil
}

func TestDispatcherFansOutToAdmins(t *testing.T) {
	t.Parallel()

	dir := NewDirectory()
	adminA := uuid.New()
	adminB := uuid.New()
	chA := make(chan Event, 1)
	chB := make(chan Event, 1)
	dir.Register(adminA, chA)
	dir.Register(adminB, chB)

	dispatcher, err := NewDispatcher(dir, &stubAdminLister{ids: []uuid.UUID{adminA, adminB}}, testLogger())
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	now := time.Now().UTC()
	dispatcher.OrderSettled(context.Background(), &models.Order{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Total:       decimal.NewFromInt(42),
		Currency:    enums.CurrencyUSD,
		Provider:    enums.PaymentProviderStripe,
		CompletedAt: &now,
	})

	for _, ch := range []chan Event{chA, chB} {
		select {
		case event := <-ch:
			if event.Type != EventOrderSettled {
				t.Fatalf("unexpected event type %q", event.Type)
			}
		default:
			t.Fatal("expected settlement event on admin channel")
		}
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "notify-test", Output: io.Discard})
}
