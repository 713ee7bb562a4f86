package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mrdelgado-dev/bookbarn-backend/pkg/db"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/db/models"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/enums"
	pkgerrors "github.com/mrdelgado-dev/bookbarn-backend/pkg/errors"
)

func TestCreateRejectsDuplicatePaymentIntent(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	userID := uuid.New()

	first := buildOrder(userID, "pi_duplicate")
	if _, err := repo.Create(ctx, first); err != nil {
		t.Fatalf("create first order: %v", err)
	}

	second := buildOrder(uuid.New(), "pi_duplicate")
	_, err := repo.Create(ctx, second)
	if err == nil {
		t.Fatal("expected unique violation for duplicate payment intent id")
	}
	if !db.IsUniqueViolation(err, "idx_orders_payment_intent_id") {
		t.Fatalf("expected unique violation, got %v", err)
	}

	winner, err := repo.FindByPaymentIntentID(ctx, "pi_duplicate")
	if err != nil {
		t.Fatalf("find winner: %v", err)
	}
	if winner.UserID != userID {
		t.Fatalf("expected first writer to win, got order for %s", winner.UserID)
	}
}

func TestFindByIDForUserScopesToOwner(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	owner := uuid.New()

	order, err := repo.Create(ctx, buildOrder(owner, "pi_owner_scope"))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if _, err := repo.FindByIDForUser(ctx, order.ID, owner); err != nil {
		t.Fatalf("owner lookup: %v", err)
	}
	if _, err := repo.FindByIDForUser(ctx, order.ID, uuid.New()); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected record not found for stranger, got %v", err)
	}
}

func TestCreatePersistsLineItems(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	order := buildOrder(uuid.New(), "pi_with_lines")
	order.Items = []models.OrderLineItem{
		{BookID: uuid.New(), Title: "The Go Programming Language", UnitPrice: decimal.NewFromInt(30), Qty: 1},
		{BookID: uuid.New(), Title: "Designing Data-Intensive Applications", UnitPrice: decimal.NewFromInt(45), Qty: 2},
	}

	created, err := repo.Create(ctx, order)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	loaded, err := repo.FindByPaymentIntentID(ctx, "pi_with_lines")
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if len(loaded.Items) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(loaded.Items))
	}
	if loaded.ID != created.ID {
		t.Fatalf("reload returned unexpected order %s", loaded.ID)
	}
}

func TestUpdateStatusForwardOnly(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	order, err := repo.Create(ctx, buildOrder(uuid.New(), "pi_status"))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusCompleted); err != nil {
		t.Fatalf("advance status: %v", err)
	}
	err = repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPending)
	if err == nil {
		t.Fatal("expected backward transition to be rejected")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeBusinessRule {
		t.Fatalf("unexpected error: %v", err)
	}
}

func buildOrder(userID uuid.UUID, paymentIntentID string) *models.Order {
	return &models.Order{
		UserID:          userID,
		Status:          enums.OrderStatusPending,
		Provider:        enums.PaymentProviderStripe,
		PaymentIntentID: paymentIntentID,
		Total:           decimal.NewFromInt(30),
		Currency:        enums.CurrencyUSD,
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Order{}, &models.OrderLineItem{}); err != nil {
		t.Fatalf("migrate orders: %v", err)
	}
	return conn
}
