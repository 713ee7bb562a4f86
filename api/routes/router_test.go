package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	cartrepo "github.com/mrdelgado-dev/bookbarn-backend/internal/cart"
	"github.com/mrdelgado-dev/bookbarn-backend/internal/notify"
	"github.com/mrdelgado-dev/bookbarn-backend/internal/settlement"
	pkgAuth "github.com/mrdelgado-dev/bookbarn-backend/pkg/auth"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/config"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/db/models"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/enums"
	pkgerrors "github.com/mrdelgado-dev/bookbarn-backend/pkg/errors"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSettlementService struct{}

func (stubSettlementService) CreateCharge(ctx context.Context, userID uuid.UUID, input settlement.ChargeInput) (*settlement.ChargeQuote, error) {
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "not implemented")
}

func (stubSettlementService) ConfirmCharge(ctx context.Context, userID uuid.UUID, input settlement.ConfirmInput) (*settlement.ConfirmResult, error) {
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "not implemented")
}

func (stubSettlementService) SettleFromGateway(ctx context.Context, provider enums.PaymentProvider, paymentIntentID string) (*settlement.ConfirmResult, error) {
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "not implemented")
}

func (stubSettlementService) CaptureFromGateway(ctx context.Context, provider enums.PaymentProvider, paymentIntentID string) (*settlement.ConfirmResult, error) {
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "not implemented")
}

func (stubSettlementService) GetSettlementStatus(ctx context.Context, orderID, userID uuid.UUID) (*settlement.Status, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

type stubCartRepo struct{}

func (s stubCartRepo) WithTx(tx *gorm.DB) cartrepo.Repository {
	return s
}

func (stubCartRepo) FindOrCreateByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return &models.Cart{ID: uuid.New(), UserID: userID}, nil
}

func (stubCartRepo) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return &models.Cart{ID: uuid.New(), UserID: userID}, nil
}

func (stubCartRepo) AddItem(ctx context.Context, cartID, bookID uuid.UUID, qty int) (*models.CartItem, error) {
	return &models.CartItem{ID: uuid.New(), CartID: cartID, BookID: bookID, Qty: qty}, nil
}

func (stubCartRepo) RemoveItems(ctx context.Context, cartID uuid.UUID, bookIDs []uuid.UUID) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Output: io.Discard})
	return NewRouter(Deps{
		Config:     cfg,
		Logger:     logg,
		DB:         stubPinger{},
		Settlement: stubSettlementService{},
		CartRepo:   stubCartRepo{},
		Directory:  notify.NewDirectory(),
	})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthEndpointsArePublic(t *testing.T) {
	router := newTestRouter(testConfig())

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s got %d", path, resp.Code)
		}
	}
}

func TestCheckoutRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/charges", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestCartSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with token got %d", resp.Code)
	}
}

func TestNotificationsRequireAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	customer := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/ws", nil)
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}
}

func TestOrderLookupIsScopedByToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 from stub service got %d", resp.Code)
	}
}

func TestWebhookRouteRejectsUnsignedPayload(t *testing.T) {
	router := newTestRouter(testConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without signature got %d", resp.Code)
	}
}
