package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/mrdelgado-dev/bookbarn-backend/api/middleware"
	"github.com/mrdelgado-dev/bookbarn-backend/internal/settlement"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/enums"
	pkgerrors "github.com/mrdelgado-dev/bookbarn-backend/pkg/errors"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/logger"
)

type stubSettlement struct {
	createFn  func(ctx context.Context, userID uuid.UUID, input settlement.ChargeInput) (*settlement.ChargeQuote, error)
	confirmFn func(ctx context.Context, userID uuid.UUID, input settlement.ConfirmInput) (*settlement.ConfirmResult, error)
}

func (s stubSettlement) CreateCharge(ctx context.Context, userID uuid.UUID, input settlement.ChargeInput) (*settlement.ChargeQuote, error) {
	if s.createFn != nil {
		return s.createFn(ctx, userID, input)
	}
	return &settlement.ChargeQuote{}, nil
}

func (s stubSettlement) ConfirmCharge(ctx context.Context, userID uuid.UUID, input settlement.ConfirmInput) (*settlement.ConfirmResult, error) {
	if s.confirmFn != nil {
		return s.confirmFn(ctx, userID, input)
	}
	return &settlement.ConfirmResult{}, nil
}

func (stubSettlement) SettleFromGateway(ctx context.Context, provider enums.PaymentProvider, paymentIntentID string) (*settlement.ConfirmResult, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (stubSettlement) CaptureFromGateway(ctx context.Context, provider enums.PaymentProvider, paymentIntentID string) (*settlement.ConfirmResult, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (stubSettlement) GetSettlementStatus(ctx context.Context, orderID, userID uuid.UUID) (*settlement.Status, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test-controllers", Output: io.Discard})
}

func authedRequest(method, target, body string, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	ctx := middleware.WithUserID(req.Context(), userID.String())
	return req.WithContext(ctx)
}

func TestCreateChargeReturns201WithQuote(t *testing.T) {
	userID := uuid.New()
	bookID := uuid.New()
	svc := stubSettlement{
		createFn: func(ctx context.Context, gotUser uuid.UUID, input settlement.ChargeInput) (*settlement.ChargeQuote, error) {
			if gotUser != userID {
				t.Fatalf("expected user %s got %s", userID, gotUser)
			}
			if input.Provider != enums.PaymentProviderStripe {
				t.Fatalf("unexpected provider %q", input.Provider)
			}
			return &settlement.ChargeQuote{
				PaymentIntentID: "pi_test",
				Provider:        input.Provider,
				AmountCents:     2000,
				Currency:        enums.CurrencyUSD,
			}, nil
		},
	}

	body := `{"provider":"stripe","items":[{"book_id":"` + bookID.String() + `","qty":2}]}`
	req := authedRequest(http.MethodPost, "/api/v1/checkout/charges", body, userID)
	resp := httptest.NewRecorder()
	CreateCharge(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data settlement.ChargeQuote `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.PaymentIntentID != "pi_test" || envelope.Data.AmountCents != 2000 {
		t.Fatalf("unexpected quote %+v", envelope.Data)
	}
}

func TestCreateChargeRejectsMissingIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/charges", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	CreateCharge(stubSettlement{}, testLogger())(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCreateChargeRejectsMalformedBody(t *testing.T) {
	req := authedRequest(http.MethodPost, "/api/v1/checkout/charges", `{"provider":`, uuid.New())
	resp := httptest.NewRecorder()
	CreateCharge(stubSettlement{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestConfirmChargeStatusReflectsSettlement(t *testing.T) {
	orderID := uuid.New()

	settled := stubSettlement{
		confirmFn: func(ctx context.Context, userID uuid.UUID, input settlement.ConfirmInput) (*settlement.ConfirmResult, error) {
			return &settlement.ConfirmResult{
				Settled:         true,
				OrderID:         orderID,
				Status:          enums.OrderStatusCompleted,
				Provider:        input.Provider,
				PaymentIntentID: input.PaymentIntentID,
			}, nil
		},
	}
	body := `{"provider":"stripe","payment_intent_id":"pi_test"}`
	req := authedRequest(http.MethodPost, "/api/v1/checkout/charges/confirm", body, uuid.New())
	resp := httptest.NewRecorder()
	ConfirmCharge(settled, testLogger())(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for settled charge got %d", resp.Code)
	}

	pending := stubSettlement{
		confirmFn: func(ctx context.Context, userID uuid.UUID, input settlement.ConfirmInput) (*settlement.ConfirmResult, error) {
			return &settlement.ConfirmResult{
				RequiresAction:     true,
				ContinuationSecret: "secret",
				Provider:           input.Provider,
				PaymentIntentID:    input.PaymentIntentID,
			}, nil
		},
	}
	req = authedRequest(http.MethodPost, "/api/v1/checkout/charges/confirm", body, uuid.New())
	resp = httptest.NewRecorder()
	ConfirmCharge(pending, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for resumable charge got %d", resp.Code)
	}
}

func TestConfirmChargeSurfacesPaymentFailure(t *testing.T) {
	declined := stubSettlement{
		confirmFn: func(ctx context.Context, userID uuid.UUID, input settlement.ConfirmInput) (*settlement.ConfirmResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodePayment, "payment was declined")
		},
	}
	body := `{"provider":"stripe","payment_intent_id":"pi_test"}`
	req := authedRequest(http.MethodPost, "/api/v1/checkout/charges/confirm", body, uuid.New())
	resp := httptest.NewRecorder()
	ConfirmCharge(declined, testLogger())(resp, req)

	if resp.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 got %d", resp.Code)
	}
}
