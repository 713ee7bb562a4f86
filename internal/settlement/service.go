package settlement

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mrdelgado-dev/bookbarn-backend/internal/books"
	"github.com/mrdelgado-dev/bookbarn-backend/internal/cart"
	"github.com/mrdelgado-dev/bookbarn-backend/internal/inventory"
	"github.com/mrdelgado-dev/bookbarn-backend/internal/orders"
	"github.com/mrdelgado-dev/bookbarn-backend/internal/payments"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/db"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/db/models"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/enums"
	pkgerrors "github.com/mrdelgado-dev/bookbarn-backend/pkg/errors"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/logger"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/metrics"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/money"
)

const uniquePaymentIntentConstraint = "idx_orders_payment_intent_id"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type reservationRunner interface {
	Reserve(ctx context.Context, tx *gorm.DB, requests []inventory.ReservationRequest) ([]inventory.ReservationResult, error)
}

type settledNotifier interface {
	OrderSettled(ctx context.Context, order *models.Order)
}

type inventoryLedger struct{}

func (inventoryLedger) Reserve(ctx context.Context, tx *gorm.DB, requests []inventory.ReservationRequest) ([]inventory.ReservationResult, error) {
	return inventory.Reserve(ctx, tx, requests)
}

// Service drives a charge from pricing through committed settlement.
type Service interface {
	CreateCharge(ctx context.Context, userID uuid.UUID, input ChargeInput) (*ChargeQuote, error)
	ConfirmCharge(ctx context.Context, userID uuid.UUID, input ConfirmInput) (*ConfirmResult, error)
	SettleFromGateway(ctx context.Context, provider enums.PaymentProvider, paymentIntentID string) (*ConfirmResult, error)
	CaptureFromGateway(ctx context.Context, provider enums.PaymentProvider, paymentIntentID string) (*ConfirmResult, error)
	GetSettlementStatus(ctx context.Context, orderID, userID uuid.UUID) (*Status, error)
}

type service struct {
	tx          txRunner
	booksRepo   books.Repository
	cartRepo    cart.Repository
	ordersRepo  orders.Repository
	gateways    *payments.Registry
	reservation reservationRunner
	notifier    settledNotifier
	metrics     *metrics.SettlementMetrics
	log         *logger.Logger
	currency    enums.Currency
	minCents    int64
}

// Options configures optional collaborators of the settlement service.
type Options struct {
	Reservation reservationRunner
	Notifier    settledNotifier
	Metrics     *metrics.SettlementMetrics
	Currency    enums.Currency
	MinCents    int64
}

// NewService builds the settlement service.
func NewService(
	tx txRunner,
	booksRepo books.Repository,
	cartRepo cart.Repository,
	ordersRepo orders.Repository,
	gateways *payments.Registry,
	log *logger.Logger,
	opts Options,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if booksRepo == nil {
		return nil, fmt.Errorf("books repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if gateways == nil {
		return nil, fmt.Errorf("gateway registry required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	reservation := opts.Reservation
	if reservation == nil {
		reservation = inventoryLedger{}
	}
	currency := opts.Currency
	if currency == "" {
		currency = enums.CurrencyUSD
	}
	minCents := opts.MinCents
	if minCents <= 0 {
		minCents = 50
	}
	return &service{
		tx:          tx,
		booksRepo:   booksRepo,
		cartRepo:    cartRepo,
		ordersRepo:  ordersRepo,
		gateways:    gateways,
		reservation: reservation,
		notifier:    opts.Notifier,
		metrics:     opts.Metrics,
		log:         log,
		currency:    currency,
		minCents:    minCents,
	}, nil
}

// CreateCharge prices the requested lines from the catalog and opens a gateway
// intent carrying a self-describing snapshot of them. No stock is reserved
// here; the pre-check only rejects charges that could never settle.
func (s *service) CreateCharge(ctx context.Context, userID uuid.UUID, input ChargeInput) (*ChargeQuote, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.Provider.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment provider")
	}
	gw, err := s.gateways.Resolve(input.Provider)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported payment provider")
	}

	items := input.Items
	var cartID *uuid.UUID
	if len(items) == 0 {
		record, err := s.cartRepo.FindByUser(ctx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(record.Items) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
		}
		for _, line := range record.Items {
			items = append(items, ChargeItemInput{BookID: line.BookID, Qty: line.Qty})
		}
		cartID = &record.ID
	}

	quoteLines, chargeLines, totalCents, err := s.priceLines(ctx, items)
	if err != nil {
		return nil, err
	}
	if min := gw.MinimumAmountCents(s.currency); totalCents < min || totalCents < s.minCents {
		floor := s.minCents
		if min > floor {
			floor = min
		}
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "charge amount below provider minimum").
			WithDetails(map[string]any{"amount_cents": totalCents, "minimum_cents": floor})
	}

	metadata := map[string]string{
		metaKeyUserID: userID.String(),
		metaKeyLines:  encodeLines(chargeLines),
	}
	if cartID != nil {
		metadata[metaKeyCartID] = cartID.String()
	}

	intent, err := gw.CreateIntent(ctx, payments.CreateIntentParams{
		AmountCents: totalCents,
		Currency:    s.currency,
		Metadata:    metadata,
	})
	if err != nil {
		return nil, s.mapGatewayErr(err, "create payment intent")
	}

	return &ChargeQuote{
		PaymentIntentID:    intent.Reference,
		Provider:           input.Provider,
		ContinuationSecret: intent.ContinuationSecret,
		AmountCents:        totalCents,
		Currency:           s.currency,
		Lines:              quoteLines,
	}, nil
}

func (s *service) priceLines(ctx context.Context, items []ChargeItemInput) ([]QuoteLine, []chargeLine, int64, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.BookID)
	}
	found, err := s.booksRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load books")
	}
	byID := make(map[uuid.UUID]models.Book, len(found))
	for _, book := range found {
		byID[book.ID] = book
	}

	quoteLines := make([]QuoteLine, 0, len(items))
	chargeLines := make([]chargeLine, 0, len(items))
	var totalCents int64
	for i, item := range items {
		if item.Qty <= 0 {
			return nil, nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "line qty must be positive").
				WithDetails(map[string]any{"index": i})
		}
		book, ok := byID[item.BookID]
		if !ok {
			return nil, nil, 0, pkgerrors.New(pkgerrors.CodeNotFound, "book not available").
				WithDetails(map[string]any{"index": i, "book_id": item.BookID})
		}
		if book.Stock < item.Qty {
			return nil, nil, 0, pkgerrors.New(pkgerrors.CodeBusinessRule, "insufficient stock").
				WithDetails(map[string]any{"index": i, "book_id": item.BookID, "available": book.Stock})
		}
		unitCents, err := money.ToCents(book.Price)
		if err != nil {
			return nil, nil, 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "price conversion")
		}
		totalCents += unitCents * int64(item.Qty)
		quoteLines = append(quoteLines, QuoteLine{
			BookID:    book.ID,
			Title:     book.Title,
			UnitPrice: book.Price,
			Qty:       item.Qty,
		})
		chargeLines = append(chargeLines, chargeLine{BookID: book.ID, Qty: item.Qty, UnitCents: unitCents})
	}
	return quoteLines, chargeLines, totalCents, nil
}

// ConfirmCharge settles a previously created charge. The happy path is one
// gateway confirm followed by one transaction that reserves stock, records the
// order, and clears the purchased cart lines. Re-confirming the same intent is
// safe at every point: the order ledger lookup short-circuits before the
// gateway call and the unique payment_intent_id arbitrates after it.
func (s *service) ConfirmCharge(ctx context.Context, userID uuid.UUID, input ConfirmInput) (*ConfirmResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.PaymentIntentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}
	gw, err := s.gateways.Resolve(input.Provider)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported payment provider")
	}
	ctx = s.log.WithPaymentIntent(ctx, input.PaymentIntentID)
	started := time.Now()

	if existing, err := s.ordersRepo.FindByPaymentIntentID(ctx, input.PaymentIntentID); err == nil {
		return s.settledResult(userID, existing)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order lookup")
	}

	intent, err := gw.ConfirmIntent(ctx, input.PaymentIntentID, payments.ConfirmParams{PaymentMethod: input.PaymentMethod})
	if err != nil {
		s.metrics.IncFailed(string(input.Provider), "gateway_error")
		return nil, s.mapGatewayErr(err, "confirm payment intent")
	}

	switch intent.Status {
	case enums.IntentStatusRequiresAction, enums.IntentStatusPending:
		return &ConfirmResult{
			RequiresAction:     true,
			ContinuationSecret: intent.ContinuationSecret,
			Provider:           input.Provider,
			PaymentIntentID:    intent.Reference,
			AmountCents:        intent.AmountCents,
		}, nil
	case enums.IntentStatusFailed:
		s.metrics.IncFailed(string(input.Provider), "declined")
		return nil, pkgerrors.New(pkgerrors.CodePayment, "payment was declined").
			WithDetails(map[string]any{"reason": intent.FailureReason})
	case enums.IntentStatusSucceeded:
		// fall through to commit
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInternal,
			fmt.Sprintf("unexpected intent status %q", intent.Status))
	}

	order, err := s.commit(ctx, userID, input.Provider, intent)
	if err != nil {
		if db.IsUniqueViolation(err, uniquePaymentIntentConstraint) {
			winner, ferr := s.ordersRepo.FindByPaymentIntentID(ctx, intent.Reference)
			if ferr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, ferr, "load settled order")
			}
			return s.settledResult(userID, winner)
		}
		s.metrics.IncFailed(string(input.Provider), "commit_failed")
		return nil, err
	}

	s.metrics.IncCommitted(string(input.Provider))
	s.metrics.ObserveDuration(string(input.Provider), time.Since(started))
	if s.notifier != nil {
		s.notifier.OrderSettled(ctx, order)
	}
	s.log.Info(s.log.WithOrderID(ctx, order.ID.String()), "settlement committed")

	return &ConfirmResult{
		Settled:         true,
		OrderID:         order.ID,
		Status:          order.Status,
		Provider:        input.Provider,
		PaymentIntentID: intent.Reference,
		AmountCents:     intent.AmountCents,
	}, nil
}

// SettleFromGateway settles a charge from a gateway completion signal instead
// of a client confirmation. The intent is retrieved, never re-confirmed, so a
// webhook replayed after an API-side settlement stays harmless. A not yet
// successful intent yields a non-settled result rather than an error; the
// gateway will redeliver.
func (s *service) SettleFromGateway(ctx context.Context, provider enums.PaymentProvider, paymentIntentID string) (*ConfirmResult, error) {
	return s.settleFromSignal(ctx, provider, paymentIntentID, false)
}

// CaptureFromGateway settles a charge from a gateway approval signal. Unlike
// SettleFromGateway it confirms the intent, so a buyer-approved charge that
// the gateway has not yet captured is captured here before the commit. Used
// for approval webhooks where waiting for a separate completion event would
// leave the settlement parked.
func (s *service) CaptureFromGateway(ctx context.Context, provider enums.PaymentProvider, paymentIntentID string) (*ConfirmResult, error) {
	return s.settleFromSignal(ctx, provider, paymentIntentID, true)
}

func (s *service) settleFromSignal(ctx context.Context, provider enums.PaymentProvider, paymentIntentID string, capture bool) (*ConfirmResult, error) {
	if paymentIntentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}
	gw, err := s.gateways.Resolve(provider)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported payment provider")
	}
	ctx = s.log.WithPaymentIntent(ctx, paymentIntentID)

	if existing, err := s.ordersRepo.FindByPaymentIntentID(ctx, paymentIntentID); err == nil {
		return s.settledResult(existing.UserID, existing)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order lookup")
	}

	var intent *payments.Intent
	if capture {
		intent, err = gw.ConfirmIntent(ctx, paymentIntentID, payments.ConfirmParams{})
		if err != nil {
			return nil, s.mapGatewayErr(err, "capture payment intent")
		}
	} else {
		intent, err = gw.RetrieveIntent(ctx, paymentIntentID)
		if err != nil {
			return nil, s.mapGatewayErr(err, "retrieve payment intent")
		}
	}
	if intent.Status != enums.IntentStatusSucceeded {
		return &ConfirmResult{
			Provider:        provider,
			PaymentIntentID: intent.Reference,
			RequiresAction:  intent.Status == enums.IntentStatusRequiresAction,
		}, nil
	}

	owner, ok := intent.Metadata[metaKeyUserID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment intent carries no owner metadata")
	}
	userID, err := uuid.Parse(owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "malformed owner metadata")
	}

	order, err := s.commit(ctx, userID, provider, intent)
	if err != nil {
		if db.IsUniqueViolation(err, uniquePaymentIntentConstraint) {
			winner, ferr := s.ordersRepo.FindByPaymentIntentID(ctx, intent.Reference)
			if ferr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, ferr, "load settled order")
			}
			return s.settledResult(winner.UserID, winner)
		}
		s.metrics.IncFailed(string(provider), "commit_failed")
		return nil, err
	}

	s.metrics.IncCommitted(string(provider))
	if s.notifier != nil {
		s.notifier.OrderSettled(ctx, order)
	}
	s.log.Info(s.log.WithOrderID(ctx, order.ID.String()), "settlement committed from gateway signal")

	return &ConfirmResult{
		Settled:         true,
		OrderID:         order.ID,
		Status:          order.Status,
		Provider:        provider,
		PaymentIntentID: intent.Reference,
		AmountCents:     intent.AmountCents,
	}, nil
}

// commit runs the single settlement transaction: reserve every line, append
// the order, clear the purchased cart lines. Any failure rolls the whole
// transaction back, reservations included.
func (s *service) commit(ctx context.Context, userID uuid.UUID, provider enums.PaymentProvider, intent *payments.Intent) (*models.Order, error) {
	lines, err := s.linesFromIntent(userID, intent)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		requests := make([]inventory.ReservationRequest, len(lines))
		for i, line := range lines {
			requests[i] = inventory.ReservationRequest{BookID: line.BookID, Qty: line.Qty}
		}
		results, err := s.reservation.Reserve(ctx, tx, requests)
		if err != nil {
			return err
		}
		for i, res := range results {
			if !res.Reserved {
				return pkgerrors.New(pkgerrors.CodeBusinessRule, "insufficient stock").
					WithDetails(map[string]any{"index": i, "book_id": res.BookID, "reason": res.Reason})
			}
		}

		booksRepo := s.booksRepo.WithTx(tx)
		lineItems := make([]models.OrderLineItem, 0, len(lines))
		total := decimal.Zero
		bookIDs := make([]uuid.UUID, 0, len(lines))
		for _, line := range lines {
			book, err := booksRepo.FindByID(ctx, line.BookID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book snapshot")
			}
			unitPrice := money.FromCents(line.UnitCents)
			lineItems = append(lineItems, models.OrderLineItem{
				BookID:    line.BookID,
				Title:     book.Title,
				UnitPrice: unitPrice,
				Qty:       line.Qty,
			})
			total = total.Add(money.LineTotal(unitPrice, line.Qty))
			bookIDs = append(bookIDs, line.BookID)
		}

		now := time.Now().UTC()
		candidate := &models.Order{
			UserID:          userID,
			Status:          enums.OrderStatusCompleted,
			Provider:        provider,
			PaymentIntentID: intent.Reference,
			Total:           total,
			Currency:        s.currency,
			Items:           lineItems,
			CompletedAt:     &now,
		}
		created, err := s.ordersRepo.WithTx(tx).Create(ctx, candidate)
		if err != nil {
			return err
		}
		order = created

		if rawCartID, ok := intent.Metadata[metaKeyCartID]; ok {
			cartID, err := uuid.Parse(rawCartID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "malformed cart metadata")
			}
			if err := s.cartRepo.WithTx(tx).RemoveItems(ctx, cartID, bookIDs); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear purchased cart lines")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) linesFromIntent(userID uuid.UUID, intent *payments.Intent) ([]chargeLine, error) {
	owner, ok := intent.Metadata[metaKeyUserID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment intent carries no owner metadata")
	}
	if owner != userID.String() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment intent belongs to another user")
	}
	lines, err := decodeLines(intent.Metadata[metaKeyLines])
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode intent line metadata")
	}
	var totalCents int64
	for _, line := range lines {
		totalCents += line.UnitCents * int64(line.Qty)
	}
	if intent.AmountCents != 0 && totalCents != intent.AmountCents {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "intent amount does not match line metadata").
			WithDetails(map[string]any{
				"intent_cents": strconv.FormatInt(intent.AmountCents, 10),
				"line_cents":   strconv.FormatInt(totalCents, 10),
			})
	}
	return lines, nil
}

func (s *service) settledResult(userID uuid.UUID, order *models.Order) (*ConfirmResult, error) {
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	totalCents, err := money.ToCents(order.Total)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settled order total unreadable")
	}
	return &ConfirmResult{
		Settled:         true,
		OrderID:         order.ID,
		Status:          order.Status,
		Provider:        order.Provider,
		PaymentIntentID: order.PaymentIntentID,
		AmountCents:     totalCents,
	}, nil
}

// GetSettlementStatus returns the owner-scoped view of a settled order.
func (s *service) GetSettlementStatus(ctx context.Context, orderID, userID uuid.UUID) (*Status, error) {
	if orderID == uuid.Nil || userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and user id required")
	}
	order, err := s.ordersRepo.FindByIDForUser(ctx, orderID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	lines := make([]StatusLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, StatusLine{
			BookID:    item.BookID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice,
			Qty:       item.Qty,
		})
	}
	return &Status{
		OrderID:         order.ID,
		Status:          order.Status,
		Provider:        order.Provider,
		PaymentIntentID: order.PaymentIntentID,
		Total:           order.Total,
		Currency:        order.Currency,
		Lines:           lines,
		CompletedAt:     order.CompletedAt,
		CreatedAt:       order.CreatedAt,
	}, nil
}

func (s *service) mapGatewayErr(err error, op string) error {
	var gwErr *payments.GatewayError
	if errors.As(err, &gwErr) {
		return pkgerrors.Wrap(pkgerrors.CodePayment, err, op).
			WithDetails(map[string]any{"provider": gwErr.Provider, "reason": gwErr.Reason})
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
