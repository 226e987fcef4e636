package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/urban-tuxedo/api/internal/domain"
	"github.com/urban-tuxedo/api/internal/payments"
	"github.com/urban-tuxedo/api/internal/platform/metrics"
	"github.com/urban-tuxedo/api/internal/repositories"
)

const defaultPendingPurchaseTTL = time.Hour

var (
	// ErrCheckoutInvalidInput indicates the caller supplied invalid input parameters.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCheckoutGateway indicates the payment processor rejected or failed the session call.
	ErrCheckoutGateway = errors.New("checkout: gateway failure")
	// ErrCheckoutUnavailable indicates checkout dependencies are currently unavailable.
	ErrCheckoutUnavailable = errors.New("checkout: unavailable")
)

// checkoutSessionCreator abstracts the payments provider for easier testing.
type checkoutSessionCreator interface {
	CreateCheckoutSession(ctx context.Context, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error)
}

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	Pending     repositories.PendingPurchaseRepository
	Payments    checkoutSessionCreator
	Currency    string
	SuccessURL  string
	CancelURL   string
	PendingTTL  time.Duration
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
	Metrics     *metrics.Metrics
}

type checkoutService struct {
	pending    repositories.PendingPurchaseRepository
	payments   checkoutSessionCreator
	currency   string
	successURL string
	cancelURL  string
	pendingTTL time.Duration
	now        func() time.Time
	newID      func() string
	logger     func(context.Context, string, map[string]any)
	metrics    *metrics.Metrics
}

var _ CheckoutService = (*checkoutService)(nil)

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Pending == nil {
		return nil, errors.New("checkout service: pending purchase repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("checkout service: payments provider is required")
	}
	successURL := strings.TrimSpace(deps.SuccessURL)
	cancelURL := strings.TrimSpace(deps.CancelURL)
	if successURL == "" || cancelURL == "" {
		return nil, errors.New("checkout service: success and cancel urls are required")
	}

	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = "GBP"
	}
	ttl := deps.PendingTTL
	if ttl <= 0 {
		ttl = defaultPendingPurchaseTTL
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &checkoutService{
		pending:    deps.Pending,
		payments:   deps.Payments,
		currency:   currency,
		successURL: successURL,
		cancelURL:  cancelURL,
		pendingTTL: ttl,
		now: func() time.Time {
			return clock().UTC()
		},
		newID:   idGen,
		logger:  logger,
		metrics: deps.Metrics,
	}, nil
}

// CreateSession validates the checkout payload, stages a pending purchase, and
// opens a hosted payment session carrying the purchase token in its metadata.
// The pending purchase is written before the gateway call so a webhook landing
// early can still resolve it; on gateway failure it is left to expire.
func (s *checkoutService) CreateSession(ctx context.Context, cmd CreateCheckoutCommand) (CheckoutSession, error) {
	if s == nil || s.pending == nil || s.payments == nil {
		return CheckoutSession{}, ErrCheckoutUnavailable
	}

	pendingPurchase, err := s.buildPendingPurchase(cmd)
	if err != nil {
		s.countSession("invalid")
		return CheckoutSession{}, err
	}

	if err := s.pending.Insert(ctx, pendingPurchase); err != nil {
		s.logger(ctx, "checkout.pending_insert_failed", map[string]any{
			"token": pendingPurchase.Token,
			"error": err.Error(),
		})
		s.countSession("error")
		return CheckoutSession{}, fmt.Errorf("%w: stage pending purchase: %v", ErrCheckoutUnavailable, err)
	}

	session, err := s.payments.CreateCheckoutSession(ctx, s.buildSessionRequest(pendingPurchase))
	if err != nil {
		s.logger(ctx, "checkout.gateway_failed", map[string]any{
			"token": pendingPurchase.Token,
			"error": err.Error(),
		})
		s.countSession("gateway_error")
		return CheckoutSession{}, fmt.Errorf("%w: %v", ErrCheckoutGateway, err)
	}

	s.logger(ctx, "checkout.session_created", map[string]any{
		"token":     pendingPurchase.Token,
		"sessionId": session.ID,
		"amount":    pendingPurchase.TotalAmount,
	})
	s.countSession("created")

	return CheckoutSession{
		SessionID:   session.ID,
		RedirectURL: session.RedirectURL,
		Token:       pendingPurchase.Token,
		ExpiresAt:   session.ExpiresAt,
	}, nil
}

func (s *checkoutService) buildPendingPurchase(cmd CreateCheckoutCommand) (domain.PendingPurchase, error) {
	customer := domain.Customer{
		FirstName: strings.TrimSpace(cmd.Customer.FirstName),
		LastName:  strings.TrimSpace(cmd.Customer.LastName),
		Email:     strings.ToLower(strings.TrimSpace(cmd.Customer.Email)),
		Phone:     strings.TrimSpace(cmd.Customer.Phone),
		Address: domain.Address{
			Street:  strings.TrimSpace(cmd.Customer.Address.Street),
			City:    strings.TrimSpace(cmd.Customer.Address.City),
			State:   strings.TrimSpace(cmd.Customer.Address.State),
			ZipCode: strings.TrimSpace(cmd.Customer.Address.ZipCode),
		},
	}
	if customer.Email == "" || !strings.Contains(customer.Email, "@") {
		return domain.PendingPurchase{}, fmt.Errorf("%w: customer email is required", ErrCheckoutInvalidInput)
	}
	if customer.FullName() == "" {
		return domain.PendingPurchase{}, fmt.Errorf("%w: customer name is required", ErrCheckoutInvalidInput)
	}

	method, ok := domain.ValidPaymentMethod(cmd.PaymentMethod)
	if !ok {
		return domain.PendingPurchase{}, fmt.Errorf("%w: unknown payment method %q", ErrCheckoutInvalidInput, cmd.PaymentMethod)
	}

	if len(cmd.Items) == 0 {
		return domain.PendingPurchase{}, fmt.Errorf("%w: at least one item is required", ErrCheckoutInvalidInput)
	}
	if cmd.TotalAmount <= 0 {
		return domain.PendingPurchase{}, fmt.Errorf("%w: total amount must be positive", ErrCheckoutInvalidInput)
	}

	items := make([]domain.LineItem, 0, len(cmd.Items))
	for i, input := range cmd.Items {
		title := strings.TrimSpace(input.Title)
		if title == "" {
			return domain.PendingPurchase{}, fmt.Errorf("%w: item %d title is required", ErrCheckoutInvalidInput, i)
		}
		if input.Quantity <= 0 {
			return domain.PendingPurchase{}, fmt.Errorf("%w: item %d quantity must be positive", ErrCheckoutInvalidInput, i)
		}
		if input.UnitPrice < 0 {
			return domain.PendingPurchase{}, fmt.Errorf("%w: item %d unit price cannot be negative", ErrCheckoutInvalidInput, i)
		}
		items = append(items, domain.LineItem{
			ProductID:         strings.TrimSpace(input.ProductID),
			Title:             title,
			UnitPrice:         input.UnitPrice,
			Images:            domain.ProductImages{Primary: strings.TrimSpace(input.PrimaryImage), Gallery: input.Gallery},
			AvailableVariants: input.AvailableVariants,
			SelectedVariant:   strings.TrimSpace(input.SelectedVariant),
			Quantity:          input.Quantity,
		})
	}

	subtotal := domain.ItemsTotal(items)
	if cmd.TotalAmount+0.005 < subtotal {
		return domain.PendingPurchase{}, fmt.Errorf("%w: total amount below item subtotal", ErrCheckoutInvalidInput)
	}

	now := s.now()
	return domain.PendingPurchase{
		Token:         "pp_" + s.newID(),
		Customer:      customer,
		PaymentMethod: method,
		Items:         items,
		Currency:      s.currency,
		TotalAmount:   cmd.TotalAmount,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.pendingTTL),
	}, nil
}

func (s *checkoutService) buildSessionRequest(pending domain.PendingPurchase) payments.CheckoutSessionRequest {
	lines := make([]payments.CheckoutLineItem, 0, len(pending.Items))
	for _, item := range pending.Items {
		lines = append(lines, payments.CheckoutLineItem{
			Name:     item.Title,
			Variant:  item.SelectedVariant,
			Image:    item.Images.DisplayImage(),
			Quantity: item.Quantity,
			Amount:   domain.MinorUnits(item.UnitPrice),
			Currency: pending.Currency,
		})
	}

	shipping := domain.ShippingPortion(pending.TotalAmount, domain.ItemsTotal(pending.Items))
	if amount := domain.MinorUnits(shipping); amount > 0 {
		lines = append(lines, payments.CheckoutLineItem{
			Name:     "Shipping",
			Quantity: 1,
			Amount:   amount,
			Currency: pending.Currency,
		})
	}

	return payments.CheckoutSessionRequest{
		Amount:         domain.MinorUnits(pending.TotalAmount),
		Currency:       pending.Currency,
		CustomerEmail:  pending.Customer.Email,
		SuccessURL:     s.successURL,
		CancelURL:      s.cancelURL,
		Metadata:       map[string]string{"purchaseToken": pending.Token},
		IdempotencyKey: "checkout-" + pending.Token,
		Items:          lines,
	}
}

func (s *checkoutService) countSession(status string) {
	if s.metrics != nil {
		s.metrics.CheckoutSessions.WithLabelValues(status).Inc()
	}
}
