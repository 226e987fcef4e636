package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/urban-tuxedo/api/internal/payments"
	"github.com/urban-tuxedo/api/internal/platform/metrics"
)

const eventCheckoutSessionCompleted = "checkout.session.completed"

var (
	// ErrWebhookSignature indicates the payload failed signature verification.
	ErrWebhookSignature = errors.New("webhook: invalid signature")
	// ErrWebhookUnavailable indicates webhook dependencies are currently unavailable.
	ErrWebhookUnavailable = errors.New("webhook: unavailable")
)

// eventVerifier abstracts the payments provider for easier testing.
type eventVerifier interface {
	VerifyEvent(payload []byte, signature string) (payments.WebhookEvent, error)
}

// WebhookServiceDeps wires the dependencies required by the webhook service.
type WebhookServiceDeps struct {
	Payments eventVerifier
	Orders   OrderService
	Clock    func() time.Time
	Logger   func(ctx context.Context, event string, fields map[string]any)
	Metrics  *metrics.Metrics
}

type webhookService struct {
	payments eventVerifier
	orders   OrderService
	now      func() time.Time
	logger   func(context.Context, string, map[string]any)
	metrics  *metrics.Metrics
}

var _ WebhookService = (*webhookService)(nil)

// NewWebhookService constructs a WebhookService validating required dependencies.
func NewWebhookService(deps WebhookServiceDeps) (WebhookService, error) {
	if deps.Payments == nil {
		return nil, errors.New("webhook service: payments provider is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("webhook service: order service is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &webhookService{
		payments: deps.Payments,
		orders:   deps.Orders,
		now: func() time.Time {
			return clock().UTC()
		},
		logger:  logger,
		metrics: deps.Metrics,
	}, nil
}

// HandleEvent verifies the callback signature and reacts to completed checkout
// sessions by materialising the matching order. Unknown or already-consumed
// tokens are acknowledged without error so the processor never retries them.
func (s *webhookService) HandleEvent(ctx context.Context, payload []byte, signature string) (WebhookResult, error) {
	if s == nil || s.payments == nil || s.orders == nil {
		return WebhookResult{}, ErrWebhookUnavailable
	}

	event, err := s.payments.VerifyEvent(payload, signature)
	if err != nil {
		s.countEvent("unknown", "signature_rejected")
		return WebhookResult{}, fmt.Errorf("%w: %v", ErrWebhookSignature, err)
	}

	result := WebhookResult{EventType: event.Type}
	if event.Type != eventCheckoutSessionCompleted {
		s.countEvent(event.Type, string(WebhookOutcomeIgnored))
		result.Outcome = WebhookOutcomeIgnored
		return result, nil
	}

	token := strings.TrimSpace(event.Metadata["purchaseToken"])
	if token == "" {
		s.logger(ctx, "webhook.token_missing", map[string]any{
			"eventId":   event.ID,
			"sessionId": event.SessionID,
		})
		s.countEvent(event.Type, string(WebhookOutcomeTokenUnknown))
		result.Outcome = WebhookOutcomeTokenUnknown
		return result, nil
	}

	order, err := s.orders.MaterializeOrder(ctx, token, event.PaymentIntentID)
	if err != nil {
		if errors.Is(err, ErrOrderPendingNotFound) {
			s.logger(ctx, "webhook.token_unknown", map[string]any{
				"eventId": event.ID,
				"token":   token,
			})
			s.countEvent(event.Type, string(WebhookOutcomeTokenUnknown))
			result.Outcome = WebhookOutcomeTokenUnknown
			return result, nil
		}
		s.countEvent(event.Type, "error")
		return WebhookResult{}, err
	}

	s.logger(ctx, "webhook.order_created", map[string]any{
		"eventId": event.ID,
		"token":   token,
		"orderId": order.ID,
	})
	s.countEvent(event.Type, string(WebhookOutcomeOrderCreated))

	result.Outcome = WebhookOutcomeOrderCreated
	result.OrderID = order.ID
	return result, nil
}

func (s *webhookService) countEvent(eventType, outcome string) {
	if s.metrics != nil {
		s.metrics.WebhookEvents.WithLabelValues(eventType, outcome).Inc()
	}
}
