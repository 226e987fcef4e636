package services

import (
	"context"
	"errors"
	"testing"

	"github.com/urban-tuxedo/api/internal/payments"
)

func TestWebhookServiceHandleEventOrderCreated(t *testing.T) {
	verifier := &stubEventVerifier{
		verifyFunc: func(payload []byte, signature string) (payments.WebhookEvent, error) {
			if signature != "t=1,v1=abc" {
				t.Fatalf("unexpected signature %s", signature)
			}
			return payments.WebhookEvent{
				ID:              "evt_1",
				Type:            "checkout.session.completed",
				SessionID:       "cs_1",
				PaymentIntentID: "pi_1",
				Metadata:        map[string]string{"purchaseToken": "pp_abc"},
			}, nil
		},
	}

	var gotToken, gotRef string
	orders := &stubOrderService{
		materializeFunc: func(ctx context.Context, token, paymentRef string) (Order, error) {
			gotToken = token
			gotRef = paymentRef
			return Order{ID: "ord_1"}, nil
		},
	}

	service := newTestWebhookService(t, verifier, orders)
	result, err := service.HandleEvent(context.Background(), []byte(`{}`), "t=1,v1=abc")
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if result.Outcome != WebhookOutcomeOrderCreated {
		t.Fatalf("expected order_created, got %s", result.Outcome)
	}
	if result.OrderID != "ord_1" {
		t.Fatalf("unexpected order id %s", result.OrderID)
	}
	if gotToken != "pp_abc" || gotRef != "pi_1" {
		t.Fatalf("unexpected materialize call token=%s ref=%s", gotToken, gotRef)
	}
}

func TestWebhookServiceHandleEventBadSignature(t *testing.T) {
	verifier := &stubEventVerifier{
		verifyFunc: func([]byte, string) (payments.WebhookEvent, error) {
			return payments.WebhookEvent{}, payments.ErrInvalidSignature
		},
	}
	orders := &stubOrderService{
		materializeFunc: func(context.Context, string, string) (Order, error) {
			t.Fatal("order materialised despite bad signature")
			return Order{}, nil
		},
	}

	service := newTestWebhookService(t, verifier, orders)
	if _, err := service.HandleEvent(context.Background(), []byte(`{}`), "bogus"); !errors.Is(err, ErrWebhookSignature) {
		t.Fatalf("expected ErrWebhookSignature, got %v", err)
	}
}

func TestWebhookServiceHandleEventIgnoresOtherTypes(t *testing.T) {
	verifier := &stubEventVerifier{
		verifyFunc: func([]byte, string) (payments.WebhookEvent, error) {
			return payments.WebhookEvent{ID: "evt_2", Type: "payment_intent.created"}, nil
		},
	}

	service := newTestWebhookService(t, verifier, &stubOrderService{
		materializeFunc: func(context.Context, string, string) (Order, error) {
			t.Fatal("order materialised for unrelated event type")
			return Order{}, nil
		},
	})

	result, err := service.HandleEvent(context.Background(), []byte(`{}`), "sig")
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if result.Outcome != WebhookOutcomeIgnored {
		t.Fatalf("expected ignored, got %s", result.Outcome)
	}
	if result.EventType != "payment_intent.created" {
		t.Fatalf("unexpected event type %s", result.EventType)
	}
}

func TestWebhookServiceHandleEventMissingToken(t *testing.T) {
	verifier := &stubEventVerifier{
		verifyFunc: func([]byte, string) (payments.WebhookEvent, error) {
			return payments.WebhookEvent{
				ID:        "evt_3",
				Type:      "checkout.session.completed",
				SessionID: "cs_3",
				Metadata:  map[string]string{},
			}, nil
		},
	}

	service := newTestWebhookService(t, verifier, &stubOrderService{})
	result, err := service.HandleEvent(context.Background(), []byte(`{}`), "sig")
	if err != nil {
		t.Fatalf("missing token must be acknowledged, got %v", err)
	}
	if result.Outcome != WebhookOutcomeTokenUnknown {
		t.Fatalf("expected token_unknown, got %s", result.Outcome)
	}
}

func TestWebhookServiceHandleEventConsumedToken(t *testing.T) {
	verifier := &stubEventVerifier{
		verifyFunc: func([]byte, string) (payments.WebhookEvent, error) {
			return payments.WebhookEvent{
				ID:       "evt_4",
				Type:     "checkout.session.completed",
				Metadata: map[string]string{"purchaseToken": "pp_used"},
			}, nil
		},
	}
	orders := &stubOrderService{
		materializeFunc: func(context.Context, string, string) (Order, error) {
			return Order{}, ErrOrderPendingNotFound
		},
	}

	service := newTestWebhookService(t, verifier, orders)
	result, err := service.HandleEvent(context.Background(), []byte(`{}`), "sig")
	if err != nil {
		t.Fatalf("consumed token must be acknowledged, got %v", err)
	}
	if result.Outcome != WebhookOutcomeTokenUnknown {
		t.Fatalf("expected token_unknown, got %s", result.Outcome)
	}
}

func TestWebhookServiceHandleEventMaterializeFailure(t *testing.T) {
	verifier := &stubEventVerifier{
		verifyFunc: func([]byte, string) (payments.WebhookEvent, error) {
			return payments.WebhookEvent{
				Type:     "checkout.session.completed",
				Metadata: map[string]string{"purchaseToken": "pp_x"},
			}, nil
		},
	}
	failure := errors.New("transaction aborted")
	orders := &stubOrderService{
		materializeFunc: func(context.Context, string, string) (Order, error) {
			return Order{}, failure
		},
	}

	service := newTestWebhookService(t, verifier, orders)
	if _, err := service.HandleEvent(context.Background(), []byte(`{}`), "sig"); !errors.Is(err, failure) {
		t.Fatalf("expected storage failure to propagate, got %v", err)
	}
}

func newTestWebhookService(t *testing.T, verifier *stubEventVerifier, orders OrderService) WebhookService {
	t.Helper()
	service, err := NewWebhookService(WebhookServiceDeps{
		Payments: verifier,
		Orders:   orders,
		Clock:    fixedClock(),
	})
	if err != nil {
		t.Fatalf("NewWebhookService: %v", err)
	}
	return service
}
