package payments

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v78"
)

type stubSessionAPI struct {
	lastParams *stripe.CheckoutSessionParams
	session    *stripe.CheckoutSession
	err        error
}

func (s *stubSessionAPI) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	s.lastParams = params
	if s.err != nil {
		return nil, s.err
	}
	return s.session, nil
}

type stubIntentAPI struct {
	intent *stripe.PaymentIntent
	err    error
}

func (s *stubIntentAPI) Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.intent, nil
}

func newTestProvider(t *testing.T, sessions *stubSessionAPI, intents *stubIntentAPI, verify stripeEventVerifier) *StripeProvider {
	t.Helper()
	if sessions == nil {
		sessions = &stubSessionAPI{session: &stripe.CheckoutSession{ID: "cs_test"}}
	}
	if intents == nil {
		intents = &stubIntentAPI{intent: &stripe.PaymentIntent{ID: "pi_test"}}
	}
	provider, err := NewStripeProvider(StripeProviderConfig{
		WebhookSecret: "whsec_test",
		Clock:         func() time.Time { return time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC) },
		clients:       &stripeClients{sessions: sessions, intents: intents},
		verifier:      verify,
	})
	if err != nil {
		t.Fatalf("NewStripeProvider returned error: %v", err)
	}
	return provider
}

func TestCreateCheckoutSessionBuildsLineItems(t *testing.T) {
	sessions := &stubSessionAPI{session: &stripe.CheckoutSession{
		ID:  "cs_test",
		URL: "https://checkout.stripe.com/pay/cs_test",
	}}
	provider := newTestProvider(t, sessions, nil, nil)

	session, err := provider.CreateCheckoutSession(context.Background(), CheckoutSessionRequest{
		Currency:       "GBP",
		SuccessURL:     "https://shop.example/success",
		CancelURL:      "https://shop.example/cancel",
		IdempotencyKey: "checkout-pp_01",
		Metadata:       map[string]string{"purchaseToken": "pp_01"},
		Items: []CheckoutLineItem{
			{Name: "Navy Two-Piece", Variant: "42R", Image: "https://cdn.example/navy.jpg", Quantity: 2, Amount: 19999},
			{Name: "Silk Tie", Quantity: 1, Amount: 2999},
		},
	})
	if err != nil {
		t.Fatalf("CreateCheckoutSession returned error: %v", err)
	}
	if session.ID != "cs_test" {
		t.Fatalf("session id = %q, want cs_test", session.ID)
	}
	if session.RedirectURL != "https://checkout.stripe.com/pay/cs_test" {
		t.Fatalf("redirect url = %q", session.RedirectURL)
	}

	params := sessions.lastParams
	if params == nil {
		t.Fatal("expected session params to be captured")
	}
	if got := params.Metadata["purchaseToken"]; got != "pp_01" {
		t.Fatalf("metadata purchaseToken = %q, want pp_01", got)
	}
	if params.PaymentIntentData == nil || params.PaymentIntentData.Metadata["purchaseToken"] != "pp_01" {
		t.Fatal("expected purchase token on payment intent metadata")
	}
	if len(params.LineItems) != 2 {
		t.Fatalf("line items = %d, want 2", len(params.LineItems))
	}
	first := params.LineItems[0]
	if got := stripe.Int64Value(first.PriceData.UnitAmount); got != 19999 {
		t.Fatalf("unit amount = %d, want 19999", got)
	}
	if got := stripe.StringValue(first.PriceData.Currency); got != "gbp" {
		t.Fatalf("currency = %q, want gbp", got)
	}
	if got := stripe.StringValue(first.PriceData.ProductData.Description); got != "42R" {
		t.Fatalf("variant description = %q, want 42R", got)
	}
	if len(first.PriceData.ProductData.Images) != 1 {
		t.Fatal("expected product image to be forwarded")
	}
}

func TestCreateCheckoutSessionPropagatesError(t *testing.T) {
	sessions := &stubSessionAPI{err: errors.New("stripe unavailable")}
	provider := newTestProvider(t, sessions, nil, nil)

	if _, err := provider.CreateCheckoutSession(context.Background(), CheckoutSessionRequest{Currency: "GBP"}); err == nil {
		t.Fatal("expected error from session creation")
	}
}

func TestVerifyEventNormalisesCheckoutSession(t *testing.T) {
	raw, err := json.Marshal(map[string]any{
		"id":             "cs_test",
		"metadata":       map[string]string{"purchaseToken": "pp_01"},
		"payment_intent": "pi_test",
	})
	if err != nil {
		t.Fatalf("marshal session payload: %v", err)
	}

	verify := func(payload []byte, header, secret string) (stripe.Event, error) {
		if secret != "whsec_test" {
			t.Fatalf("secret = %q, want whsec_test", secret)
		}
		if header != "sig_header" {
			t.Fatalf("header = %q, want sig_header", header)
		}
		return stripe.Event{
			ID:   "evt_01",
			Type: "checkout.session.completed",
			Data: &stripe.EventData{Raw: raw},
		}, nil
	}
	provider := newTestProvider(t, nil, nil, verify)

	event, err := provider.VerifyEvent([]byte(`{}`), "sig_header")
	if err != nil {
		t.Fatalf("VerifyEvent returned error: %v", err)
	}
	if event.Type != "checkout.session.completed" {
		t.Fatalf("event type = %q", event.Type)
	}
	if event.SessionID != "cs_test" {
		t.Fatalf("session id = %q, want cs_test", event.SessionID)
	}
	if event.Metadata["purchaseToken"] != "pp_01" {
		t.Fatalf("metadata purchaseToken = %q, want pp_01", event.Metadata["purchaseToken"])
	}
	if event.PaymentIntentID != "pi_test" {
		t.Fatalf("payment intent = %q, want pi_test", event.PaymentIntentID)
	}
}

func TestVerifyEventRejectsBadSignature(t *testing.T) {
	verify := func(payload []byte, header, secret string) (stripe.Event, error) {
		return stripe.Event{}, errors.New("signature mismatch")
	}
	provider := newTestProvider(t, nil, nil, verify)

	if _, err := provider.VerifyEvent([]byte(`{}`), "bad"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("VerifyEvent error = %v, want ErrInvalidSignature", err)
	}
}

func TestLookupPaymentMapsStatus(t *testing.T) {
	intents := &stubIntentAPI{intent: &stripe.PaymentIntent{
		ID:       "pi_test",
		Status:   stripe.PaymentIntentStatusSucceeded,
		Amount:   22998,
		Currency: "gbp",
	}}
	provider := newTestProvider(t, nil, intents, nil)

	details, err := provider.LookupPayment(context.Background(), "pi_test")
	if err != nil {
		t.Fatalf("LookupPayment returned error: %v", err)
	}
	if details.Status != StatusSucceeded {
		t.Fatalf("status = %q, want succeeded", details.Status)
	}
	if details.Currency != "GBP" {
		t.Fatalf("currency = %q, want GBP", details.Currency)
	}
}
