package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/urban-tuxedo/api/internal/services"
)

type stubCheckoutService struct {
	createFunc func(ctx context.Context, cmd services.CreateCheckoutCommand) (services.CheckoutSession, error)
}

func (s *stubCheckoutService) CreateSession(ctx context.Context, cmd services.CreateCheckoutCommand) (services.CheckoutSession, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, cmd)
	}
	return services.CheckoutSession{}, nil
}

const checkoutPayload = `{
	"customer": {
		"firstName": "Ada",
		"lastName": "Lovelace",
		"email": "ada@example.com",
		"address": {"street": "1 Savile Row", "city": "London", "zipCode": "W1S 3PB"}
	},
	"paymentMethod": "card",
	"items": [
		{"productId": "prd_1", "title": "Midnight Tuxedo", "price": 199.99, "selectedVariant": "40R", "qty": 2}
	],
	"totalAmount": 404.97
}`

func TestCheckoutHandlersCreateSessionSuccess(t *testing.T) {
	router := chi.NewRouter()
	var captured services.CreateCheckoutCommand
	service := &stubCheckoutService{
		createFunc: func(ctx context.Context, cmd services.CreateCheckoutCommand) (services.CheckoutSession, error) {
			captured = cmd
			return services.CheckoutSession{
				SessionID:   "cs_test_123",
				RedirectURL: "https://checkout.example/cs_test_123",
				Token:       "pp_abc",
				ExpiresAt:   time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC),
			}, nil
		},
	}

	NewCheckoutHandlers(service).Routes(router)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(checkoutPayload))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp checkoutSessionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.SessionID != "cs_test_123" {
		t.Fatalf("unexpected session id %s", resp.SessionID)
	}
	if resp.URL != "https://checkout.example/cs_test_123" {
		t.Fatalf("unexpected redirect url %s", resp.URL)
	}

	if captured.Customer.Email != "ada@example.com" {
		t.Fatalf("unexpected customer email %s", captured.Customer.Email)
	}
	if len(captured.Items) != 1 || captured.Items[0].Quantity != 2 || captured.Items[0].UnitPrice != 199.99 {
		t.Fatalf("unexpected items %#v", captured.Items)
	}
	if captured.TotalAmount != 404.97 {
		t.Fatalf("unexpected total %v", captured.TotalAmount)
	}
}

func TestCheckoutHandlersCreateSessionInvalidJSON(t *testing.T) {
	router := chi.NewRouter()
	NewCheckoutHandlers(&stubCheckoutService{}).Routes(router)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestCheckoutHandlersCreateSessionEmptyBody(t *testing.T) {
	router := chi.NewRouter()
	NewCheckoutHandlers(&stubCheckoutService{}).Routes(router)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestCheckoutHandlersCreateSessionMapsServiceErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid_input", services.ErrCheckoutInvalidInput, http.StatusBadRequest},
		{"gateway", services.ErrCheckoutGateway, http.StatusBadGateway},
		{"unavailable", services.ErrCheckoutUnavailable, http.StatusServiceUnavailable},
		{"unexpected", context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := chi.NewRouter()
			NewCheckoutHandlers(&stubCheckoutService{
				createFunc: func(context.Context, services.CreateCheckoutCommand) (services.CheckoutSession, error) {
					return services.CheckoutSession{}, tc.err
				},
			}).Routes(router)

			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(checkoutPayload))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rr.Code)
			}
		})
	}
}
