package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/urban-tuxedo/api/internal/platform/httpx"
	"github.com/urban-tuxedo/api/internal/services"
)

const maxCheckoutRequestBody = 64 * 1024

// CheckoutHandlers exposes the hosted checkout session endpoint.
type CheckoutHandlers struct {
	checkout services.CheckoutService
}

// NewCheckoutHandlers constructs checkout handlers.
func NewCheckoutHandlers(checkout services.CheckoutService) *CheckoutHandlers {
	return &CheckoutHandlers{checkout: checkout}
}

// Routes registers checkout endpoints under the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createSession)
}

type checkoutAddressRequest struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
}

type checkoutCustomerRequest struct {
	FirstName string                 `json:"firstName"`
	LastName  string                 `json:"lastName"`
	Email     string                 `json:"email"`
	Phone     string                 `json:"phone"`
	Address   checkoutAddressRequest `json:"address"`
}

type checkoutItemRequest struct {
	ProductID         string   `json:"productId"`
	Title             string   `json:"title"`
	UnitPrice         float64  `json:"price"`
	Image             string   `json:"image"`
	Gallery           []string `json:"gallery"`
	AvailableVariants []string `json:"availableVariants"`
	SelectedVariant   string   `json:"selectedVariant"`
	Quantity          int64    `json:"qty"`
}

type checkoutSessionRequest struct {
	Customer      checkoutCustomerRequest `json:"customer"`
	PaymentMethod string                  `json:"paymentMethod"`
	Items         []checkoutItemRequest   `json:"items"`
	TotalAmount   float64                 `json:"totalAmount"`
}

type checkoutSessionResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}

func (h *CheckoutHandlers) createSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxCheckoutRequestBody)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
		return
	}

	var req checkoutSessionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	items := make([]services.CheckoutItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, services.CheckoutItemInput{
			ProductID:         item.ProductID,
			Title:             item.Title,
			UnitPrice:         item.UnitPrice,
			PrimaryImage:      item.Image,
			Gallery:           item.Gallery,
			AvailableVariants: item.AvailableVariants,
			SelectedVariant:   item.SelectedVariant,
			Quantity:          item.Quantity,
		})
	}

	cmd := services.CreateCheckoutCommand{
		Customer: services.CustomerInput{
			FirstName: req.Customer.FirstName,
			LastName:  req.Customer.LastName,
			Email:     req.Customer.Email,
			Phone:     req.Customer.Phone,
			Address: services.AddressInput{
				Street:  req.Customer.Address.Street,
				City:    req.Customer.Address.City,
				State:   req.Customer.Address.State,
				ZipCode: req.Customer.Address.ZipCode,
			},
		},
		PaymentMethod: req.PaymentMethod,
		Items:         items,
		TotalAmount:   req.TotalAmount,
	}

	session, err := h.checkout.CreateSession(ctx, cmd)
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, checkoutSessionResponse{
		SessionID: session.SessionID,
		URL:       session.RedirectURL,
		ExpiresAt: formatTime(session.ExpiresAt),
	})
}

func (h *CheckoutHandlers) writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutGateway):
		httpx.WriteError(ctx, w, httpx.NewError("payment_gateway_error", "payment session could not be created", http.StatusBadGateway))
	case errors.Is(err, services.ErrCheckoutUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("checkout_error", "failed to process checkout request", http.StatusInternalServerError))
	}
}
