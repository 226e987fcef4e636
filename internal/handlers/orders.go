package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/urban-tuxedo/api/internal/domain"
	"github.com/urban-tuxedo/api/internal/platform/auth"
	"github.com/urban-tuxedo/api/internal/platform/httpx"
	"github.com/urban-tuxedo/api/internal/services"
)

const maxOrderRequestBody = 4 * 1024

// OrderHandlers exposes order reads and the admin status transition endpoint.
type OrderHandlers struct {
	orders   services.OrderService
	verifier auth.Verifier
}

// NewOrderHandlers constructs order handlers guarded by bearer authentication.
func NewOrderHandlers(orders services.OrderService, verifier auth.Verifier) *OrderHandlers {
	return &OrderHandlers{
		orders:   orders,
		verifier: verifier,
	}
}

// Routes registers order endpoints under the provided router.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	group := r
	if h.verifier != nil {
		group = group.With(auth.RequireAuth(h.verifier))
	}
	group.Get("/", h.listByEmail)
	group.Get("/{orderID}", h.getOrder)
	group.With(auth.RequireAdmin).Put("/{orderID}/status", h.updateStatus)
}

type orderAddressResponse struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
}

type orderCustomerResponse struct {
	FirstName string               `json:"firstName"`
	LastName  string               `json:"lastName"`
	Email     string               `json:"email"`
	Phone     string               `json:"phone,omitempty"`
	Address   orderAddressResponse `json:"address"`
}

type orderItemResponse struct {
	ProductID       string   `json:"productId"`
	Title           string   `json:"title"`
	UnitPrice       float64  `json:"price"`
	Image           string   `json:"image,omitempty"`
	Gallery         []string `json:"gallery,omitempty"`
	SelectedVariant string   `json:"selectedVariant,omitempty"`
	Quantity        int64    `json:"qty"`
}

type orderResponse struct {
	ID            string                `json:"id"`
	Customer      orderCustomerResponse `json:"customer"`
	PaymentMethod string                `json:"paymentMethod"`
	Items         []orderItemResponse   `json:"items"`
	Currency      string                `json:"currency"`
	TotalAmount   float64               `json:"totalAmount"`
	Status        string                `json:"status"`
	PaymentRef    string                `json:"paymentRef,omitempty"`
	CreatedAt     string                `json:"createdAt"`
	UpdatedAt     string                `json:"updatedAt"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

func (h *OrderHandlers) listByEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("orders_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "email query parameter is required", http.StatusBadRequest))
		return
	}

	orders, err := h.orders.ListOrdersByEmail(ctx, email)
	if err != nil {
		h.writeOrderError(ctx, w, err)
		return
	}

	payload := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		payload = append(payload, newOrderResponse(order))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"orders": payload})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("orders_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	order, err := h.orders.GetOrder(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newOrderResponse(order))
}

func (h *OrderHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("orders_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxOrderRequestBody)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	var req updateOrderStatusRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	order, err := h.orders.UpdateStatus(ctx, chi.URLParam(r, "orderID"), req.Status)
	if err != nil {
		h.writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newOrderResponse(order))
}

func (h *OrderHandlers) writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderInvalidStatus):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_status", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to process order request", http.StatusInternalServerError))
	}
}

func newOrderResponse(order domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ProductID:       item.ProductID,
			Title:           item.Title,
			UnitPrice:       item.UnitPrice,
			Image:           item.Images.DisplayImage(),
			Gallery:         item.Images.Gallery,
			SelectedVariant: item.SelectedVariant,
			Quantity:        item.Quantity,
		})
	}

	return orderResponse{
		ID: order.ID,
		Customer: orderCustomerResponse{
			FirstName: order.Customer.FirstName,
			LastName:  order.Customer.LastName,
			Email:     order.Customer.Email,
			Phone:     order.Customer.Phone,
			Address: orderAddressResponse{
				Street:  order.Customer.Address.Street,
				City:    order.Customer.Address.City,
				State:   order.Customer.Address.State,
				ZipCode: order.Customer.Address.ZipCode,
			},
		},
		PaymentMethod: string(order.PaymentMethod),
		Items:         items,
		Currency:      order.Currency,
		TotalAmount:   order.TotalAmount,
		Status:        string(order.Status),
		PaymentRef:    order.PaymentRef,
		CreatedAt:     formatTime(order.CreatedAt),
		UpdatedAt:     formatTime(order.UpdatedAt),
	}
}
