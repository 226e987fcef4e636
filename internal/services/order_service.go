package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/urban-tuxedo/api/internal/domain"
	"github.com/urban-tuxedo/api/internal/platform/metrics"
	"github.com/urban-tuxedo/api/internal/repositories"
)

var (
	// ErrOrderInvalidInput indicates the caller supplied invalid input parameters.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderInvalidStatus indicates the requested status is not a known transition target.
	ErrOrderInvalidStatus = errors.New("order: invalid status")
	// ErrOrderNotFound indicates the requested order does not exist.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderPendingNotFound indicates no pending purchase exists for the token.
	ErrOrderPendingNotFound = errors.New("order: pending purchase not found")
)

// OrderServiceDeps wires the dependencies required by the order service.
type OrderServiceDeps struct {
	Orders        repositories.OrderRepository
	Inventory     InventoryService
	Notifications NotificationService
	Dispatcher    TaskDispatcher
	Clock         func() time.Time
	IDGenerator   func() string
	Logger        func(ctx context.Context, event string, fields map[string]any)
	Metrics       *metrics.Metrics
}

type orderService struct {
	orders        repositories.OrderRepository
	inventory     InventoryService
	notifications NotificationService
	dispatcher    TaskDispatcher
	now           func() time.Time
	newID         func() string
	logger        func(context.Context, string, map[string]any)
	metrics       *metrics.Metrics
}

var _ OrderService = (*orderService)(nil)

// NewOrderService constructs an OrderService validating required dependencies.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Inventory == nil {
		return nil, errors.New("order service: inventory service is required")
	}
	if deps.Notifications == nil {
		return nil, errors.New("order service: notification service is required")
	}
	if deps.Dispatcher == nil {
		return nil, errors.New("order service: task dispatcher is required")
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

	return &orderService{
		orders:        deps.Orders,
		inventory:     deps.Inventory,
		notifications: deps.Notifications,
		dispatcher:    deps.Dispatcher,
		now: func() time.Time {
			return clock().UTC()
		},
		newID:   idGen,
		logger:  logger,
		metrics: deps.Metrics,
	}, nil
}

// MaterializeOrder consumes the pending purchase stored under token and creates
// the durable order in one transaction. Exactly one concurrent caller wins;
// the loser observes the pending purchase as already gone. Inventory movements
// and notification emails run off the request path after the commit.
func (s *orderService) MaterializeOrder(ctx context.Context, token, paymentRef string) (Order, error) {
	if s == nil || s.orders == nil {
		return Order{}, errors.New("order service not initialised")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return Order{}, fmt.Errorf("%w: token is required", ErrOrderInvalidInput)
	}

	now := s.now()
	order, err := s.orders.InsertFromPending(ctx, token, func(pending domain.PendingPurchase) (domain.Order, error) {
		subtotal := domain.ItemsTotal(pending.Items)
		total := subtotal + domain.ShippingPortion(pending.TotalAmount, subtotal)
		return domain.Order{
			ID:            "ord_" + s.newID(),
			Customer:      pending.Customer,
			PaymentMethod: pending.PaymentMethod,
			Items:         pending.Items,
			Currency:      pending.Currency,
			TotalAmount:   total,
			Status:        domain.OrderStatusProcessing,
			PaymentRef:    strings.TrimSpace(paymentRef),
			CreatedAt:     now,
			UpdatedAt:     now,
		}, nil
	})
	if err != nil {
		if isRepoNotFound(err) {
			return Order{}, ErrOrderPendingNotFound
		}
		return Order{}, fmt.Errorf("materialize order for token %s: %w", token, err)
	}

	if s.metrics != nil {
		s.metrics.OrdersCreated.Inc()
	}
	s.logger(ctx, "order.created", map[string]any{
		"orderId":    order.ID,
		"token":      token,
		"total":      order.TotalAmount,
		"paymentRef": order.PaymentRef,
	})

	s.dispatchPostConfirmation(order)
	return order, nil
}

// GetOrder loads an order by id.
func (s *orderService) GetOrder(ctx context.Context, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if isRepoNotFound(err) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, err
	}
	return order, nil
}

// ListOrdersByEmail returns the orders placed under the given email address.
func (s *orderService) ListOrdersByEmail(ctx context.Context, email string) ([]Order, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrOrderInvalidInput)
	}

	orders, err := s.orders.ListByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrOrderNotFound
	}
	return orders, nil
}

// UpdateStatus transitions an order to the supplied status and dispatches the
// matching customer notification in the background.
func (s *orderService) UpdateStatus(ctx context.Context, orderID, status string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	newStatus, ok := domain.ValidOrderStatus(status)
	if !ok {
		return Order{}, fmt.Errorf("%w: %q", ErrOrderInvalidStatus, status)
	}

	order, err := s.orders.UpdateStatus(ctx, orderID, newStatus, s.now())
	if err != nil {
		if isRepoNotFound(err) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, err
	}

	s.logger(ctx, "order.status_updated", map[string]any{
		"orderId": order.ID,
		"status":  string(order.Status),
	})

	if newStatus != domain.OrderStatusProcessing {
		statusOrder := order
		s.dispatcher.Dispatch("order.status_notification", func(ctx context.Context) {
			if err := s.notifications.SendStatusUpdate(ctx, statusOrder); err != nil {
				s.logger(ctx, "order.status_notification_failed", map[string]any{
					"orderId": statusOrder.ID,
					"error":   err.Error(),
				})
			}
		})
	}
	return order, nil
}

func (s *orderService) dispatchPostConfirmation(order Order) {
	s.dispatcher.Dispatch("order.inventory_adjust", func(ctx context.Context) {
		report, err := s.inventory.AdjustForOrder(ctx, order)
		if err != nil {
			s.logger(ctx, "order.inventory_adjust_failed", map[string]any{
				"orderId": order.ID,
				"error":   err.Error(),
			})
			return
		}
		if report.Mismatched > 0 {
			s.logger(ctx, "order.inventory_mismatch", map[string]any{
				"orderId":    order.ID,
				"requested":  report.Requested,
				"matched":    report.Matched,
				"mismatched": report.Mismatched,
			})
		}
	})

	s.dispatcher.Dispatch("order.confirmation_email", func(ctx context.Context) {
		if err := s.notifications.SendOrderConfirmation(ctx, order); err != nil {
			s.logger(ctx, "order.confirmation_email_failed", map[string]any{
				"orderId": order.ID,
				"error":   err.Error(),
			})
		}
	})

	s.dispatcher.Dispatch("order.owner_alert", func(ctx context.Context) {
		if err := s.notifications.SendOwnerAlert(ctx, order); err != nil {
			s.logger(ctx, "order.owner_alert_failed", map[string]any{
				"orderId": order.ID,
				"error":   err.Error(),
			})
		}
	})
}
