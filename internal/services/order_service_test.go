package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	domain "github.com/urban-tuxedo/api/internal/domain"
)

func pendingFixture() domain.PendingPurchase {
	return domain.PendingPurchase{
		Token: "pp_abc",
		Customer: domain.Customer{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
		},
		PaymentMethod: domain.PaymentMethodCard,
		Items: []domain.LineItem{
			{ProductID: "prd_1", Title: "Midnight Tuxedo", UnitPrice: 199.99, SelectedVariant: "40R", Quantity: 2},
		},
		Currency:    "GBP",
		TotalAmount: 404.97,
	}
}

func TestOrderServiceMaterializeOrder(t *testing.T) {
	now := fixedClock()()
	pending := pendingFixture()

	orderRepo := &stubOrderRepo{
		insertFromPendingFunc: func(ctx context.Context, token string, build func(domain.PendingPurchase) (domain.Order, error)) (domain.Order, error) {
			if token != "pp_abc" {
				t.Fatalf("unexpected token %s", token)
			}
			return build(pending)
		},
	}

	dispatcher := &syncDispatcher{}
	var adjusted Order
	inventory := &stubInventoryService{
		adjustFunc: func(ctx context.Context, order Order) (StockAdjustmentReport, error) {
			adjusted = order
			return StockAdjustmentReport{Requested: 1, Matched: 1}, nil
		},
	}
	var confirmed, alerted bool
	notifications := &stubNotificationService{
		confirmationFunc: func(context.Context, Order) error {
			confirmed = true
			return nil
		},
		ownerFunc: func(context.Context, Order) error {
			alerted = true
			return nil
		},
	}

	service := newTestOrderService(t, orderRepo, inventory, notifications, dispatcher)
	order, err := service.MaterializeOrder(context.Background(), "pp_abc", "pi_123")
	if err != nil {
		t.Fatalf("MaterializeOrder: %v", err)
	}

	if order.ID != "ord_01TESTULID" {
		t.Fatalf("unexpected order id %s", order.ID)
	}
	if order.Status != domain.OrderStatusProcessing {
		t.Fatalf("expected processing status, got %s", order.Status)
	}
	if order.PaymentRef != "pi_123" {
		t.Fatalf("unexpected payment ref %s", order.PaymentRef)
	}
	if math.Abs(order.TotalAmount-404.97) > 0.005 {
		t.Fatalf("expected recomputed total 404.97, got %v", order.TotalAmount)
	}
	if !order.CreatedAt.Equal(now) || !order.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected timestamps %v %v", order.CreatedAt, order.UpdatedAt)
	}

	for _, name := range []string{"order.inventory_adjust", "order.confirmation_email", "order.owner_alert"} {
		if !dispatcher.dispatched(name) {
			t.Fatalf("expected task %s to be dispatched, got %v", name, dispatcher.names)
		}
	}
	if adjusted.ID != order.ID {
		t.Fatalf("inventory adjusted for wrong order %s", adjusted.ID)
	}
	if !confirmed || !alerted {
		t.Fatalf("expected confirmation and owner emails, got confirmed=%v alerted=%v", confirmed, alerted)
	}
}

func TestOrderServiceMaterializeOrderPendingGone(t *testing.T) {
	orderRepo := &stubOrderRepo{
		insertFromPendingFunc: func(context.Context, string, func(domain.PendingPurchase) (domain.Order, error)) (domain.Order, error) {
			return domain.Order{}, stubRepositoryError{notFound: true}
		},
	}
	dispatcher := &syncDispatcher{}

	service := newTestOrderService(t, orderRepo, &stubInventoryService{}, &stubNotificationService{}, dispatcher)
	if _, err := service.MaterializeOrder(context.Background(), "pp_gone", "pi_1"); !errors.Is(err, ErrOrderPendingNotFound) {
		t.Fatalf("expected ErrOrderPendingNotFound, got %v", err)
	}
	if len(dispatcher.names) != 0 {
		t.Fatalf("no tasks should run for a missing pending purchase, got %v", dispatcher.names)
	}
}

func TestOrderServiceMaterializeOrderRequiresToken(t *testing.T) {
	service := newTestOrderService(t, &stubOrderRepo{}, &stubInventoryService{}, &stubNotificationService{}, &syncDispatcher{})
	if _, err := service.MaterializeOrder(context.Background(), "  ", "pi_1"); !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput, got %v", err)
	}
}

func TestOrderServiceInventoryMismatchDoesNotFailOrder(t *testing.T) {
	pending := pendingFixture()
	orderRepo := &stubOrderRepo{
		insertFromPendingFunc: func(ctx context.Context, token string, build func(domain.PendingPurchase) (domain.Order, error)) (domain.Order, error) {
			return build(pending)
		},
	}
	inventory := &stubInventoryService{
		adjustFunc: func(context.Context, Order) (StockAdjustmentReport, error) {
			return StockAdjustmentReport{Requested: 1, Mismatched: 1}, nil
		},
	}

	service := newTestOrderService(t, orderRepo, inventory, &stubNotificationService{}, &syncDispatcher{})
	if _, err := service.MaterializeOrder(context.Background(), "pp_abc", "pi_1"); err != nil {
		t.Fatalf("stock mismatch must not fail materialisation: %v", err)
	}
}

func TestOrderServiceGetOrder(t *testing.T) {
	orderRepo := &stubOrderRepo{
		findByIDFunc: func(ctx context.Context, orderID string) (domain.Order, error) {
			if orderID != "ord_1" {
				return domain.Order{}, stubRepositoryError{notFound: true}
			}
			return domain.Order{ID: "ord_1"}, nil
		},
	}
	service := newTestOrderService(t, orderRepo, &stubInventoryService{}, &stubNotificationService{}, &syncDispatcher{})

	order, err := service.GetOrder(context.Background(), "ord_1")
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if order.ID != "ord_1" {
		t.Fatalf("unexpected order %s", order.ID)
	}

	if _, err := service.GetOrder(context.Background(), "ord_missing"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if _, err := service.GetOrder(context.Background(), ""); !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput, got %v", err)
	}
}

func TestOrderServiceListOrdersByEmail(t *testing.T) {
	orderRepo := &stubOrderRepo{
		listByEmailFunc: func(ctx context.Context, email string) ([]domain.Order, error) {
			if email != "ada@example.com" {
				t.Fatalf("expected lowercased email, got %s", email)
			}
			return []domain.Order{{ID: "ord_1"}}, nil
		},
	}
	service := newTestOrderService(t, orderRepo, &stubInventoryService{}, &stubNotificationService{}, &syncDispatcher{})

	orders, err := service.ListOrdersByEmail(context.Background(), " Ada@Example.com ")
	if err != nil {
		t.Fatalf("ListOrdersByEmail: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}

	empty := newTestOrderService(t, &stubOrderRepo{
		listByEmailFunc: func(context.Context, string) ([]domain.Order, error) {
			return nil, nil
		},
	}, &stubInventoryService{}, &stubNotificationService{}, &syncDispatcher{})
	if _, err := empty.ListOrdersByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound for empty result, got %v", err)
	}
}

func TestOrderServiceUpdateStatusDispatchesNotification(t *testing.T) {
	orderRepo := &stubOrderRepo{
		updateStatusFunc: func(ctx context.Context, orderID string, status domain.OrderStatus, updatedAt time.Time) (domain.Order, error) {
			return domain.Order{ID: orderID, Status: status, UpdatedAt: updatedAt}, nil
		},
	}
	dispatcher := &syncDispatcher{}
	var notified Order
	notifications := &stubNotificationService{
		statusFunc: func(ctx context.Context, order Order) error {
			notified = order
			return nil
		},
	}

	service := newTestOrderService(t, orderRepo, &stubInventoryService{}, notifications, dispatcher)
	order, err := service.UpdateStatus(context.Background(), "ord_1", "OutForDelivery")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if order.Status != domain.OrderStatusOutForDelivery {
		t.Fatalf("unexpected status %s", order.Status)
	}
	if !dispatcher.dispatched("order.status_notification") {
		t.Fatalf("expected status notification dispatch, got %v", dispatcher.names)
	}
	if notified.ID != "ord_1" {
		t.Fatalf("notification sent for wrong order %s", notified.ID)
	}
}

func TestOrderServiceUpdateStatusProcessingSendsNothing(t *testing.T) {
	orderRepo := &stubOrderRepo{
		updateStatusFunc: func(ctx context.Context, orderID string, status domain.OrderStatus, updatedAt time.Time) (domain.Order, error) {
			return domain.Order{ID: orderID, Status: status}, nil
		},
	}
	dispatcher := &syncDispatcher{}

	service := newTestOrderService(t, orderRepo, &stubInventoryService{}, &stubNotificationService{}, dispatcher)
	if _, err := service.UpdateStatus(context.Background(), "ord_1", "Processing"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if len(dispatcher.names) != 0 {
		t.Fatalf("no notification expected for processing, got %v", dispatcher.names)
	}
}

func TestOrderServiceUpdateStatusErrors(t *testing.T) {
	service := newTestOrderService(t, &stubOrderRepo{}, &stubInventoryService{}, &stubNotificationService{}, &syncDispatcher{})

	if _, err := service.UpdateStatus(context.Background(), "ord_1", "teleported"); !errors.Is(err, ErrOrderInvalidStatus) {
		t.Fatalf("expected ErrOrderInvalidStatus, got %v", err)
	}
	if _, err := service.UpdateStatus(context.Background(), "ord_missing", "Delivered"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func newTestOrderService(t *testing.T, orders *stubOrderRepo, inventory InventoryService, notifications NotificationService, dispatcher TaskDispatcher) OrderService {
	t.Helper()
	service, err := NewOrderService(OrderServiceDeps{
		Orders:        orders,
		Inventory:     inventory,
		Notifications: notifications,
		Dispatcher:    dispatcher,
		Clock:         fixedClock(),
		IDGenerator:   func() string { return "01TESTULID" },
	})
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}
	return service
}
