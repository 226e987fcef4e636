package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	domain "github.com/urban-tuxedo/api/internal/domain"
	"github.com/urban-tuxedo/api/internal/platform/mail"
	"github.com/urban-tuxedo/api/internal/platform/metrics"
)

const orderRefLength = 10

var (
	// ErrNotificationInvalidInput indicates required order fields were missing.
	ErrNotificationInvalidInput = errors.New("notification: invalid input")

	confirmationTemplate = template.Must(template.New("confirmation").Parse(`<h2>Thank you for your order, {{.CustomerName}}!</h2>
<p>Your order <strong>#{{.OrderRef}}</strong> was placed on {{.OrderDate}} and is now being processed.</p>
<table border="1" cellpadding="6" cellspacing="0">
  <tr><th>Item</th><th>Variant</th><th>Qty</th><th>Price</th></tr>
  {{range .Items}}<tr><td>{{.Title}}</td><td>{{.Variant}}</td><td>{{.Quantity}}</td><td>{{$.Currency}} {{.LineTotal}}</td></tr>
  {{end}}
</table>
<p>Subtotal: {{.Currency}} {{.Subtotal}}<br>
Shipping: {{.Currency}} {{.Shipping}}<br>
<strong>Total: {{.Currency}} {{.Total}}</strong></p>
<p>We will deliver to:<br>{{.AddressLine}}</p>`))

	ownerTemplate = template.Must(template.New("owner").Parse(`<h2>New order #{{.OrderRef}}</h2>
<p>Placed on {{.OrderDate}} by {{.CustomerName}} ({{.CustomerEmail}}).</p>
<table border="1" cellpadding="6" cellspacing="0">
  <tr><th>Item</th><th>Variant</th><th>Qty</th><th>Price</th></tr>
  {{range .Items}}<tr><td>{{.Title}}</td><td>{{.Variant}}</td><td>{{.Quantity}}</td><td>{{$.Currency}} {{.LineTotal}}</td></tr>
  {{end}}
</table>
<p><strong>Total: {{.Currency}} {{.Total}}</strong></p>
<p>Deliver to: {{.AddressLine}}</p>`))

	statusTemplate = template.Must(template.New("status").Parse(`<h2>{{.Heading}}</h2>
<p>Hello {{.CustomerName}},</p>
<p>{{.Body}}</p>
<p>Order reference: <strong>#{{.OrderRef}}</strong></p>`))
)

// NotificationServiceDeps wires the dependencies required by the notification service.
type NotificationServiceDeps struct {
	Sender       mail.Sender
	OwnerAddress string
	Clock        func() time.Time
	Logger       func(ctx context.Context, event string, fields map[string]any)
	Metrics      *metrics.Metrics
}

type notificationService struct {
	sender  mail.Sender
	owner   string
	now     func() time.Time
	logger  func(context.Context, string, map[string]any)
	metrics *metrics.Metrics
}

var _ NotificationService = (*notificationService)(nil)

// NewNotificationService constructs a NotificationService validating required dependencies.
func NewNotificationService(deps NotificationServiceDeps) (NotificationService, error) {
	if deps.Sender == nil {
		return nil, errors.New("notification service: mail sender is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &notificationService{
		sender: deps.Sender,
		owner:  strings.TrimSpace(deps.OwnerAddress),
		now: func() time.Time {
			return clock().UTC()
		},
		logger:  logger,
		metrics: deps.Metrics,
	}, nil
}

// SendOrderConfirmation emails the customer an itemised receipt.
func (s *notificationService) SendOrderConfirmation(ctx context.Context, order Order) error {
	view, err := newOrderView(order)
	if err != nil {
		return err
	}

	var body bytes.Buffer
	if err := confirmationTemplate.Execute(&body, view); err != nil {
		return fmt.Errorf("render confirmation email: %w", err)
	}

	return s.deliver(ctx, "order_confirmation", mail.Message{
		To:      order.Customer.Email,
		Subject: fmt.Sprintf("Your Urban Tuxedo order #%s", view.OrderRef),
		HTML:    body.String(),
	})
}

// SendOwnerAlert emails the shop owner about a newly confirmed order.
func (s *notificationService) SendOwnerAlert(ctx context.Context, order Order) error {
	if s.owner == "" {
		return nil
	}
	view, err := newOrderView(order)
	if err != nil {
		return err
	}

	var body bytes.Buffer
	if err := ownerTemplate.Execute(&body, view); err != nil {
		return fmt.Errorf("render owner email: %w", err)
	}

	return s.deliver(ctx, "owner_alert", mail.Message{
		To:      s.owner,
		Subject: fmt.Sprintf("New order #%s (%s %s)", view.OrderRef, view.Currency, view.Total),
		HTML:    body.String(),
	})
}

// SendStatusUpdate emails the customer a status-specific notification.
func (s *notificationService) SendStatusUpdate(ctx context.Context, order Order) error {
	view, err := newOrderView(order)
	if err != nil {
		return err
	}

	subject, heading, text, ok := statusCopy(order.Status, view.OrderRef)
	if !ok {
		return nil
	}

	var body bytes.Buffer
	if err := statusTemplate.Execute(&body, statusView{
		CustomerName: view.CustomerName,
		OrderRef:     view.OrderRef,
		Heading:      heading,
		Body:         text,
	}); err != nil {
		return fmt.Errorf("render status email: %w", err)
	}

	return s.deliver(ctx, "status_update", mail.Message{
		To:      order.Customer.Email,
		Subject: subject,
		HTML:    body.String(),
	})
}

func (s *notificationService) deliver(ctx context.Context, kind string, msg mail.Message) error {
	if err := s.sender.Send(ctx, msg); err != nil {
		s.countEmail(kind, "failed")
		s.logger(ctx, "notification.send_failed", map[string]any{
			"kind":  kind,
			"to":    msg.To,
			"error": err.Error(),
		})
		return fmt.Errorf("send %s email: %w", kind, err)
	}
	s.countEmail(kind, "sent")
	s.logger(ctx, "notification.sent", map[string]any{
		"kind": kind,
		"to":   msg.To,
	})
	return nil
}

func (s *notificationService) countEmail(kind, status string) {
	if s.metrics != nil {
		s.metrics.EmailsSent.WithLabelValues(kind, status).Inc()
	}
}

type orderView struct {
	OrderRef      string
	OrderDate     string
	CustomerName  string
	CustomerEmail string
	AddressLine   string
	Currency      string
	Items         []orderLineView
	Subtotal      string
	Shipping      string
	Total         string
}

type orderLineView struct {
	Title     string
	Variant   string
	Quantity  int64
	LineTotal string
}

type statusView struct {
	CustomerName string
	OrderRef     string
	Heading      string
	Body         string
}

func newOrderView(order domain.Order) (orderView, error) {
	if strings.TrimSpace(order.Customer.Email) == "" {
		return orderView{}, fmt.Errorf("%w: order %s has no customer email", ErrNotificationInvalidInput, order.ID)
	}

	subtotal := order.Subtotal()
	shipping := domain.ShippingPortion(order.TotalAmount, subtotal)

	lines := make([]orderLineView, 0, len(order.Items))
	for _, item := range order.Items {
		variant := item.SelectedVariant
		if variant == "" {
			variant = "-"
		}
		lines = append(lines, orderLineView{
			Title:     item.Title,
			Variant:   variant,
			Quantity:  item.Quantity,
			LineTotal: formatAmount(item.LineTotal()),
		})
	}

	return orderView{
		OrderRef:      orderRef(order.ID),
		OrderDate:     order.CreatedAt.Format("2 January 2006"),
		CustomerName:  order.Customer.FullName(),
		CustomerEmail: order.Customer.Email,
		AddressLine:   formatAddress(order.Customer.Address),
		Currency:      order.Currency,
		Items:         lines,
		Subtotal:      formatAmount(subtotal),
		Shipping:      formatAmount(shipping),
		Total:         formatAmount(order.TotalAmount),
	}, nil
}

func statusCopy(status domain.OrderStatus, orderRef string) (subject, heading, body string, ok bool) {
	switch status {
	case domain.OrderStatusOutForDelivery:
		return fmt.Sprintf("Your order #%s is out for delivery", orderRef),
			"Your order is on its way",
			"Our courier has picked up your order and it is out for delivery. Someone should be available to receive it.",
			true
	case domain.OrderStatusDelivered:
		return fmt.Sprintf("Your order #%s has been delivered", orderRef),
			"Your order has arrived",
			"Your order has been delivered. We hope everything fits perfectly. Thank you for shopping with Urban Tuxedo.",
			true
	case domain.OrderStatusCancelled:
		return fmt.Sprintf("Your order #%s has been cancelled", orderRef),
			"Your order was cancelled",
			"Your order has been cancelled. If you were charged, the amount will be refunded to your original payment method.",
			true
	}
	return "", "", "", false
}

func orderRef(orderID string) string {
	ref := strings.TrimPrefix(strings.TrimSpace(orderID), "ord_")
	if len(ref) > orderRefLength {
		ref = ref[:orderRefLength]
	}
	return ref
}

func formatAmount(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}

func formatAddress(address domain.Address) string {
	parts := make([]string, 0, 4)
	for _, part := range []string{address.Street, address.City, address.State, address.ZipCode} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, ", ")
}
