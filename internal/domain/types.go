package domain

import (
	"strings"
	"time"
)

// OrderStatus enumerates the fulfilment states an order moves through.
type OrderStatus string

const (
	OrderStatusProcessing     OrderStatus = "Processing"
	OrderStatusOutForDelivery OrderStatus = "OutForDelivery"
	OrderStatusDelivered      OrderStatus = "Delivered"
	OrderStatusCancelled      OrderStatus = "Cancelled"
)

// ValidOrderStatus reports whether the supplied value is a known status.
func ValidOrderStatus(value string) (OrderStatus, bool) {
	switch OrderStatus(strings.TrimSpace(value)) {
	case OrderStatusProcessing:
		return OrderStatusProcessing, true
	case OrderStatusOutForDelivery:
		return OrderStatusOutForDelivery, true
	case OrderStatusDelivered:
		return OrderStatusDelivered, true
	case OrderStatusCancelled:
		return OrderStatusCancelled, true
	}
	return "", false
}

// PaymentMethod identifies how the customer chose to pay.
type PaymentMethod string

const (
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodCashOnDelivery PaymentMethod = "cod"
)

// ValidPaymentMethod reports whether the supplied value is a known method,
// defaulting blank input to card.
func ValidPaymentMethod(value string) (PaymentMethod, bool) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(value))) {
	case PaymentMethodCard, "":
		return PaymentMethodCard, true
	case PaymentMethodCashOnDelivery:
		return PaymentMethodCashOnDelivery, true
	}
	return "", false
}

// Address is the postal address captured at checkout.
type Address struct {
	Street  string
	City    string
	State   string
	ZipCode string
}

// Customer carries the contact details embedded in pending purchases and orders.
type Customer struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   Address
}

// FullName joins the customer name parts for display and email templates.
func (c Customer) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

// ProductImages groups the primary image with the gallery shots.
type ProductImages struct {
	Primary string
	Gallery []string
}

// DisplayImage returns the image shown on checkout lines and emails,
// falling back from the primary image to the first gallery entry.
func (p ProductImages) DisplayImage() string {
	if img := strings.TrimSpace(p.Primary); img != "" {
		return img
	}
	for _, img := range p.Gallery {
		if trimmed := strings.TrimSpace(img); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// Product is a catalog entry. Per-variant stock counts live in the
// inventory collection, keyed by product and variant.
type Product struct {
	ID          string
	Title       string
	Description string
	Price       float64
	Images      ProductImages
	CategoryID  string
	Variants    []string
	Featured    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// VariantStock is the per-variant on-hand counter for a product.
type VariantStock struct {
	ProductID  string
	VariantKey string
	OnHand     int64
	UpdatedAt  time.Time
}

// LineItem is a purchasable line captured at checkout and copied onto orders.
type LineItem struct {
	ProductID         string
	Title             string
	UnitPrice         float64
	Images            ProductImages
	AvailableVariants []string
	SelectedVariant   string
	Quantity          int64
}

// LineTotal returns the extended price for the line.
func (l LineItem) LineTotal() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

// PendingPurchase is the full checkout payload parked while the customer
// completes payment on the hosted page. The document is keyed by an opaque
// token that travels through the payment session metadata.
type PendingPurchase struct {
	Token         string
	Customer      Customer
	PaymentMethod PaymentMethod
	Items         []LineItem
	Currency      string
	TotalAmount   float64
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// Order is the durable record materialised once payment is confirmed.
type Order struct {
	ID            string
	Customer      Customer
	PaymentMethod PaymentMethod
	Items         []LineItem
	Currency      string
	TotalAmount   float64
	Status        OrderStatus
	PaymentRef    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Subtotal sums the line totals; the remainder up to TotalAmount is shipping.
func (o Order) Subtotal() float64 {
	var subtotal float64
	for _, item := range o.Items {
		subtotal += item.LineTotal()
	}
	return subtotal
}

// StockAdjustment is one conditional decrement applied after an order is confirmed.
type StockAdjustment struct {
	ProductID  string
	VariantKey string
	Quantity   int64
}

// StockAdjustmentReport summarises how many adjustments found their stock record.
type StockAdjustmentReport struct {
	Requested  int
	Matched    int
	Mismatched int
}

// Category groups catalog products.
type Category struct {
	ID        string
	Name      string
	Slug      string
	CreatedAt time.Time
}

// Promotion is a discount code with an active window.
type Promotion struct {
	ID         string
	Code       string
	PercentOff float64
	StartsAt   time.Time
	EndsAt     time.Time
	Active     bool
	CreatedAt  time.Time
}

// ActiveAt reports whether the promotion can be applied at the given instant.
func (p Promotion) ActiveAt(now time.Time) bool {
	if !p.Active {
		return false
	}
	if !p.StartsAt.IsZero() && now.Before(p.StartsAt) {
		return false
	}
	if !p.EndsAt.IsZero() && now.After(p.EndsAt) {
		return false
	}
	return true
}

// User is an authenticated account. PasswordHash is a bcrypt digest.
type User struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}
