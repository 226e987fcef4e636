package services

import (
	"context"
	"errors"
	"time"

	domain "github.com/urban-tuxedo/api/internal/domain"
	"github.com/urban-tuxedo/api/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Order                 = domain.Order
	OrderStatus           = domain.OrderStatus
	PendingPurchase       = domain.PendingPurchase
	Product               = domain.Product
	Category              = domain.Category
	Promotion             = domain.Promotion
	User                  = domain.User
	StockAdjustment       = domain.StockAdjustment
	StockAdjustmentReport = domain.StockAdjustmentReport
)

// CheckoutService stages a pending purchase and opens a hosted payment session.
type CheckoutService interface {
	CreateSession(ctx context.Context, cmd CreateCheckoutCommand) (CheckoutSession, error)
}

// WebhookService verifies payment processor callbacks and triggers order materialisation.
type WebhookService interface {
	HandleEvent(ctx context.Context, payload []byte, signature string) (WebhookResult, error)
}

// OrderService owns order materialisation, reads, and status transitions.
type OrderService interface {
	MaterializeOrder(ctx context.Context, token, paymentRef string) (Order, error)
	GetOrder(ctx context.Context, orderID string) (Order, error)
	ListOrdersByEmail(ctx context.Context, email string) ([]Order, error)
	UpdateStatus(ctx context.Context, orderID, status string) (Order, error)
}

// InventoryService applies stock movements derived from confirmed orders.
type InventoryService interface {
	AdjustForOrder(ctx context.Context, order Order) (StockAdjustmentReport, error)
	SeedProductStock(ctx context.Context, productID string, quantities map[string]int64) error
}

// NotificationService composes and delivers transactional emails.
type NotificationService interface {
	SendOrderConfirmation(ctx context.Context, order Order) error
	SendOwnerAlert(ctx context.Context, order Order) error
	SendStatusUpdate(ctx context.Context, order Order) error
}

// CatalogService manages products and categories for storefront and admin use.
type CatalogService interface {
	CreateProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error)
	UpdateProduct(ctx context.Context, productID string, cmd UpsertProductCommand) (Product, error)
	DeleteProduct(ctx context.Context, productID string) error
	GetProduct(ctx context.Context, productID string) (Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)

	CreateCategory(ctx context.Context, cmd UpsertCategoryCommand) (Category, error)
	UpdateCategory(ctx context.Context, categoryID string, cmd UpsertCategoryCommand) (Category, error)
	DeleteCategory(ctx context.Context, categoryID string) error
	ListCategories(ctx context.Context) ([]Category, error)
}

// PromotionService exposes promotion lifecycle and validation operations.
type PromotionService interface {
	CreatePromotion(ctx context.Context, cmd UpsertPromotionCommand) (Promotion, error)
	UpdatePromotion(ctx context.Context, promotionID string, cmd UpsertPromotionCommand) (Promotion, error)
	DeletePromotion(ctx context.Context, promotionID string) error
	ListPromotions(ctx context.Context, activeOnly bool) ([]Promotion, error)
	ValidateCode(ctx context.Context, code string) (Promotion, error)
}

// AuthService registers accounts and issues session tokens.
type AuthService interface {
	Register(ctx context.Context, cmd RegisterCommand) (AuthSession, error)
	Login(ctx context.Context, cmd LoginCommand) (AuthSession, error)
}

// TaskDispatcher runs named work off the request path.
type TaskDispatcher interface {
	Dispatch(name string, task func(ctx context.Context))
}

// Command and DTO definitions ------------------------------------------------

// AddressInput carries the postal address fields of a checkout request.
type AddressInput struct {
	Street  string
	City    string
	State   string
	ZipCode string
}

// CustomerInput carries the contact details of a checkout request.
type CustomerInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   AddressInput
}

// CheckoutItemInput is one purchasable line of a checkout request.
type CheckoutItemInput struct {
	ProductID         string
	Title             string
	UnitPrice         float64
	PrimaryImage      string
	Gallery           []string
	AvailableVariants []string
	SelectedVariant   string
	Quantity          int64
}

// CreateCheckoutCommand is the validated payload for CreateSession.
type CreateCheckoutCommand struct {
	Customer      CustomerInput
	PaymentMethod string
	Items         []CheckoutItemInput
	TotalAmount   float64
}

// CheckoutSession is the hosted payment session handed back to the storefront.
type CheckoutSession struct {
	SessionID   string
	RedirectURL string
	Token       string
	ExpiresAt   time.Time
}

// WebhookResult reports how an incoming processor event was handled.
type WebhookResult struct {
	EventType string
	Outcome   WebhookOutcome
	OrderID   string
}

// WebhookOutcome enumerates the terminal states of webhook processing.
type WebhookOutcome string

const (
	WebhookOutcomeOrderCreated WebhookOutcome = "order_created"
	WebhookOutcomeTokenUnknown WebhookOutcome = "token_unknown"
	WebhookOutcomeIgnored      WebhookOutcome = "ignored"
)

// ProductFilter narrows product listings.
type ProductFilter struct {
	Category string
	Featured *bool
	Limit    int
}

// UpsertProductCommand creates or replaces a catalogue product. VariantStock
// maps variant keys to the on-hand quantity seeded into inventory.
type UpsertProductCommand struct {
	Title        string
	Description  string
	Price        float64
	PrimaryImage string
	Gallery      []string
	CategoryID   string
	Variants     []string
	Featured     bool
	VariantStock map[string]int64
}

// UpsertCategoryCommand creates or replaces a catalogue category.
type UpsertCategoryCommand struct {
	Name string
	Slug string
}

// UpsertPromotionCommand creates or replaces a promotion.
type UpsertPromotionCommand struct {
	Code       string
	PercentOff float64
	StartsAt   time.Time
	EndsAt     time.Time
	Active     bool
}

// RegisterCommand creates a new account.
type RegisterCommand struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// LoginCommand authenticates an existing account.
type LoginCommand struct {
	Email    string
	Password string
}

// AuthSession is the issued token plus the account it belongs to.
type AuthSession struct {
	Token     string
	ExpiresAt time.Time
	User      User
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsNotFound()
	}
	return false
}

func isRepoConflict(err error) bool {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsConflict()
	}
	return false
}
