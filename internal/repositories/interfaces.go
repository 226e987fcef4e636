package repositories

import (
	"context"
	"time"

	domain "github.com/urban-tuxedo/api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// PendingPurchaseRepository stages checkout payloads awaiting payment confirmation.
type PendingPurchaseRepository interface {
	Insert(ctx context.Context, pending domain.PendingPurchase) error
	FindByToken(ctx context.Context, token string) (domain.PendingPurchase, error)
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
}

// OrderRepository persists confirmed orders.
type OrderRepository interface {
	// InsertFromPending atomically consumes the pending purchase identified by
	// token: the pending document is loaded, the order produced by build is
	// created, and the pending document is deleted, all in one transaction.
	InsertFromPending(ctx context.Context, token string, build func(pending domain.PendingPurchase) (domain.Order, error)) (domain.Order, error)
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	ListByEmail(ctx context.Context, email string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, updatedAt time.Time) (domain.Order, error)
}

// ProductListFilter narrows product listings.
type ProductListFilter struct {
	Category string
	Featured *bool
	Limit    int
}

// ProductRepository owns catalogue product persistence.
type ProductRepository interface {
	Insert(ctx context.Context, product domain.Product) error
	Update(ctx context.Context, product domain.Product) (domain.Product, error)
	Delete(ctx context.Context, productID string) error
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) ([]domain.Product, error)
}

// InventoryRepository tracks per-variant stock levels.
type InventoryRepository interface {
	SeedStock(ctx context.Context, stocks []domain.VariantStock) error
	GetStock(ctx context.Context, productID, variantKey string) (domain.VariantStock, error)
	// AdjustStock applies the decrements in one batch. Adjustments that do not
	// match a stock record are reported as mismatches, never as errors.
	AdjustStock(ctx context.Context, adjustments []domain.StockAdjustment, now time.Time) (domain.StockAdjustmentReport, error)
}

// CategoryRepository owns catalogue category persistence.
type CategoryRepository interface {
	Insert(ctx context.Context, category domain.Category) error
	Update(ctx context.Context, category domain.Category) (domain.Category, error)
	Delete(ctx context.Context, categoryID string) error
	FindByID(ctx context.Context, categoryID string) (domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
}

// PromotionRepository owns promotion persistence.
type PromotionRepository interface {
	Insert(ctx context.Context, promotion domain.Promotion) error
	Update(ctx context.Context, promotion domain.Promotion) (domain.Promotion, error)
	Delete(ctx context.Context, promotionID string) error
	FindByID(ctx context.Context, promotionID string) (domain.Promotion, error)
	FindByCode(ctx context.Context, code string) (domain.Promotion, error)
	List(ctx context.Context, activeAt *time.Time) ([]domain.Promotion, error)
}

// UserRepository persists registered accounts.
type UserRepository interface {
	Insert(ctx context.Context, user domain.User) error
	FindByID(ctx context.Context, userID string) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
}
