package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/urban-tuxedo/api/internal/domain"
	"github.com/urban-tuxedo/api/internal/platform/metrics"
	"github.com/urban-tuxedo/api/internal/repositories"
)

// ErrInventoryInvalidInput indicates the caller supplied invalid input parameters.
var ErrInventoryInvalidInput = errors.New("inventory: invalid input")

// InventoryServiceDeps wires the dependencies required by the inventory service.
type InventoryServiceDeps struct {
	Inventory repositories.InventoryRepository
	Clock     func() time.Time
	Logger    func(ctx context.Context, event string, fields map[string]any)
	Metrics   *metrics.Metrics
}

type inventoryService struct {
	inventory repositories.InventoryRepository
	now       func() time.Time
	logger    func(context.Context, string, map[string]any)
	metrics   *metrics.Metrics
}

var _ InventoryService = (*inventoryService)(nil)

// NewInventoryService constructs an InventoryService validating required dependencies.
func NewInventoryService(deps InventoryServiceDeps) (InventoryService, error) {
	if deps.Inventory == nil {
		return nil, errors.New("inventory service: inventory repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &inventoryService{
		inventory: deps.Inventory,
		now: func() time.Time {
			return clock().UTC()
		},
		logger:  logger,
		metrics: deps.Metrics,
	}, nil
}

// AdjustForOrder decrements stock for every order line with a selected
// variant. Lines whose variant has no stock record are mismatches: logged as
// warnings, counted, and never treated as failures. Stock may go negative.
func (s *inventoryService) AdjustForOrder(ctx context.Context, order Order) (StockAdjustmentReport, error) {
	if s == nil || s.inventory == nil {
		return StockAdjustmentReport{}, errors.New("inventory service not initialised")
	}

	adjustments := make([]domain.StockAdjustment, 0, len(order.Items))
	for _, item := range order.Items {
		productID := strings.TrimSpace(item.ProductID)
		variantKey := strings.TrimSpace(item.SelectedVariant)
		if productID == "" || variantKey == "" {
			continue
		}
		adjustments = append(adjustments, domain.StockAdjustment{
			ProductID:  productID,
			VariantKey: variantKey,
			Quantity:   item.Quantity,
		})
	}
	if len(adjustments) == 0 {
		return StockAdjustmentReport{}, nil
	}

	report, err := s.inventory.AdjustStock(ctx, adjustments, s.now())
	if err != nil {
		return report, fmt.Errorf("adjust stock for order %s: %w", order.ID, err)
	}

	if report.Mismatched > 0 {
		if s.metrics != nil {
			s.metrics.StockMismatches.Add(float64(report.Mismatched))
		}
		s.logger(ctx, "inventory.adjust_mismatch", map[string]any{
			"orderId":    order.ID,
			"requested":  report.Requested,
			"matched":    report.Matched,
			"mismatched": report.Mismatched,
		})
	}
	return report, nil
}

// SeedProductStock writes the on-hand counters for a product's variants.
func (s *inventoryService) SeedProductStock(ctx context.Context, productID string, quantities map[string]int64) error {
	if s == nil || s.inventory == nil {
		return errors.New("inventory service not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return fmt.Errorf("%w: product id is required", ErrInventoryInvalidInput)
	}
	if len(quantities) == 0 {
		return nil
	}

	now := s.now()
	stocks := make([]domain.VariantStock, 0, len(quantities))
	for variantKey, onHand := range quantities {
		variantKey = strings.TrimSpace(variantKey)
		if variantKey == "" {
			return fmt.Errorf("%w: variant key is required", ErrInventoryInvalidInput)
		}
		if onHand < 0 {
			return fmt.Errorf("%w: on-hand quantity for %s cannot be negative", ErrInventoryInvalidInput, variantKey)
		}
		stocks = append(stocks, domain.VariantStock{
			ProductID:  productID,
			VariantKey: variantKey,
			OnHand:     onHand,
			UpdatedAt:  now,
		})
	}
	return s.inventory.SeedStock(ctx, stocks)
}
