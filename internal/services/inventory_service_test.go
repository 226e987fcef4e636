package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/urban-tuxedo/api/internal/domain"
)

func TestInventoryServiceAdjustForOrder(t *testing.T) {
	now := fixedClock()()

	var gotAdjustments []domain.StockAdjustment
	var gotNow time.Time
	repo := &stubInventoryRepo{
		adjustStockFunc: func(ctx context.Context, adjustments []domain.StockAdjustment, at time.Time) (domain.StockAdjustmentReport, error) {
			gotAdjustments = adjustments
			gotNow = at
			return domain.StockAdjustmentReport{Requested: len(adjustments), Matched: len(adjustments)}, nil
		},
	}
	service := newTestInventoryService(t, repo)

	order := Order{
		ID: "ord_1",
		Items: []domain.LineItem{
			{ProductID: "prd_1", SelectedVariant: "40R", Quantity: 2},
			{ProductID: "prd_2", SelectedVariant: "", Quantity: 1},
			{ProductID: "", SelectedVariant: "M", Quantity: 3},
			{ProductID: "prd_3", SelectedVariant: "M", Quantity: 1},
		},
	}

	report, err := service.AdjustForOrder(context.Background(), order)
	if err != nil {
		t.Fatalf("AdjustForOrder: %v", err)
	}
	if report.Requested != 2 || report.Matched != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(gotAdjustments) != 2 {
		t.Fatalf("expected variantless lines to be skipped, got %#v", gotAdjustments)
	}
	if gotAdjustments[0].ProductID != "prd_1" || gotAdjustments[0].VariantKey != "40R" || gotAdjustments[0].Quantity != 2 {
		t.Fatalf("unexpected first adjustment %+v", gotAdjustments[0])
	}
	if !gotNow.Equal(now) {
		t.Fatalf("expected clock time %v, got %v", now, gotNow)
	}
}

func TestInventoryServiceAdjustForOrderNothingToDo(t *testing.T) {
	repo := &stubInventoryRepo{
		adjustStockFunc: func(context.Context, []domain.StockAdjustment, time.Time) (domain.StockAdjustmentReport, error) {
			t.Fatal("repository called with no adjustments")
			return domain.StockAdjustmentReport{}, nil
		},
	}
	service := newTestInventoryService(t, repo)

	report, err := service.AdjustForOrder(context.Background(), Order{ID: "ord_1"})
	if err != nil {
		t.Fatalf("AdjustForOrder: %v", err)
	}
	if report.Requested != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
}

func TestInventoryServiceAdjustForOrderMismatchIsNotError(t *testing.T) {
	repo := &stubInventoryRepo{
		adjustStockFunc: func(context.Context, []domain.StockAdjustment, time.Time) (domain.StockAdjustmentReport, error) {
			return domain.StockAdjustmentReport{Requested: 1, Mismatched: 1}, nil
		},
	}
	service := newTestInventoryService(t, repo)

	order := Order{ID: "ord_1", Items: []domain.LineItem{{ProductID: "prd_1", SelectedVariant: "XL", Quantity: 1}}}
	report, err := service.AdjustForOrder(context.Background(), order)
	if err != nil {
		t.Fatalf("mismatches must not surface as errors: %v", err)
	}
	if report.Mismatched != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestInventoryServiceSeedProductStock(t *testing.T) {
	var seeded []domain.VariantStock
	repo := &stubInventoryRepo{
		seedStockFunc: func(ctx context.Context, stocks []domain.VariantStock) error {
			seeded = stocks
			return nil
		},
	}
	service := newTestInventoryService(t, repo)

	err := service.SeedProductStock(context.Background(), "prd_1", map[string]int64{"38R": 4, "40R": 2})
	if err != nil {
		t.Fatalf("SeedProductStock: %v", err)
	}
	if len(seeded) != 2 {
		t.Fatalf("expected 2 stock records, got %d", len(seeded))
	}
	for _, stock := range seeded {
		if stock.ProductID != "prd_1" {
			t.Fatalf("unexpected product id %s", stock.ProductID)
		}
		if stock.VariantKey != "38R" && stock.VariantKey != "40R" {
			t.Fatalf("unexpected variant %s", stock.VariantKey)
		}
	}
}

func TestInventoryServiceSeedProductStockValidation(t *testing.T) {
	service := newTestInventoryService(t, &stubInventoryRepo{})

	if err := service.SeedProductStock(context.Background(), " ", map[string]int64{"M": 1}); !errors.Is(err, ErrInventoryInvalidInput) {
		t.Fatalf("expected ErrInventoryInvalidInput for blank product, got %v", err)
	}
	if err := service.SeedProductStock(context.Background(), "prd_1", map[string]int64{" ": 1}); !errors.Is(err, ErrInventoryInvalidInput) {
		t.Fatalf("expected ErrInventoryInvalidInput for blank variant, got %v", err)
	}
	if err := service.SeedProductStock(context.Background(), "prd_1", map[string]int64{"M": -1}); !errors.Is(err, ErrInventoryInvalidInput) {
		t.Fatalf("expected ErrInventoryInvalidInput for negative quantity, got %v", err)
	}
	if err := service.SeedProductStock(context.Background(), "prd_1", nil); err != nil {
		t.Fatalf("empty quantities should be a no-op, got %v", err)
	}
}

func newTestInventoryService(t *testing.T, repo *stubInventoryRepo) InventoryService {
	t.Helper()
	service, err := NewInventoryService(InventoryServiceDeps{
		Inventory: repo,
		Clock:     fixedClock(),
	})
	if err != nil {
		t.Fatalf("NewInventoryService: %v", err)
	}
	return service
}
