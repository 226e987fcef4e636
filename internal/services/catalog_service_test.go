package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/urban-tuxedo/api/internal/domain"
	"github.com/urban-tuxedo/api/internal/repositories"
)

func TestCatalogServiceCreateProductSeedsStock(t *testing.T) {
	var inserted domain.Product
	products := &stubProductRepo{
		insertFunc: func(ctx context.Context, product domain.Product) error {
			inserted = product
			return nil
		},
	}

	var seededProduct string
	var seededQuantities map[string]int64
	inventory := &stubInventoryService{
		seedFunc: func(ctx context.Context, productID string, quantities map[string]int64) error {
			seededProduct = productID
			seededQuantities = quantities
			return nil
		},
	}

	service := newTestCatalogService(t, products, &stubCategoryRepo{}, inventory)
	product, err := service.CreateProduct(context.Background(), UpsertProductCommand{
		Title:        "  Midnight Tuxedo ",
		Description:  "Two-piece wool tuxedo",
		Price:        199.99,
		Variants:     []string{"38R", "40R", "40R", " "},
		VariantStock: map[string]int64{"38R": 4, "40R": 2},
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	if product.ID != "prd_01TESTULID" {
		t.Fatalf("unexpected product id %s", product.ID)
	}
	if inserted.Title != "Midnight Tuxedo" {
		t.Fatalf("expected trimmed title, got %q", inserted.Title)
	}
	if len(inserted.Variants) != 2 {
		t.Fatalf("expected deduplicated variants, got %v", inserted.Variants)
	}
	if seededProduct != product.ID {
		t.Fatalf("stock seeded for wrong product %s", seededProduct)
	}
	if seededQuantities["38R"] != 4 || seededQuantities["40R"] != 2 {
		t.Fatalf("unexpected seeded quantities %v", seededQuantities)
	}
}

func TestCatalogServiceCreateProductValidation(t *testing.T) {
	products := &stubProductRepo{
		insertFunc: func(context.Context, domain.Product) error {
			t.Fatal("invalid product reached the repository")
			return nil
		},
	}
	service := newTestCatalogService(t, products, &stubCategoryRepo{}, &stubInventoryService{})

	cases := []struct {
		name string
		cmd  UpsertProductCommand
	}{
		{"blank_title", UpsertProductCommand{Title: "  ", Price: 10}},
		{"negative_price", UpsertProductCommand{Title: "Tux", Price: -1}},
		{"stock_for_unknown_variant", UpsertProductCommand{
			Title:        "Tux",
			Price:        10,
			Variants:     []string{"38R"},
			VariantStock: map[string]int64{"XL": 1},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := service.CreateProduct(context.Background(), tc.cmd); !errors.Is(err, ErrCatalogInvalidInput) {
				t.Fatalf("expected ErrCatalogInvalidInput, got %v", err)
			}
		})
	}
}

func TestCatalogServiceUpdateProductNotFound(t *testing.T) {
	products := &stubProductRepo{
		updateFunc: func(context.Context, domain.Product) (domain.Product, error) {
			return domain.Product{}, stubRepositoryError{notFound: true}
		},
	}
	service := newTestCatalogService(t, products, &stubCategoryRepo{}, &stubInventoryService{})

	_, err := service.UpdateProduct(context.Background(), "prd_missing", UpsertProductCommand{Title: "Tux", Price: 10})
	if !errors.Is(err, ErrCatalogNotFound) {
		t.Fatalf("expected ErrCatalogNotFound, got %v", err)
	}
}

func TestCatalogServiceDeleteProduct(t *testing.T) {
	deleted := ""
	products := &stubProductRepo{
		findByIDFunc: func(ctx context.Context, productID string) (domain.Product, error) {
			if productID != "prd_1" {
				return domain.Product{}, stubRepositoryError{notFound: true}
			}
			return domain.Product{ID: "prd_1"}, nil
		},
		deleteFunc: func(ctx context.Context, productID string) error {
			deleted = productID
			return nil
		},
	}
	service := newTestCatalogService(t, products, &stubCategoryRepo{}, &stubInventoryService{})

	if err := service.DeleteProduct(context.Background(), "prd_1"); err != nil {
		t.Fatalf("DeleteProduct: %v", err)
	}
	if deleted != "prd_1" {
		t.Fatalf("expected delete of prd_1, got %q", deleted)
	}

	if err := service.DeleteProduct(context.Background(), "prd_missing"); !errors.Is(err, ErrCatalogNotFound) {
		t.Fatalf("expected ErrCatalogNotFound, got %v", err)
	}
}

func TestCatalogServiceListProductsForwardsFilter(t *testing.T) {
	featured := true
	var gotFilter repositories.ProductListFilter
	products := &stubProductRepo{
		listFunc: func(ctx context.Context, filter repositories.ProductListFilter) ([]domain.Product, error) {
			gotFilter = filter
			return []domain.Product{{ID: "prd_1"}}, nil
		},
	}
	service := newTestCatalogService(t, products, &stubCategoryRepo{}, &stubInventoryService{})

	list, err := service.ListProducts(context.Background(), ProductFilter{Category: " suits ", Featured: &featured, Limit: 5})
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 product, got %d", len(list))
	}
	if gotFilter.Category != "suits" || gotFilter.Featured == nil || !*gotFilter.Featured || gotFilter.Limit != 5 {
		t.Fatalf("unexpected filter %+v", gotFilter)
	}
}

func TestCatalogServiceCreateCategorySlug(t *testing.T) {
	var inserted domain.Category
	categories := &stubCategoryRepo{
		insertFunc: func(ctx context.Context, category domain.Category) error {
			inserted = category
			return nil
		},
	}
	service := newTestCatalogService(t, &stubProductRepo{}, categories, &stubInventoryService{})

	category, err := service.CreateCategory(context.Background(), UpsertCategoryCommand{Name: "Dinner Jackets"})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if category.ID != "cat_01TESTULID" {
		t.Fatalf("unexpected category id %s", category.ID)
	}
	if inserted.Slug != "dinner-jackets" {
		t.Fatalf("expected generated slug, got %q", inserted.Slug)
	}

	if _, err := service.CreateCategory(context.Background(), UpsertCategoryCommand{Name: "  "}); !errors.Is(err, ErrCatalogInvalidInput) {
		t.Fatalf("expected ErrCatalogInvalidInput, got %v", err)
	}
}

func TestCatalogServiceDeleteCategoryNotFound(t *testing.T) {
	service := newTestCatalogService(t, &stubProductRepo{}, &stubCategoryRepo{}, &stubInventoryService{})

	if err := service.DeleteCategory(context.Background(), "cat_missing"); !errors.Is(err, ErrCatalogNotFound) {
		t.Fatalf("expected ErrCatalogNotFound, got %v", err)
	}
}

func newTestCatalogService(t *testing.T, products *stubProductRepo, categories *stubCategoryRepo, inventory InventoryService) CatalogService {
	t.Helper()
	service, err := NewCatalogService(CatalogServiceDeps{
		Products:    products,
		Categories:  categories,
		Inventory:   inventory,
		Clock:       fixedClock(),
		IDGenerator: func() string { return "01TESTULID" },
	})
	if err != nil {
		t.Fatalf("NewCatalogService: %v", err)
	}
	return service
}
