package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/urban-tuxedo/api/internal/domain"
	"github.com/urban-tuxedo/api/internal/repositories"
)

var (
	// ErrCatalogInvalidInput indicates the caller supplied invalid input parameters.
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")
	// ErrCatalogNotFound indicates the requested product or category does not exist.
	ErrCatalogNotFound = errors.New("catalog: not found")
)

// CatalogServiceDeps wires the dependencies required by the catalog service.
type CatalogServiceDeps struct {
	Products    repositories.ProductRepository
	Categories  repositories.CategoryRepository
	Inventory   InventoryService
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type catalogService struct {
	products   repositories.ProductRepository
	categories repositories.CategoryRepository
	inventory  InventoryService
	now        func() time.Time
	newID      func() string
	logger     func(context.Context, string, map[string]any)
}

var _ CatalogService = (*catalogService)(nil)

// NewCatalogService constructs a CatalogService validating required dependencies.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, errors.New("catalog service: product repository is required")
	}
	if deps.Categories == nil {
		return nil, errors.New("catalog service: category repository is required")
	}
	if deps.Inventory == nil {
		return nil, errors.New("catalog service: inventory service is required")
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

	return &catalogService{
		products:   deps.Products,
		categories: deps.Categories,
		inventory:  deps.Inventory,
		now: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// CreateProduct stores a new product and seeds its per-variant stock counters.
func (s *catalogService) CreateProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error) {
	product, err := s.buildProduct(cmd)
	if err != nil {
		return Product{}, err
	}
	product.ID = "prd_" + s.newID()
	now := s.now()
	product.CreatedAt = now
	product.UpdatedAt = now

	if err := s.products.Insert(ctx, product); err != nil {
		return Product{}, err
	}
	if err := s.inventory.SeedProductStock(ctx, product.ID, cmd.VariantStock); err != nil {
		s.logger(ctx, "catalog.stock_seed_failed", map[string]any{
			"productId": product.ID,
			"error":     err.Error(),
		})
		return Product{}, err
	}

	s.logger(ctx, "catalog.product_created", map[string]any{
		"productId": product.ID,
		"title":     product.Title,
	})
	return product, nil
}

// UpdateProduct replaces a product and reseeds any supplied variant quantities.
func (s *catalogService) UpdateProduct(ctx context.Context, productID string, cmd UpsertProductCommand) (Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	product, err := s.buildProduct(cmd)
	if err != nil {
		return Product{}, err
	}
	product.ID = productID
	product.UpdatedAt = s.now()

	updated, err := s.products.Update(ctx, product)
	if err != nil {
		if isRepoNotFound(err) {
			return Product{}, ErrCatalogNotFound
		}
		return Product{}, err
	}
	if err := s.inventory.SeedProductStock(ctx, productID, cmd.VariantStock); err != nil {
		return Product{}, err
	}
	return updated, nil
}

// DeleteProduct removes a product from the catalogue.
func (s *catalogService) DeleteProduct(ctx context.Context, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if isRepoNotFound(err) {
			return ErrCatalogNotFound
		}
		return err
	}
	return s.products.Delete(ctx, productID)
}

// GetProduct loads a product by id.
func (s *catalogService) GetProduct(ctx context.Context, productID string) (Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if isRepoNotFound(err) {
			return Product{}, ErrCatalogNotFound
		}
		return Product{}, err
	}
	return product, nil
}

// ListProducts returns catalogue products matching the filter.
func (s *catalogService) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	return s.products.List(ctx, repositories.ProductListFilter{
		Category: strings.TrimSpace(filter.Category),
		Featured: filter.Featured,
		Limit:    filter.Limit,
	})
}

// CreateCategory stores a new category.
func (s *catalogService) CreateCategory(ctx context.Context, cmd UpsertCategoryCommand) (Category, error) {
	category, err := s.buildCategory(cmd)
	if err != nil {
		return Category{}, err
	}
	category.ID = "cat_" + s.newID()
	category.CreatedAt = s.now()

	if err := s.categories.Insert(ctx, category); err != nil {
		return Category{}, err
	}
	return category, nil
}

// UpdateCategory replaces an existing category.
func (s *catalogService) UpdateCategory(ctx context.Context, categoryID string, cmd UpsertCategoryCommand) (Category, error) {
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return Category{}, fmt.Errorf("%w: category id is required", ErrCatalogInvalidInput)
	}
	category, err := s.buildCategory(cmd)
	if err != nil {
		return Category{}, err
	}
	category.ID = categoryID

	updated, err := s.categories.Update(ctx, category)
	if err != nil {
		if isRepoNotFound(err) {
			return Category{}, ErrCatalogNotFound
		}
		return Category{}, err
	}
	return updated, nil
}

// DeleteCategory removes a category.
func (s *catalogService) DeleteCategory(ctx context.Context, categoryID string) error {
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return fmt.Errorf("%w: category id is required", ErrCatalogInvalidInput)
	}
	if _, err := s.categories.FindByID(ctx, categoryID); err != nil {
		if isRepoNotFound(err) {
			return ErrCatalogNotFound
		}
		return err
	}
	return s.categories.Delete(ctx, categoryID)
}

// ListCategories returns all categories.
func (s *catalogService) ListCategories(ctx context.Context) ([]Category, error) {
	return s.categories.List(ctx)
}

func (s *catalogService) buildProduct(cmd UpsertProductCommand) (domain.Product, error) {
	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		return domain.Product{}, fmt.Errorf("%w: product title is required", ErrCatalogInvalidInput)
	}
	if cmd.Price < 0 {
		return domain.Product{}, fmt.Errorf("%w: product price cannot be negative", ErrCatalogInvalidInput)
	}

	variants := make([]string, 0, len(cmd.Variants))
	seen := make(map[string]struct{}, len(cmd.Variants))
	for _, variant := range cmd.Variants {
		trimmed := strings.TrimSpace(variant)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		variants = append(variants, trimmed)
	}
	for variantKey := range cmd.VariantStock {
		if _, ok := seen[strings.TrimSpace(variantKey)]; !ok {
			return domain.Product{}, fmt.Errorf("%w: stock for unknown variant %q", ErrCatalogInvalidInput, variantKey)
		}
	}

	return domain.Product{
		Title:       title,
		Description: strings.TrimSpace(cmd.Description),
		Price:       cmd.Price,
		Images: domain.ProductImages{
			Primary: strings.TrimSpace(cmd.PrimaryImage),
			Gallery: cmd.Gallery,
		},
		CategoryID: strings.TrimSpace(cmd.CategoryID),
		Variants:   variants,
		Featured:   cmd.Featured,
	}, nil
}

func (s *catalogService) buildCategory(cmd UpsertCategoryCommand) (domain.Category, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return domain.Category{}, fmt.Errorf("%w: category name is required", ErrCatalogInvalidInput)
	}
	slug := strings.TrimSpace(cmd.Slug)
	if slug == "" {
		slug = strings.ToLower(strings.ReplaceAll(name, " ", "-"))
	}
	return domain.Category{Name: name, Slug: slug}, nil
}
