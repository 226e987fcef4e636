package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/urban-tuxedo/api/internal/domain"
	pfirestore "github.com/urban-tuxedo/api/internal/platform/firestore"
	"github.com/urban-tuxedo/api/internal/repositories"
)

const productCollection = "products"

// ProductRepository persists catalogue products in Firestore.
type ProductRepository struct {
	base *pfirestore.BaseRepository[productDocument]
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}

	base := pfirestore.NewBaseRepository[productDocument](provider, productCollection, nil, nil)
	return &ProductRepository{base: base}, nil
}

// Insert stores a new product document.
func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	if strings.TrimSpace(product.ID) == "" {
		return errors.New("product id is required")
	}

	_, err := r.base.Set(ctx, product.ID, newProductDocument(product))
	return err
}

// Update replaces an existing product document.
func (r *ProductRepository) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	productID := strings.TrimSpace(product.ID)
	if productID == "" {
		return domain.Product{}, errors.New("product id is required")
	}

	existing, err := r.base.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}

	doc := newProductDocument(product)
	doc.CreatedAt = existing.Data.CreatedAt
	if _, err := r.base.Set(ctx, productID, doc); err != nil {
		return domain.Product{}, err
	}
	return doc.toDomain(productID), nil
}

// Delete removes the product document.
func (r *ProductRepository) Delete(ctx context.Context, productID string) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return errors.New("product id is required")
	}
	return r.base.Delete(ctx, productID)
}

// FindByID loads a product by its identifier.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, errors.New("product id is required")
	}

	doc, err := r.base.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// List returns catalogue products matching the filter, newest first.
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) ([]domain.Product, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("product repository not initialised")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		if category := strings.TrimSpace(filter.Category); category != "" {
			query = query.Where("categoryId", "==", category)
		}
		if filter.Featured != nil {
			query = query.Where("featured", "==", *filter.Featured)
		}
		return query.OrderBy("createdAt", firestore.Desc).Limit(limit)
	})
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, doc.Data.toDomain(doc.ID))
	}
	return products, nil
}

type productDocument struct {
	Title       string    `firestore:"title"`
	Description string    `firestore:"description,omitempty"`
	Price       float64   `firestore:"price"`
	Image       string    `firestore:"image,omitempty"`
	Gallery     []string  `firestore:"gallery,omitempty"`
	CategoryID  string    `firestore:"categoryId,omitempty"`
	Variants    []string  `firestore:"variants,omitempty"`
	Featured    bool      `firestore:"featured"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

func newProductDocument(product domain.Product) productDocument {
	variants := make([]string, 0, len(product.Variants))
	for _, variant := range product.Variants {
		if trimmed := strings.TrimSpace(variant); trimmed != "" {
			variants = append(variants, trimmed)
		}
	}
	return productDocument{
		Title:       strings.TrimSpace(product.Title),
		Description: strings.TrimSpace(product.Description),
		Price:       product.Price,
		Image:       strings.TrimSpace(product.Images.Primary),
		Gallery:     product.Images.Gallery,
		CategoryID:  strings.TrimSpace(product.CategoryID),
		Variants:    variants,
		Featured:    product.Featured,
		CreatedAt:   product.CreatedAt.UTC(),
		UpdatedAt:   product.UpdatedAt.UTC(),
	}
}

func (d productDocument) toDomain(id string) domain.Product {
	return domain.Product{
		ID:          id,
		Title:       d.Title,
		Description: d.Description,
		Price:       d.Price,
		Images: domain.ProductImages{
			Primary: d.Image,
			Gallery: d.Gallery,
		},
		CategoryID: d.CategoryID,
		Variants:   d.Variants,
		Featured:   d.Featured,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}
