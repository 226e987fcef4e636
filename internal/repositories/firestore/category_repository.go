package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/urban-tuxedo/api/internal/domain"
	pfirestore "github.com/urban-tuxedo/api/internal/platform/firestore"
)

const categoryCollection = "categories"

// CategoryRepository persists catalogue categories in Firestore.
type CategoryRepository struct {
	base *pfirestore.BaseRepository[categoryDocument]
}

// NewCategoryRepository constructs a Firestore-backed category repository.
func NewCategoryRepository(provider *pfirestore.Provider) (*CategoryRepository, error) {
	if provider == nil {
		return nil, errors.New("category repository requires firestore provider")
	}

	base := pfirestore.NewBaseRepository[categoryDocument](provider, categoryCollection, nil, nil)
	return &CategoryRepository{base: base}, nil
}

// Insert stores a new category document.
func (r *CategoryRepository) Insert(ctx context.Context, category domain.Category) error {
	if r == nil || r.base == nil {
		return errors.New("category repository not initialised")
	}
	if strings.TrimSpace(category.ID) == "" {
		return errors.New("category id is required")
	}

	_, err := r.base.Set(ctx, category.ID, newCategoryDocument(category))
	return err
}

// Update replaces an existing category document.
func (r *CategoryRepository) Update(ctx context.Context, category domain.Category) (domain.Category, error) {
	if r == nil || r.base == nil {
		return domain.Category{}, errors.New("category repository not initialised")
	}
	categoryID := strings.TrimSpace(category.ID)
	if categoryID == "" {
		return domain.Category{}, errors.New("category id is required")
	}

	existing, err := r.base.Get(ctx, categoryID)
	if err != nil {
		return domain.Category{}, err
	}

	doc := newCategoryDocument(category)
	doc.CreatedAt = existing.Data.CreatedAt
	if _, err := r.base.Set(ctx, categoryID, doc); err != nil {
		return domain.Category{}, err
	}
	return doc.toDomain(categoryID), nil
}

// Delete removes the category document.
func (r *CategoryRepository) Delete(ctx context.Context, categoryID string) error {
	if r == nil || r.base == nil {
		return errors.New("category repository not initialised")
	}
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return errors.New("category id is required")
	}
	return r.base.Delete(ctx, categoryID)
}

// FindByID loads a category by its identifier.
func (r *CategoryRepository) FindByID(ctx context.Context, categoryID string) (domain.Category, error) {
	if r == nil || r.base == nil {
		return domain.Category{}, errors.New("category repository not initialised")
	}
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return domain.Category{}, errors.New("category id is required")
	}

	doc, err := r.base.Get(ctx, categoryID)
	if err != nil {
		return domain.Category{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// List returns all categories ordered by name.
func (r *CategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("category repository not initialised")
	}

	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		return query.OrderBy("name", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}

	categories := make([]domain.Category, 0, len(docs))
	for _, doc := range docs {
		categories = append(categories, doc.Data.toDomain(doc.ID))
	}
	return categories, nil
}

type categoryDocument struct {
	Name      string    `firestore:"name"`
	Slug      string    `firestore:"slug"`
	CreatedAt time.Time `firestore:"createdAt"`
}

func newCategoryDocument(category domain.Category) categoryDocument {
	return categoryDocument{
		Name:      strings.TrimSpace(category.Name),
		Slug:      strings.TrimSpace(category.Slug),
		CreatedAt: category.CreatedAt.UTC(),
	}
}

func (d categoryDocument) toDomain(id string) domain.Category {
	return domain.Category{
		ID:        id,
		Name:      d.Name,
		Slug:      d.Slug,
		CreatedAt: d.CreatedAt,
	}
}
