package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/urban-tuxedo/api/internal/domain"
	pfirestore "github.com/urban-tuxedo/api/internal/platform/firestore"
)

const promotionCollection = "promotions"

// PromotionRepository persists discount promotions in Firestore.
type PromotionRepository struct {
	base *pfirestore.BaseRepository[promotionDocument]
}

// NewPromotionRepository constructs a Firestore-backed promotion repository.
func NewPromotionRepository(provider *pfirestore.Provider) (*PromotionRepository, error) {
	if provider == nil {
		return nil, errors.New("promotion repository requires firestore provider")
	}

	base := pfirestore.NewBaseRepository[promotionDocument](provider, promotionCollection, nil, nil)
	return &PromotionRepository{base: base}, nil
}

// Insert stores a new promotion document.
func (r *PromotionRepository) Insert(ctx context.Context, promotion domain.Promotion) error {
	if r == nil || r.base == nil {
		return errors.New("promotion repository not initialised")
	}
	if strings.TrimSpace(promotion.ID) == "" {
		return errors.New("promotion id is required")
	}

	_, err := r.base.Set(ctx, promotion.ID, newPromotionDocument(promotion))
	return err
}

// Update replaces an existing promotion document.
func (r *PromotionRepository) Update(ctx context.Context, promotion domain.Promotion) (domain.Promotion, error) {
	if r == nil || r.base == nil {
		return domain.Promotion{}, errors.New("promotion repository not initialised")
	}
	promotionID := strings.TrimSpace(promotion.ID)
	if promotionID == "" {
		return domain.Promotion{}, errors.New("promotion id is required")
	}

	existing, err := r.base.Get(ctx, promotionID)
	if err != nil {
		return domain.Promotion{}, err
	}

	doc := newPromotionDocument(promotion)
	doc.CreatedAt = existing.Data.CreatedAt
	if _, err := r.base.Set(ctx, promotionID, doc); err != nil {
		return domain.Promotion{}, err
	}
	return doc.toDomain(promotionID), nil
}

// Delete removes the promotion document.
func (r *PromotionRepository) Delete(ctx context.Context, promotionID string) error {
	if r == nil || r.base == nil {
		return errors.New("promotion repository not initialised")
	}
	promotionID = strings.TrimSpace(promotionID)
	if promotionID == "" {
		return errors.New("promotion id is required")
	}
	return r.base.Delete(ctx, promotionID)
}

// FindByID loads a promotion by its identifier.
func (r *PromotionRepository) FindByID(ctx context.Context, promotionID string) (domain.Promotion, error) {
	if r == nil || r.base == nil {
		return domain.Promotion{}, errors.New("promotion repository not initialised")
	}
	promotionID = strings.TrimSpace(promotionID)
	if promotionID == "" {
		return domain.Promotion{}, errors.New("promotion id is required")
	}

	doc, err := r.base.Get(ctx, promotionID)
	if err != nil {
		return domain.Promotion{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// FindByCode resolves a promotion by its redemption code.
func (r *PromotionRepository) FindByCode(ctx context.Context, code string) (domain.Promotion, error) {
	if r == nil || r.base == nil {
		return domain.Promotion{}, errors.New("promotion repository not initialised")
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return domain.Promotion{}, errors.New("promotion code is required")
	}

	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		return query.Where("code", "==", code).Limit(1)
	})
	if err != nil {
		return domain.Promotion{}, err
	}
	if len(docs) == 0 {
		return domain.Promotion{}, pfirestore.WrapError("promotions.findByCode", status.Error(codes.NotFound, fmt.Sprintf("promotion %s not found", code)))
	}
	return docs[0].Data.toDomain(docs[0].ID), nil
}

// List returns promotions, optionally restricted to those active at the given instant.
func (r *PromotionRepository) List(ctx context.Context, activeAt *time.Time) ([]domain.Promotion, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("promotion repository not initialised")
	}

	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		return query.OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}

	promotions := make([]domain.Promotion, 0, len(docs))
	for _, doc := range docs {
		promotion := doc.Data.toDomain(doc.ID)
		if activeAt != nil && !promotion.ActiveAt(activeAt.UTC()) {
			continue
		}
		promotions = append(promotions, promotion)
	}
	return promotions, nil
}

type promotionDocument struct {
	Code       string    `firestore:"code"`
	PercentOff float64   `firestore:"percentOff"`
	StartsAt   time.Time `firestore:"startsAt"`
	EndsAt     time.Time `firestore:"endsAt"`
	Active     bool      `firestore:"active"`
	CreatedAt  time.Time `firestore:"createdAt"`
}

func newPromotionDocument(promotion domain.Promotion) promotionDocument {
	return promotionDocument{
		Code:       strings.ToUpper(strings.TrimSpace(promotion.Code)),
		PercentOff: promotion.PercentOff,
		StartsAt:   promotion.StartsAt.UTC(),
		EndsAt:     promotion.EndsAt.UTC(),
		Active:     promotion.Active,
		CreatedAt:  promotion.CreatedAt.UTC(),
	}
}

func (d promotionDocument) toDomain(id string) domain.Promotion {
	return domain.Promotion{
		ID:         id,
		Code:       d.Code,
		PercentOff: d.PercentOff,
		StartsAt:   d.StartsAt,
		EndsAt:     d.EndsAt,
		Active:     d.Active,
		CreatedAt:  d.CreatedAt,
	}
}
