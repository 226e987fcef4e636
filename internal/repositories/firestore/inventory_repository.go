package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/urban-tuxedo/api/internal/domain"
	pfirestore "github.com/urban-tuxedo/api/internal/platform/firestore"
)

const inventoryCollection = "inventory"

// InventoryRepository tracks per-variant stock counters in Firestore. Documents
// are keyed by "{productID}__{variantKey}" so a single lookup resolves a line item.
type InventoryRepository struct {
	base     *pfirestore.BaseRepository[stockDocument]
	provider *pfirestore.Provider
}

// NewInventoryRepository constructs a Firestore-backed inventory repository.
func NewInventoryRepository(provider *pfirestore.Provider) (*InventoryRepository, error) {
	if provider == nil {
		return nil, errors.New("inventory repository requires firestore provider")
	}

	base := pfirestore.NewBaseRepository[stockDocument](provider, inventoryCollection, nil, nil)
	return &InventoryRepository{base: base, provider: provider}, nil
}

// StockDocumentID derives the inventory document key for a product variant.
func StockDocumentID(productID, variantKey string) string {
	return strings.TrimSpace(productID) + "__" + strings.TrimSpace(variantKey)
}

// SeedStock writes the supplied stock counters in one batch, replacing any
// existing counters for the same variants.
func (r *InventoryRepository) SeedStock(ctx context.Context, stocks []domain.VariantStock) error {
	if r == nil || r.provider == nil {
		return errors.New("inventory repository not initialised")
	}
	if len(stocks) == 0 {
		return nil
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return pfirestore.WrapError("inventory.seed", err)
	}

	bw := client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(stocks))
	for _, stock := range stocks {
		productID := strings.TrimSpace(stock.ProductID)
		variantKey := strings.TrimSpace(stock.VariantKey)
		if productID == "" || variantKey == "" {
			bw.End()
			return errors.New("inventory seed: product id and variant key are required")
		}
		ref := client.Collection(inventoryCollection).Doc(StockDocumentID(productID, variantKey))
		job, err := bw.Set(ref, stockDocument{
			ProductID:  productID,
			VariantKey: variantKey,
			OnHand:     stock.OnHand,
			UpdatedAt:  stock.UpdatedAt.UTC(),
		})
		if err != nil {
			bw.End()
			return pfirestore.WrapError("inventory.seed", err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return pfirestore.WrapError("inventory.seed", err)
		}
	}
	return nil
}

// GetStock loads the stock counter for a product variant.
func (r *InventoryRepository) GetStock(ctx context.Context, productID, variantKey string) (domain.VariantStock, error) {
	if r == nil || r.base == nil {
		return domain.VariantStock{}, errors.New("inventory repository not initialised")
	}
	if strings.TrimSpace(productID) == "" || strings.TrimSpace(variantKey) == "" {
		return domain.VariantStock{}, errors.New("inventory get: product id and variant key are required")
	}

	doc, err := r.base.Get(ctx, StockDocumentID(productID, variantKey))
	if err != nil {
		return domain.VariantStock{}, err
	}
	return doc.Data.toDomain(), nil
}

// AdjustStock decrements the on-hand counters for the supplied adjustments in
// one batch. Adjustments that reference a variant without a stock record are
// counted as mismatches and do not fail the batch.
func (r *InventoryRepository) AdjustStock(ctx context.Context, adjustments []domain.StockAdjustment, now time.Time) (domain.StockAdjustmentReport, error) {
	if r == nil || r.provider == nil {
		return domain.StockAdjustmentReport{}, errors.New("inventory repository not initialised")
	}
	report := domain.StockAdjustmentReport{Requested: len(adjustments)}
	if len(adjustments) == 0 {
		return report, nil
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return report, pfirestore.WrapError("inventory.adjust", err)
	}

	bw := client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(adjustments))
	for _, adjustment := range adjustments {
		productID := strings.TrimSpace(adjustment.ProductID)
		variantKey := strings.TrimSpace(adjustment.VariantKey)
		if productID == "" || variantKey == "" || adjustment.Quantity <= 0 {
			report.Mismatched++
			jobs = append(jobs, nil)
			continue
		}

		ref := client.Collection(inventoryCollection).Doc(StockDocumentID(productID, variantKey))
		job, err := bw.Update(ref, []firestore.Update{
			{Path: "onHand", Value: firestore.Increment(-adjustment.Quantity)},
			{Path: "updatedAt", Value: now.UTC()},
		}, firestore.Exists)
		if err != nil {
			bw.End()
			return report, pfirestore.WrapError("inventory.adjust", err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for _, job := range jobs {
		if job == nil {
			continue
		}
		if _, err := job.Results(); err != nil {
			if status.Code(err) == codes.NotFound {
				report.Mismatched++
				continue
			}
			return report, pfirestore.WrapError("inventory.adjust", err)
		}
		report.Matched++
	}
	return report, nil
}

type stockDocument struct {
	ProductID  string    `firestore:"productId"`
	VariantKey string    `firestore:"variantKey"`
	OnHand     int64     `firestore:"onHand"`
	UpdatedAt  time.Time `firestore:"updatedAt"`
}

func (d stockDocument) toDomain() domain.VariantStock {
	return domain.VariantStock{
		ProductID:  d.ProductID,
		VariantKey: d.VariantKey,
		OnHand:     d.OnHand,
		UpdatedAt:  d.UpdatedAt,
	}
}
