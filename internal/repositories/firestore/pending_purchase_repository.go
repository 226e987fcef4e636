package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/urban-tuxedo/api/internal/domain"
	pfirestore "github.com/urban-tuxedo/api/internal/platform/firestore"
)

const pendingPurchaseCollection = "pendingPurchases"

// PendingPurchaseRepository stages checkout payloads in Firestore keyed by token.
type PendingPurchaseRepository struct {
	base     *pfirestore.BaseRepository[pendingPurchaseDocument]
	provider *pfirestore.Provider
}

// NewPendingPurchaseRepository constructs a Firestore-backed pending purchase repository.
func NewPendingPurchaseRepository(provider *pfirestore.Provider) (*PendingPurchaseRepository, error) {
	if provider == nil {
		return nil, errors.New("pending purchase repository requires firestore provider")
	}

	base := pfirestore.NewBaseRepository[pendingPurchaseDocument](provider, pendingPurchaseCollection, nil, nil)
	return &PendingPurchaseRepository{base: base, provider: provider}, nil
}

// Insert stores the pending purchase under its token.
func (r *PendingPurchaseRepository) Insert(ctx context.Context, pending domain.PendingPurchase) error {
	if r == nil || r.base == nil {
		return errors.New("pending purchase repository not initialised")
	}
	token := strings.TrimSpace(pending.Token)
	if token == "" {
		return errors.New("pending purchase token is required")
	}

	_, err := r.base.Set(ctx, token, newPendingPurchaseDocument(pending))
	return err
}

// FindByToken loads the pending purchase stored under the token.
func (r *PendingPurchaseRepository) FindByToken(ctx context.Context, token string) (domain.PendingPurchase, error) {
	if r == nil || r.base == nil {
		return domain.PendingPurchase{}, errors.New("pending purchase repository not initialised")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.PendingPurchase{}, errors.New("pending purchase token is required")
	}

	doc, err := r.base.Get(ctx, token)
	if err != nil {
		return domain.PendingPurchase{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// DeleteExpired removes pending purchases whose expiry passed before the cutoff.
func (r *PendingPurchaseRepository) DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error) {
	if r == nil || r.base == nil {
		return 0, errors.New("pending purchase repository not initialised")
	}
	if limit <= 0 {
		limit = 100
	}

	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		return query.Where("expiresAt", "<=", before.UTC()).Limit(limit)
	})
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, doc := range docs {
		if err := r.base.Delete(ctx, doc.ID); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

type pendingPurchaseDocument struct {
	Token         string             `firestore:"token"`
	Customer      customerDocument   `firestore:"customer"`
	PaymentMethod string             `firestore:"paymentMethod"`
	Items         []lineItemDocument `firestore:"items"`
	Currency      string             `firestore:"currency"`
	TotalAmount   float64            `firestore:"totalAmount"`
	CreatedAt     time.Time          `firestore:"createdAt"`
	ExpiresAt     time.Time          `firestore:"expiresAt"`
}

type customerDocument struct {
	FirstName string `firestore:"firstName"`
	LastName  string `firestore:"lastName"`
	Email     string `firestore:"email"`
	Phone     string `firestore:"phone,omitempty"`
	Street    string `firestore:"street"`
	City      string `firestore:"city"`
	State     string `firestore:"state,omitempty"`
	ZipCode   string `firestore:"zipCode"`
}

type lineItemDocument struct {
	ProductID         string   `firestore:"productId"`
	Title             string   `firestore:"title"`
	UnitPrice         float64  `firestore:"unitPrice"`
	Image             string   `firestore:"image,omitempty"`
	Gallery           []string `firestore:"gallery,omitempty"`
	AvailableVariants []string `firestore:"availableVariants,omitempty"`
	SelectedVariant   string   `firestore:"selectedVariant,omitempty"`
	Quantity          int64    `firestore:"qty"`
}

func newPendingPurchaseDocument(pending domain.PendingPurchase) pendingPurchaseDocument {
	return pendingPurchaseDocument{
		Token:         strings.TrimSpace(pending.Token),
		Customer:      newCustomerDocument(pending.Customer),
		PaymentMethod: string(pending.PaymentMethod),
		Items:         newLineItemDocuments(pending.Items),
		Currency:      strings.TrimSpace(pending.Currency),
		TotalAmount:   pending.TotalAmount,
		CreatedAt:     pending.CreatedAt.UTC(),
		ExpiresAt:     pending.ExpiresAt.UTC(),
	}
}

func (d pendingPurchaseDocument) toDomain(id string) domain.PendingPurchase {
	return domain.PendingPurchase{
		Token:         id,
		Customer:      d.Customer.toDomain(),
		PaymentMethod: domain.PaymentMethod(d.PaymentMethod),
		Items:         lineItemsToDomain(d.Items),
		Currency:      strings.TrimSpace(d.Currency),
		TotalAmount:   d.TotalAmount,
		CreatedAt:     d.CreatedAt,
		ExpiresAt:     d.ExpiresAt,
	}
}

func newCustomerDocument(customer domain.Customer) customerDocument {
	return customerDocument{
		FirstName: strings.TrimSpace(customer.FirstName),
		LastName:  strings.TrimSpace(customer.LastName),
		Email:     strings.TrimSpace(customer.Email),
		Phone:     strings.TrimSpace(customer.Phone),
		Street:    strings.TrimSpace(customer.Address.Street),
		City:      strings.TrimSpace(customer.Address.City),
		State:     strings.TrimSpace(customer.Address.State),
		ZipCode:   strings.TrimSpace(customer.Address.ZipCode),
	}
}

func (d customerDocument) toDomain() domain.Customer {
	return domain.Customer{
		FirstName: d.FirstName,
		LastName:  d.LastName,
		Email:     d.Email,
		Phone:     d.Phone,
		Address: domain.Address{
			Street:  d.Street,
			City:    d.City,
			State:   d.State,
			ZipCode: d.ZipCode,
		},
	}
}

func newLineItemDocuments(items []domain.LineItem) []lineItemDocument {
	docs := make([]lineItemDocument, len(items))
	for i, item := range items {
		docs[i] = lineItemDocument{
			ProductID:         strings.TrimSpace(item.ProductID),
			Title:             strings.TrimSpace(item.Title),
			UnitPrice:         item.UnitPrice,
			Image:             strings.TrimSpace(item.Images.Primary),
			Gallery:           item.Images.Gallery,
			AvailableVariants: item.AvailableVariants,
			SelectedVariant:   strings.TrimSpace(item.SelectedVariant),
			Quantity:          item.Quantity,
		}
	}
	return docs
}

func lineItemsToDomain(docs []lineItemDocument) []domain.LineItem {
	items := make([]domain.LineItem, len(docs))
	for i, doc := range docs {
		items[i] = domain.LineItem{
			ProductID:         doc.ProductID,
			Title:             doc.Title,
			UnitPrice:         doc.UnitPrice,
			Images:            domain.ProductImages{Primary: doc.Image, Gallery: doc.Gallery},
			AvailableVariants: doc.AvailableVariants,
			SelectedVariant:   doc.SelectedVariant,
			Quantity:          doc.Quantity,
		}
	}
	return items
}

func decodePendingPurchase(snap *firestore.DocumentSnapshot) (pendingPurchaseDocument, error) {
	var doc pendingPurchaseDocument
	if err := snap.DataTo(&doc); err != nil {
		return pendingPurchaseDocument{}, fmt.Errorf("decode pending purchase %s: %w", snap.Ref.ID, err)
	}
	return doc, nil
}
