package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/urban-tuxedo/api/internal/domain"
	pfirestore "github.com/urban-tuxedo/api/internal/platform/firestore"
)

const orderCollection = "orders"

// OrderRepository persists confirmed orders in Firestore.
type OrderRepository struct {
	base     *pfirestore.BaseRepository[orderDocument]
	pending  *pfirestore.BaseRepository[pendingPurchaseDocument]
	provider *pfirestore.Provider
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}

	base := pfirestore.NewBaseRepository[orderDocument](provider, orderCollection, nil, nil)
	pending := pfirestore.NewBaseRepository[pendingPurchaseDocument](provider, pendingPurchaseCollection, nil, nil)
	return &OrderRepository{base: base, pending: pending, provider: provider}, nil
}

// InsertFromPending consumes the pending purchase stored under token in a
// single transaction: the pending document is read, the order produced by
// build is created, and the pending document is deleted. A failure at any
// point aborts the transaction and leaves the pending document intact.
func (r *OrderRepository) InsertFromPending(ctx context.Context, token string, build func(pending domain.PendingPurchase) (domain.Order, error)) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Order{}, errors.New("pending purchase token is required")
	}
	if build == nil {
		return domain.Order{}, errors.New("order builder is required")
	}

	var created domain.Order
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		pendingRef, err := r.pending.DocumentRef(ctx, token)
		if err != nil {
			return err
		}
		snap, err := tx.Get(pendingRef)
		if err != nil {
			return err
		}
		pendingDoc, err := decodePendingPurchase(snap)
		if err != nil {
			return err
		}

		order, err := build(pendingDoc.toDomain(snap.Ref.ID))
		if err != nil {
			return err
		}
		if strings.TrimSpace(order.ID) == "" {
			return errors.New("order id is required")
		}

		orderRef, err := r.base.DocumentRef(ctx, order.ID)
		if err != nil {
			return err
		}
		if err := tx.Create(orderRef, newOrderDocument(order)); err != nil {
			return err
		}
		if err := tx.Delete(pendingRef); err != nil {
			return err
		}

		created = order
		return nil
	})
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.insertFromPending", err)
	}
	return created, nil
}

// FindByID loads an order by its identifier.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order id is required")
	}

	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// ListByEmail returns the orders placed by the given customer email, most recent first.
func (r *OrderRepository) ListByEmail(ctx context.Context, email string) ([]domain.Order, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("order repository not initialised")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("customer email is required")
	}

	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		return query.Where("customer.email", "==", email)
	})
	if err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, doc.Data.toDomain(doc.ID))
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

// UpdateStatus transitions an order to the supplied status and returns the updated order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, newStatus domain.OrderStatus, updatedAt time.Time) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order id is required")
	}

	var updated domain.Order
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		orderRef, err := r.base.DocumentRef(ctx, orderID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(orderRef)
		if err != nil {
			return err
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode order %s: %w", snap.Ref.ID, err)
		}

		doc.Status = string(newStatus)
		doc.UpdatedAt = updatedAt.UTC()
		if err := tx.Set(orderRef, doc); err != nil {
			return err
		}

		updated = doc.toDomain(orderID)
		return nil
	})
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.updateStatus", err)
	}
	return updated, nil
}

type orderDocument struct {
	Customer      customerDocument   `firestore:"customer"`
	PaymentMethod string             `firestore:"paymentMethod"`
	Items         []lineItemDocument `firestore:"items"`
	Currency      string             `firestore:"currency"`
	TotalAmount   float64            `firestore:"totalAmount"`
	Status        string             `firestore:"status"`
	PaymentRef    string             `firestore:"paymentRef,omitempty"`
	CreatedAt     time.Time          `firestore:"createdAt"`
	UpdatedAt     time.Time          `firestore:"updatedAt"`
}

func newOrderDocument(order domain.Order) orderDocument {
	customer := newCustomerDocument(order.Customer)
	customer.Email = strings.ToLower(customer.Email)
	return orderDocument{
		Customer:      customer,
		PaymentMethod: string(order.PaymentMethod),
		Items:         newLineItemDocuments(order.Items),
		Currency:      strings.TrimSpace(order.Currency),
		TotalAmount:   order.TotalAmount,
		Status:        string(order.Status),
		PaymentRef:    strings.TrimSpace(order.PaymentRef),
		CreatedAt:     order.CreatedAt.UTC(),
		UpdatedAt:     order.UpdatedAt.UTC(),
	}
}

func (d orderDocument) toDomain(id string) domain.Order {
	return domain.Order{
		ID:            id,
		Customer:      d.Customer.toDomain(),
		PaymentMethod: domain.PaymentMethod(d.PaymentMethod),
		Items:         lineItemsToDomain(d.Items),
		Currency:      strings.TrimSpace(d.Currency),
		TotalAmount:   d.TotalAmount,
		Status:        domain.OrderStatus(d.Status),
		PaymentRef:    strings.TrimSpace(d.PaymentRef),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}
