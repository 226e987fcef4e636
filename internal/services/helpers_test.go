package services

import (
	"context"
	"time"

	domain "github.com/urban-tuxedo/api/internal/domain"
	"github.com/urban-tuxedo/api/internal/payments"
	"github.com/urban-tuxedo/api/internal/platform/mail"
	"github.com/urban-tuxedo/api/internal/repositories"
)

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	}
}

type stubRepositoryError struct {
	msg      string
	notFound bool
	conflict bool
}

func (e stubRepositoryError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return "repository error"
}

func (e stubRepositoryError) IsNotFound() bool    { return e.notFound }
func (e stubRepositoryError) IsConflict() bool    { return e.conflict }
func (e stubRepositoryError) IsUnavailable() bool { return false }

type stubPendingPurchaseRepo struct {
	insertFunc        func(ctx context.Context, pending domain.PendingPurchase) error
	findByTokenFunc   func(ctx context.Context, token string) (domain.PendingPurchase, error)
	deleteExpiredFunc func(ctx context.Context, before time.Time, limit int) (int, error)
}

var _ repositories.PendingPurchaseRepository = (*stubPendingPurchaseRepo)(nil)

func (s *stubPendingPurchaseRepo) Insert(ctx context.Context, pending domain.PendingPurchase) error {
	if s.insertFunc != nil {
		return s.insertFunc(ctx, pending)
	}
	return nil
}

func (s *stubPendingPurchaseRepo) FindByToken(ctx context.Context, token string) (domain.PendingPurchase, error) {
	if s.findByTokenFunc != nil {
		return s.findByTokenFunc(ctx, token)
	}
	return domain.PendingPurchase{}, stubRepositoryError{notFound: true}
}

func (s *stubPendingPurchaseRepo) DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error) {
	if s.deleteExpiredFunc != nil {
		return s.deleteExpiredFunc(ctx, before, limit)
	}
	return 0, nil
}

type stubOrderRepo struct {
	insertFromPendingFunc func(ctx context.Context, token string, build func(domain.PendingPurchase) (domain.Order, error)) (domain.Order, error)
	findByIDFunc          func(ctx context.Context, orderID string) (domain.Order, error)
	listByEmailFunc       func(ctx context.Context, email string) ([]domain.Order, error)
	updateStatusFunc      func(ctx context.Context, orderID string, status domain.OrderStatus, updatedAt time.Time) (domain.Order, error)
}

var _ repositories.OrderRepository = (*stubOrderRepo)(nil)

func (s *stubOrderRepo) InsertFromPending(ctx context.Context, token string, build func(domain.PendingPurchase) (domain.Order, error)) (domain.Order, error) {
	if s.insertFromPendingFunc != nil {
		return s.insertFromPendingFunc(ctx, token, build)
	}
	return domain.Order{}, stubRepositoryError{notFound: true}
}

func (s *stubOrderRepo) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findByIDFunc != nil {
		return s.findByIDFunc(ctx, orderID)
	}
	return domain.Order{}, stubRepositoryError{notFound: true}
}

func (s *stubOrderRepo) ListByEmail(ctx context.Context, email string) ([]domain.Order, error) {
	if s.listByEmailFunc != nil {
		return s.listByEmailFunc(ctx, email)
	}
	return nil, nil
}

func (s *stubOrderRepo) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, updatedAt time.Time) (domain.Order, error) {
	if s.updateStatusFunc != nil {
		return s.updateStatusFunc(ctx, orderID, status, updatedAt)
	}
	return domain.Order{}, stubRepositoryError{notFound: true}
}

type stubInventoryRepo struct {
	seedStockFunc   func(ctx context.Context, stocks []domain.VariantStock) error
	getStockFunc    func(ctx context.Context, productID, variantKey string) (domain.VariantStock, error)
	adjustStockFunc func(ctx context.Context, adjustments []domain.StockAdjustment, now time.Time) (domain.StockAdjustmentReport, error)
}

var _ repositories.InventoryRepository = (*stubInventoryRepo)(nil)

func (s *stubInventoryRepo) SeedStock(ctx context.Context, stocks []domain.VariantStock) error {
	if s.seedStockFunc != nil {
		return s.seedStockFunc(ctx, stocks)
	}
	return nil
}

func (s *stubInventoryRepo) GetStock(ctx context.Context, productID, variantKey string) (domain.VariantStock, error) {
	if s.getStockFunc != nil {
		return s.getStockFunc(ctx, productID, variantKey)
	}
	return domain.VariantStock{}, stubRepositoryError{notFound: true}
}

func (s *stubInventoryRepo) AdjustStock(ctx context.Context, adjustments []domain.StockAdjustment, now time.Time) (domain.StockAdjustmentReport, error) {
	if s.adjustStockFunc != nil {
		return s.adjustStockFunc(ctx, adjustments, now)
	}
	return domain.StockAdjustmentReport{}, nil
}

type stubProductRepo struct {
	insertFunc   func(ctx context.Context, product domain.Product) error
	updateFunc   func(ctx context.Context, product domain.Product) (domain.Product, error)
	deleteFunc   func(ctx context.Context, productID string) error
	findByIDFunc func(ctx context.Context, productID string) (domain.Product, error)
	listFunc     func(ctx context.Context, filter repositories.ProductListFilter) ([]domain.Product, error)
}

var _ repositories.ProductRepository = (*stubProductRepo)(nil)

func (s *stubProductRepo) Insert(ctx context.Context, product domain.Product) error {
	if s.insertFunc != nil {
		return s.insertFunc(ctx, product)
	}
	return nil
}

func (s *stubProductRepo) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	if s.updateFunc != nil {
		return s.updateFunc(ctx, product)
	}
	return product, nil
}

func (s *stubProductRepo) Delete(ctx context.Context, productID string) error {
	if s.deleteFunc != nil {
		return s.deleteFunc(ctx, productID)
	}
	return nil
}

func (s *stubProductRepo) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if s.findByIDFunc != nil {
		return s.findByIDFunc(ctx, productID)
	}
	return domain.Product{}, stubRepositoryError{notFound: true}
}

func (s *stubProductRepo) List(ctx context.Context, filter repositories.ProductListFilter) ([]domain.Product, error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, filter)
	}
	return nil, nil
}

type stubCategoryRepo struct {
	insertFunc   func(ctx context.Context, category domain.Category) error
	updateFunc   func(ctx context.Context, category domain.Category) (domain.Category, error)
	deleteFunc   func(ctx context.Context, categoryID string) error
	findByIDFunc func(ctx context.Context, categoryID string) (domain.Category, error)
	listFunc     func(ctx context.Context) ([]domain.Category, error)
}

var _ repositories.CategoryRepository = (*stubCategoryRepo)(nil)

func (s *stubCategoryRepo) Insert(ctx context.Context, category domain.Category) error {
	if s.insertFunc != nil {
		return s.insertFunc(ctx, category)
	}
	return nil
}

func (s *stubCategoryRepo) Update(ctx context.Context, category domain.Category) (domain.Category, error) {
	if s.updateFunc != nil {
		return s.updateFunc(ctx, category)
	}
	return category, nil
}

func (s *stubCategoryRepo) Delete(ctx context.Context, categoryID string) error {
	if s.deleteFunc != nil {
		return s.deleteFunc(ctx, categoryID)
	}
	return nil
}

func (s *stubCategoryRepo) FindByID(ctx context.Context, categoryID string) (domain.Category, error) {
	if s.findByIDFunc != nil {
		return s.findByIDFunc(ctx, categoryID)
	}
	return domain.Category{}, stubRepositoryError{notFound: true}
}

func (s *stubCategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	if s.listFunc != nil {
		return s.listFunc(ctx)
	}
	return nil, nil
}

type stubPromotionRepo struct {
	insertFunc     func(ctx context.Context, promotion domain.Promotion) error
	updateFunc     func(ctx context.Context, promotion domain.Promotion) (domain.Promotion, error)
	deleteFunc     func(ctx context.Context, promotionID string) error
	findByIDFunc   func(ctx context.Context, promotionID string) (domain.Promotion, error)
	findByCodeFunc func(ctx context.Context, code string) (domain.Promotion, error)
	listFunc       func(ctx context.Context, activeAt *time.Time) ([]domain.Promotion, error)
}

var _ repositories.PromotionRepository = (*stubPromotionRepo)(nil)

func (s *stubPromotionRepo) Insert(ctx context.Context, promotion domain.Promotion) error {
	if s.insertFunc != nil {
		return s.insertFunc(ctx, promotion)
	}
	return nil
}

func (s *stubPromotionRepo) Update(ctx context.Context, promotion domain.Promotion) (domain.Promotion, error) {
	if s.updateFunc != nil {
		return s.updateFunc(ctx, promotion)
	}
	return promotion, nil
}

func (s *stubPromotionRepo) Delete(ctx context.Context, promotionID string) error {
	if s.deleteFunc != nil {
		return s.deleteFunc(ctx, promotionID)
	}
	return nil
}

func (s *stubPromotionRepo) FindByID(ctx context.Context, promotionID string) (domain.Promotion, error) {
	if s.findByIDFunc != nil {
		return s.findByIDFunc(ctx, promotionID)
	}
	return domain.Promotion{}, stubRepositoryError{notFound: true}
}

func (s *stubPromotionRepo) FindByCode(ctx context.Context, code string) (domain.Promotion, error) {
	if s.findByCodeFunc != nil {
		return s.findByCodeFunc(ctx, code)
	}
	return domain.Promotion{}, stubRepositoryError{notFound: true}
}

func (s *stubPromotionRepo) List(ctx context.Context, activeAt *time.Time) ([]domain.Promotion, error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, activeAt)
	}
	return nil, nil
}

type stubUserRepo struct {
	insertFunc      func(ctx context.Context, user domain.User) error
	findByIDFunc    func(ctx context.Context, userID string) (domain.User, error)
	findByEmailFunc func(ctx context.Context, email string) (domain.User, error)
}

var _ repositories.UserRepository = (*stubUserRepo)(nil)

func (s *stubUserRepo) Insert(ctx context.Context, user domain.User) error {
	if s.insertFunc != nil {
		return s.insertFunc(ctx, user)
	}
	return nil
}

func (s *stubUserRepo) FindByID(ctx context.Context, userID string) (domain.User, error) {
	if s.findByIDFunc != nil {
		return s.findByIDFunc(ctx, userID)
	}
	return domain.User{}, stubRepositoryError{notFound: true}
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	if s.findByEmailFunc != nil {
		return s.findByEmailFunc(ctx, email)
	}
	return domain.User{}, stubRepositoryError{notFound: true}
}

// syncDispatcher runs dispatched tasks immediately on the calling goroutine,
// recording their names, so tests can assert on background side effects.
type syncDispatcher struct {
	names []string
}

var _ TaskDispatcher = (*syncDispatcher)(nil)

func (d *syncDispatcher) Dispatch(name string, task func(ctx context.Context)) {
	d.names = append(d.names, name)
	task(context.Background())
}

func (d *syncDispatcher) dispatched(name string) bool {
	for _, n := range d.names {
		if n == name {
			return true
		}
	}
	return false
}

type stubInventoryService struct {
	adjustFunc func(ctx context.Context, order Order) (StockAdjustmentReport, error)
	seedFunc   func(ctx context.Context, productID string, quantities map[string]int64) error
}

var _ InventoryService = (*stubInventoryService)(nil)

func (s *stubInventoryService) AdjustForOrder(ctx context.Context, order Order) (StockAdjustmentReport, error) {
	if s.adjustFunc != nil {
		return s.adjustFunc(ctx, order)
	}
	return StockAdjustmentReport{}, nil
}

func (s *stubInventoryService) SeedProductStock(ctx context.Context, productID string, quantities map[string]int64) error {
	if s.seedFunc != nil {
		return s.seedFunc(ctx, productID, quantities)
	}
	return nil
}

type stubNotificationService struct {
	confirmationFunc func(ctx context.Context, order Order) error
	ownerFunc        func(ctx context.Context, order Order) error
	statusFunc       func(ctx context.Context, order Order) error
}

var _ NotificationService = (*stubNotificationService)(nil)

func (s *stubNotificationService) SendOrderConfirmation(ctx context.Context, order Order) error {
	if s.confirmationFunc != nil {
		return s.confirmationFunc(ctx, order)
	}
	return nil
}

func (s *stubNotificationService) SendOwnerAlert(ctx context.Context, order Order) error {
	if s.ownerFunc != nil {
		return s.ownerFunc(ctx, order)
	}
	return nil
}

func (s *stubNotificationService) SendStatusUpdate(ctx context.Context, order Order) error {
	if s.statusFunc != nil {
		return s.statusFunc(ctx, order)
	}
	return nil
}

type stubSessionCreator struct {
	createFunc func(ctx context.Context, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error)
}

func (s *stubSessionCreator) CreateCheckoutSession(ctx context.Context, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, req)
	}
	return payments.CheckoutSession{}, nil
}

type stubEventVerifier struct {
	verifyFunc func(payload []byte, signature string) (payments.WebhookEvent, error)
}

func (s *stubEventVerifier) VerifyEvent(payload []byte, signature string) (payments.WebhookEvent, error) {
	if s.verifyFunc != nil {
		return s.verifyFunc(payload, signature)
	}
	return payments.WebhookEvent{}, nil
}

type stubMailSender struct {
	sendFunc func(ctx context.Context, msg mail.Message) error
	sent     []mail.Message
}

var _ mail.Sender = (*stubMailSender)(nil)

func (s *stubMailSender) Send(ctx context.Context, msg mail.Message) error {
	if s.sendFunc != nil {
		if err := s.sendFunc(ctx, msg); err != nil {
			return err
		}
	}
	s.sent = append(s.sent, msg)
	return nil
}

type stubOrderService struct {
	materializeFunc  func(ctx context.Context, token, paymentRef string) (Order, error)
	getFunc          func(ctx context.Context, orderID string) (Order, error)
	listByEmailFunc  func(ctx context.Context, email string) ([]Order, error)
	updateStatusFunc func(ctx context.Context, orderID, status string) (Order, error)
}

var _ OrderService = (*stubOrderService)(nil)

func (s *stubOrderService) MaterializeOrder(ctx context.Context, token, paymentRef string) (Order, error) {
	if s.materializeFunc != nil {
		return s.materializeFunc(ctx, token, paymentRef)
	}
	return Order{}, nil
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID string) (Order, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, orderID)
	}
	return Order{}, ErrOrderNotFound
}

func (s *stubOrderService) ListOrdersByEmail(ctx context.Context, email string) ([]Order, error) {
	if s.listByEmailFunc != nil {
		return s.listByEmailFunc(ctx, email)
	}
	return nil, ErrOrderNotFound
}

func (s *stubOrderService) UpdateStatus(ctx context.Context, orderID, status string) (Order, error) {
	if s.updateStatusFunc != nil {
		return s.updateStatusFunc(ctx, orderID, status)
	}
	return Order{}, ErrOrderNotFound
}
