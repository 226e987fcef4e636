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
	// ErrPromotionInvalidInput indicates the caller supplied invalid input parameters.
	ErrPromotionInvalidInput = errors.New("promotion: invalid input")
	// ErrPromotionNotFound indicates the promotion does not exist.
	ErrPromotionNotFound = errors.New("promotion: not found")
	// ErrPromotionInactive indicates the promotion exists but cannot currently be applied.
	ErrPromotionInactive = errors.New("promotion: inactive")
)

// PromotionServiceDeps wires the dependencies required by the promotion service.
type PromotionServiceDeps struct {
	Promotions  repositories.PromotionRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type promotionService struct {
	promotions repositories.PromotionRepository
	now        func() time.Time
	newID      func() string
	logger     func(context.Context, string, map[string]any)
}

var _ PromotionService = (*promotionService)(nil)

// NewPromotionService constructs a PromotionService validating required dependencies.
func NewPromotionService(deps PromotionServiceDeps) (PromotionService, error) {
	if deps.Promotions == nil {
		return nil, errors.New("promotion service: promotion repository is required")
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

	return &promotionService{
		promotions: deps.Promotions,
		now: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// CreatePromotion stores a new promotion.
func (s *promotionService) CreatePromotion(ctx context.Context, cmd UpsertPromotionCommand) (Promotion, error) {
	promotion, err := s.buildPromotion(cmd)
	if err != nil {
		return Promotion{}, err
	}
	promotion.ID = "promo_" + s.newID()
	promotion.CreatedAt = s.now()

	if err := s.promotions.Insert(ctx, promotion); err != nil {
		return Promotion{}, err
	}
	s.logger(ctx, "promotion.created", map[string]any{
		"promotionId": promotion.ID,
		"code":        promotion.Code,
	})
	return promotion, nil
}

// UpdatePromotion replaces an existing promotion.
func (s *promotionService) UpdatePromotion(ctx context.Context, promotionID string, cmd UpsertPromotionCommand) (Promotion, error) {
	promotionID = strings.TrimSpace(promotionID)
	if promotionID == "" {
		return Promotion{}, fmt.Errorf("%w: promotion id is required", ErrPromotionInvalidInput)
	}
	promotion, err := s.buildPromotion(cmd)
	if err != nil {
		return Promotion{}, err
	}
	promotion.ID = promotionID

	updated, err := s.promotions.Update(ctx, promotion)
	if err != nil {
		if isRepoNotFound(err) {
			return Promotion{}, ErrPromotionNotFound
		}
		return Promotion{}, err
	}
	return updated, nil
}

// DeletePromotion removes a promotion.
func (s *promotionService) DeletePromotion(ctx context.Context, promotionID string) error {
	promotionID = strings.TrimSpace(promotionID)
	if promotionID == "" {
		return fmt.Errorf("%w: promotion id is required", ErrPromotionInvalidInput)
	}
	if _, err := s.promotions.FindByID(ctx, promotionID); err != nil {
		if isRepoNotFound(err) {
			return ErrPromotionNotFound
		}
		return err
	}
	return s.promotions.Delete(ctx, promotionID)
}

// ListPromotions returns promotions, optionally only those currently active.
func (s *promotionService) ListPromotions(ctx context.Context, activeOnly bool) ([]Promotion, error) {
	var activeAt *time.Time
	if activeOnly {
		now := s.now()
		activeAt = &now
	}
	return s.promotions.List(ctx, activeAt)
}

// ValidateCode resolves a promotion code and checks its active window.
func (s *promotionService) ValidateCode(ctx context.Context, code string) (Promotion, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Promotion{}, fmt.Errorf("%w: code is required", ErrPromotionInvalidInput)
	}

	promotion, err := s.promotions.FindByCode(ctx, code)
	if err != nil {
		if isRepoNotFound(err) {
			return Promotion{}, ErrPromotionNotFound
		}
		return Promotion{}, err
	}
	if !promotion.ActiveAt(s.now()) {
		return Promotion{}, ErrPromotionInactive
	}
	return promotion, nil
}

func (s *promotionService) buildPromotion(cmd UpsertPromotionCommand) (domain.Promotion, error) {
	code := strings.ToUpper(strings.TrimSpace(cmd.Code))
	if code == "" {
		return domain.Promotion{}, fmt.Errorf("%w: code is required", ErrPromotionInvalidInput)
	}
	if cmd.PercentOff <= 0 || cmd.PercentOff > 100 {
		return domain.Promotion{}, fmt.Errorf("%w: percent off must be in (0, 100]", ErrPromotionInvalidInput)
	}
	if !cmd.StartsAt.IsZero() && !cmd.EndsAt.IsZero() && cmd.EndsAt.Before(cmd.StartsAt) {
		return domain.Promotion{}, fmt.Errorf("%w: window ends before it starts", ErrPromotionInvalidInput)
	}

	return domain.Promotion{
		Code:       code,
		PercentOff: cmd.PercentOff,
		StartsAt:   cmd.StartsAt.UTC(),
		EndsAt:     cmd.EndsAt.UTC(),
		Active:     cmd.Active,
	}, nil
}
