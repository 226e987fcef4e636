package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/urban-tuxedo/api/internal/domain"
	"github.com/urban-tuxedo/api/internal/platform/auth"
	"github.com/urban-tuxedo/api/internal/platform/httpx"
	"github.com/urban-tuxedo/api/internal/services"
)

const maxPromotionRequestBody = 8 * 1024

// PromotionHandlers exposes promotion validation plus admin management endpoints.
type PromotionHandlers struct {
	promotions services.PromotionService
	verifier   auth.Verifier
}

// NewPromotionHandlers constructs promotion handlers.
func NewPromotionHandlers(promotions services.PromotionService, verifier auth.Verifier) *PromotionHandlers {
	return &PromotionHandlers{
		promotions: promotions,
		verifier:   verifier,
	}
}

// Routes registers promotion endpoints under the provided router.
func (h *PromotionHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/validate/{code}", h.validateCode)

	admin := r
	if h.verifier != nil {
		admin = admin.With(auth.RequireAuth(h.verifier), auth.RequireAdmin)
	}
	admin.Get("/", h.listPromotions)
	admin.Post("/", h.createPromotion)
	admin.Put("/{promotionID}", h.updatePromotion)
	admin.Delete("/{promotionID}", h.deletePromotion)
}

type promotionRequest struct {
	Code       string `json:"code"`
	PercentOff float64 `json:"percentOff"`
	StartsAt   string `json:"startsAt"`
	EndsAt     string `json:"endsAt"`
	Active     bool   `json:"active"`
}

type promotionResponse struct {
	ID         string  `json:"id"`
	Code       string  `json:"code"`
	PercentOff float64 `json:"percentOff"`
	StartsAt   string  `json:"startsAt,omitempty"`
	EndsAt     string  `json:"endsAt,omitempty"`
	Active     bool    `json:"active"`
	CreatedAt  string  `json:"createdAt,omitempty"`
}

func (h *PromotionHandlers) validateCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.promotions == nil {
		httpx.WriteError(ctx, w, httpx.NewError("promotions_unavailable", "promotion service unavailable", http.StatusServiceUnavailable))
		return
	}

	promotion, err := h.promotions.ValidateCode(ctx, chi.URLParam(r, "code"))
	if err != nil {
		h.writePromotionError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newPromotionResponse(promotion))
}

func (h *PromotionHandlers) listPromotions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.promotions == nil {
		httpx.WriteError(ctx, w, httpx.NewError("promotions_unavailable", "promotion service unavailable", http.StatusServiceUnavailable))
		return
	}

	activeOnly := false
	if raw := strings.TrimSpace(r.URL.Query().Get("active")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "active must be a boolean", http.StatusBadRequest))
			return
		}
		activeOnly = parsed
	}

	promotions, err := h.promotions.ListPromotions(ctx, activeOnly)
	if err != nil {
		h.writePromotionError(ctx, w, err)
		return
	}

	payload := make([]promotionResponse, 0, len(promotions))
	for _, promotion := range promotions {
		payload = append(payload, newPromotionResponse(promotion))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"promotions": payload})
}

func (h *PromotionHandlers) createPromotion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cmd, ok := h.decodePromotionCommand(w, r)
	if !ok {
		return
	}

	promotion, err := h.promotions.CreatePromotion(ctx, cmd)
	if err != nil {
		h.writePromotionError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, newPromotionResponse(promotion))
}

func (h *PromotionHandlers) updatePromotion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cmd, ok := h.decodePromotionCommand(w, r)
	if !ok {
		return
	}

	promotion, err := h.promotions.UpdatePromotion(ctx, chi.URLParam(r, "promotionID"), cmd)
	if err != nil {
		h.writePromotionError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newPromotionResponse(promotion))
}

func (h *PromotionHandlers) deletePromotion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.promotions == nil {
		httpx.WriteError(ctx, w, httpx.NewError("promotions_unavailable", "promotion service unavailable", http.StatusServiceUnavailable))
		return
	}

	if err := h.promotions.DeletePromotion(ctx, chi.URLParam(r, "promotionID")); err != nil {
		h.writePromotionError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PromotionHandlers) decodePromotionCommand(w http.ResponseWriter, r *http.Request) (services.UpsertPromotionCommand, bool) {
	ctx := r.Context()
	if h.promotions == nil {
		httpx.WriteError(ctx, w, httpx.NewError("promotions_unavailable", "promotion service unavailable", http.StatusServiceUnavailable))
		return services.UpsertPromotionCommand{}, false
	}

	body, err := readLimitedBody(r, maxPromotionRequestBody)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return services.UpsertPromotionCommand{}, false
	}

	var req promotionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return services.UpsertPromotionCommand{}, false
	}

	cmd := services.UpsertPromotionCommand{
		Code:       req.Code,
		PercentOff: req.PercentOff,
		Active:     req.Active,
	}
	if raw := strings.TrimSpace(req.StartsAt); raw != "" {
		startsAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "startsAt must be an RFC 3339 timestamp", http.StatusBadRequest))
			return services.UpsertPromotionCommand{}, false
		}
		cmd.StartsAt = startsAt
	}
	if raw := strings.TrimSpace(req.EndsAt); raw != "" {
		endsAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "endsAt must be an RFC 3339 timestamp", http.StatusBadRequest))
			return services.UpsertPromotionCommand{}, false
		}
		cmd.EndsAt = endsAt
	}
	return cmd, true
}

func (h *PromotionHandlers) writePromotionError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrPromotionInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrPromotionNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("promotion_not_found", "promotion not found", http.StatusNotFound))
	case errors.Is(err, services.ErrPromotionInactive):
		httpx.WriteError(ctx, w, httpx.NewError("promotion_inactive", "promotion is not currently active", http.StatusGone))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("promotion_error", "failed to process promotion request", http.StatusInternalServerError))
	}
}

func newPromotionResponse(promotion domain.Promotion) promotionResponse {
	return promotionResponse{
		ID:         promotion.ID,
		Code:       promotion.Code,
		PercentOff: promotion.PercentOff,
		StartsAt:   formatTime(promotion.StartsAt),
		EndsAt:     formatTime(promotion.EndsAt),
		Active:     promotion.Active,
		CreatedAt:  formatTime(promotion.CreatedAt),
	}
}
