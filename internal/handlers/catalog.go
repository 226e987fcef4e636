package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/urban-tuxedo/api/internal/domain"
	"github.com/urban-tuxedo/api/internal/platform/auth"
	"github.com/urban-tuxedo/api/internal/platform/httpx"
	"github.com/urban-tuxedo/api/internal/services"
)

const maxCatalogRequestBody = 128 * 1024

// CatalogHandlers exposes storefront product and category endpoints plus their
// admin management counterparts.
type CatalogHandlers struct {
	catalog  services.CatalogService
	verifier auth.Verifier
}

// NewCatalogHandlers constructs catalog handlers. Mutating endpoints require an
// authenticated admin when a verifier is supplied.
func NewCatalogHandlers(catalog services.CatalogService, verifier auth.Verifier) *CatalogHandlers {
	return &CatalogHandlers{
		catalog:  catalog,
		verifier: verifier,
	}
}

// Routes registers product and category endpoints under the provided router.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}

	r.Route("/products", func(products chi.Router) {
		products.Get("/", h.listProducts)
		products.Get("/{productID}", h.getProduct)

		admin := products
		if h.verifier != nil {
			admin = admin.With(auth.RequireAuth(h.verifier), auth.RequireAdmin)
		}
		admin.Post("/", h.createProduct)
		admin.Put("/{productID}", h.updateProduct)
		admin.Delete("/{productID}", h.deleteProduct)
	})

	r.Route("/categories", func(categories chi.Router) {
		categories.Get("/", h.listCategories)

		admin := categories
		if h.verifier != nil {
			admin = admin.With(auth.RequireAuth(h.verifier), auth.RequireAdmin)
		}
		admin.Post("/", h.createCategory)
		admin.Put("/{categoryID}", h.updateCategory)
		admin.Delete("/{categoryID}", h.deleteCategory)
	})
}

type productRequest struct {
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	Price        float64          `json:"price"`
	Image        string           `json:"image"`
	Gallery      []string         `json:"gallery"`
	CategoryID   string           `json:"categoryId"`
	Variants     []string         `json:"variants"`
	Featured     bool             `json:"featured"`
	VariantStock map[string]int64 `json:"variantStock"`
}

type productResponse struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	Image       string   `json:"image,omitempty"`
	Gallery     []string `json:"gallery,omitempty"`
	CategoryID  string   `json:"categoryId,omitempty"`
	Variants    []string `json:"variants,omitempty"`
	Featured    bool     `json:"featured"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
}

type categoryRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type categoryResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	CreatedAt string `json:"createdAt"`
}

func (h *CatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	filter := services.ProductFilter{
		Category: r.URL.Query().Get("category"),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("featured")); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "featured must be a boolean", http.StatusBadRequest))
			return
		}
		filter.Featured = &featured
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "limit must be a non-negative integer", http.StatusBadRequest))
			return
		}
		filter.Limit = limit
	}

	products, err := h.catalog.ListProducts(ctx, filter)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	payload := make([]productResponse, 0, len(products))
	for _, product := range products {
		payload = append(payload, newProductResponse(product))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"products": payload})
}

func (h *CatalogHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	product, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "productID"))
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newProductResponse(product))
}

func (h *CatalogHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cmd, ok := h.decodeProductCommand(w, r)
	if !ok {
		return
	}

	product, err := h.catalog.CreateProduct(ctx, cmd)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, newProductResponse(product))
}

func (h *CatalogHandlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cmd, ok := h.decodeProductCommand(w, r)
	if !ok {
		return
	}

	product, err := h.catalog.UpdateProduct(ctx, chi.URLParam(r, "productID"), cmd)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newProductResponse(product))
}

func (h *CatalogHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	if err := h.catalog.DeleteProduct(ctx, chi.URLParam(r, "productID")); err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandlers) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	categories, err := h.catalog.ListCategories(ctx)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	payload := make([]categoryResponse, 0, len(categories))
	for _, category := range categories {
		payload = append(payload, newCategoryResponse(category))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"categories": payload})
}

func (h *CatalogHandlers) createCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cmd, ok := h.decodeCategoryCommand(w, r)
	if !ok {
		return
	}

	category, err := h.catalog.CreateCategory(ctx, cmd)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, newCategoryResponse(category))
}

func (h *CatalogHandlers) updateCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cmd, ok := h.decodeCategoryCommand(w, r)
	if !ok {
		return
	}

	category, err := h.catalog.UpdateCategory(ctx, chi.URLParam(r, "categoryID"), cmd)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newCategoryResponse(category))
}

func (h *CatalogHandlers) deleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	if err := h.catalog.DeleteCategory(ctx, chi.URLParam(r, "categoryID")); err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandlers) decodeProductCommand(w http.ResponseWriter, r *http.Request) (services.UpsertProductCommand, bool) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return services.UpsertProductCommand{}, false
	}

	body, err := readLimitedBody(r, maxCatalogRequestBody)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
		return services.UpsertProductCommand{}, false
	}

	var req productRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return services.UpsertProductCommand{}, false
	}

	return services.UpsertProductCommand{
		Title:        req.Title,
		Description:  req.Description,
		Price:        req.Price,
		PrimaryImage: req.Image,
		Gallery:      req.Gallery,
		CategoryID:   req.CategoryID,
		Variants:     req.Variants,
		Featured:     req.Featured,
		VariantStock: req.VariantStock,
	}, true
}

func (h *CatalogHandlers) decodeCategoryCommand(w http.ResponseWriter, r *http.Request) (services.UpsertCategoryCommand, bool) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return services.UpsertCategoryCommand{}, false
	}

	body, err := readLimitedBody(r, maxCatalogRequestBody)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return services.UpsertCategoryCommand{}, false
	}

	var req categoryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return services.UpsertCategoryCommand{}, false
	}

	return services.UpsertCategoryCommand{
		Name: req.Name,
		Slug: req.Slug,
	}, true
}

func (h *CatalogHandlers) writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "catalog entry not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_error", "failed to process catalog request", http.StatusInternalServerError))
	}
}

func newProductResponse(product domain.Product) productResponse {
	return productResponse{
		ID:          product.ID,
		Title:       product.Title,
		Description: product.Description,
		Price:       product.Price,
		Image:       product.Images.DisplayImage(),
		Gallery:     product.Images.Gallery,
		CategoryID:  product.CategoryID,
		Variants:    product.Variants,
		Featured:    product.Featured,
		CreatedAt:   formatTime(product.CreatedAt),
		UpdatedAt:   formatTime(product.UpdatedAt),
	}
}

func newCategoryResponse(category domain.Category) categoryResponse {
	return categoryResponse{
		ID:        category.ID,
		Name:      category.Name,
		Slug:      category.Slug,
		CreatedAt: formatTime(category.CreatedAt),
	}
}
