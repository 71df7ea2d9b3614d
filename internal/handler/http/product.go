package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/ordercore/internal/service"
	"github.com/utafrali/ordercore/pkg/httputil"
	"github.com/utafrali/ordercore/pkg/pagination"
	"github.com/utafrali/ordercore/pkg/validator"
)

// ProductHandler serves the catalog.
type ProductHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.CatalogService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{service: svc, logger: logger}
}

// CreateProductRequest is the JSON request body for a new product.
type CreateProductRequest struct {
	Name              string          `json:"name" validate:"required,min=1,max=200"`
	Description       string          `json:"description" validate:"omitempty,max=5000"`
	Price             decimal.Decimal `json:"price" validate:"gte=0"`
	AvailableQuantity int             `json:"available_quantity" validate:"gte=0,lte=2147483647"`
	ImageURL          string          `json:"image_url" validate:"omitempty,url"`
	SKU               string          `json:"sku" validate:"omitempty,max=50"`
	Active            *bool           `json:"active"`
	Featured          bool            `json:"featured"`
}

// UpdateProductRequest carries optional product changes.
type UpdateProductRequest struct {
	Name              *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Description       *string          `json:"description" validate:"omitempty,max=5000"`
	Price             *decimal.Decimal `json:"price" validate:"omitempty,gte=0"`
	AvailableQuantity *int             `json:"available_quantity" validate:"omitempty,gte=0,lte=2147483647"`
	ImageURL          *string          `json:"image_url" validate:"omitempty,url"`
	SKU               *string          `json:"sku" validate:"omitempty,min=1,max=50"`
	Active            *bool            `json:"active"`
	Featured          *bool            `json:"featured"`
}

// ListProducts handles GET /api/v1/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)

	products, total, err := h.service.ListProducts(r.Context(), page)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(newProductResponses(products), total, page))
}

// GetProduct handles GET /api/v1/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	p, err := h.service.GetProduct(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, newProductResponse(p))
}

// CreateProduct handles POST /api/v1/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	p, err := h.service.CreateProduct(r.Context(), service.CreateProductInput{
		Name:              req.Name,
		Description:       req.Description,
		Price:             req.Price,
		AvailableQuantity: req.AvailableQuantity,
		ImageURL:          req.ImageURL,
		SKU:               req.SKU,
		Active:            active,
		Featured:          req.Featured,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, newProductResponse(p))
}

// UpdateProduct handles PUT /api/v1/products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	p, err := h.service.UpdateProduct(r.Context(), id.String(), service.UpdateProductInput{
		Name:              req.Name,
		Description:       req.Description,
		Price:             req.Price,
		AvailableQuantity: req.AvailableQuantity,
		ImageURL:          req.ImageURL,
		SKU:               req.SKU,
		Active:            req.Active,
		Featured:          req.Featured,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, newProductResponse(p))
}

// DeactivateProduct handles DELETE /api/v1/products/{id}
func (h *ProductHandler) DeactivateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeactivateProduct(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
