package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/ordercore/internal/domain"
	"github.com/utafrali/ordercore/internal/service"
	"github.com/utafrali/ordercore/pkg/httputil"
	"github.com/utafrali/ordercore/pkg/pagination"
	"github.com/utafrali/ordercore/pkg/validator"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	service *service.OrderService
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateOrderItemRequest is one cart line. Quantity is capped per line so
// it always fits the INTEGER stock column.
type CreateOrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0,lte=10000"`
}

// CreateOrderRequest is the JSON request body for creating an order. An
// empty items list is left to the service, which reports EMPTY_CART.
type CreateOrderRequest struct {
	Items              []CreateOrderItemRequest `json:"items" validate:"max=100,dive"`
	ShippingAddress    string                   `json:"shipping_address" validate:"required,min=5,max=255"`
	ShippingCity       string                   `json:"shipping_city" validate:"required,min=2,max=100"`
	ShippingPostalCode string                   `json:"shipping_postal_code" validate:"required,min=5,max=10"`
	ShippingState      string                   `json:"shipping_state" validate:"omitempty,max=100"`
	ShippingCountry    string                   `json:"shipping_country" validate:"omitempty,max=100"`
	Notes              string                   `json:"notes" validate:"omitempty,max=500"`
	DiscountCode       string                   `json:"discount_code" validate:"omitempty,max=50"`
}

// UpdateStatusRequest is the JSON request body for updating order status.
type UpdateStatusRequest struct {
	Status           string `json:"status" validate:"required,oneof=pending paid processing shipped delivered cancelled refunded"`
	PaymentReference string `json:"payment_reference" validate:"omitempty,max=255"`
}

// --- Handlers ---

// CreateOrder handles POST /api/v1/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	items := make([]service.CreateOrderItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.CreateOrderItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
	}

	order, err := h.service.CreateOrder(r.Context(), service.CreateOrderInput{
		ClientID: actorFrom(r).ClientID,
		Items:    items,
		Shipping: domain.ShippingInfo{
			Address:    req.ShippingAddress,
			City:       req.ShippingCity,
			PostalCode: req.ShippingPostalCode,
			State:      req.ShippingState,
			Country:    req.ShippingCountry,
		},
		Notes:        req.Notes,
		DiscountCode: req.DiscountCode,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, newOrderResponse(order))
}

// ListOrders handles GET /api/v1/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)

	orders, total, err := h.service.ListOrders(r.Context(), actorFrom(r), page)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(newOrderSummaries(orders), total, page))
}

// GetOrder handles GET /api/v1/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), actorFrom(r), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, newOrderResponse(order))
}

// UpdateOrderStatus handles PATCH /api/v1/orders/{id}/status
func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), actorFrom(r), id.String(), service.UpdateStatusInput{
		Status:           domain.OrderStatus(req.Status),
		PaymentReference: req.PaymentReference,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, newOrderResponse(order))
}

// CancelOrder handles DELETE /api/v1/orders/{id}
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.CancelOrder(r.Context(), actorFrom(r), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
