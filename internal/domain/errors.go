package domain

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/utafrali/ordercore/pkg/errors"
)

// Sentinels for errors.Is checks. The constructors below wrap them in an
// AppError that carries the HTTP status and client-facing details.
var (
	ErrClientNotFound      = errors.New("client not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrProductUnavailable  = errors.New("product unavailable")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrEmptyCart           = errors.New("empty cart")
	ErrInvalidCancellation = errors.New("invalid cancellation")
	ErrStorageConflict     = errors.New("storage conflict")
)

func ClientNotFound(id string) *apperrors.AppError {
	return (&apperrors.AppError{
		Code:    "CLIENT_NOT_FOUND",
		Message: fmt.Sprintf("client %s not found", id),
		Status:  http.StatusNotFound,
		Err:     ErrClientNotFound,
	}).WithDetail("client_id", id)
}

func ProductNotFound(id string) *apperrors.AppError {
	return (&apperrors.AppError{
		Code:    "PRODUCT_NOT_FOUND",
		Message: fmt.Sprintf("product %s not found", id),
		Status:  http.StatusNotFound,
		Err:     ErrProductNotFound,
	}).WithDetail("product_id", id)
}

func ProductUnavailable(id, name string) *apperrors.AppError {
	return (&apperrors.AppError{
		Code:    "PRODUCT_UNAVAILABLE",
		Message: fmt.Sprintf("Product '%s' is not available", name),
		Status:  http.StatusBadRequest,
		Err:     ErrProductUnavailable,
	}).WithDetail("product_id", id)
}

func InsufficientStock(id, name string, available, requested int) *apperrors.AppError {
	return (&apperrors.AppError{
		Code:    "INSUFFICIENT_STOCK",
		Message: fmt.Sprintf("Not enough stock for product '%s'. Available: %d, Requested: %d", name, available, requested),
		Status:  http.StatusBadRequest,
		Err:     ErrInsufficientStock,
	}).
		WithDetail("product_id", id).
		WithDetail("product_name", name).
		WithDetail("available", available).
		WithDetail("requested", requested)
}

func EmptyCart() *apperrors.AppError {
	return &apperrors.AppError{
		Code:    "EMPTY_CART",
		Message: "the order must contain at least one item",
		Status:  http.StatusBadRequest,
		Err:     ErrEmptyCart,
	}
}

func InvalidCancellation(orderID string, status OrderStatus) *apperrors.AppError {
	return (&apperrors.AppError{
		Code:    "INVALID_CANCELLATION",
		Message: "Only pending orders can be cancelled",
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidCancellation,
	}).
		WithDetail("order_id", orderID).
		WithDetail("status", string(status))
}

// StorageConflict reports a write that lost a race inside the database. The
// whole request may be retried.
func StorageConflict(cause error) *apperrors.AppError {
	return &apperrors.AppError{
		Code:      "STORAGE_CONFLICT",
		Message:   "the request conflicted with a concurrent update, retry it",
		Status:    http.StatusConflict,
		Retryable: true,
		Err:       errors.Join(ErrStorageConflict, apperrors.ErrConflict, cause),
	}
}

func OrderNotFound(id string) *apperrors.AppError {
	return apperrors.NotFound("order", id)
}
