package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/ordercore/pkg/errors"
	"github.com/utafrali/ordercore/pkg/logger"
	"github.com/utafrali/ordercore/pkg/validator"
)

// retryAfterSeconds is sent with every retryable error.
const retryAfterSeconds = "1"

// Response is the JSON envelope of every endpoint.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse is the error half of the envelope.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]any    `json:"details,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON encodes v with the given status. Encoding errors are dropped
// because the header is already on the wire.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData wraps v in the envelope.
func WriteData(w http.ResponseWriter, status int, v any) {
	WriteJSON(w, status, Response{Data: v})
}

// WriteError maps err to a status and an error envelope. AppErrors keep their
// code, message and details; retryable ones also get a Retry-After header.
// Anything that maps to 500 is logged with the request-scoped logger when
// one is present, otherwise with fallback.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}
	requestID := logger.CorrelationIDFromContext(r.Context())

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Retryable {
			w.Header().Set("Retry-After", retryAfterSeconds)
		}
		if appErr.Status >= http.StatusInternalServerError {
			logInternal(l, r, err)
		}
		WriteJSON(w, appErr.Status, Response{Error: &ErrorResponse{
			Code:      appErr.Code,
			Message:   appErr.Message,
			Details:   appErr.Details,
			Retryable: appErr.Retryable,
			RequestID: requestID,
		}})
		return
	}

	resp := &ErrorResponse{Code: "INTERNAL_ERROR", Message: "an internal error occurred", RequestID: requestID}
	status := apperrors.HTTPStatus(err)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		resp.Code, resp.Message = "NOT_FOUND", "resource not found"
	case errors.Is(err, apperrors.ErrAlreadyExists):
		resp.Code, resp.Message = "ALREADY_EXISTS", "resource already exists"
	case errors.Is(err, apperrors.ErrInvalidInput):
		resp.Code, resp.Message = "INVALID_INPUT", err.Error()
	case errors.Is(err, apperrors.ErrConflict):
		resp.Code, resp.Message, resp.Retryable = "CONFLICT", "concurrent update, retry the request", true
		w.Header().Set("Retry-After", retryAfterSeconds)
	default:
		status = http.StatusInternalServerError
		logInternal(l, r, err)
	}

	WriteJSON(w, status, Response{Error: resp})
}

func logInternal(l *slog.Logger, r *http.Request, err error) {
	l.ErrorContext(r.Context(), "internal error",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
}

// WriteValidationError answers 400 with per-field messages when err comes from
// the validator, or with the raw decode error otherwise.
func WriteValidationError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{Error: &ErrorResponse{
			Code:      "VALIDATION_ERROR",
			Message:   "request validation failed",
			Fields:    valErr.Fields(),
			RequestID: requestID,
		}})
		return
	}

	WriteJSON(w, http.StatusBadRequest, Response{Error: &ErrorResponse{
		Code:      "INVALID_INPUT",
		Message:   err.Error(),
		RequestID: requestID,
	}})
}

// ParseUUID parses a path parameter. On failure it writes a 400 and returns false.
func ParseUUID(w http.ResponseWriter, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(param)
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, Response{Error: &ErrorResponse{
			Code:    "INVALID_PARAMETER",
			Message: "invalid UUID: " + param,
		}})
		return uuid.Nil, false
	}
	return id, true
}
