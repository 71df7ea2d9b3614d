package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/ordercore/internal/service"
	"github.com/utafrali/ordercore/pkg/httputil"
	"github.com/utafrali/ordercore/pkg/pagination"
	"github.com/utafrali/ordercore/pkg/validator"
)

// ClientHandler serves registration, login, the client's own profile and
// the admin client directory.
type ClientHandler struct {
	service *service.ClientService
	logger  *slog.Logger
}

// NewClientHandler creates a new client HTTP handler.
func NewClientHandler(svc *service.ClientService, logger *slog.Logger) *ClientHandler {
	return &ClientHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// RegisterRequest is the JSON request body for client registration.
type RegisterRequest struct {
	Email      string `json:"email" validate:"required,email,max=255"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	FirstName  string `json:"first_name" validate:"required,min=1,max=100"`
	LastName   string `json:"last_name" validate:"required,min=1,max=100"`
	Phone      string `json:"phone" validate:"omitempty,max=20"`
	Address    string `json:"address" validate:"omitempty,max=255"`
	City       string `json:"city" validate:"omitempty,max=100"`
	PostalCode string `json:"postal_code" validate:"omitempty,max=10"`
	Country    string `json:"country" validate:"omitempty,max=100"`
}

// LoginRequest is the JSON request body for client login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest carries optional profile changes.
type UpdateProfileRequest struct {
	FirstName  *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName   *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	Phone      *string `json:"phone" validate:"omitempty,max=20"`
	Address    *string `json:"address" validate:"omitempty,max=255"`
	City       *string `json:"city" validate:"omitempty,max=100"`
	PostalCode *string `json:"postal_code" validate:"omitempty,max=10"`
	Country    *string `json:"country" validate:"omitempty,max=100"`
}

// ChangePasswordRequest is the JSON request body for a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// --- Handlers ---

// Register handles POST /api/v1/clients/register
func (h *ClientHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	client, err := h.service.Register(r.Context(), service.RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Phone:      req.Phone,
		Address:    req.Address,
		City:       req.City,
		PostalCode: req.PostalCode,
		Country:    req.Country,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, client)
}

// Login handles POST /api/v1/clients/login
func (h *ClientHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, result)
}

// GetMe handles GET /api/v1/clients/me
func (h *ClientHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	client, err := h.service.GetClient(r.Context(), actorFrom(r).ClientID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, client)
}

// UpdateMe handles PUT /api/v1/clients/me
func (h *ClientHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	client, err := h.service.UpdateProfile(r.Context(), actorFrom(r).ClientID, service.UpdateProfileInput{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Phone:      req.Phone,
		Address:    req.Address,
		City:       req.City,
		PostalCode: req.PostalCode,
		Country:    req.Country,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, client)
}

// ChangePassword handles POST /api/v1/clients/me/password
func (h *ClientHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), actorFrom(r).ClientID, req.CurrentPassword, req.NewPassword); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteMe handles DELETE /api/v1/clients/me
func (h *ClientHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeactivateClient(r.Context(), actorFrom(r).ClientID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListClients handles GET /api/v1/clients. active_only defaults to true.
func (h *ClientHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)

	activeOnly := true
	if v := r.URL.Query().Get("active_only"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{Error: &httputil.ErrorResponse{
				Code:    "INVALID_PARAMETER",
				Message: "active_only must be a boolean",
			}})
			return
		}
		activeOnly = parsed
	}

	clients, total, err := h.service.ListClients(r.Context(), page, activeOnly)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(clients, total, page))
}

// GetClient handles GET /api/v1/clients/{id}
func (h *ClientHandler) GetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	client, err := h.service.GetClient(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, client)
}

// GetClientByEmail handles GET /api/v1/clients/email/{email}
func (h *ClientHandler) GetClientByEmail(w http.ResponseWriter, r *http.Request) {
	client, err := h.service.GetClientByEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, client)
}

// DeactivateClient handles DELETE /api/v1/clients/{id}
func (h *ClientHandler) DeactivateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeactivateClient(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
