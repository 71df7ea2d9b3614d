package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/utafrali/ordercore/internal/domain"
	"github.com/utafrali/ordercore/internal/repository"
	apperrors "github.com/utafrali/ordercore/pkg/errors"
	"github.com/utafrali/ordercore/pkg/pagination"
)

// TokenIssuer signs access tokens for authenticated clients.
type TokenIssuer interface {
	GenerateAccessToken(clientID, email, role string) (string, error)
	AccessExpiry() time.Duration
}

// ClientService implements registration, login and profile management.
type ClientService struct {
	clients     repository.ClientRepository
	tokens      TokenIssuer
	bcryptCost  int
	adminEmails map[string]struct{}
	logger      *slog.Logger
}

// NewClientService creates a new client service. Clients registering with
// one of adminEmails get the admin role.
func NewClientService(
	clients repository.ClientRepository,
	tokens TokenIssuer,
	bcryptCost int,
	adminEmails []string,
	logger *slog.Logger,
) *ClientService {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		admins[normalizeEmail(e)] = struct{}{}
	}
	return &ClientService{
		clients:     clients,
		tokens:      tokens,
		bcryptCost:  bcryptCost,
		adminEmails: admins,
		logger:      logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterInput holds the parameters for registering a new client.
type RegisterInput struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	Phone      string
	Address    string
	City       string
	PostalCode string
	Country    string
}

// Register creates a new client account with a bcrypt password hash.
func (s *ClientService) Register(ctx context.Context, input RegisterInput) (*domain.Client, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	email := normalizeEmail(input.Email)
	role := domain.RoleCustomer
	if _, ok := s.adminEmails[email]; ok {
		role = domain.RoleAdmin
	}
	country := input.Country
	if country == "" {
		country = domain.DefaultCountry
	}

	now := time.Now().UTC()
	client := &domain.Client{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		Address:      input.Address,
		City:         input.City,
		PostalCode:   input.PostalCode,
		Country:      country,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.clients.Create(ctx, client); err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	s.logger.InfoContext(ctx, "client registered",
		slog.String("client_id", client.ID),
		slog.String("role", client.Role),
	)

	return client, nil
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresIn   int            `json:"expires_in"`
	Client      *domain.Client `json:"client"`
}

// Login checks the credentials and issues an access token.
func (s *ClientService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	client, err := s.clients.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("get client by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(client.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.Unauthorized("invalid email or password")
	}
	if !client.Active {
		return nil, apperrors.Unauthorized("account is deactivated")
	}

	token, err := s.tokens.GenerateAccessToken(client.ID, client.Email, client.Role)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	s.logger.InfoContext(ctx, "client logged in", slog.String("client_id", client.ID))

	return &LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.tokens.AccessExpiry().Seconds()),
		Client:      client,
	}, nil
}

// GetClient retrieves a client by id.
func (s *ClientService) GetClient(ctx context.Context, id string) (*domain.Client, error) {
	client, err := s.clients.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	return client, nil
}

// GetClientByEmail retrieves a client by email, case-insensitively.
func (s *ClientService) GetClientByEmail(ctx context.Context, email string) (*domain.Client, error) {
	client, err := s.clients.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("get client by email: %w", err)
	}
	return client, nil
}

// ListClients returns a page of clients, optionally only the active ones.
func (s *ClientService) ListClients(ctx context.Context, page pagination.Params, activeOnly bool) ([]domain.Client, int, error) {
	clients, total, err := s.clients.List(ctx, repository.ClientFilter{
		ActiveOnly: activeOnly,
		Offset:     page.Offset(),
		Limit:      page.PerPage,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list clients: %w", err)
	}
	return clients, total, nil
}

// DeactivateClient soft deletes a client. The account can no longer log in
// or place orders; its past orders are kept.
func (s *ClientService) DeactivateClient(ctx context.Context, id string) error {
	if err := s.clients.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("deactivate client: %w", err)
	}
	s.logger.InfoContext(ctx, "client deactivated", slog.String("client_id", id))
	return nil
}

// UpdateProfileInput holds optional profile changes.
type UpdateProfileInput struct {
	FirstName  *string
	LastName   *string
	Phone      *string
	Address    *string
	City       *string
	PostalCode *string
	Country    *string
}

// UpdateProfile applies the non-nil fields of input.
func (s *ClientService) UpdateProfile(ctx context.Context, id string, input UpdateProfileInput) (*domain.Client, error) {
	client, err := s.clients.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}

	for dst, src := range map[*string]*string{
		&client.FirstName:  input.FirstName,
		&client.LastName:   input.LastName,
		&client.Phone:      input.Phone,
		&client.Address:    input.Address,
		&client.City:       input.City,
		&client.PostalCode: input.PostalCode,
		&client.Country:    input.Country,
	} {
		if src != nil {
			*dst = *src
		}
	}
	client.UpdatedAt = time.Now().UTC()

	if err := s.clients.Update(ctx, client); err != nil {
		return nil, fmt.Errorf("update client: %w", err)
	}
	return client, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *ClientService) ChangePassword(ctx context.Context, id, current, next string) error {
	client, err := s.clients.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get client: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(client.PasswordHash), []byte(current)); err != nil {
		return apperrors.Unauthorized("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	client.PasswordHash = string(hash)
	client.UpdatedAt = time.Now().UTC()

	if err := s.clients.Update(ctx, client); err != nil {
		return fmt.Errorf("update client: %w", err)
	}

	s.logger.InfoContext(ctx, "client password changed", slog.String("client_id", id))
	return nil
}
