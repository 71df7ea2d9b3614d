package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/ordercore/internal/domain"
	"github.com/utafrali/ordercore/internal/repository"
	"github.com/utafrali/ordercore/pkg/database"
	apperrors "github.com/utafrali/ordercore/pkg/errors"
)

const clientColumns = `id, email, password_hash, first_name, last_name, phone, address, city,
	postal_code, country, role, active, email_verified, created_at, updated_at`

// ClientRepository implements repository.ClientRepository.
type ClientRepository struct {
	db database.Querier
}

// NewClientRepository creates a new PostgreSQL-backed client repository.
func NewClientRepository(db database.Querier) *ClientRepository {
	return &ClientRepository{db: db}
}

// Create inserts a new client.
func (r *ClientRepository) Create(ctx context.Context, c *domain.Client) error {
	query := `INSERT INTO clients (` + clientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.db.Exec(ctx, query,
		c.ID, c.Email, c.PasswordHash, c.FirstName, c.LastName, c.Phone, c.Address, c.City,
		c.PostalCode, c.Country, c.Role, c.Active, c.EmailVerified, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "clients_email_key") {
			return apperrors.AlreadyExists("client", "email", c.Email)
		}
		return queryError("insert client", err)
	}
	return nil
}

// GetByID retrieves a client by id.
func (r *ClientRepository) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	c, err := r.get(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ClientNotFound(id)
	}
	return c, err
}

// GetByEmail retrieves a client by email, compared case-insensitively.
func (r *ClientRepository) GetByEmail(ctx context.Context, email string) (*domain.Client, error) {
	c, err := r.get(ctx, `SELECT `+clientColumns+` FROM clients WHERE lower(email) = lower($1)`, email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("client", email)
	}
	return c, err
}

// Update writes the mutable client fields.
func (r *ClientRepository) Update(ctx context.Context, c *domain.Client) error {
	query := `
		UPDATE clients
		SET password_hash = $2, first_name = $3, last_name = $4, phone = $5, address = $6,
			city = $7, postal_code = $8, country = $9, updated_at = $10
		WHERE id = $1`

	ct, err := r.db.Exec(ctx, query,
		c.ID, c.PasswordHash, c.FirstName, c.LastName, c.Phone, c.Address,
		c.City, c.PostalCode, c.Country, c.UpdatedAt,
	)
	if err != nil {
		return queryError("update client", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ClientNotFound(c.ID)
	}
	return nil
}

// List returns a page of clients ordered by email.
func (r *ClientRepository) List(ctx context.Context, filter repository.ClientFilter) ([]domain.Client, int, error) {
	where := ""
	if filter.ActiveOnly {
		where = "WHERE active"
	}
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM clients
		%s
		ORDER BY email, id
		LIMIT $1 OFFSET $2`, clientColumns, where)

	rows, err := r.db.Query(ctx, query, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, queryError("list clients", err)
	}
	defer rows.Close()

	var total int
	clients := make([]domain.Client, 0)
	for rows.Next() {
		var c domain.Client
		if err := rows.Scan(
			&c.ID, &c.Email, &c.PasswordHash, &c.FirstName, &c.LastName, &c.Phone, &c.Address, &c.City,
			&c.PostalCode, &c.Country, &c.Role, &c.Active, &c.EmailVerified, &c.CreatedAt, &c.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan client row: %w", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate client rows: %w", err)
	}

	return clients, total, nil
}

// Deactivate sets active = false.
func (r *ClientRepository) Deactivate(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `UPDATE clients SET active = false, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return queryError("deactivate client", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ClientNotFound(id)
	}
	return nil
}

func (r *ClientRepository) get(ctx context.Context, query string, arg any) (*domain.Client, error) {
	var c domain.Client
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&c.ID, &c.Email, &c.PasswordHash, &c.FirstName, &c.LastName, &c.Phone, &c.Address, &c.City,
		&c.PostalCode, &c.Country, &c.Role, &c.Active, &c.EmailVerified, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, queryError("scan client", err)
	}
	return &c, nil
}
