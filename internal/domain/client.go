package domain

import "time"

// Roles carried in access tokens.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Client is a registered customer account.
type Client struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Phone         string    `json:"phone,omitempty"`
	Address       string    `json:"address,omitempty"`
	City          string    `json:"city,omitempty"`
	PostalCode    string    `json:"postal_code,omitempty"`
	Country       string    `json:"country"`
	Role          string    `json:"role"`
	Active        bool      `json:"active"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ClientID string
	Role     string
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// CanAccess reports whether the actor may read or change an order owned by clientID.
func (a Actor) CanAccess(clientID string) bool {
	return a.IsAdmin() || a.ClientID == clientID
}
