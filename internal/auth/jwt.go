package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/utafrali/ordercore/pkg/middleware"
)

const issuer = "order-service"

// Claims represents the JWT claims for an access token.
type Claims struct {
	ClientID string `json:"client_id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager issues and validates HS256 access tokens.
type JWTManager struct {
	secret       []byte
	accessExpiry time.Duration
	now          func() time.Time
}

// NewJWTManager creates a new JWT manager with the given secret and expiry.
func NewJWTManager(secret string, accessExpiry time.Duration) *JWTManager {
	return &JWTManager{
		secret:       []byte(secret),
		accessExpiry: accessExpiry,
		now:          time.Now,
	}
}

// AccessExpiry is the lifetime of tokens issued by GenerateAccessToken.
func (m *JWTManager) AccessExpiry() time.Duration { return m.accessExpiry }

// GenerateAccessToken creates a signed access token for a client.
func (m *JWTManager) GenerateAccessToken(clientID, email, role string) (string, error) {
	now := m.now().UTC()
	claims := &Claims{
		ClientID: clientID,
		Email:    email,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessExpiry)),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken parses and validates an access token.
func (m *JWTManager) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid access token claims")
	}
	return claims, nil
}

// Validator adapts the manager to the auth middleware.
func (m *JWTManager) Validator() middleware.TokenValidator {
	return func(token string) (*middleware.Claims, error) {
		c, err := m.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{ClientID: c.ClientID, Email: c.Email, Role: c.Role}, nil
	}
}
