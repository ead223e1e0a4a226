// Package authz verifies operator bearer tokens issued by the upstream
// identity service and places the resulting actor on the request context.
package authz

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pharmtrace/pharmtrace-backend/pkg/actor"
	"github.com/pharmtrace/pharmtrace-backend/pkg/config"
	"github.com/pharmtrace/pharmtrace-backend/pkg/errors"
)

// Claims represents the operator token claims
type Claims struct {
	jwt.RegisteredClaims
	OperatorID string `json:"operator_id"`
	Name       string `json:"name"`
	Role       string `json:"role"`
}

// Manager handles operator token operations
type Manager struct {
	config *config.AuthConfig
}

// NewManager creates a new token manager
func NewManager(cfg *config.AuthConfig) *Manager {
	return &Manager{config: cfg}
}

// Verify validates a token string and returns the actor it identifies.
func (m *Manager) Verify(tokenString string) (*actor.Actor, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Unauthorized("unexpected signing method")
		}
		return []byte(m.config.Secret), nil
	}, jwt.WithIssuer(m.config.Issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.Unauthorized("token has expired")
		}
		return nil, errors.Unauthorized("invalid token")
	}

	if !token.Valid || claims.OperatorID == "" {
		return nil, errors.Unauthorized("invalid token")
	}

	return &actor.Actor{
		ID:   claims.OperatorID,
		Name: claims.Name,
		Role: claims.Role,
	}, nil
}

// Generate creates a signed operator token. Used by tests and local tooling;
// production tokens come from the identity service.
func (m *Manager) Generate(a *actor.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   a.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		OperatorID: a.ID,
		Name:       a.Name,
		Role:       a.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.Secret))
}
