package auth

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidToken    = errors.New("invalid token")
)

// Identity is the user behind a verified identity-provider session.
type Identity struct {
	UserID      string
	SessionID   string
	Email       string
	FullName    string
	Role        string
	CompanyName string
	Phone       string
	ExpiresAt   time.Time
}

// IdentityProvider verifies session tokens and mints templated tokens for
// downstream services.
type IdentityProvider interface {
	VerifySession(ctx context.Context, token string) (Identity, error)
	MintToken(ctx context.Context, id Identity, template string) (string, error)
}
