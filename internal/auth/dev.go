package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// devClaims carry the whole identity so no user lookup is needed.
type devClaims struct {
	SessionID   string `json:"sid"`
	Email       string `json:"email,omitempty"`
	FullName    string `json:"name,omitempty"`
	Role        string `json:"role,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	Phone       string `json:"phone,omitempty"`
	jwt.RegisteredClaims
}

// DBClaims are the claims of a database-session token.
type DBClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// DevProvider issues and verifies HS256 session tokens locally. Template
// tokens are signed with the database secret, so a Bridge configured with
// the same secret accepts them.
type DevProvider struct {
	sessionSecret []byte
	dbSecret      []byte
	now           func() time.Time
}

func NewDevProvider(sessionSecret, dbSecret []byte) *DevProvider {
	return &DevProvider{sessionSecret: sessionSecret, dbSecret: dbSecret, now: time.Now}
}

// WithClock replaces time.Now.
func (d *DevProvider) WithClock(now func() time.Time) *DevProvider {
	d.now = now
	return d
}

// Issue signs a session token for id that expires after ttl.
func (d *DevProvider) Issue(id Identity, ttl time.Duration) (string, error) {
	now := d.now()
	sid := id.SessionID
	if sid == "" {
		sid = "sess_" + id.UserID
	}
	claims := devClaims{
		SessionID:   sid,
		Email:       id.Email,
		FullName:    id.FullName,
		Role:        id.Role,
		CompanyName: id.CompanyName,
		Phone:       id.Phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(d.sessionSecret)
}

func (d *DevProvider) VerifySession(_ context.Context, token string) (Identity, error) {
	var claims devClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return d.sessionSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(d.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return Identity{
		UserID:      claims.Subject,
		SessionID:   claims.SessionID,
		Email:       claims.Email,
		FullName:    claims.FullName,
		Role:        claims.Role,
		CompanyName: claims.CompanyName,
		Phone:       claims.Phone,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

func (d *DevProvider) MintToken(_ context.Context, id Identity, template string) (string, error) {
	claims := DBClaims{
		Email: id.Email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Audience:  jwt.ClaimStrings{"authenticated"},
			Issuer:    template,
			IssuedAt:  jwt.NewNumericDate(d.now()),
			ExpiresAt: jwt.NewNumericDate(id.ExpiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(d.dbSecret)
}
