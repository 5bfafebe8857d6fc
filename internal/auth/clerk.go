package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const clerkAPIURL = "https://api.clerk.com"

// ClerkProvider verifies Clerk session JWTs with the instance public key and
// reads users and template tokens from the Clerk backend API.
type ClerkProvider struct {
	httpClient *http.Client
	apiURL     string
	secretKey  string
	publicKey  *rsa.PublicKey
	now        func() time.Time
}

type ClerkConfig struct {
	SecretKey    string
	PublicKeyPEM string
	APIURL       string
	HTTPClient   *http.Client
}

func NewClerkProvider(cfg ClerkConfig) (*ClerkProvider, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("clerk secret key is required")
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("parse clerk public key: %w", err)
	}
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = clerkAPIURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ClerkProvider{
		httpClient: client,
		apiURL:     strings.TrimRight(apiURL, "/"),
		secretKey:  cfg.SecretKey,
		publicKey:  key,
		now:        time.Now,
	}, nil
}

type clerkClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

type clerkUser struct {
	ID                    string `json:"id"`
	FirstName             string `json:"first_name"`
	LastName              string `json:"last_name"`
	PrimaryEmailAddressID string `json:"primary_email_address_id"`
	EmailAddresses        []struct {
		ID           string `json:"id"`
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
	PrimaryPhoneNumberID string `json:"primary_phone_number_id"`
	PhoneNumbers         []struct {
		ID          string `json:"id"`
		PhoneNumber string `json:"phone_number"`
	} `json:"phone_numbers"`
	PublicMetadata struct {
		Role        string `json:"role"`
		CompanyName string `json:"company_name"`
	} `json:"public_metadata"`
}

func (u clerkUser) fullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u clerkUser) email() string {
	for _, e := range u.EmailAddresses {
		if e.ID == u.PrimaryEmailAddressID {
			return e.EmailAddress
		}
	}
	return ""
}

func (u clerkUser) phone() string {
	for _, p := range u.PhoneNumbers {
		if p.ID == u.PrimaryPhoneNumberID {
			return p.PhoneNumber
		}
	}
	return ""
}

// VerifySession checks the RS256 session token and loads the user it names.
func (c *ClerkProvider) VerifySession(ctx context.Context, token string) (Identity, error) {
	var claims clerkClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return c.publicKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	var user clerkUser
	if err := c.call(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(claims.Subject), &user); err != nil {
		return Identity{}, fmt.Errorf("fetch clerk user: %w", err)
	}

	return Identity{
		UserID:      claims.Subject,
		SessionID:   claims.SessionID,
		Email:       user.email(),
		FullName:    user.fullName(),
		Role:        user.PublicMetadata.Role,
		CompanyName: user.PublicMetadata.CompanyName,
		Phone:       user.phone(),
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

// MintToken asks Clerk for a token built from the named JWT template.
func (c *ClerkProvider) MintToken(ctx context.Context, id Identity, template string) (string, error) {
	if id.SessionID == "" {
		return "", fmt.Errorf("%w: session id required to mint a template token", ErrInvalidToken)
	}
	var out struct {
		JWT string `json:"jwt"`
	}
	path := fmt.Sprintf("/v1/sessions/%s/tokens/%s", url.PathEscape(id.SessionID), url.PathEscape(template))
	if err := c.call(ctx, http.MethodPost, path, &out); err != nil {
		return "", fmt.Errorf("mint %s token: %w", template, err)
	}
	if out.JWT == "" {
		return "", fmt.Errorf("mint %s token: empty token", template)
	}
	return out.JWT, nil
}

func (c *ClerkProvider) call(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("clerk API error (status %d): %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
