package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const clerkUserJSON = `{
  "id": "user_2abc",
  "first_name": "Priya",
  "last_name": "Sharma",
  "primary_email_address_id": "idn_2",
  "email_addresses": [
    {"id": "idn_1", "email_address": "old@example.in"},
    {"id": "idn_2", "email_address": "priya@example.in"}
  ],
  "primary_phone_number_id": "idn_p",
  "phone_numbers": [{"id": "idn_p", "phone_number": "+919800000000"}],
  "public_metadata": {"role": "accountant", "company_name": "Sharma Traders"}
}`

func newClerkFixture(t *testing.T, handler http.HandlerFunc) (*ClerkProvider, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewClerkProvider(ClerkConfig{
		SecretKey:    "sk_test_123",
		PublicKeyPEM: string(pemKey),
		APIURL:       server.URL,
		HTTPClient:   server.Client(),
	})
	require.NoError(t, err)
	return p, key
}

func signClerkToken(t *testing.T, key *rsa.PrivateKey, method jwt.SigningMethod, exp time.Time) string {
	t.Helper()
	claims := clerkClaims{
		SessionID: "sess_9",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user_2abc",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	var signingKey any = key
	if method == jwt.SigningMethodHS256 {
		signingKey = []byte("guess")
	}
	tok, err := jwt.NewWithClaims(method, claims).SignedString(signingKey)
	require.NoError(t, err)
	return tok
}

func TestClerkProvider_VerifySession(t *testing.T) {
	p, key := newClerkFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/users/user_2abc", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, clerkUserJSON)
	})

	id, err := p.VerifySession(context.Background(), signClerkToken(t, key, jwt.SigningMethodRS256, time.Now().Add(time.Minute)))

	require.NoError(t, err)
	assert.Equal(t, "user_2abc", id.UserID)
	assert.Equal(t, "sess_9", id.SessionID)
	assert.Equal(t, "priya@example.in", id.Email)
	assert.Equal(t, "Priya Sharma", id.FullName)
	assert.Equal(t, "accountant", id.Role)
	assert.Equal(t, "Sharma Traders", id.CompanyName)
	assert.Equal(t, "+919800000000", id.Phone)
}

func TestClerkProvider_VerifySession_Rejects(t *testing.T) {
	p, key := newClerkFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("user lookup must not happen for a rejected token")
	})

	_, err := p.VerifySession(context.Background(), signClerkToken(t, key, jwt.SigningMethodRS256, time.Now().Add(-time.Minute)))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = p.VerifySession(context.Background(), signClerkToken(t, key, jwt.SigningMethodHS256, time.Now().Add(time.Minute)))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestClerkProvider_MintToken(t *testing.T) {
	p, _ := newClerkFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/sessions/sess_9/tokens/supabase", r.URL.Path)
		_, _ = io.WriteString(w, `{"object": "token", "jwt": "db.jwt.token"}`)
	})

	tok, err := p.MintToken(context.Background(), Identity{UserID: "user_2abc", SessionID: "sess_9"}, "supabase")

	require.NoError(t, err)
	assert.Equal(t, "db.jwt.token", tok)
}

func TestClerkProvider_MintToken_APIError(t *testing.T) {
	p, _ := newClerkFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"errors": [{"code": "resource_not_found"}]}`)
	})

	_, err := p.MintToken(context.Background(), Identity{SessionID: "sess_9"}, "missing")
	assert.ErrorContains(t, err, "status 404")

	_, err = p.MintToken(context.Background(), Identity{}, "supabase")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewClerkProvider_Validation(t *testing.T) {
	_, err := NewClerkProvider(ClerkConfig{PublicKeyPEM: "x"})
	assert.ErrorContains(t, err, "secret key")

	_, err = NewClerkProvider(ClerkConfig{SecretKey: "sk", PublicKeyPEM: "not pem"})
	assert.ErrorContains(t, err, "public key")
}
