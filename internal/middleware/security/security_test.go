package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "fintrack/internal/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetector_DetectSuspiciousRequest(t *testing.T) {
	d := NewDetector(applog.Discard())

	tests := []struct {
		name   string
		method string
		target string
		ua     string
		want   string
	}{
		{"ordinary", http.MethodGet, "/api/transactions?type=expense", "Mozilla/5.0", ""},
		{"curl is fine", http.MethodGet, "/api/health", "curl/8.5", ""},
		{"path traversal", http.MethodGet, "/files/../etc/passwd", "", "pattern ../"},
		{"injection in query", http.MethodGet, "/api/budgets?department=x'%20union%20select", "", "pattern union select"},
		{"scanner", http.MethodGet, "/", "sqlmap/1.7", "user agent sqlmap"},
		{"trace method", "TRACE", "/api/me", "", "method TRACE"},
		{"long url", http.MethodGet, "/api/transactions?q=" + strings.Repeat("a", 2100), "", "url too long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			r.Header.Set("User-Agent", tt.ua)
			assert.Equal(t, tt.want, d.DetectSuspiciousRequest(r))
		})
	}
	assert.EqualValues(t, 5, d.GetMetrics().SuspiciousRequests)
}

func TestDetector_Middleware(t *testing.T) {
	d := NewDetector(applog.Discard())
	h := d.Middleware(d.ExtractClientIP)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("TRACE", "/api/me", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/.env", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code, "suspicious paths are logged, not blocked")

	assert.EqualValues(t, 1, d.GetMetrics().BlockedRequests)
}

func TestDetector_ExtractClientIP(t *testing.T) {
	d := NewDetector(applog.Discard())
	require.NoError(t, d.AddTrustedProxy("100.64.0.0/10"))
	assert.Error(t, d.AddTrustedProxy("not-a-cidr"))

	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"direct", "198.51.100.4:5000", "", "", "198.51.100.4"},
		{"untrusted proxy ignored", "198.51.100.4:5000", "203.0.113.9", "", "198.51.100.4"},
		{"trusted proxy", "10.0.0.2:443", "203.0.113.9, 10.0.0.2", "", "203.0.113.9"},
		{"added proxy", "100.64.1.1:443", "203.0.113.9", "", "203.0.113.9"},
		{"real ip fallback", "127.0.0.1:80", "garbage", "203.0.113.10", "203.0.113.10"},
		{"nothing valid", "127.0.0.1:80", "garbage", "", "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, d.ExtractClientIP(r))
		})
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	r.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, "max-age=31536000; includeSubDomains; preload", rec.Header().Get("Strict-Transport-Security"))
}

func TestStaticAssetMiddleware(t *testing.T) {
	h := StaticAssetMiddleware(3600)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/tx-1/1.png", nil))
	assert.Equal(t, "private, max-age=3600", rec.Header().Get("Cache-Control"))
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := CORS([]string{"http://localhost:3000"})(next)

	t.Run("allowed preflight", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodOptions, "/api/transactions", nil)
		r.Header.Set("Origin", "http://localhost:3000")
		r.Header.Set("Access-Control-Request-Method", "POST")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	})

	t.Run("foreign preflight", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodOptions, "/api/transactions", nil)
		r.Header.Set("Origin", "https://evil.example")
		r.Header.Set("Access-Control-Request-Method", "POST")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("no origin", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Vary"))
	})

	t.Run("wildcard", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		r.Header.Set("Origin", "https://anything.example")
		rec := httptest.NewRecorder()
		CORS([]string{"*"})(next).ServeHTTP(rec, r)
		assert.Equal(t, "https://anything.example", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
