package blob

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fintrack/internal/gcp"
	applog "fintrack/internal/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutUpserts(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "http://localhost:8081/files/", applog.Discard())
	require.NoError(t, err)

	url, err := s.Put(context.Background(), "tx-1/1792144800000.pdf", "application/pdf", strings.NewReader("first"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8081/files/tx-1/1792144800000.pdf", url)

	_, err = s.Put(context.Background(), "tx-1/1792144800000.pdf", "application/pdf", strings.NewReader("second"))
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "tx-1", "1792144800000.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

func TestLocalStore_RejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "/files", applog.Discard())
	require.NoError(t, err)

	for _, key := range []string{"", "../etc/passwd", "tx/../../x"} {
		_, err := s.Put(context.Background(), key, "text/plain", strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestLocalStore_FailedWriteLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "/files", applog.Discard())
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "tx-2/1.png", "image/png", failingReader{})
	require.ErrorContains(t, err, "connection reset")

	entries, err := os.ReadDir(filepath.Join(dir, "tx-2"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewLocalStore_RequiresDir(t *testing.T) {
	_, err := NewLocalStore("", "/files", applog.Discard())
	assert.Error(t, err)
}

func TestGCSStore_Put(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/b/invoices/o"), r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"bucket": "invoices", "name": "tx-1/1.png", "size": "3"})
	}))
	t.Cleanup(server.Close)

	s, err := NewGCSStore(context.Background(), "invoices",
		gcp.Config{Endpoint: server.URL + "/storage/v1/", HTTPClient: server.Client()}, applog.Discard())
	require.NoError(t, err)

	url, err := s.Put(context.Background(), "tx-1/1.png", "image/png", strings.NewReader("png"))

	require.NoError(t, err)
	assert.Equal(t, "https://storage.googleapis.com/invoices/tx-1/1.png", url)
	assert.Contains(t, gotBody, `"name":"tx-1/1.png"`)
	assert.Contains(t, gotBody, "image/png")
}

func TestGCSStore_PutError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error": {"code": 403, "message": "denied"}}`)
	}))
	t.Cleanup(server.Close)

	s, err := NewGCSStore(context.Background(), "invoices",
		gcp.Config{Endpoint: server.URL + "/storage/v1/", HTTPClient: server.Client()}, applog.Discard())
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "tx-1/1.png", "image/png", strings.NewReader("png"))
	assert.ErrorContains(t, err, "upload tx-1/1.png to bucket invoices")
}

func TestNewGCSStore_Validation(t *testing.T) {
	_, err := NewGCSStore(context.Background(), "", gcp.Config{}, applog.Discard())
	assert.ErrorContains(t, err, "GCS_BUCKET")

	_, err = NewGCSStore(context.Background(), "invoices", gcp.Config{}, applog.Discard())
	assert.ErrorIs(t, err, gcp.ErrMissingCredentials)
}
