// Package gcp builds authenticated Google API client options from
// service-account credentials.
package gcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

var ErrMissingCredentials = errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")

// Config selects the credentials for a Google API client. Inline JSON wins
// over the file path. Endpoint and HTTPClient point a client at a fake server.
type Config struct {
	CredentialsJSON string
	CredentialsFile string
	Endpoint        string
	HTTPClient      *http.Client
}

// credentialsJSON returns the service-account key, inline or read from disk.
func (c Config) credentialsJSON() ([]byte, error) {
	inline := strings.TrimSpace(c.CredentialsJSON)
	file := strings.TrimSpace(c.CredentialsFile)
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, ErrMissingCredentials
	}
}

// ClientOptions returns the options for a google.golang.org/api service
// constructor. A configured HTTPClient is used as-is, without credentials.
func ClientOptions(ctx context.Context, c Config, scopes ...string) ([]option.ClientOption, error) {
	var opts []option.ClientOption
	if c.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.Endpoint))
	}
	if c.HTTPClient != nil {
		return append(opts, option.WithHTTPClient(c.HTTPClient)), nil
	}

	raw, err := c.credentialsJSON()
	if err != nil {
		return nil, err
	}
	creds, err := google.CredentialsFromJSON(ctx, raw, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}
	return append(opts, option.WithCredentials(creds)), nil
}
