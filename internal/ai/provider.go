// Package ai talks to generative-model providers and turns their free-text
// replies into structured financial results.
package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultFastModel = "gemini-1.5-flash"
	DefaultProModel  = "gemini-1.5-pro"

	defaultTimeout = 60 * time.Second
)

// InlineData is a binary attachment sent alongside the prompt.
type InlineData struct {
	MimeType string
	Data     []byte
}

// Request is a single prompt to a model.
type Request struct {
	Model  string
	Prompt string
	Images []InlineData
}

// Provider generates text for a request.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, req Request) (string, error)

func (f ProviderFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Config selects and configures a provider.
type Config struct {
	Provider          string // "gemini" or "openai"
	APIKey            string
	BaseURL           string
	RequestsPerMinute int
	Timeout           time.Duration
	HTTPClient        *http.Client
}

// APIError is a non-200 reply from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// NewProvider builds the configured provider. When RequestsPerMinute is
// positive the provider is wrapped in a token-bucket limiter.
func NewProvider(cfg Config) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", cfg.Provider)
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	var p Provider
	switch strings.ToLower(cfg.Provider) {
	case "", "gemini":
		p = newGemini(cfg.APIKey, cfg.BaseURL, client)
	case "openai":
		p = newOpenAI(cfg.APIKey, cfg.BaseURL, client)
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}

	if cfg.RequestsPerMinute > 0 {
		p = &limitedProvider{next: p, limiter: newRateLimiter(cfg.RequestsPerMinute, time.Now)}
	}
	return p, nil
}
