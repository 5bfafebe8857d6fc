package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL        string
	AMQPExchange   string
	AMQPQueue      string
	AMQPAlertQueue string

	// Generative AI
	AIProvider          string
	AIAPIKey            string
	AIFastModel         string
	AIProModel          string
	AIRequestsPerMinute int
	AITimeout           time.Duration

	// Auth
	AuthProvider       string
	ClerkSecretKey     string
	ClerkJWTPublicKey  string
	ClerkAPIURL        string
	DBJWTTemplate      string
	DBJWTSecret        string
	DevSessionSecret   string
	SessionCacheTTL    time.Duration
	CORSAllowedOrigins []string

	// Invoice storage
	BlobBackend   string
	BlobDir       string
	BlobPublicURL string
	GCSBucket     string

	// Google service account, shared by storage and the report exporter
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleSpreadsheetID      string
	GoogleReportSheet        string

	// Worker
	AlertScanInterval time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/fintrack.db"),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "fintrack"),
		AMQPQueue:      getEnv("AMQP_QUEUE", "budget_spend"),
		AMQPAlertQueue: getEnv("AMQP_ALERT_QUEUE", "budget_alerts"),

		AIProvider:          getEnv("AI_PROVIDER", "gemini"),
		AIAPIKey:            getEnv("AI_API_KEY", getEnv("GEMINI_API_KEY", "")),
		AIFastModel:         getEnv("AI_FAST_MODEL", "gemini-1.5-flash"),
		AIProModel:          getEnv("AI_PRO_MODEL", "gemini-1.5-pro"),
		AIRequestsPerMinute: getEnvInt("AI_REQUESTS_PER_MINUTE", 30),
		AITimeout:           getEnvDuration("AI_TIMEOUT", 60*time.Second),

		AuthProvider:       getEnv("AUTH_PROVIDER", "clerk"),
		ClerkSecretKey:     getEnv("CLERK_SECRET_KEY", ""),
		ClerkJWTPublicKey:  getEnv("CLERK_JWT_PUBLIC_KEY", ""),
		ClerkAPIURL:        getEnv("CLERK_API_URL", "https://api.clerk.com"),
		DBJWTTemplate:      getEnv("DB_JWT_TEMPLATE", "supabase"),
		DBJWTSecret:        getEnv("DB_JWT_SECRET", ""),
		DevSessionSecret:   getEnv("DEV_SESSION_SECRET", ""),
		SessionCacheTTL:    getEnvDuration("SESSION_CACHE_TTL", 5*time.Minute),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),

		BlobBackend:   getEnv("BLOB_BACKEND", "local"),
		BlobDir:       getEnv("BLOB_DIR", "./data/invoices"),
		BlobPublicURL: getEnv("BLOB_PUBLIC_URL", "/files"),
		GCSBucket:     getEnv("GCS_BUCKET", ""),

		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),
		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleReportSheet:        getEnv("GOOGLE_REPORT_SHEET", "Report"),

		AlertScanInterval: getEnvDuration("ALERT_SCAN_INTERVAL", 5*time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// HasGoogleCredentials reports whether a service account is configured.
func (c *Config) HasGoogleCredentials() bool {
	return c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != ""
}

// Validate validates the API server configuration and returns an error
// listing every problem.
func (c *Config) Validate() error {
	return c.validate(true)
}

// ValidateWithoutAuth validates everything except the identity provider,
// which only the API server needs.
func (c *Config) ValidateWithoutAuth() error {
	return c.validate(false)
}

func (c *Config) validate(withAuth bool) error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate SQLite path
	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else if err := ensureDir(c.SQLiteDBPath); err != nil {
		errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", filepath.Dir(c.SQLiteDBPath), err))
	}

	// AMQP is optional; when configured it must be complete
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate AI provider
	validProviders := []string{"gemini", "openai"}
	if !slices.Contains(validProviders, c.AIProvider) {
		errors = append(errors, fmt.Sprintf("invalid AI provider '%s': must be one of %v", c.AIProvider, validProviders))
	}
	if c.AIRequestsPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid AI requests per minute %d: must not be negative", c.AIRequestsPerMinute))
	}

	// Validate auth
	if withAuth {
		switch c.AuthProvider {
		case "clerk":
			if c.ClerkSecretKey == "" {
				errors = append(errors, "CLERK_SECRET_KEY is required when using clerk auth")
			}
			if c.ClerkJWTPublicKey == "" {
				errors = append(errors, "CLERK_JWT_PUBLIC_KEY is required when using clerk auth")
			}
		case "dev":
			if c.DevSessionSecret == "" {
				errors = append(errors, "DEV_SESSION_SECRET is required when using dev auth")
			}
		default:
			errors = append(errors, fmt.Sprintf("invalid auth provider '%s': must be one of [clerk dev]", c.AuthProvider))
		}
		if c.DBJWTSecret == "" {
			errors = append(errors, "DB_JWT_SECRET is required")
		}
		if c.SessionCacheTTL < time.Second {
			errors = append(errors, fmt.Sprintf("invalid session cache TTL %v: must be at least 1 second", c.SessionCacheTTL))
		}
	}

	// Validate blob storage
	switch c.BlobBackend {
	case "local":
		if c.BlobDir == "" {
			errors = append(errors, "BLOB_DIR is required when using local blob storage")
		}
	case "gcs":
		if c.GCSBucket == "" {
			errors = append(errors, "GCS_BUCKET is required when using gcs blob storage")
		}
		if !c.HasGoogleCredentials() {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for gcs blob storage")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid blob backend '%s': must be one of [local gcs]", c.BlobBackend))
	}

	// Report export needs a service account
	if c.GoogleSpreadsheetID != "" && !c.HasGoogleCredentials() {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for report export")
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	// Validate worker configuration
	if c.AlertScanInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid alert scan interval %v: must be at least 1 second", c.AlertScanInterval))
	} else if c.AlertScanInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid alert scan interval %v: must be at most 24 hours", c.AlertScanInterval))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
