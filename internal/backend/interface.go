package backend

import (
	"context"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/export"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// Backend is the wired application: storage, services and the optional
// integrations each command needs.
type Backend struct {
	Repo         *storage.SQLiteRepository
	Transactions *services.TransactionService
	Budgets      *services.BudgetService
	Insights     *services.InsightService

	// Bridge is nil unless Config.Auth is set.
	Bridge *auth.Bridge
	// AMQP is nil when no broker is configured or it could not be reached.
	AMQP *amqp.Client
	// Exporter is nil when no spreadsheet is configured.
	Exporter export.Exporter
	Caches   *cache.Manager
	// FilesDir is the local invoice directory served under /files/, empty
	// for remote blob storage.
	FilesDir string
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and its cleanup function
type BackendResult struct {
	Backend *Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	SQLiteDBPath string

	AMQPURL        string
	AMQPExchange   string
	AMQPQueue      string
	AMQPAlertQueue string

	AIProvider          string
	AIAPIKey            string
	AIFastModel         string
	AIProModel          string
	AIRequestsPerMinute int
	AITimeout           time.Duration

	// Auth builds the session bridge; only the API server needs it.
	Auth              bool
	AuthType          AuthType
	ClerkSecretKey    string
	ClerkJWTPublicKey string
	ClerkAPIURL       string
	DBJWTTemplate     string
	DBJWTSecret       string
	DevSessionSecret  string
	SessionCacheTTL   time.Duration

	BlobType      BlobType
	BlobDir       string
	BlobPublicURL string
	GCSBucket     string

	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleSpreadsheetID      string
	GoogleReportSheet        string

	// CacheCleanupInterval of zero disables the periodic cache sweep.
	CacheCleanupInterval time.Duration
}

// AuthType selects the identity provider.
type AuthType string

const (
	ClerkAuth AuthType = "clerk"
	DevAuth   AuthType = "dev"
)

func (t AuthType) String() string {
	return string(t)
}

func (t AuthType) IsValid() bool {
	switch t {
	case ClerkAuth, DevAuth:
		return true
	default:
		return false
	}
}

// BlobType selects where invoice documents are stored.
type BlobType string

const (
	LocalBlob BlobType = "local"
	GCSBlob   BlobType = "gcs"
)

func (t BlobType) String() string {
	return string(t)
}

func (t BlobType) IsValid() bool {
	switch t {
	case LocalBlob, GCSBlob:
		return true
	default:
		return false
	}
}
