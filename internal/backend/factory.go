package backend

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/ai"
	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/blob"
	"fintrack/internal/cache"
	"fintrack/internal/export"
	"fintrack/internal/gcp"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

var errAINotConfigured = errors.New("AI API key is not configured")

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Default()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend opens storage and wires the services. Optional integrations
// that are not configured are left nil; AMQP failures are logged and the
// backend runs without events.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	b := &Backend{
		Repo:   repo,
		Caches: cache.NewManager(f.logger),
	}
	cleanup := func() error {
		var errs []error
		if config.CacheCleanupInterval > 0 {
			b.Caches.Stop()
			b.Caches.Wait()
		}
		if b.AMQP != nil {
			errs = append(errs, b.AMQP.Close())
		}
		errs = append(errs, repo.Close())
		return errors.Join(errs...)
	}

	if err := f.wire(ctx, config, b); err != nil {
		_ = repo.Close()
		if b.AMQP != nil {
			_ = b.AMQP.Close()
		}
		return nil, err
	}

	if config.CacheCleanupInterval > 0 {
		b.Caches.StartCleanup(config.CacheCleanupInterval)
	}

	f.logger.Info("Initialized backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", b.AMQP != nil,
		"blob_backend", config.BlobType.String(),
		"export_enabled", b.Exporter != nil,
		"auth_enabled", b.Bridge != nil)

	return &BackendResult{Backend: b, Cleanup: cleanup}, nil
}

func (f *DefaultFactory) wire(ctx context.Context, config Config, b *Backend) error {
	creds := gcp.Config{
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	}

	store, filesDir, err := f.createBlobStore(ctx, config, creds)
	if err != nil {
		return err
	}
	b.FilesDir = filesDir

	opts := []services.TransactionOption{services.WithBlobStore(store)}
	b.AMQP = f.createAMQPClient(config)
	if b.AMQP != nil {
		opts = append(opts, services.WithPublisher(b.AMQP))
	}

	b.Transactions = services.NewTransactionService(b.Repo, f.logger, opts...)
	b.Budgets = services.NewBudgetService(b.Repo, b.Repo, f.logger)
	b.Insights = services.NewInsightService(b.Transactions, b.Budgets, f.createAdvisor(config), b.Repo, f.logger)

	if config.GoogleSpreadsheetID != "" {
		exporter, err := export.NewSheetsExporter(ctx, config.GoogleSpreadsheetID, config.GoogleReportSheet, creds, f.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize report exporter: %w", err)
		}
		b.Exporter = exporter
	}

	if config.Auth {
		bridge, err := f.createBridge(config, b.Repo)
		if err != nil {
			return err
		}
		b.Bridge = bridge
		b.Caches.Register(bridge.Sessions())
	}
	return nil
}

func (f *DefaultFactory) createAMQPClient(config Config) *amqp.Client {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, config.AMQPAlertQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue,
		"alert_queue", config.AMQPAlertQueue)
	return client
}

func (f *DefaultFactory) createBlobStore(ctx context.Context, config Config, creds gcp.Config) (services.BlobStore, string, error) {
	switch config.BlobType {
	case GCSBlob:
		store, err := blob.NewGCSStore(ctx, config.GCSBucket, creds, f.logger)
		if err != nil {
			return nil, "", fmt.Errorf("failed to initialize GCS blob store: %w", err)
		}
		return store, "", nil
	default:
		store, err := blob.NewLocalStore(config.BlobDir, config.BlobPublicURL, f.logger)
		if err != nil {
			return nil, "", fmt.Errorf("failed to initialize local blob store: %w", err)
		}
		return store, store.Dir(), nil
	}
}

// createAdvisor falls back to a provider that reports AI as unavailable when
// no API key is configured, so the rest of the API keeps working.
func (f *DefaultFactory) createAdvisor(config Config) *ai.Advisor {
	provider, err := ai.NewProvider(ai.Config{
		Provider:          config.AIProvider,
		APIKey:            config.AIAPIKey,
		RequestsPerMinute: config.AIRequestsPerMinute,
		Timeout:           config.AITimeout,
	})
	if err != nil {
		f.logger.Warn("AI provider unavailable", applog.FieldProvider, config.AIProvider, applog.FieldError, err)
		provider = ai.ProviderFunc(func(context.Context, ai.Request) (string, error) {
			return "", errAINotConfigured
		})
	}
	return ai.NewAdvisor(provider, f.logger, ai.WithModels(config.AIFastModel, config.AIProModel))
}

func (f *DefaultFactory) createBridge(config Config, profiles auth.ProfileStore) (*auth.Bridge, error) {
	var provider auth.IdentityProvider
	switch config.AuthType {
	case DevAuth:
		f.logger.Warn("Using development identity provider")
		provider = auth.NewDevProvider([]byte(config.DevSessionSecret), []byte(config.DBJWTSecret))
	default:
		clerk, err := auth.NewClerkProvider(auth.ClerkConfig{
			SecretKey:    config.ClerkSecretKey,
			PublicKeyPEM: config.ClerkJWTPublicKey,
			APIURL:       config.ClerkAPIURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Clerk provider: %w", err)
		}
		provider = clerk
	}

	return auth.NewBridge(provider, profiles, auth.BridgeConfig{
		Template:   config.DBJWTTemplate,
		DBSecret:   []byte(config.DBJWTSecret),
		SessionTTL: config.SessionCacheTTL,
	}, f.logger), nil
}
