package backend

import (
	"fmt"
	"time"

	"fintrack/internal/config"
)

const defaultCacheCleanupInterval = 10 * time.Minute

// FromAppConfig converts the application config to backend config. withAuth
// selects whether the session bridge is built.
func FromAppConfig(appConfig *config.Config, withAuth bool) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	cfg := Config{
		SQLiteDBPath: appConfig.SQLiteDBPath,

		AMQPURL:        appConfig.AMQPURL,
		AMQPExchange:   appConfig.AMQPExchange,
		AMQPQueue:      appConfig.AMQPQueue,
		AMQPAlertQueue: appConfig.AMQPAlertQueue,

		AIProvider:          appConfig.AIProvider,
		AIAPIKey:            appConfig.AIAPIKey,
		AIFastModel:         appConfig.AIFastModel,
		AIProModel:          appConfig.AIProModel,
		AIRequestsPerMinute: appConfig.AIRequestsPerMinute,
		AITimeout:           appConfig.AITimeout,

		Auth:              withAuth,
		AuthType:          AuthType(appConfig.AuthProvider),
		ClerkSecretKey:    appConfig.ClerkSecretKey,
		ClerkJWTPublicKey: appConfig.ClerkJWTPublicKey,
		ClerkAPIURL:       appConfig.ClerkAPIURL,
		DBJWTTemplate:     appConfig.DBJWTTemplate,
		DBJWTSecret:       appConfig.DBJWTSecret,
		DevSessionSecret:  appConfig.DevSessionSecret,
		SessionCacheTTL:   appConfig.SessionCacheTTL,

		BlobType:      BlobType(appConfig.BlobBackend),
		BlobDir:       appConfig.BlobDir,
		BlobPublicURL: appConfig.BlobPublicURL,
		GCSBucket:     appConfig.GCSBucket,

		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleReportSheet:        appConfig.GoogleReportSheet,

		CacheCleanupInterval: defaultCacheCleanupInterval,
	}
	return cfg, cfg.Validate()
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required")
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return fmt.Errorf("AMQP exchange and queue are required when an AMQP URL is set")
	}

	if !c.BlobType.IsValid() {
		return fmt.Errorf("invalid blob backend %q: must be one of %v", c.BlobType, GetBlobTypes())
	}
	if c.BlobType == GCSBlob && c.GCSBucket == "" {
		return fmt.Errorf("GCS bucket is required for gcs blob storage")
	}

	if c.Auth {
		if !c.AuthType.IsValid() {
			return fmt.Errorf("invalid auth provider %q: must be one of %v", c.AuthType, GetAuthTypes())
		}
		if c.DBJWTSecret == "" {
			return fmt.Errorf("database JWT secret is required")
		}
		switch c.AuthType {
		case ClerkAuth:
			if c.ClerkSecretKey == "" || c.ClerkJWTPublicKey == "" {
				return fmt.Errorf("Clerk secret key and JWT public key are required for clerk auth")
			}
		case DevAuth:
			if c.DevSessionSecret == "" {
				return fmt.Errorf("dev session secret is required for dev auth")
			}
		}
	}
	return nil
}

// GetBlobTypes returns all valid blob storage types
func GetBlobTypes() []BlobType {
	return []BlobType{LocalBlob, GCSBlob}
}

// GetAuthTypes returns all valid identity providers
func GetAuthTypes() []AuthType {
	return []AuthType{ClerkAuth, DevAuth}
}
