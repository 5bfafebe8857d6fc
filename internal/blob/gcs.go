package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"fintrack/internal/gcp"
	applog "fintrack/internal/log"

	"google.golang.org/api/googleapi"
	gstorage "google.golang.org/api/storage/v1"
)

const gcsPublicHost = "https://storage.googleapis.com"

// GCSStore uploads objects to a Google Cloud Storage bucket.
type GCSStore struct {
	svc    *gstorage.Service
	bucket string
	logger *applog.Logger
}

func NewGCSStore(ctx context.Context, bucket string, creds gcp.Config, logger *applog.Logger) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("missing GCS_BUCKET")
	}
	opts, err := gcp.ClientOptions(ctx, creds, gstorage.DevstorageReadWriteScope)
	if err != nil {
		return nil, fmt.Errorf("storage credentials: %w", err)
	}
	svc, err := gstorage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage service: %w", err)
	}
	return &GCSStore{
		svc:    svc,
		bucket: bucket,
		logger: logger.WithComponent(applog.ComponentBlob),
	}, nil
}

// Put inserts the object; an existing object with the same name is replaced.
func (s *GCSStore) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	obj := &gstorage.Object{Name: k, ContentType: contentType}
	stored, err := s.svc.Objects.Insert(s.bucket, obj).
		Media(r, googleapi.ContentType(contentType)).
		Context(ctx).
		Do()
	if err != nil {
		s.logger.ErrorContext(ctx, "Blob upload failed",
			applog.FieldOperation, applog.OpUpload,
			"bucket", s.bucket,
			"key", k,
			applog.FieldError, err)
		return "", fmt.Errorf("upload %s to bucket %s: %w", k, s.bucket, err)
	}

	s.logger.InfoContext(ctx, "Blob stored",
		applog.FieldOperation, applog.OpUpload,
		"bucket", s.bucket,
		"key", k,
		"content_type", contentType,
		"bytes", stored.Size)
	return fmt.Sprintf("%s/%s/%s", gcsPublicHost, s.bucket, k), nil
}
