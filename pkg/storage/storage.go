// Package storage provides the object stores that hold résumé files.
package storage

import (
	"context"
	"fmt"
	"time"

	"go-profile-backend/internal/domain"
)

const (
	DriverS3    = "s3"
	DriverMinIO = "minio"
)

// Config holds configuration for S3-compatible storage
type Config struct {
	Driver          string
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // Empty means AWS; set for Wasabi, R2 or MinIO
	UsePathStyle    bool
	UseSSL          bool
}

// New returns the object store selected by cfg.Driver.
func New(ctx context.Context, cfg Config) (domain.ObjectStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: bucket is not configured")
	}
	switch cfg.Driver {
	case "", DriverS3:
		return NewS3Store(ctx, cfg)
	case DriverMinIO:
		return NewMinIOStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}

func checkTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("storage: presign ttl must be positive, got %s", ttl)
	}
	return nil
}
