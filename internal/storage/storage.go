package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/andresuchdata/scamark/backend-go/internal/config"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage captures the S3-compatible operations the seed command needs.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	GetObject(ctx context.Context, key string) ([]byte, error)
	DownloadObject(ctx context.Context, key string, destPath string) error
	UploadObject(ctx context.Context, key string, data []byte) error
}

// New builds the client of the configured provider.
func New(cfg config.ObjectStorageConfig) (ObjectStorage, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "minio":
		return NewMinioClient(cfg)
	case "sevalla":
		return NewSevallaClient(SevallaConfig{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			UseSSL:    cfg.UseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown object storage provider %q", cfg.Provider)
	}
}

func validate(endpoint, accessKey, secretKey, bucket string) error {
	if endpoint == "" {
		return fmt.Errorf("object storage endpoint must be provided")
	}
	if accessKey == "" || secretKey == "" {
		return fmt.Errorf("object storage credentials must be provided")
	}
	if bucket == "" {
		return fmt.Errorf("object storage bucket must be provided")
	}
	return nil
}
