package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/andresuchdata/scamark/backend-go/internal/config"
	"github.com/andresuchdata/scamark/backend-go/internal/storage"
	"github.com/urfave/cli/v2"
)

// bucketDownloader fetches dataset exports from the object bucket into a
// local directory.
type bucketDownloader struct {
	client  storage.ObjectStorage
	baseDir string
}

// objectStorageConfig starts from the environment and applies the flags that were set.
func objectStorageConfig(c *cli.Context) config.ObjectStorageConfig {
	cfg := config.Load().Objects
	override := func(flag string, dst *string) {
		if c.IsSet(flag) {
			*dst = c.String(flag)
		}
	}
	override("storage-provider", &cfg.Provider)
	override("storage-endpoint", &cfg.Endpoint)
	override("storage-access-key", &cfg.AccessKey)
	override("storage-secret-key", &cfg.SecretKey)
	override("storage-bucket", &cfg.Bucket)
	override("storage-region", &cfg.Region)
	if c.IsSet("storage-use-ssl") {
		cfg.UseSSL = c.Bool("storage-use-ssl")
	}
	cfg.Provider = strings.ToLower(cfg.Provider)
	return cfg
}

func storageClient(c *cli.Context) (storage.ObjectStorage, error) {
	return storage.New(objectStorageConfig(c))
}

func newBucketDownloader(c *cli.Context) (*bucketDownloader, error) {
	client, err := storageClient(c)
	if err != nil {
		return nil, err
	}

	baseDir := c.String("download-dir")
	if baseDir == "" {
		baseDir = "./data/tmp/exports"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure download dir %s: %w", baseDir, err)
	}

	return &bucketDownloader{client: client, baseDir: baseDir}, nil
}

// download fetches one object when override is set, otherwise every JSON
// object under prefix.
func (d *bucketDownloader) download(ctx context.Context, prefix, override string) ([]string, error) {
	var keys []string

	if override != "" {
		keys = []string{resolveObjectKey(prefix, override)}
	} else {
		listPrefix := strings.TrimSpace(prefix)
		objects, err := d.client.ListObjects(ctx, listPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects for prefix %s: %w", listPrefix, err)
		}
		for _, obj := range objects {
			if isExport(obj.Key) {
				keys = append(keys, obj.Key)
			}
		}
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("no JSON exports found for prefix %s", prefix)
	}

	localPaths := make([]string, 0, len(keys))
	for _, key := range keys {
		localPath := filepath.Join(d.baseDir, objectRelativePath(prefix, key))
		if err := d.client.DownloadObject(ctx, key, localPath); err != nil {
			return nil, err
		}
		localPaths = append(localPaths, localPath)
	}

	sort.Strings(localPaths)
	return localPaths, nil
}

func isExport(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".json")
}

func resolveObjectKey(prefix, override string) string {
	if override == "" {
		return strings.TrimSpace(prefix)
	}
	if prefix == "" {
		return strings.TrimPrefix(override, "/")
	}

	prefixTrimmed := strings.TrimSuffix(strings.TrimSpace(prefix), "/")
	overrideTrimmed := strings.TrimPrefix(strings.TrimSpace(override), "/")

	if strings.HasPrefix(overrideTrimmed, prefixTrimmed) {
		return overrideTrimmed
	}
	return fmt.Sprintf("%s/%s", prefixTrimmed, overrideTrimmed)
}

func objectRelativePath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	prefixTrimmed := strings.TrimSuffix(strings.TrimSpace(prefix), "/")
	rel := strings.TrimPrefix(key, prefixTrimmed+"/")
	if rel == "" {
		return filepath.Base(key)
	}
	return rel
}
