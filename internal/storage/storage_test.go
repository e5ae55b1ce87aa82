package storage

import (
	"testing"

	"github.com/andresuchdata/scamark/backend-go/internal/config"
)

func TestNewSelectsProvider(t *testing.T) {
	cfg := config.ObjectStorageConfig{
		Endpoint:  "http://localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "scamark-exports",
		Region:    "us-east-1",
	}

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New(minio): %v", err)
	}
	if _, ok := client.(*MinioClient); !ok {
		t.Fatalf("default provider should be minio, got %T", client)
	}

	cfg.Provider = "ftp"
	if _, err := New(cfg); err == nil {
		t.Fatal("unknown provider should fail")
	}
}

func TestNewRequiresSettings(t *testing.T) {
	tests := []config.ObjectStorageConfig{
		{AccessKey: "a", SecretKey: "b", Bucket: "c"},
		{Endpoint: "localhost:9000", Bucket: "c"},
		{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"},
	}
	for _, cfg := range tests {
		for _, provider := range []string{"minio", "sevalla"} {
			cfg.Provider = provider
			if _, err := New(cfg); err == nil {
				t.Errorf("%s with %+v should fail", provider, cfg)
			}
		}
	}
}

func TestContentType(t *testing.T) {
	if got := contentType("exports/decisions.JSON"); got != "application/json" {
		t.Errorf("contentType = %s", got)
	}
	if got := contentType("exports/raw.bin"); got != "application/octet-stream" {
		t.Errorf("contentType = %s", got)
	}
}
