package backend

import (
	"context"
	"testing"

	"github.com/andresuchdata/scamark/backend-go/internal/config"
)

func TestOpenMemory(t *testing.T) {
	h, err := Open(context.Background(), &config.Config{Store: config.StoreConfig{Backend: Memory}})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()
	if h.Name != Memory || h.Docs == nil || h.Users == nil {
		t.Fatalf("unexpected handle %+v", h)
	}
	if _, err := h.Docs.GetUserProfile(context.Background(), "demo"); err != nil {
		t.Errorf("demo profile missing: %v", err)
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), &config.Config{Store: config.StoreConfig{Backend: "mongo"}}); err == nil {
		t.Fatal("expected an error")
	}
}

func TestOpenFirestoreNeedsProject(t *testing.T) {
	if _, err := Open(context.Background(), &config.Config{Store: config.StoreConfig{Backend: Firestore}}); err == nil {
		t.Fatal("expected an error without a project id")
	}
}

func TestNilHandleClose(t *testing.T) {
	var h *Handle
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}
}
