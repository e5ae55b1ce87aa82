package repository

import (
	"testing"

	"github.com/andresuchdata/scamark/backend-go/internal/domain"
)

func TestResolveClient(t *testing.T) {
	registry := IndexClients([]domain.ClientInfo{
		{ID: "CL123", Name: "Carrefour Lyon", CheckoutType: domain.CheckoutBLL},
		{ID: "CL900", AltID: "900", Name: "Auchan Nord"},
		{ID: "CL555", Name: "Super U Bron"},
	})

	tests := []struct {
		code     string
		wantName string
		wantOK   bool
	}{
		{"CL123", "Carrefour Lyon", true},
		{"900", "Auchan Nord", true},
		{"CL123-X", "Carrefour Lyon", true},
		{"CL555 BRON", "Super U Bron", true},
		{"super u bron entrepot", "Super U Bron", true},
		{"ZZ9", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ResolveClient(tt.code, registry)
		if ok != tt.wantOK {
			t.Errorf("ResolveClient(%q) ok = %v, want %v", tt.code, ok, tt.wantOK)
			continue
		}
		if got.Name != tt.wantName {
			t.Errorf("ResolveClient(%q) = %q, want %q", tt.code, got.Name, tt.wantName)
		}
	}
}

func TestIndexClientsKeepsAlternateID(t *testing.T) {
	index := IndexClients([]domain.ClientInfo{
		{ID: "A1", AltID: "A1", Name: "same"},
		{ID: "B1", AltID: "B-ALT", Name: "alt"},
	})
	if len(index) != 3 {
		t.Fatalf("expected 3 keys, got %d: %v", len(index), index)
	}
	if index["B-ALT"].ID != "B1" {
		t.Errorf("alternate id should point at B1, got %+v", index["B-ALT"])
	}
}
