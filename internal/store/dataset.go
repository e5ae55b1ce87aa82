package store

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/andresuchdata/scamark/backend-go/internal/domain"
)

// Dataset is the export format of the document database, used to seed the
// mirror and the in-memory store.
type Dataset struct {
	Decisions []domain.Decision                `json:"decisions"`
	Articles  []domain.Article                 `json:"articles"`
	Clients   []domain.ClientInfo              `json:"clients"`
	Ruptures  map[string][]domain.RuptureEvent `json:"ruptures"`
	Profiles  []domain.UserProfile             `json:"profiles"`
}

// DecodeDataset reads one JSON export.
func DecodeDataset(r io.Reader) (Dataset, error) {
	var ds Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return Dataset{}, fmt.Errorf("decode dataset: %w", err)
	}
	for i := range ds.Decisions {
		ds.Decisions[i].Supplier = strings.ToLower(strings.TrimSpace(ds.Decisions[i].Supplier))
	}
	return ds, nil
}

// Merge appends other to ds. Rupture histories of the same product are concatenated.
func (ds *Dataset) Merge(other Dataset) {
	ds.Decisions = append(ds.Decisions, other.Decisions...)
	ds.Articles = append(ds.Articles, other.Articles...)
	ds.Clients = append(ds.Clients, other.Clients...)
	ds.Profiles = append(ds.Profiles, other.Profiles...)
	if len(other.Ruptures) > 0 && ds.Ruptures == nil {
		ds.Ruptures = make(map[string][]domain.RuptureEvent, len(other.Ruptures))
	}
	for code, events := range other.Ruptures {
		ds.Ruptures[code] = append(ds.Ruptures[code], events...)
	}
}

// Len counts the documents of ds.
func (ds Dataset) Len() int {
	return len(ds.Decisions) + len(ds.Articles) + len(ds.Clients) + len(ds.Ruptures) + len(ds.Profiles)
}
