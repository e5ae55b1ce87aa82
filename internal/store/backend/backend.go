// Package backend opens the document store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/scamark/backend-go/internal/config"
	"github.com/andresuchdata/scamark/backend-go/internal/store"
	"github.com/andresuchdata/scamark/backend-go/internal/store/firestore"
	"github.com/andresuchdata/scamark/backend-go/internal/store/memstore"
	"github.com/andresuchdata/scamark/backend-go/internal/store/postgres"
	"github.com/rs/zerolog/log"
)

const (
	Firestore = "firestore"
	Postgres  = "postgres"
	Memory    = "memory"
)

// Handle bundles the read and user surfaces of one backend.
type Handle struct {
	Name  string
	Docs  store.DocumentStore
	Users store.UserStore
	close func() error
}

func (h *Handle) Close() error {
	if h == nil || h.close == nil {
		return nil
	}
	return h.close()
}

// Open connects to cfg.Store.Backend. The memory backend is loaded with the
// demo dataset.
func Open(ctx context.Context, cfg *config.Config) (*Handle, error) {
	switch cfg.Store.Backend {
	case "", Firestore:
		fs, err := firestore.New(ctx, cfg.Firestore)
		if err != nil {
			return nil, err
		}
		return &Handle{Name: Firestore, Docs: fs, Users: fs, close: fs.Close}, nil
	case Postgres:
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		docs := postgres.NewDocumentStore(db)
		return &Handle{Name: Postgres, Docs: docs, Users: docs, close: db.Close}, nil
	case Memory:
		log.Warn().Msg("store: using the in-memory demo dataset")
		mem := memstore.NewDemo(time.Now())
		return &Handle{Name: Memory, Docs: mem, Users: mem}, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
