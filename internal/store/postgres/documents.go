// Package postgres mirrors the document tree in a single JSONB table so the
// service can run against a self-hosted database. Collections keep the same
// path convention as the remote store.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/scamark/backend-go/internal/domain"
	"github.com/andresuchdata/scamark/backend-go/internal/store"
	"github.com/jmoiron/sqlx"
)

type documentRow struct {
	Collection string `db:"collection"`
	DocID      string `db:"doc_id"`
	Data       []byte `db:"data"`
}

// Document is one document to write into the mirror.
type Document struct {
	Collection string
	ID         string
	Data       any
}

type DocumentStore struct {
	db *DB
}

var (
	_ store.DocumentStore = (*DocumentStore)(nil)
	_ store.UserStore     = (*DocumentStore)(nil)
)

func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) selectRows(ctx context.Context, query string, args ...any) ([]documentRow, error) {
	release, err := s.db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var rows []documentRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *DocumentStore) exists(ctx context.Context, query string, args ...any) (bool, error) {
	release, err := s.db.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	var found bool
	if err := s.db.GetContext(ctx, &found, query, args...); err != nil {
		return false, err
	}
	return found, nil
}

func (s *DocumentStore) getRow(ctx context.Context, collection, id string) (*documentRow, error) {
	release, err := s.db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var row documentRow
	err = s.db.GetContext(ctx, &row,
		`SELECT collection, doc_id, data FROM scamark_documents WHERE collection = $1 AND doc_id = $2`,
		collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *DocumentStore) ListDecisions(ctx context.Context, supplier string, wk domain.WeekRef) ([]domain.Decision, error) {
	path := store.DecisionCollectionPath(supplier, wk)
	rows, err := s.selectRows(ctx,
		`SELECT collection, doc_id, data FROM scamark_documents WHERE collection = $1 ORDER BY doc_id`, path)
	if err != nil {
		return nil, fmt.Errorf("list decisions %s: %w", path, err)
	}

	decisions := make([]domain.Decision, 0, len(rows))
	for _, row := range rows {
		var d domain.Decision
		if err := json.Unmarshal(row.Data, &d); err != nil {
			return nil, fmt.Errorf("decode decision %s/%s: %w", path, row.DocID, err)
		}
		if d.ProductCode == "" {
			d.ProductCode = row.DocID
		}
		d.Supplier = supplier
		d.Year = wk.Year
		d.Week = wk.Week
		decisions = append(decisions, d)
	}
	return decisions, nil
}

func (s *DocumentStore) HasDecisions(ctx context.Context, supplier string, wk domain.WeekRef) (bool, error) {
	return s.exists(ctx,
		`SELECT EXISTS (SELECT 1 FROM scamark_documents WHERE collection = $1 LIMIT 1)`,
		store.DecisionCollectionPath(supplier, wk))
}

func (s *DocumentStore) FindDecisionByCode(ctx context.Context, supplier string, wk domain.WeekRef, code string) (bool, error) {
	return s.exists(ctx,
		`SELECT EXISTS (SELECT 1 FROM scamark_documents WHERE collection = $1 AND data->>'codeProduit' = $2 LIMIT 1)`,
		store.DecisionCollectionPath(supplier, wk), code)
}

func (s *DocumentStore) FindDecisionByLabel(ctx context.Context, supplier string, wk domain.WeekRef, label string) (bool, error) {
	return s.exists(ctx,
		`SELECT EXISTS (SELECT 1 FROM scamark_documents WHERE collection = $1 AND data->>'libelle' = $2 LIMIT 1)`,
		store.DecisionCollectionPath(supplier, wk), label)
}

func (s *DocumentStore) ListArticles(ctx context.Context) ([]domain.Article, error) {
	// Collection group: every collection named "articles", at any depth.
	rows, err := s.selectRows(ctx,
		`SELECT collection, doc_id, data FROM scamark_documents
		 WHERE collection = $1 OR collection LIKE '%/' || $1`, store.ArticlesCollection)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}

	articles := make([]domain.Article, 0, len(rows))
	for _, row := range rows {
		var a domain.Article
		if err := json.Unmarshal(row.Data, &a); err != nil {
			return nil, fmt.Errorf("decode article %s: %w", row.DocID, err)
		}
		if a.ProductCode == "" {
			a.ProductCode = row.DocID
		}
		articles = append(articles, a)
	}
	return articles, nil
}

func (s *DocumentStore) ListClients(ctx context.Context) ([]domain.ClientInfo, error) {
	rows, err := s.selectRows(ctx,
		`SELECT collection, doc_id, data FROM scamark_documents WHERE collection = $1`, store.ClientsCollection)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}

	clients := make([]domain.ClientInfo, 0, len(rows))
	for _, row := range rows {
		var c domain.ClientInfo
		if err := json.Unmarshal(row.Data, &c); err != nil {
			return nil, fmt.Errorf("decode client %s: %w", row.DocID, err)
		}
		c.ID = row.DocID
		clients = append(clients, c)
	}
	return clients, nil
}

type ruptureHistoryData struct {
	Ruptures []domain.RuptureEvent `json:"ruptures"`
}

func (s *DocumentStore) GetRuptureHistory(ctx context.Context, productCode string) ([]domain.RuptureEvent, error) {
	row, err := s.getRow(ctx, store.RuptureHistoryCollection, productCode)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get rupture history %s: %w", productCode, err)
	}

	var data ruptureHistoryData
	if err := json.Unmarshal(row.Data, &data); err != nil {
		return nil, fmt.Errorf("decode rupture history %s: %w", productCode, err)
	}
	return data.Ruptures, nil
}

// userData is the JSON shape of users/{uid}.
type userData struct {
	Email             string    `json:"email"`
	DisplayName       string    `json:"displayName"`
	Role              string    `json:"role"`
	PreferredSupplier string    `json:"fournisseurPrefere"`
	PasswordHash      string    `json:"passwordHash"`
	CreatedAt         time.Time `json:"createdAt"`
}

func (s *DocumentStore) GetUserProfile(ctx context.Context, uid string) (*domain.UserProfile, error) {
	row, err := s.getRow(ctx, store.UsersCollection, uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get user profile %s: %w", uid, err)
	}

	var data userData
	if err := json.Unmarshal(row.Data, &data); err != nil {
		return nil, fmt.Errorf("decode user profile %s: %w", uid, err)
	}
	return &domain.UserProfile{
		UID:               row.DocID,
		Email:             data.Email,
		DisplayName:       data.DisplayName,
		Role:              data.Role,
		PreferredSupplier: data.PreferredSupplier,
		CreatedAt:         data.CreatedAt,
	}, nil
}

func (s *DocumentStore) GetUserByEmail(ctx context.Context, email string) (*domain.UserAccount, error) {
	rows, err := s.selectRows(ctx,
		`SELECT collection, doc_id, data FROM scamark_documents WHERE collection = $1 AND data->>'email' = $2 LIMIT 1`,
		store.UsersCollection, strings.ToLower(email))
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", email, err)
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}

	var data userData
	if err := json.Unmarshal(rows[0].Data, &data); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", email, err)
	}
	return &domain.UserAccount{
		UID:          rows[0].DocID,
		Email:        data.Email,
		PasswordHash: data.PasswordHash,
		DisplayName:  data.DisplayName,
		CreatedAt:    data.CreatedAt,
	}, nil
}

func (s *DocumentStore) CreateUser(ctx context.Context, account domain.UserAccount, profile domain.UserProfile) error {
	data := userData{
		Email:             strings.ToLower(account.Email),
		DisplayName:       profile.DisplayName,
		Role:              profile.Role,
		PreferredSupplier: profile.PreferredSupplier,
		PasswordHash:      account.PasswordHash,
		CreatedAt:         profile.CreatedAt,
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode user %s: %w", account.Email, err)
	}

	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO scamark_documents (collection, doc_id, data) VALUES ($1, $2, $3)`,
			store.UsersCollection, account.UID, payload)
		if err != nil {
			return fmt.Errorf("create user %s: %w", account.Email, err)
		}
		return nil
	})
}

// Upsert writes documents in one transaction, replacing existing ones.
func (s *DocumentStore) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, `
			INSERT INTO scamark_documents (collection, doc_id, data, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (collection, doc_id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`)
		if err != nil {
			return fmt.Errorf("prepare upsert: %w", err)
		}
		defer stmt.Close()

		for _, doc := range docs {
			payload, err := json.Marshal(doc.Data)
			if err != nil {
				return fmt.Errorf("encode %s/%s: %w", doc.Collection, doc.ID, err)
			}
			if _, err := stmt.ExecContext(ctx, doc.Collection, doc.ID, payload); err != nil {
				return fmt.Errorf("upsert %s/%s: %w", doc.Collection, doc.ID, err)
			}
		}
		return nil
	})
}

// DecisionDocument maps a decision to its mirror document.
func DecisionDocument(d domain.Decision) Document {
	wk := domain.WeekRef{Year: d.Year, Week: d.Week}
	return Document{Collection: store.DecisionCollectionPath(d.Supplier, wk), ID: d.ProductCode, Data: d}
}

// ArticleDocument maps an article to a per-supplier articles collection.
func ArticleDocument(a domain.Article) Document {
	collection := store.ArticlesCollection
	if a.Supplier != "" {
		collection = store.DecisionCollection(a.Supplier) + "/" + store.ArticlesCollection
	}
	return Document{Collection: collection, ID: a.ProductCode, Data: a}
}

func ClientDocument(c domain.ClientInfo) Document {
	return Document{Collection: store.ClientsCollection, ID: c.ID, Data: c}
}

func RuptureHistoryDocument(productCode string, events []domain.RuptureEvent) Document {
	return Document{Collection: store.RuptureHistoryCollection, ID: productCode, Data: ruptureHistoryData{Ruptures: events}}
}

// ProfileDocument maps a profile without credentials to users/{uid}.
func ProfileDocument(p domain.UserProfile) Document {
	return Document{Collection: store.UsersCollection, ID: p.UID, Data: userData{
		Email:             strings.ToLower(p.Email),
		DisplayName:       p.DisplayName,
		Role:              p.Role,
		PreferredSupplier: p.PreferredSupplier,
		CreatedAt:         p.CreatedAt,
	}}
}

// DatasetDocuments flattens an export into mirror documents.
func DatasetDocuments(ds store.Dataset) []Document {
	docs := make([]Document, 0, ds.Len())
	for _, d := range ds.Decisions {
		docs = append(docs, DecisionDocument(d))
	}
	for _, a := range ds.Articles {
		docs = append(docs, ArticleDocument(a))
	}
	for _, c := range ds.Clients {
		docs = append(docs, ClientDocument(c))
	}
	for code, events := range ds.Ruptures {
		docs = append(docs, RuptureHistoryDocument(code, events))
	}
	for _, p := range ds.Profiles {
		docs = append(docs, ProfileDocument(p))
	}
	return docs
}
