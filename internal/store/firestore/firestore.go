// Package firestore implements the document store on Google Cloud Firestore.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	gfs "cloud.google.com/go/firestore"
	"github.com/andresuchdata/scamark/backend-go/internal/config"
	"github.com/andresuchdata/scamark/backend-go/internal/domain"
	"github.com/andresuchdata/scamark/backend-go/internal/store"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const datastoreScope = "https://www.googleapis.com/auth/datastore"

type Store struct {
	client *gfs.Client
}

var (
	_ store.DocumentStore = (*Store)(nil)
	_ store.UserStore     = (*Store)(nil)
)

// New opens a Firestore client. Explicit credentials are read from
// cfg.CredentialsFile when set; application default credentials are used otherwise.
func New(ctx context.Context, cfg config.FirestoreConfig) (*Store, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("firestore project id must be provided")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		raw, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read firestore credentials: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, raw, datastoreScope)
		if err != nil {
			return nil, fmt.Errorf("parse firestore credentials: %w", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	}

	client, err := gfs.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) week(supplier string, wk domain.WeekRef) *gfs.CollectionRef {
	return s.client.Collection(store.DecisionCollection(supplier)).
		Doc(strconv.Itoa(wk.Year)).
		Collection(wk.TwoDigit())
}

func (s *Store) ListDecisions(ctx context.Context, supplier string, wk domain.WeekRef) ([]domain.Decision, error) {
	docs, err := s.week(supplier, wk).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list decisions %s: %w", store.DecisionCollectionPath(supplier, wk), err)
	}

	decisions := make([]domain.Decision, 0, len(docs))
	for _, doc := range docs {
		var d domain.Decision
		if err := doc.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode decision %s: %w", doc.Ref.Path, err)
		}
		if d.ProductCode == "" {
			d.ProductCode = doc.Ref.ID
		}
		d.Supplier = supplier
		d.Year = wk.Year
		d.Week = wk.Week
		decisions = append(decisions, d)
	}
	return decisions, nil
}

func (s *Store) HasDecisions(ctx context.Context, supplier string, wk domain.WeekRef) (bool, error) {
	return exists(ctx, s.week(supplier, wk).Limit(1))
}

func (s *Store) FindDecisionByCode(ctx context.Context, supplier string, wk domain.WeekRef, code string) (bool, error) {
	return exists(ctx, s.week(supplier, wk).Where("codeProduit", "==", code).Limit(1))
}

func (s *Store) FindDecisionByLabel(ctx context.Context, supplier string, wk domain.WeekRef, label string) (bool, error) {
	return exists(ctx, s.week(supplier, wk).Where("libelle", "==", label).Limit(1))
}

func exists(ctx context.Context, q gfs.Query) (bool, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	_, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) ListArticles(ctx context.Context) ([]domain.Article, error) {
	docs, err := s.client.CollectionGroup(store.ArticlesCollection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}

	articles := make([]domain.Article, 0, len(docs))
	for _, doc := range docs {
		var a domain.Article
		if err := doc.DataTo(&a); err != nil {
			return nil, fmt.Errorf("decode article %s: %w", doc.Ref.Path, err)
		}
		if a.ProductCode == "" {
			a.ProductCode = doc.Ref.ID
		}
		articles = append(articles, a)
	}
	return articles, nil
}

func (s *Store) ListClients(ctx context.Context) ([]domain.ClientInfo, error) {
	docs, err := s.client.Collection(store.ClientsCollection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}

	clients := make([]domain.ClientInfo, 0, len(docs))
	for _, doc := range docs {
		var c domain.ClientInfo
		if err := doc.DataTo(&c); err != nil {
			return nil, fmt.Errorf("decode client %s: %w", doc.Ref.Path, err)
		}
		c.ID = doc.Ref.ID
		clients = append(clients, c)
	}
	return clients, nil
}

type ruptureHistoryDoc struct {
	Ruptures []domain.RuptureEvent `firestore:"ruptures"`
}

func (s *Store) GetRuptureHistory(ctx context.Context, productCode string) ([]domain.RuptureEvent, error) {
	snap, err := s.client.Collection(store.RuptureHistoryCollection).Doc(productCode).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get rupture history %s: %w", productCode, err)
	}

	var doc ruptureHistoryDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode rupture history %s: %w", productCode, err)
	}
	return doc.Ruptures, nil
}

// userDoc is the users/{uid} document: profile fields plus the password hash.
type userDoc struct {
	domain.UserProfile
	PasswordHash string `firestore:"passwordHash"`
}

func (s *Store) GetUserProfile(ctx context.Context, uid string) (*domain.UserProfile, error) {
	snap, err := s.client.Collection(store.UsersCollection).Doc(uid).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user profile %s: %w", uid, err)
	}

	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode user profile %s: %w", uid, err)
	}
	profile := doc.UserProfile
	profile.UID = snap.Ref.ID
	return &profile, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.UserAccount, error) {
	iter := s.client.Collection(store.UsersCollection).
		Where("email", "==", strings.ToLower(email)).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", email, err)
	}

	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", email, err)
	}
	return &domain.UserAccount{
		UID:          snap.Ref.ID,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		DisplayName:  doc.DisplayName,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

func (s *Store) CreateUser(ctx context.Context, account domain.UserAccount, profile domain.UserProfile) error {
	profile.Email = strings.ToLower(account.Email)
	doc := userDoc{UserProfile: profile, PasswordHash: account.PasswordHash}
	if _, err := s.client.Collection(store.UsersCollection).Doc(account.UID).Create(ctx, doc); err != nil {
		return fmt.Errorf("create user %s: %w", account.Email, err)
	}
	return nil
}
