// Package memstore is an in-process DocumentStore. It backs the demo mode of
// the CLI and the tests of the packages built on top of the store.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/andresuchdata/scamark/backend-go/internal/domain"
	"github.com/andresuchdata/scamark/backend-go/internal/store"
)

// ErrInjected is returned by operations configured to fail.
var ErrInjected = errors.New("memstore: injected failure")

// Counters records how many times each operation reached the store.
type Counters struct {
	ListDecisions atomic.Int64
	Probes        atomic.Int64
	ListArticles  atomic.Int64
	ListClients   atomic.Int64
}

// Store keeps documents in maps keyed by their document path.
type Store struct {
	mu        sync.RWMutex
	decisions map[string]map[string]domain.Decision // collection path -> code -> decision
	articles  []domain.Article
	clients   []domain.ClientInfo
	ruptures  map[string][]domain.RuptureEvent
	profiles  map[string]domain.UserProfile
	accounts  map[string]domain.UserAccount // email -> account

	failAll  atomic.Bool
	failWeek map[string]bool

	Counters Counters
}

var (
	_ store.DocumentStore = (*Store)(nil)
	_ store.UserStore     = (*Store)(nil)
)

func New() *Store {
	return &Store{
		decisions: make(map[string]map[string]domain.Decision),
		ruptures:  make(map[string][]domain.RuptureEvent),
		profiles:  make(map[string]domain.UserProfile),
		accounts:  make(map[string]domain.UserAccount),
		failWeek:  make(map[string]bool),
	}
}

// AddDecisions stores decisions in their (supplier, year, week) partition.
func (s *Store) AddDecisions(ds ...domain.Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range ds {
		path := store.DecisionCollectionPath(d.Supplier, domain.WeekRef{Year: d.Year, Week: d.Week})
		if s.decisions[path] == nil {
			s.decisions[path] = make(map[string]domain.Decision)
		}
		key := d.ProductCode
		if key == "" {
			key = fmt.Sprintf("auto-%d", len(s.decisions[path]))
		}
		s.decisions[path][key] = d
	}
}

func (s *Store) SetArticles(as ...domain.Article) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles = append([]domain.Article(nil), as...)
}

func (s *Store) SetClients(cs ...domain.ClientInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients = append([]domain.ClientInfo(nil), cs...)
}

func (s *Store) SetRuptureHistory(productCode string, events ...domain.RuptureEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ruptures[productCode] = append([]domain.RuptureEvent(nil), events...)
}

func (s *Store) SetUserProfile(p domain.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UID] = p
}

// FailAll makes every read fail until reset.
func (s *Store) FailAll(fail bool) {
	s.failAll.Store(fail)
}

// FailWeek makes reads of one week partition fail.
func (s *Store) FailWeek(supplier string, wk domain.WeekRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWeek[store.DecisionCollectionPath(supplier, wk)] = true
}

func (s *Store) check(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.failAll.Load() {
		return ErrInjected
	}
	if path != "" {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.failWeek[path] {
			return ErrInjected
		}
	}
	return nil
}

func (s *Store) ListDecisions(ctx context.Context, supplier string, wk domain.WeekRef) ([]domain.Decision, error) {
	s.Counters.ListDecisions.Add(1)
	path := store.DecisionCollectionPath(supplier, wk)
	if err := s.check(ctx, path); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := s.decisions[path]
	codes := make([]string, 0, len(docs))
	for code := range docs {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	out := make([]domain.Decision, 0, len(docs))
	for _, code := range codes {
		d := docs[code]
		d.Scas = append([]domain.ScaReference(nil), d.Scas...)
		out = append(out, d)
	}
	return out, nil
}

func (s *Store) HasDecisions(ctx context.Context, supplier string, wk domain.WeekRef) (bool, error) {
	return s.probe(ctx, supplier, wk, func(domain.Decision) bool { return true })
}

func (s *Store) FindDecisionByCode(ctx context.Context, supplier string, wk domain.WeekRef, code string) (bool, error) {
	return s.probe(ctx, supplier, wk, func(d domain.Decision) bool { return d.ProductCode == code })
}

func (s *Store) FindDecisionByLabel(ctx context.Context, supplier string, wk domain.WeekRef, label string) (bool, error) {
	return s.probe(ctx, supplier, wk, func(d domain.Decision) bool { return d.Label == label })
}

func (s *Store) probe(ctx context.Context, supplier string, wk domain.WeekRef, match func(domain.Decision) bool) (bool, error) {
	s.Counters.Probes.Add(1)
	path := store.DecisionCollectionPath(supplier, wk)
	if err := s.check(ctx, path); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.decisions[path] {
		if match(d) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListArticles(ctx context.Context) ([]domain.Article, error) {
	s.Counters.ListArticles.Add(1)
	if err := s.check(ctx, ""); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Article(nil), s.articles...), nil
}

func (s *Store) ListClients(ctx context.Context) ([]domain.ClientInfo, error) {
	s.Counters.ListClients.Add(1)
	if err := s.check(ctx, ""); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ClientInfo(nil), s.clients...), nil
}

func (s *Store) GetRuptureHistory(ctx context.Context, productCode string) ([]domain.RuptureEvent, error) {
	if err := s.check(ctx, ""); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	events, ok := s.ruptures[productCode]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]domain.RuptureEvent(nil), events...), nil
}

func (s *Store) GetUserProfile(ctx context.Context, uid string) (*domain.UserProfile, error) {
	if err := s.check(ctx, ""); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[uid]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.UserAccount, error) {
	if err := s.check(ctx, ""); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[strings.ToLower(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &acc, nil
}

func (s *Store) CreateUser(ctx context.Context, account domain.UserAccount, profile domain.UserProfile) error {
	if err := s.check(ctx, ""); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(account.Email)
	if _, exists := s.accounts[key]; exists {
		return fmt.Errorf("user %s already exists", account.Email)
	}
	s.accounts[key] = account
	profile.UID = account.UID
	s.profiles[account.UID] = profile
	return nil
}
