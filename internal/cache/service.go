package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/scamark/backend-go/internal/config"
	"github.com/andresuchdata/scamark/backend-go/internal/domain"
)

// TTLPolicy holds the lifetime of each cache category.
type TTLPolicy struct {
	Decisions time.Duration
	Weeks     time.Duration
	Stats     time.Duration
	Reference time.Duration
}

func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		Decisions: 5 * time.Minute,
		Weeks:     5 * time.Minute,
		Stats:     2 * time.Minute,
		Reference: 30 * time.Minute,
	}
}

// PolicyFromConfig reads the TTL settings, keeping defaults for unset values.
func PolicyFromConfig(cfg config.CacheConfig) TTLPolicy {
	def := DefaultTTLPolicy()
	return TTLPolicy{
		Decisions: config.TTL(cfg.DecisionsTTLSeconds, def.Decisions),
		Weeks:     config.TTL(cfg.WeeksTTLSeconds, def.Weeks),
		Stats:     config.TTL(cfg.StatsTTLSeconds, def.Stats),
		Reference: config.TTL(cfg.ReferenceTTLSeconds, def.Reference),
	}
}

// Category is a typed view over one key space of the backend.
type Category[T any] struct {
	prefix  string
	ttl     time.Duration
	backend Backend
}

func (c Category[T]) key(k string) string {
	return c.prefix + ":" + k
}

func (c Category[T]) TTL() time.Duration {
	return c.ttl
}

func (c Category[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	payload, ok, err := c.backend.Get(ctx, c.key(key))
	if err != nil || !ok {
		return zero, false, err
	}

	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return zero, false, fmt.Errorf("decode %s cache: %w", c.prefix, err)
	}
	return v, true, nil
}

func (c Category[T]) Set(ctx context.Context, key string, v T) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s cache: %w", c.prefix, err)
	}
	return c.backend.Set(ctx, c.key(key), payload, c.ttl)
}

func (c Category[T]) Delete(ctx context.Context, key string) error {
	return c.backend.Delete(ctx, c.key(key))
}

// Service groups the process-lifetime caches of the repository. It is built
// once at start-up and handed to the repository.
type Service struct {
	backend Backend

	Decisions Category[[]domain.EnrichedProduct]
	Weeks     Category[[]domain.AvailableWeek]
	Stats     Category[domain.WeekStats]
	Articles  Category[map[string]domain.Article]
	Clients   Category[map[string]domain.ClientInfo]
}

const (
	decisionsPrefix = "decisions"
	weeksPrefix     = "weeks"
	statsPrefix     = "stats"
	articlesPrefix  = "articles"
	clientsPrefix   = "clients"

	clientsGlobalKey = "global"
)

func NewService(backend Backend, policy TTLPolicy) *Service {
	return &Service{
		backend:   backend,
		Decisions: Category[[]domain.EnrichedProduct]{prefix: decisionsPrefix, ttl: policy.Decisions, backend: backend},
		Weeks:     Category[[]domain.AvailableWeek]{prefix: weeksPrefix, ttl: policy.Weeks, backend: backend},
		Stats:     Category[domain.WeekStats]{prefix: statsPrefix, ttl: policy.Stats, backend: backend},
		Articles:  Category[map[string]domain.Article]{prefix: articlesPrefix, ttl: policy.Reference, backend: backend},
		Clients:   Category[map[string]domain.ClientInfo]{prefix: clientsPrefix, ttl: policy.Reference, backend: backend},
	}
}

// NewInMemory builds a service on a memory backend driven by clock.
func NewInMemory(clock Clock, policy TTLPolicy) *Service {
	return NewService(NewMemoryBackend(clock), policy)
}

// NewFromConfig uses Redis when caching is enabled and process memory otherwise.
func NewFromConfig(cfg config.CacheConfig) (*Service, error) {
	policy := PolicyFromConfig(cfg)
	if !cfg.Enabled {
		return NewInMemory(SystemClock{}, policy), nil
	}

	backend, err := NewRedisBackend(cfg)
	if err != nil {
		return nil, err
	}
	return NewService(backend, policy), nil
}

// DecisionsKey always carries the supplier filter, "all" included.
func DecisionsKey(supplier string, wk domain.WeekRef) string {
	return fmt.Sprintf("%s:%d:%d", domain.NormalizeSupplier(supplier), wk.Year, wk.Week)
}

func WeeksKey(supplier string) string {
	return domain.NormalizeSupplier(supplier)
}

// YearWeeksKey keys the availability of one whole year.
func YearWeeksKey(supplier string, year int) string {
	return fmt.Sprintf("%s:%d", domain.NormalizeSupplier(supplier), year)
}

func StatsKey(supplier string, wk domain.WeekRef) string {
	return DecisionsKey(supplier, wk)
}

// ArticlesKey is the sorted supplier set the article index was built for.
func ArticlesKey(suppliers []string) string {
	sorted := append([]string(nil), suppliers...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

func ClientsKey() string {
	return clientsGlobalKey
}

// Clear drops every cached entry.
func (s *Service) Clear(ctx context.Context) error {
	return s.backend.DeletePattern(ctx, "*")
}

// ClearSupplier drops the entries of one supplier filter and of the "all"
// filter, which includes that supplier's data.
func (s *Service) ClearSupplier(ctx context.Context, supplier string) error {
	supplier = domain.NormalizeSupplier(supplier)
	if supplier == domain.SupplierAll {
		return s.Clear(ctx)
	}

	patterns := []string{
		decisionsPrefix + ":" + supplier + ":*",
		decisionsPrefix + ":" + domain.SupplierAll + ":*",
		weeksPrefix + ":" + supplier,
		weeksPrefix + ":" + supplier + ":*",
		weeksPrefix + ":" + domain.SupplierAll,
		weeksPrefix + ":" + domain.SupplierAll + ":*",
		statsPrefix + ":" + supplier + ":*",
		statsPrefix + ":" + domain.SupplierAll + ":*",
		articlesPrefix + ":*" + supplier + "*",
	}

	var errs []error
	for _, p := range patterns {
		if err := s.backend.DeletePattern(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
