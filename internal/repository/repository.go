// backend-go/internal/repository/repository.go
package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/scamark/backend-go/internal/cache"
	"github.com/andresuchdata/scamark/backend-go/internal/config"
	"github.com/andresuchdata/scamark/backend-go/internal/domain"
	"github.com/andresuchdata/scamark/backend-go/internal/store"
	"github.com/rs/zerolog/log"
)

// DecisionRepository fetches, enriches and caches weekly decisions. Transient
// store failures never surface as errors: methods degrade to empty, zero or
// fallback values. Errors are only returned for invalid arguments.
type DecisionRepository interface {
	GetAvailableWeeks(ctx context.Context, supplier string) ([]domain.AvailableWeek, error)
	GetAvailableWeeksForYear(ctx context.Context, supplier string, year int) ([]domain.AvailableWeek, error)
	GetExtendedAvailableWeeksFromWeek(ctx context.Context, supplier string, fromWeek, fromYear int) ([]domain.AvailableWeek, error)
	CheckWeekAvailability(ctx context.Context, supplier string, week, year int) (bool, error)

	GetWeekDecisions(ctx context.Context, year, week int, supplier string) ([]domain.EnrichedProduct, error)
	GetWeekStats(ctx context.Context, year, week int, supplier string) (domain.WeekStats, error)

	GetProductHistorySinceOctober(ctx context.Context, productName, supplier string, opts HistoryOptions) (domain.Palmares, error)

	GetRuptureHistoryForProduct(ctx context.Context, productCode, supplier string) ([]domain.RuptureEvent, error)
	GetRuptureSummaryForProduct(ctx context.Context, productCode, supplier string) (domain.RuptureSummary, error)
	SearchProductsInAllWeeks(ctx context.Context, query, supplier string) ([]domain.EnrichedProduct, error)
	GetUserProfile(ctx context.Context, uid string) *domain.UserProfile

	CurrentWeek() domain.WeekRef
	Suppliers() []string
	ClearCache(ctx context.Context)
	ClearSupplierCache(ctx context.Context, supplier string)
}

// Options tunes a repository; zero values fall back to defaults.
type Options struct {
	Suppliers        []string
	ProbeConcurrency int
	Epoch            domain.WeekRef
	SearchWeeks      int
	ScanPolicy       ScanPolicy
	Clock            cache.Clock
}

const (
	defaultProbeConcurrency = 16
	defaultSearchWeeks      = 10
)

// DefaultEpoch is the first week of the palmarès history.
var DefaultEpoch = domain.WeekRef{Year: 2024, Week: 40}

// OptionsFromConfig maps the scan and store settings.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Suppliers:        cfg.Store.Suppliers,
		ProbeConcurrency: cfg.Scan.ProbeConcurrency,
		Epoch:            domain.WeekRef{Year: cfg.Scan.EpochYear, Week: cfg.Scan.EpochWeek},
		SearchWeeks:      cfg.Scan.SearchWeeks,
	}
}

type decisionRepository struct {
	store       store.DocumentStore
	cache       *cache.Service
	clock       cache.Clock
	suppliers   []string
	probeLimit  int
	epoch       domain.WeekRef
	searchWeeks int
	scan        ScanPolicy
}

func NewDecisionRepository(st store.DocumentStore, cacheSvc *cache.Service, opts Options) DecisionRepository {
	if opts.Clock == nil {
		opts.Clock = cache.SystemClock{}
	}
	if cacheSvc == nil {
		cacheSvc = cache.NewInMemory(opts.Clock, cache.DefaultTTLPolicy())
	}
	if len(opts.Suppliers) == 0 {
		opts.Suppliers = domain.DefaultSuppliers
	}
	if opts.ProbeConcurrency <= 0 {
		opts.ProbeConcurrency = defaultProbeConcurrency
	}
	if opts.Epoch.Year == 0 || opts.Epoch.Week == 0 {
		opts.Epoch = DefaultEpoch
	}
	if opts.SearchWeeks <= 0 {
		opts.SearchWeeks = defaultSearchWeeks
	}
	if opts.ScanPolicy.BatchSize <= 0 {
		opts.ScanPolicy = DefaultScanPolicy()
	}

	return &decisionRepository{
		store:       st,
		cache:       cacheSvc,
		clock:       opts.Clock,
		suppliers:   append([]string(nil), opts.Suppliers...),
		probeLimit:  opts.ProbeConcurrency,
		epoch:       opts.Epoch,
		searchWeeks: opts.SearchWeeks,
		scan:        opts.ScanPolicy,
	}
}

func (r *decisionRepository) now() time.Time {
	return r.clock.Now()
}

func (r *decisionRepository) CurrentWeek() domain.WeekRef {
	return domain.CurrentWeek(r.now())
}

func (r *decisionRepository) Suppliers() []string {
	return append([]string(nil), r.suppliers...)
}

func (r *decisionRepository) expand(supplier string) ([]string, error) {
	return domain.ExpandSupplier(supplier, r.suppliers)
}

func (r *decisionRepository) ClearCache(ctx context.Context) {
	if err := r.cache.Clear(ctx); err != nil {
		log.Warn().Err(err).Msg("repository: clear cache failed")
	}
}

func (r *decisionRepository) ClearSupplierCache(ctx context.Context, supplier string) {
	if err := r.cache.ClearSupplier(ctx, supplier); err != nil {
		log.Warn().Err(err).Str("supplier", supplier).Msg("repository: clear supplier cache failed")
	}
}
