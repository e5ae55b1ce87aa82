package repository

import (
	"context"

	"github.com/andresuchdata/scamark/backend-go/internal/analytics"
	"github.com/andresuchdata/scamark/backend-go/internal/cache"
	"github.com/andresuchdata/scamark/backend-go/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// GetWeekStats counts the products, clients and promotions of a week and
// the entrants/sortants against the previous week. A failed previous-week
// fetch leaves the deltas at zero.
func (r *decisionRepository) GetWeekStats(ctx context.Context, year, week int, supplier string) (domain.WeekStats, error) {
	wk, err := domain.NewWeekRef(year, week)
	if err != nil {
		return domain.WeekStats{}, err
	}
	suppliers, err := r.expand(supplier)
	if err != nil {
		return domain.WeekStats{}, err
	}
	filter := domain.NormalizeSupplier(supplier)

	key := cache.StatsKey(filter, wk)
	if cached, ok, err := r.cache.Stats.Get(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("repository: stats cache read failed")
	} else if ok {
		return cached, nil
	}

	var (
		current, previous       []domain.EnrichedProduct
		currentErr, previousErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		current, currentErr = r.weekDecisions(ctx, wk, filter, suppliers)
		return nil
	})
	g.Go(func() error {
		previous, previousErr = r.weekDecisions(ctx, wk.Previous(), filter, suppliers)
		return nil
	})
	_ = g.Wait()

	stats := domain.WeekStats{Year: wk.Year, Week: wk.Week, Supplier: filter}
	if currentErr != nil {
		log.Warn().Err(currentErr).Str("week", wk.String()).Msg("repository: stats without current week")
		return stats, nil
	}

	stats.TotalProducts = len(current)
	stats.UniqueClients = countUniqueClients(current)
	stats.PromoProducts = countPromo(current)

	if previousErr != nil {
		log.Warn().Err(previousErr).Str("week", wk.Previous().String()).Msg("repository: previous week unavailable, deltas left at zero")
		return stats, nil
	}
	stats.ProductsIn, stats.ProductsOut = analytics.DeltaCounts(current, previous)

	if err := r.cache.Stats.Set(ctx, key, stats); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("repository: stats cache write failed")
	}
	return stats, nil
}

func countUniqueClients(products []domain.EnrichedProduct) int {
	seen := make(map[string]struct{})
	for _, p := range products {
		for _, cd := range p.Decisions {
			if cd.ClientCode != "" {
				seen[cd.ClientCode] = struct{}{}
			}
		}
	}
	return len(seen)
}

func countPromo(products []domain.EnrichedProduct) int {
	n := 0
	for _, p := range products {
		if p.IsPromo {
			n++
		}
	}
	return n
}
