package repository

import (
	"context"
	"sort"
	"strings"

	"github.com/andresuchdata/scamark/backend-go/internal/analytics"
	"github.com/andresuchdata/scamark/backend-go/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// SearchProductsInAllWeeks looks for the query in the recent weeks and merges
// the hits by product key. The most recent week wins on collision and every
// result carries the week it was found in.
func (r *decisionRepository) SearchProductsInAllWeeks(ctx context.Context, query, supplier string) ([]domain.EnrichedProduct, error) {
	suppliers, err := r.expand(supplier)
	if err != nil {
		return nil, err
	}
	tokens := analytics.Tokenize(query)
	if len(tokens) == 0 {
		return []domain.EnrichedProduct{}, nil
	}
	filter := domain.NormalizeSupplier(supplier)

	weeks := make([]domain.WeekRef, 0, r.searchWeeks)
	for wk, i := r.CurrentWeek(), 0; i < r.searchWeeks; wk, i = wk.Previous(), i+1 {
		weeks = append(weeks, wk)
	}

	perWeek := make([][]domain.EnrichedProduct, len(weeks))
	var g errgroup.Group
	g.SetLimit(r.probeLimit)
	for i, wk := range weeks {
		g.Go(func() error {
			products, err := r.weekDecisions(ctx, wk, filter, suppliers)
			if err != nil {
				log.Debug().Err(err).Str("week", wk.String()).Msg("repository: search skipped week")
				return nil
			}
			perWeek[i] = products
			return nil
		})
	}
	_ = g.Wait()

	merged := make(map[string]domain.EnrichedProduct)
	// weeks run newest first, so the first hit of a key is the most recent
	for i, products := range perWeek {
		for _, p := range products {
			if !matchesSearch(p, tokens) {
				continue
			}
			key := p.Key()
			if _, seen := merged[key]; seen {
				continue
			}
			merged[key] = p.WithWeek(weeks[i].Year, weeks[i].Week)
		}
	}

	out := make([]domain.EnrichedProduct, 0, len(merged))
	for _, p := range merged {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductName != out[j].ProductName {
			return out[i].ProductName < out[j].ProductName
		}
		return out[i].Key() < out[j].Key()
	})
	return out, nil
}

func matchesSearch(p domain.EnrichedProduct, tokens []string) bool {
	if analytics.MatchesTokens(p, tokens) {
		return true
	}
	code := strings.ToLower(p.ProductCode)
	return len(tokens) == 1 && code != "" && strings.Contains(code, tokens[0])
}
