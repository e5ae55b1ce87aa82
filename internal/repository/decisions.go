// backend-go/internal/repository/decisions.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/andresuchdata/scamark/backend-go/internal/analytics"
	"github.com/andresuchdata/scamark/backend-go/internal/cache"
	"github.com/andresuchdata/scamark/backend-go/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrWeekUnavailable is returned by the internal fetch when no partition of
// the requested week could be read.
var ErrWeekUnavailable = errors.New("week partitions unavailable")

// GetWeekDecisions returns the enriched decisions of one week, sorted by
// product name. Store failures degrade to an empty list. Only the current
// week is cached.
func (r *decisionRepository) GetWeekDecisions(ctx context.Context, year, week int, supplier string) ([]domain.EnrichedProduct, error) {
	wk, err := domain.NewWeekRef(year, week)
	if err != nil {
		return nil, err
	}
	suppliers, err := r.expand(supplier)
	if err != nil {
		return nil, err
	}

	products, err := r.weekDecisions(ctx, wk, domain.NormalizeSupplier(supplier), suppliers)
	if err != nil {
		log.Warn().Err(err).
			Str("supplier", supplier).
			Str("week", wk.String()).
			Msg("repository: week decisions unavailable")
		return []domain.EnrichedProduct{}, nil
	}
	return products, nil
}

// weekDecisions is the cache-aware pipeline. Unlike GetWeekDecisions it
// reports a failed fetch so that callers can tell it from an empty week.
func (r *decisionRepository) weekDecisions(ctx context.Context, wk domain.WeekRef, filter string, suppliers []string) ([]domain.EnrichedProduct, error) {
	cacheable := wk == r.CurrentWeek()
	key := cache.DecisionsKey(filter, wk)

	if cacheable {
		cached, ok, err := r.cache.Decisions.Get(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("repository: decisions cache read failed")
		} else if ok {
			return cached, nil
		}
	}

	raw, err := r.fetchRaw(ctx, wk, suppliers)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return []domain.EnrichedProduct{}, nil
	}

	articles, clients := r.resolveReferences(ctx, raw, suppliers)
	products := enrich(raw, wk, articles, clients)

	if cacheable {
		if err := r.cache.Decisions.Set(ctx, key, products); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("repository: decisions cache write failed")
		}
	}
	return products, nil
}

// fetchRaw reads the week partition of every supplier concurrently. A
// supplier that fails is skipped; the fetch only fails when all of them do.
func (r *decisionRepository) fetchRaw(ctx context.Context, wk domain.WeekRef, suppliers []string) ([]domain.Decision, error) {
	results := make([][]domain.Decision, len(suppliers))
	errs := make([]error, len(suppliers))

	var g errgroup.Group
	for i, s := range suppliers {
		g.Go(func() error {
			ds, err := r.store.ListDecisions(ctx, s, wk)
			if err != nil {
				errs[i] = fmt.Errorf("list decisions %s %s: %w", s, wk, err)
				return nil
			}
			for j := range ds {
				if ds[j].Supplier == "" {
					ds[j].Supplier = s
				}
			}
			results[i] = ds
			return nil
		})
	}
	_ = g.Wait()

	var (
		out    []domain.Decision
		failed int
	)
	for i := range suppliers {
		if errs[i] != nil {
			failed++
			log.Warn().Err(errs[i]).Msg("repository: supplier partition skipped")
			continue
		}
		out = append(out, results[i]...)
	}
	if failed == len(suppliers) {
		return nil, fmt.Errorf("%w: %s", ErrWeekUnavailable, errors.Join(errs...))
	}
	return dedupeDecisions(out), nil
}

// dedupeDecisions merges decisions sharing (supplier, product code), keeping
// the first document and the union of the client references.
func dedupeDecisions(ds []domain.Decision) []domain.Decision {
	type key struct{ supplier, code string }
	pos := make(map[key]int, len(ds))
	out := make([]domain.Decision, 0, len(ds))

	for _, d := range ds {
		code := strings.TrimSpace(d.ProductCode)
		if code == "" {
			out = append(out, d)
			continue
		}
		k := key{d.Supplier, code}
		i, seen := pos[k]
		if !seen {
			pos[k] = len(out)
			out = append(out, d)
			continue
		}

		merged := out[i]
		have := make(map[string]struct{}, len(merged.Scas))
		for _, sca := range merged.Scas {
			have[sca.ClientCode] = struct{}{}
		}
		for _, sca := range d.Scas {
			if _, ok := have[sca.ClientCode]; !ok {
				merged.Scas = append(merged.Scas, sca)
			}
		}
		out[i] = merged
	}
	return out
}

// resolveReferences loads articles and clients concurrently, only when the
// raw decisions reference any.
func (r *decisionRepository) resolveReferences(ctx context.Context, raw []domain.Decision, suppliers []string) (map[string]domain.Article, *ClientRegistry) {
	productCodes, clientCodes := referencedCodes(raw)

	var (
		wg       sync.WaitGroup
		articles map[string]domain.Article
		clients  *ClientRegistry
	)
	if len(productCodes) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			articles = r.articleIndex(ctx, suppliers)
		}()
	}
	if len(clientCodes) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clients = NewClientRegistry(r.clientIndex(ctx))
		}()
	}
	wg.Wait()

	return articles, clients
}

func referencedCodes(raw []domain.Decision) (map[string]struct{}, map[string]struct{}) {
	products := make(map[string]struct{})
	clients := make(map[string]struct{})
	for _, d := range raw {
		if code := strings.TrimSpace(d.ProductCode); code != "" {
			products[code] = struct{}{}
		}
		for _, sca := range d.Scas {
			if code := strings.TrimSpace(sca.ClientCode); code != "" {
				clients[code] = struct{}{}
			}
		}
	}
	return products, clients
}

// articleIndex returns the articles visible to the supplier set, keyed by
// product code. A load failure yields an empty index.
func (r *decisionRepository) articleIndex(ctx context.Context, suppliers []string) map[string]domain.Article {
	key := cache.ArticlesKey(suppliers)
	if cached, ok, err := r.cache.Articles.Get(ctx, key); err == nil && ok {
		return cached
	} else if err != nil {
		log.Warn().Err(err).Msg("repository: articles cache read failed")
	}

	all, err := r.store.ListArticles(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("repository: articles unavailable, using decision fields")
		return map[string]domain.Article{}
	}

	allowed := make(map[string]struct{}, len(suppliers))
	for _, s := range suppliers {
		allowed[s] = struct{}{}
	}

	index := make(map[string]domain.Article, len(all))
	for _, a := range all {
		code := strings.TrimSpace(a.ProductCode)
		if code == "" {
			continue
		}
		if a.Supplier != "" {
			if _, ok := allowed[a.Supplier]; !ok {
				continue
			}
		}
		if _, exists := index[code]; !exists {
			index[code] = a
		}
	}

	if err := r.cache.Articles.Set(ctx, key, index); err != nil {
		log.Warn().Err(err).Msg("repository: articles cache write failed")
	}
	return index
}

// clientIndex returns the global client index. A load failure yields an
// empty index and every reference falls back to its raw code.
func (r *decisionRepository) clientIndex(ctx context.Context) map[string]domain.ClientInfo {
	key := cache.ClientsKey()
	if cached, ok, err := r.cache.Clients.Get(ctx, key); err == nil && ok {
		return cached
	} else if err != nil {
		log.Warn().Err(err).Msg("repository: clients cache read failed")
	}

	clients, err := r.store.ListClients(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("repository: clients unavailable")
		return map[string]domain.ClientInfo{}
	}

	index := IndexClients(clients)
	if err := r.cache.Clients.Set(ctx, key, index); err != nil {
		log.Warn().Err(err).Msg("repository: clients cache write failed")
	}
	return index
}

// enrich joins raw decisions with their reference data.
func enrich(raw []domain.Decision, wk domain.WeekRef, articles map[string]domain.Article, clients *ClientRegistry) []domain.EnrichedProduct {
	products := make([]domain.EnrichedProduct, 0, len(raw))
	for _, d := range raw {
		products = append(products, enrichOne(d, wk, articles, clients))
	}

	sort.SliceStable(products, func(i, j int) bool {
		a, b := products[i], products[j]
		if a.ProductName != b.ProductName {
			return a.ProductName < b.ProductName
		}
		if a.Supplier != b.Supplier {
			return a.Supplier < b.Supplier
		}
		return a.ProductCode < b.ProductCode
	})
	return products
}

func enrichOne(d domain.Decision, wk domain.WeekRef, articles map[string]domain.Article, clients *ClientRegistry) domain.EnrichedProduct {
	article, ok := articles[strings.TrimSpace(d.ProductCode)]
	if !ok {
		article = domain.ArticleFromDecision(d)
	}

	name := strings.TrimSpace(article.Name)
	if name == "" {
		name = strings.TrimSpace(d.Label)
	}
	if name == "" {
		name = d.ProductCode
	}

	decisions := make([]domain.ClientDecision, 0, len(d.Scas))
	for _, sca := range d.Scas {
		code := strings.TrimSpace(sca.ClientCode)
		if code == "" {
			continue
		}
		cd := domain.ClientDecision{
			ClientCode:   code,
			ClientName:   code,
			ProductCode:  d.ProductCode,
			ProductLabel: d.Label,
			PrixRetenu:   d.PrixRetenu,
			PrixOffert:   d.PrixOffert,
		}
		if info, ok := clients.Resolve(code); ok {
			cd.Client = &info
			if info.Name != "" {
				cd.ClientName = info.Name
			}
		}
		decisions = append(decisions, cd)
	}

	total := d.TotalScas
	if total <= 0 {
		total = len(decisions)
	}

	return domain.EnrichedProduct{
		ProductName: name,
		ProductCode: d.ProductCode,
		Supplier:    d.Supplier,
		Year:        wk.Year,
		Week:        wk.Week,
		PrixRetenu:  d.PrixRetenu,
		PrixOffert:  d.PrixOffert,
		IsPromo:     analytics.IsPromo(d.Promo, d.Comment),
		Article:     &article,
		Decisions:   decisions,
		TotalScas:   total,
	}
}
