// backend-go/internal/repository/availability.go
package repository

import (
	"context"
	"sort"

	"github.com/andresuchdata/scamark/backend-go/internal/cache"
	"github.com/andresuchdata/scamark/backend-go/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type probeJob struct {
	supplier string
	week     domain.WeekRef
}

type probeResult struct {
	probeJob
	found bool
	err   error
}

// probeAll runs one existence probe per job, at most probeLimit at a time.
// A failed probe counts as not found and keeps its error for the caller.
func (r *decisionRepository) probeAll(ctx context.Context, jobs []probeJob, probe func(context.Context, probeJob) (bool, error)) []probeResult {
	results := make([]probeResult, len(jobs))

	var g errgroup.Group
	g.SetLimit(r.probeLimit)
	for i, job := range jobs {
		g.Go(func() error {
			res := probeResult{probeJob: job}
			if err := ctx.Err(); err != nil {
				res.err = err
			} else {
				res.found, res.err = probe(ctx, job)
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *decisionRepository) hasDecisions(ctx context.Context, job probeJob) (bool, error) {
	return r.store.HasDecisions(ctx, job.supplier, job.week)
}

// candidateRange lists the weeks of year worth probing: the whole year, or
// up to one week ahead of now for the current year.
func (r *decisionRepository) candidateRange(year int) []domain.WeekRef {
	now := r.CurrentWeek()
	last := domain.WeeksPerYear
	switch {
	case year > now.Year:
		return nil
	case year == now.Year:
		last = min(now.Week+1, max(now.Week, domain.WeeksPerYear))
	}

	weeks := make([]domain.WeekRef, 0, last)
	for w := 1; w <= last; w++ {
		weeks = append(weeks, domain.WeekRef{Year: year, Week: w})
	}
	return weeks
}

func jobsFor(suppliers []string, weeks []domain.WeekRef) []probeJob {
	jobs := make([]probeJob, 0, len(suppliers)*len(weeks))
	for _, s := range suppliers {
		for _, wk := range weeks {
			jobs = append(jobs, probeJob{supplier: s, week: wk})
		}
	}
	return jobs
}

// collectAvailable returns the found weeks sorted newest first and whether
// every probe failed.
func collectAvailable(results []probeResult) ([]domain.AvailableWeek, bool) {
	out := make([]domain.AvailableWeek, 0)
	failed := 0
	for _, res := range results {
		if res.err != nil {
			failed++
			continue
		}
		if res.found {
			out = append(out, domain.AvailableWeek{Year: res.week.Year, Week: res.week.Week, Supplier: res.supplier})
		}
	}
	sortAvailable(out)
	return out, len(results) > 0 && failed == len(results)
}

func sortAvailable(weeks []domain.AvailableWeek) {
	sort.Slice(weeks, func(i, j int) bool {
		a, b := weeks[i], weeks[j]
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		if a.Week != b.Week {
			return a.Week > b.Week
		}
		return a.Supplier < b.Supplier
	})
}

// GetAvailableWeeks probes the current year up to next week. When every
// probe fails it returns the current week for each supplier so callers
// always have a week to show.
func (r *decisionRepository) GetAvailableWeeks(ctx context.Context, supplier string) ([]domain.AvailableWeek, error) {
	suppliers, err := r.expand(supplier)
	if err != nil {
		return nil, err
	}

	key := cache.WeeksKey(supplier)
	if cached, ok, err := r.cache.Weeks.Get(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("repository: weeks cache read failed")
	} else if ok {
		return cached, nil
	}

	now := r.CurrentWeek()
	results := r.probeAll(ctx, jobsFor(suppliers, r.candidateRange(now.Year)), r.hasDecisions)
	weeks, allFailed := collectAvailable(results)
	if allFailed {
		log.Warn().Str("supplier", supplier).Msg("repository: availability probes failed, falling back to current week")
		fallback := make([]domain.AvailableWeek, 0, len(suppliers))
		for _, s := range suppliers {
			fallback = append(fallback, domain.AvailableWeek{Year: now.Year, Week: now.Week, Supplier: s})
		}
		return fallback, nil
	}

	if err := r.cache.Weeks.Set(ctx, key, weeks); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("repository: weeks cache write failed")
	}
	return weeks, nil
}

// GetAvailableWeeksForYear probes every week of year. A year without data
// yields an empty list.
func (r *decisionRepository) GetAvailableWeeksForYear(ctx context.Context, supplier string, year int) ([]domain.AvailableWeek, error) {
	suppliers, err := r.expand(supplier)
	if err != nil {
		return nil, err
	}
	if _, err := domain.NewWeekRef(year, 1); err != nil {
		return nil, err
	}

	key := cache.YearWeeksKey(supplier, year)
	if cached, ok, err := r.cache.Weeks.Get(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("repository: weeks cache read failed")
	} else if ok {
		return cached, nil
	}

	results := r.probeAll(ctx, jobsFor(suppliers, r.candidateRange(year)), r.hasDecisions)
	weeks, allFailed := collectAvailable(results)
	if allFailed {
		log.Warn().Str("supplier", supplier).Int("year", year).Msg("repository: year availability probes failed")
		return weeks, nil
	}

	if err := r.cache.Weeks.Set(ctx, key, weeks); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("repository: weeks cache write failed")
	}
	return weeks, nil
}

// GetExtendedAvailableWeeksFromWeek scans backward from fromWeek, exclusive,
// within fromYear. Only the current year can be extended; other years yield
// an empty list.
func (r *decisionRepository) GetExtendedAvailableWeeksFromWeek(ctx context.Context, supplier string, fromWeek, fromYear int) ([]domain.AvailableWeek, error) {
	suppliers, err := r.expand(supplier)
	if err != nil {
		return nil, err
	}
	if _, err := domain.NewWeekRef(fromYear, fromWeek); err != nil {
		return nil, err
	}
	if fromYear != r.CurrentWeek().Year || fromWeek <= 1 {
		return []domain.AvailableWeek{}, nil
	}

	found := make([][]domain.AvailableWeek, len(suppliers))
	var g errgroup.Group
	for i, s := range suppliers {
		g.Go(func() error {
			found[i] = r.scanBackward(ctx, s, fromWeek, fromYear)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.AvailableWeek, 0)
	for _, weeks := range found {
		out = append(out, weeks...)
	}
	sortAvailable(out)
	return out, nil
}

// scanBackward probes one supplier's weeks sequentially under the scan policy.
func (r *decisionRepository) scanBackward(ctx context.Context, supplier string, fromWeek, year int) []domain.AvailableWeek {
	var found []domain.AvailableWeek
	w := fromWeek - 1

	for w >= 1 {
		batchHits, consecutiveEmpty := 0, 0
		for i := 0; i < r.scan.BatchSize && w >= 1; i++ {
			wk := domain.WeekRef{Year: year, Week: w}
			w--

			ok, err := r.store.HasDecisions(ctx, supplier, wk)
			if err != nil {
				log.Debug().Err(err).Str("supplier", supplier).Str("week", wk.String()).Msg("repository: scan probe failed")
				ok = false
			}
			if ok {
				found = append(found, domain.AvailableWeek{Year: wk.Year, Week: wk.Week, Supplier: supplier})
				batchHits++
				consecutiveEmpty = 0
				continue
			}

			consecutiveEmpty++
			if r.scan.StopScan(consecutiveEmpty, len(found)) {
				return found
			}
			if r.scan.StopBatch(consecutiveEmpty) {
				break
			}
		}
		if r.scan.StopAfterBatch(batchHits, len(found)) {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	return found
}

// CheckWeekAvailability probes one week without touching the caches.
func (r *decisionRepository) CheckWeekAvailability(ctx context.Context, supplier string, week, year int) (bool, error) {
	suppliers, err := r.expand(supplier)
	if err != nil {
		return false, err
	}
	wk, err := domain.NewWeekRef(year, week)
	if err != nil {
		return false, err
	}

	for _, s := range suppliers {
		ok, err := r.store.HasDecisions(ctx, s, wk)
		if err != nil {
			log.Debug().Err(err).Str("supplier", s).Str("week", wk.String()).Msg("repository: availability check failed")
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
