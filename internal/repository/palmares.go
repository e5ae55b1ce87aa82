// backend-go/internal/repository/palmares.go
package repository

import (
	"context"
	"strings"

	"github.com/andresuchdata/scamark/backend-go/internal/domain"
	"github.com/rs/zerolog/log"
)

// maxConsecutiveSteps bounds the backward walk of the consecutive count.
const maxConsecutiveSteps = 52

// HistoryOptions narrows a palmarès lookup. A zero Year or Week targets the
// current week.
type HistoryOptions struct {
	ProductCode string
	Year        int
	Week        int
}

// GetProductHistorySinceOctober reports in which weeks since the epoch the
// product was referenced. Each week is probed by product code first and by
// label when the code finds nothing. Failed probes count as not referenced.
func (r *decisionRepository) GetProductHistorySinceOctober(ctx context.Context, productName, supplier string, opts HistoryOptions) (domain.Palmares, error) {
	suppliers, err := r.expand(supplier)
	if err != nil {
		return domain.Palmares{}, err
	}

	target := r.CurrentWeek()
	if opts.Year > 0 && opts.Week > 0 {
		if target, err = domain.NewWeekRef(opts.Year, opts.Week); err != nil {
			return domain.Palmares{}, err
		}
	}

	code := strings.TrimSpace(opts.ProductCode)
	label := strings.TrimSpace(productName)
	if code == "" && label == "" {
		return domain.Palmares{}, nil
	}

	candidates := domain.WeeksBetween(r.epoch, target)
	if len(candidates) == 0 {
		return domain.Palmares{}, nil
	}

	results := r.probeAll(ctx, jobsFor(suppliers, candidates), func(ctx context.Context, job probeJob) (bool, error) {
		return r.probeProduct(ctx, job, code, label)
	})

	referenced := make(map[domain.WeekRef]bool, len(candidates))
	failed := 0
	for _, res := range results {
		if res.err != nil {
			failed++
			continue
		}
		if res.found {
			referenced[res.week] = true
		}
	}
	if failed == len(results) {
		log.Warn().Str("product", label).Str("supplier", supplier).Msg("repository: palmares probes failed")
		return domain.Palmares{}, nil
	}

	return buildPalmares(candidates, referenced, target, r.epoch), nil
}

func (r *decisionRepository) probeProduct(ctx context.Context, job probeJob, code, label string) (bool, error) {
	if code != "" {
		ok, err := r.store.FindDecisionByCode(ctx, job.supplier, job.week, code)
		if err == nil && ok {
			return true, nil
		}
		if label == "" {
			return ok, err
		}
	}
	return r.store.FindDecisionByLabel(ctx, job.supplier, job.week, label)
}

// buildPalmares derives the counts from the referenced set of candidates.
func buildPalmares(candidates []domain.WeekRef, referenced map[domain.WeekRef]bool, target, epoch domain.WeekRef) domain.Palmares {
	p := domain.Palmares{TotalWeeks: len(candidates), ReferencedWeeks: []domain.WeekRef{}}
	for _, wk := range candidates {
		if referenced[wk] {
			p.ReferencedWeeks = append(p.ReferencedWeeks, wk)
		}
	}
	p.TotalReferences = len(p.ReferencedWeeks)
	if p.TotalWeeks > 0 {
		p.Percentage = p.TotalReferences * 100 / p.TotalWeeks
	}

	cur := target
	for step := 0; step < maxConsecutiveSteps && !cur.Before(epoch) && referenced[cur]; step++ {
		p.ConsecutiveWeeks++
		cur = cur.Previous()
	}
	return p
}
