package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/scamark/backend-go/internal/domain"
	"github.com/andresuchdata/scamark/backend-go/internal/store"
	"github.com/rs/zerolog/log"
)

// GetRuptureHistoryForProduct returns the shortage events of a product for
// the supplier filter, newest first. A product without history yields an
// empty list.
func (r *decisionRepository) GetRuptureHistoryForProduct(ctx context.Context, productCode, supplier string) ([]domain.RuptureEvent, error) {
	suppliers, err := r.expand(supplier)
	if err != nil {
		return nil, err
	}
	code := strings.TrimSpace(productCode)
	if code == "" {
		return []domain.RuptureEvent{}, nil
	}

	events, err := r.store.GetRuptureHistory(ctx, code)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn().Err(err).Str("product_code", code).Msg("repository: rupture history unavailable")
		}
		return []domain.RuptureEvent{}, nil
	}

	allowed := make(map[string]struct{}, len(suppliers))
	for _, s := range suppliers {
		allowed[s] = struct{}{}
	}
	all := domain.NormalizeSupplier(supplier) == domain.SupplierAll

	out := make([]domain.RuptureEvent, 0, len(events))
	for _, ev := range events {
		if !all {
			if _, ok := allowed[strings.ToLower(strings.TrimSpace(ev.Supplier))]; !ok {
				continue
			}
		}
		out = append(out, ev)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		return a.Week > b.Week
	})
	return out, nil
}

// GetRuptureSummaryForProduct aggregates the rupture history of a product.
func (r *decisionRepository) GetRuptureSummaryForProduct(ctx context.Context, productCode, supplier string) (domain.RuptureSummary, error) {
	events, err := r.GetRuptureHistoryForProduct(ctx, productCode, supplier)
	if err != nil {
		return domain.RuptureSummary{}, err
	}
	return SummarizeRuptures(strings.TrimSpace(productCode), domain.NormalizeSupplier(supplier), events), nil
}

// SummarizeRuptures totals events that are already sorted newest first.
func SummarizeRuptures(productCode, supplier string, events []domain.RuptureEvent) domain.RuptureSummary {
	sum := domain.RuptureSummary{
		ProductCode:   productCode,
		Supplier:      supplier,
		TotalRuptures: len(events),
		Weeks:         []domain.WeekRef{},
	}

	clients := make(map[string]struct{})
	weeks := make(map[domain.WeekRef]struct{})
	var last time.Time

	for _, ev := range events {
		if ev.Timestamp.After(last) {
			last = ev.Timestamp
		}
		if ev.Year > 0 && ev.Week > 0 {
			wk := domain.WeekRef{Year: ev.Year, Week: ev.Week}
			if _, ok := weeks[wk]; !ok {
				weeks[wk] = struct{}{}
				sum.Weeks = append(sum.Weeks, wk)
			}
		}
		for _, sca := range ev.Scas {
			sum.TotalOrdered += sca.Ordered
			sum.TotalMissing += sca.Missing
			if sca.ClientCode != "" {
				clients[sca.ClientCode] = struct{}{}
			}
		}
	}

	sum.AffectedClients = len(clients)
	if !last.IsZero() {
		sum.LastRupture = &last
	}
	return sum
}

// GetUserProfile returns nil when the profile is missing or unreadable.
func (r *decisionRepository) GetUserProfile(ctx context.Context, uid string) *domain.UserProfile {
	if strings.TrimSpace(uid) == "" {
		return nil
	}
	p, err := r.store.GetUserProfile(ctx, uid)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn().Err(err).Str("uid", uid).Msg("repository: user profile unavailable")
		}
		return nil
	}
	return p
}
