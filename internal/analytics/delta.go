// Package analytics derives week-over-week deltas, search results and
// suggestions from enriched product snapshots. Every function is pure.
package analytics

import (
	"strings"

	"github.com/andresuchdata/scamark/backend-go/internal/domain"
)

var promoKeywords = []string{"promo", "promotion", "solde", "remise", "offre", "spécial"}

// IsPromo reports a promotion: the explicit flag, or a promotion keyword in the comment.
func IsPromo(flag bool, comment string) bool {
	if flag {
		return true
	}
	lower := strings.ToLower(comment)
	for _, kw := range promoKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ProductNames is the set of product names of a snapshot.
func ProductNames(products []domain.EnrichedProduct) map[string]struct{} {
	names := make(map[string]struct{}, len(products))
	for _, p := range products {
		names[p.ProductName] = struct{}{}
	}
	return names
}

// Entrants are the products of current whose name is absent from previous.
func Entrants(current, previous []domain.EnrichedProduct) []domain.EnrichedProduct {
	return difference(current, previous)
}

// Sortants are the products of previous whose name is absent from current.
func Sortants(current, previous []domain.EnrichedProduct) []domain.EnrichedProduct {
	return difference(previous, current)
}

func difference(a, b []domain.EnrichedProduct) []domain.EnrichedProduct {
	exclude := ProductNames(b)
	seen := make(map[string]struct{}, len(a))
	out := make([]domain.EnrichedProduct, 0)
	for _, p := range a {
		if _, ok := exclude[p.ProductName]; ok {
			continue
		}
		if _, dup := seen[p.ProductName]; dup {
			continue
		}
		seen[p.ProductName] = struct{}{}
		out = append(out, p)
	}
	return out
}

// DeltaCounts returns the number of entrants and sortants between two snapshots.
func DeltaCounts(current, previous []domain.EnrichedProduct) (in, out int) {
	cur := ProductNames(current)
	prev := ProductNames(previous)
	for name := range cur {
		if _, ok := prev[name]; !ok {
			in++
		}
	}
	for name := range prev {
		if _, ok := cur[name]; !ok {
			out++
		}
	}
	return in, out
}

// ProductStatus classifies a product against the previous week.
type ProductStatus string

const (
	StatusEntrant ProductStatus = "ENTRANT"
	StatusSortant ProductStatus = "SORTANT"
	StatusNeutral ProductStatus = "NEUTRAL"
)

// Status is NEUTRAL whenever no previous snapshot is held (previous == nil).
func Status(name string, current, previous []domain.EnrichedProduct) ProductStatus {
	if previous == nil {
		return StatusNeutral
	}
	_, inCurrent := ProductNames(current)[name]
	_, inPrevious := ProductNames(previous)[name]
	switch {
	case inCurrent && !inPrevious:
		return StatusEntrant
	case !inCurrent && inPrevious:
		return StatusSortant
	default:
		return StatusNeutral
	}
}
