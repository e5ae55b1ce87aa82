package analytics

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/andresuchdata/scamark/backend-go/internal/domain"
)

type FilterType string

const (
	FilterAll      FilterType = "all"
	FilterPromo    FilterType = "promo"
	FilterEntrants FilterType = "entrants"
	FilterSortants FilterType = "sortants"
)

// ParseFilterType maps unknown values to FilterAll.
func ParseFilterType(s string) FilterType {
	switch FilterType(strings.ToLower(strings.TrimSpace(s))) {
	case FilterPromo:
		return FilterPromo
	case FilterEntrants:
		return FilterEntrants
	case FilterSortants:
		return FilterSortants
	default:
		return FilterAll
	}
}

// FilterInput drives FilterProducts.
type FilterInput struct {
	Type  FilterType
	Query string
	// Previous is the previous-week snapshot; nil when it is not known.
	Previous []domain.EnrichedProduct
	// Prefiltered is an entrants/sortants list already computed by the
	// caller. When set it is used as-is for those filter types.
	Prefiltered []domain.EnrichedProduct
}

// FilterProducts applies the type filter then the free-text query.
func FilterProducts(products []domain.EnrichedProduct, in FilterInput) []domain.EnrichedProduct {
	filtered := applyType(products, in)

	query := strings.TrimSpace(in.Query)
	if query == "" {
		return filtered
	}

	if isClientQuery(query) && anyClientMatches(filtered, query) {
		return clientSearch(filtered, query)
	}

	tokens := Tokenize(query)
	out := make([]domain.EnrichedProduct, 0, len(filtered))
	for _, p := range filtered {
		if MatchesTokens(p, tokens) {
			out = append(out, p)
		}
	}
	return out
}

func applyType(products []domain.EnrichedProduct, in FilterInput) []domain.EnrichedProduct {
	switch in.Type {
	case FilterPromo:
		out := make([]domain.EnrichedProduct, 0, len(products))
		for _, p := range products {
			if p.IsPromo {
				out = append(out, p)
			}
		}
		return out
	case FilterEntrants:
		if in.Prefiltered != nil {
			return in.Prefiltered
		}
		if in.Previous == nil {
			return []domain.EnrichedProduct{}
		}
		return Entrants(products, in.Previous)
	case FilterSortants:
		if in.Prefiltered != nil {
			return in.Prefiltered
		}
		if in.Previous == nil {
			return []domain.EnrichedProduct{}
		}
		return Sortants(products, in.Previous)
	default:
		return products
	}
}

func isClientQuery(query string) bool {
	return !strings.ContainsFunc(query, unicode.IsSpace) && utf8.RuneCountInString(query) >= 2
}

func clientMatches(cd domain.ClientDecision, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(cd.ClientName), lowerQuery) ||
		strings.Contains(strings.ToLower(cd.ClientCode), lowerQuery)
}

func anyClientMatches(products []domain.EnrichedProduct, query string) bool {
	lower := strings.ToLower(query)
	for _, p := range products {
		for _, cd := range p.Decisions {
			if clientMatches(cd, lower) {
				return true
			}
		}
	}
	return false
}

// clientSearch keeps the products allocated to a matching client and prunes
// each product's client list to the matching entries.
func clientSearch(products []domain.EnrichedProduct, query string) []domain.EnrichedProduct {
	lower := strings.ToLower(query)
	out := make([]domain.EnrichedProduct, 0)
	for _, p := range products {
		var kept []domain.ClientDecision
		for _, cd := range p.Decisions {
			if clientMatches(cd, lower) {
				kept = append(kept, cd)
			}
		}
		if len(kept) > 0 {
			out = append(out, p.WithDecisions(kept))
		}
	}
	return out
}

// Tokenize lower-cases a query and splits it on whitespace.
func Tokenize(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// MatchesTokens requires every token to match the product name or one of
// its article fields.
func MatchesTokens(p domain.EnrichedProduct, tokens []string) bool {
	for _, tok := range tokens {
		if !matchesToken(p, tok) {
			return false
		}
	}
	return true
}

func matchesToken(p domain.EnrichedProduct, tok string) bool {
	if containsOrWordPrefix(p.ProductName, tok) {
		return true
	}
	a := p.Article
	if a == nil {
		return false
	}
	if containsOrWordPrefix(a.Name, tok) || containsOrWordPrefix(a.Brand, tok) {
		return true
	}
	for _, field := range []string{a.Origin, a.Category, a.ProductCode, a.EAN} {
		if strings.Contains(strings.ToLower(field), tok) {
			return true
		}
	}
	return false
}

func containsOrWordPrefix(text, tok string) bool {
	lower := strings.ToLower(text)
	if strings.Contains(lower, tok) {
		return true
	}
	for _, word := range strings.FieldsFunc(lower, isWordSeparator) {
		if strings.HasPrefix(word, tok) {
			return true
		}
	}
	return false
}

func isWordSeparator(r rune) bool {
	return unicode.IsSpace(r) || r == '-' || r == '/' || r == ',' || r == '(' || r == ')'
}
