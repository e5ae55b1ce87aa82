package analytics

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/andresuchdata/scamark/backend-go/internal/domain"
)

type SuggestionKind string

const (
	SuggestClient  SuggestionKind = "client"
	SuggestBrand   SuggestionKind = "brand"
	SuggestProduct SuggestionKind = "product"
)

const (
	maxClientSuggestions  = 3
	maxBrandSuggestions   = 2
	maxProductSuggestions = 3
	maxSuggestions        = 8
)

type Suggestion struct {
	Text  string         `json:"text"`
	Kind  SuggestionKind `json:"kind"`
	Count int            `json:"count"`
}

// Suggestions scans the loaded products once. Clients come first, ranked by
// occurrences, then brands by occurrences, then product names in order.
func Suggestions(products []domain.EnrichedProduct, query string) []Suggestion {
	q := strings.ToLower(strings.TrimSpace(query))
	if utf8.RuneCountInString(q) < 2 {
		return nil
	}

	clientCounts := make(map[string]int)
	brandCounts := make(map[string]int)
	var productNames []string
	seenProducts := make(map[string]struct{})

	for _, p := range products {
		for _, cd := range p.Decisions {
			if cd.ClientName != "" && strings.Contains(strings.ToLower(cd.ClientName), q) {
				clientCounts[cd.ClientName]++
			}
		}
		if p.Article != nil && p.Article.Brand != "" && strings.Contains(strings.ToLower(p.Article.Brand), q) {
			brandCounts[p.Article.Brand]++
		}
		if strings.Contains(strings.ToLower(p.ProductName), q) {
			if _, ok := seenProducts[p.ProductName]; !ok {
				seenProducts[p.ProductName] = struct{}{}
				productNames = append(productNames, p.ProductName)
			}
		}
	}

	out := make([]Suggestion, 0, maxSuggestions)
	out = append(out, topByCount(clientCounts, SuggestClient, maxClientSuggestions)...)
	out = append(out, topByCount(brandCounts, SuggestBrand, maxBrandSuggestions)...)
	for i, name := range productNames {
		if i == maxProductSuggestions {
			break
		}
		out = append(out, Suggestion{Text: name, Kind: SuggestProduct, Count: 1})
	}

	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

func topByCount(counts map[string]int, kind SuggestionKind, limit int) []Suggestion {
	list := make([]Suggestion, 0, len(counts))
	for text, n := range counts {
		list = append(list, Suggestion{Text: text, Kind: kind, Count: n})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Count != list[j].Count {
			return list[i].Count > list[j].Count
		}
		return list[i].Text < list[j].Text
	})
	if len(list) > limit {
		list = list[:limit]
	}
	return list
}
