package viewmodel

import (
	"context"
	"sort"

	"github.com/andresuchdata/scamark/backend-go/internal/analytics"
	"github.com/andresuchdata/scamark/backend-go/internal/domain"
	"github.com/andresuchdata/scamark/backend-go/internal/repository"
)

func (vm *DecisionsViewModel) SetFilter(f analytics.FilterType) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.state.Filter = f
	vm.prefiltered = nil
	vm.publishLocked()
}

func (vm *DecisionsViewModel) SetQuery(q string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.state.Query = q
	vm.publishLocked()
}

// SetPrefiltered hands over an entrants or sortants list computed elsewhere.
// It is used as-is by FilteredProducts until the filter changes.
func (vm *DecisionsViewModel) SetPrefiltered(f analytics.FilterType, products []domain.EnrichedProduct) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.state.Filter = f
	vm.prefiltered = products
	if vm.prefiltered == nil {
		vm.prefiltered = []domain.EnrichedProduct{}
	}
	vm.publishLocked()
}

// FilteredProducts applies the active filter and query to the loaded products.
func (vm *DecisionsViewModel) FilteredProducts() []domain.EnrichedProduct {
	vm.mu.Lock()
	products := vm.state.Products
	in := analytics.FilterInput{
		Type:        vm.state.Filter,
		Query:       vm.state.Query,
		Previous:    vm.state.Previous,
		Prefiltered: vm.prefiltered,
	}
	vm.mu.Unlock()

	return analytics.FilterProducts(products, in)
}

func (vm *DecisionsViewModel) Suggestions(query string) []analytics.Suggestion {
	vm.mu.Lock()
	products := vm.state.Products
	vm.mu.Unlock()
	return analytics.Suggestions(products, query)
}

// ProductStatus classifies a product against the previous-week snapshot.
func (vm *DecisionsViewModel) ProductStatus(productName string) analytics.ProductStatus {
	vm.mu.Lock()
	products, previous := vm.state.Products, vm.state.Previous
	vm.mu.Unlock()
	return analytics.Status(productName, products, previous)
}

// LoadPalmares computes the history of a product up to the selected week.
func (vm *DecisionsViewModel) LoadPalmares(ctx context.Context, p domain.EnrichedProduct) (domain.Palmares, error) {
	vm.mu.Lock()
	sel := vm.state.Selection
	vm.mu.Unlock()

	supplier := sel.Supplier
	if p.Supplier != "" {
		supplier = p.Supplier
	}
	return vm.repo.GetProductHistorySinceOctober(ctx, p.ProductName, supplier, repository.HistoryOptions{
		ProductCode: p.ProductCode,
		Year:        sel.Year,
		Week:        sel.Week,
	})
}

// LoadMoreWeeks extends the available weeks backward from the oldest one
// known in the current year and returns how many were added.
func (vm *DecisionsViewModel) LoadMoreWeeks(ctx context.Context) (int, error) {
	vm.mu.Lock()
	sel := vm.state.Selection
	known := vm.state.AvailableWeeks
	gen := vm.state.Generation
	vm.mu.Unlock()

	oldest, ok := oldestInYear(known, sel.Year)
	if !ok {
		return 0, nil
	}

	more, err := vm.repo.GetExtendedAvailableWeeksFromWeek(ctx, sel.Supplier, oldest.Week, oldest.Year)
	if err != nil {
		return 0, err
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.state.Generation != gen {
		return 0, nil
	}

	seen := make(map[domain.AvailableWeek]struct{}, len(vm.state.AvailableWeeks))
	merged := append([]domain.AvailableWeek(nil), vm.state.AvailableWeeks...)
	for _, w := range merged {
		seen[w] = struct{}{}
	}
	added := 0
	for _, w := range more {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		merged = append(merged, w)
		added++
	}
	sort.Slice(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		if a.Week != b.Week {
			return a.Week > b.Week
		}
		return a.Supplier < b.Supplier
	})
	vm.state.AvailableWeeks = merged
	if added > 0 {
		vm.publishLocked()
	}
	return added, nil
}

func oldestInYear(weeks []domain.AvailableWeek, year int) (domain.AvailableWeek, bool) {
	var (
		oldest domain.AvailableWeek
		found  bool
	)
	for _, w := range weeks {
		if w.Year != year {
			continue
		}
		if !found || w.Week < oldest.Week {
			oldest, found = w, true
		}
	}
	return oldest, found
}
