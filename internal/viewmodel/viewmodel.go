// Package viewmodel holds the selection state of a decisions screen and the
// derived views (filtering, suggestions, deltas) computed over it.
package viewmodel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/scamark/backend-go/internal/analytics"
	"github.com/andresuchdata/scamark/backend-go/internal/domain"
	"github.com/andresuchdata/scamark/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Repository is the part of the decision repository the view-model reads.
type Repository interface {
	GetAvailableWeeks(ctx context.Context, supplier string) ([]domain.AvailableWeek, error)
	GetExtendedAvailableWeeksFromWeek(ctx context.Context, supplier string, fromWeek, fromYear int) ([]domain.AvailableWeek, error)
	GetWeekDecisions(ctx context.Context, year, week int, supplier string) ([]domain.EnrichedProduct, error)
	GetWeekStats(ctx context.Context, year, week int, supplier string) (domain.WeekStats, error)
	GetProductHistorySinceOctober(ctx context.Context, productName, supplier string, opts repository.HistoryOptions) (domain.Palmares, error)
}

const DefaultSettleDelay = 300 * time.Millisecond

// Selection is the (year, week, supplier) the screen shows.
type Selection struct {
	Year     int    `json:"year"`
	Week     int    `json:"week"`
	Supplier string `json:"supplier"`
}

func (s Selection) weekRef() domain.WeekRef {
	return domain.WeekRef{Year: s.Year, Week: s.Week}
}

// State is a snapshot of the view-model. Slices are shared and must be
// treated as read-only.
type State struct {
	Selection      Selection                `json:"selection"`
	Products       []domain.EnrichedProduct `json:"products"`
	Previous       []domain.EnrichedProduct `json:"previous,omitempty"`
	AvailableWeeks []domain.AvailableWeek   `json:"available_weeks"`
	Stats          *domain.WeekStats        `json:"stats,omitempty"`
	Filter         analytics.FilterType     `json:"filter"`
	Query          string                   `json:"query"`
	Loading        bool                     `json:"loading"`
	Error          string                   `json:"error,omitempty"`
	// Generation increases on every selection change.
	Generation uint64 `json:"generation"`
}

type Options struct {
	SettleDelay time.Duration
}

type sessionKey struct {
	year, week int
	supplier   string
}

// DecisionsViewModel serializes state changes behind a mutex. Fetches run in
// the background and publish only if the selection they were issued for is
// still current.
type DecisionsViewModel struct {
	repo   Repository
	settle time.Duration

	mu          sync.Mutex
	state       State
	prefiltered []domain.EnrichedProduct
	session     map[sessionKey][]domain.EnrichedProduct
	subs        map[int]chan State
	nextSub     int

	inflight sync.WaitGroup
}

func New(repo Repository, initial Selection, opts Options) *DecisionsViewModel {
	settle := opts.SettleDelay
	if settle < 0 {
		settle = 0
	}
	initial.Supplier = domain.NormalizeSupplier(initial.Supplier)
	return &DecisionsViewModel{
		repo:    repo,
		settle:  settle,
		state:   State{Selection: initial, Filter: analytics.FilterAll, Products: []domain.EnrichedProduct{}},
		session: make(map[sessionKey][]domain.EnrichedProduct),
		subs:    make(map[int]chan State),
	}
}

// State returns the current snapshot.
func (vm *DecisionsViewModel) State() State {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.state
}

// Subscribe returns a channel receiving the latest state after each change.
// Slow readers only see the most recent state.
func (vm *DecisionsViewModel) Subscribe() (<-chan State, func()) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	id := vm.nextSub
	vm.nextSub++
	ch := make(chan State, 1)
	vm.subs[id] = ch
	return ch, func() {
		vm.mu.Lock()
		defer vm.mu.Unlock()
		if _, ok := vm.subs[id]; ok {
			delete(vm.subs, id)
			close(ch)
		}
	}
}

// Wait blocks until background fetches have finished.
func (vm *DecisionsViewModel) Wait() {
	vm.inflight.Wait()
}

// publishLocked notifies subscribers. vm.mu must be held.
func (vm *DecisionsViewModel) publishLocked() {
	for _, ch := range vm.subs {
		select {
		case <-ch:
		default:
		}
		ch <- vm.state
	}
}

// SelectSupplier switches supplier. Products and the previous-week snapshot
// are cleared at once so that the other supplier's data is never shown.
func (vm *DecisionsViewModel) SelectSupplier(ctx context.Context, supplier string) {
	supplier = domain.NormalizeSupplier(supplier)

	vm.mu.Lock()
	if supplier == vm.state.Selection.Supplier {
		vm.mu.Unlock()
		return
	}
	vm.state.Selection.Supplier = supplier
	sel, gen := vm.beginLocked()
	vm.mu.Unlock()

	vm.run(func() { vm.loadSelection(ctx, sel, gen, true) })
}

// SelectWeek switches week. A week already loaded in this session is shown
// without a repository call.
func (vm *DecisionsViewModel) SelectWeek(ctx context.Context, year, week int) {
	vm.mu.Lock()
	vm.state.Selection.Year = year
	vm.state.Selection.Week = week
	sel := vm.state.Selection
	if products, ok := vm.session[keyOf(sel)]; ok {
		gen := vm.bumpLocked()
		vm.state.Products = products
		vm.state.Previous = nil
		vm.state.Stats = nil
		vm.state.Loading = false
		vm.state.Error = ""
		vm.publishLocked()
		vm.mu.Unlock()

		vm.run(func() {
			vm.loadStats(ctx, sel, gen)
			vm.loadPrevious(ctx, sel, gen)
		})
		return
	}
	sel, gen := vm.beginLocked()
	vm.mu.Unlock()

	vm.run(func() { vm.loadSelection(ctx, sel, gen, false) })
}

// Refresh reloads the current selection and its available weeks, bypassing
// the session cache.
func (vm *DecisionsViewModel) Refresh(ctx context.Context) {
	vm.mu.Lock()
	delete(vm.session, keyOf(vm.state.Selection))
	sel, gen := vm.beginLocked()
	vm.mu.Unlock()

	vm.run(func() { vm.loadSelection(ctx, sel, gen, true) })
}

func (vm *DecisionsViewModel) bumpLocked() uint64 {
	vm.state.Generation++
	return vm.state.Generation
}

// beginLocked starts a load of the current selection. vm.mu must be held.
func (vm *DecisionsViewModel) beginLocked() (Selection, uint64) {
	gen := vm.bumpLocked()
	vm.state.Products = []domain.EnrichedProduct{}
	vm.state.Previous = nil
	vm.state.Stats = nil
	vm.state.Loading = true
	vm.state.Error = ""
	vm.publishLocked()
	return vm.state.Selection, gen
}

func (vm *DecisionsViewModel) run(fn func()) {
	vm.inflight.Add(1)
	go func() {
		defer vm.inflight.Done()
		fn()
	}()
}

func keyOf(s Selection) sessionKey {
	return sessionKey{year: s.Year, week: s.Week, supplier: s.Supplier}
}

// loadSelection fetches the decisions (and the available weeks when asked)
// of sel, publishes them together, then loads the previous week.
func (vm *DecisionsViewModel) loadSelection(ctx context.Context, sel Selection, gen uint64, withWeeks bool) {
	var (
		products []domain.EnrichedProduct
		weeks    []domain.AvailableWeek
		stats    domain.WeekStats
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = vm.repo.GetWeekDecisions(gctx, sel.Year, sel.Week, sel.Supplier)
		if err != nil {
			return fmt.Errorf("load decisions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		stats, err = vm.repo.GetWeekStats(gctx, sel.Year, sel.Week, sel.Supplier)
		if err != nil {
			return fmt.Errorf("load stats: %w", err)
		}
		return nil
	})
	if withWeeks {
		g.Go(func() error {
			var err error
			weeks, err = vm.repo.GetAvailableWeeks(gctx, sel.Supplier)
			if err != nil {
				return fmt.Errorf("load weeks: %w", err)
			}
			return nil
		})
	}
	err := g.Wait()

	vm.mu.Lock()
	if vm.state.Generation != gen {
		vm.mu.Unlock()
		log.Debug().Uint64("generation", gen).Msg("viewmodel: discarded stale result")
		return
	}
	if err != nil {
		vm.state.Error = userMessage(err)
		vm.publishLocked()
		vm.mu.Unlock()
		vm.settleLoading(gen)
		return
	}

	if products == nil {
		products = []domain.EnrichedProduct{}
	}
	vm.state.Products = products
	vm.state.Stats = &stats
	if withWeeks {
		vm.state.AvailableWeeks = weeks
	}
	vm.session[keyOf(sel)] = products
	vm.publishLocked()
	vm.mu.Unlock()

	// the previous week only feeds the deltas; loading can settle before it
	vm.run(func() { vm.loadPrevious(ctx, sel, gen) })
	vm.settleLoading(gen)
}

func (vm *DecisionsViewModel) loadStats(ctx context.Context, sel Selection, gen uint64) {
	stats, err := vm.repo.GetWeekStats(ctx, sel.Year, sel.Week, sel.Supplier)

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.state.Generation != gen {
		return
	}
	if err != nil {
		vm.state.Error = userMessage(err)
	} else {
		vm.state.Stats = &stats
	}
	vm.publishLocked()
}

// loadPrevious fetches the week before sel for the entrant/sortant deltas.
func (vm *DecisionsViewModel) loadPrevious(ctx context.Context, sel Selection, gen uint64) {
	prev := sel.weekRef().Previous()
	key := sessionKey{year: prev.Year, week: prev.Week, supplier: sel.Supplier}

	vm.mu.Lock()
	cached, ok := vm.session[key]
	vm.mu.Unlock()

	if !ok {
		products, err := vm.repo.GetWeekDecisions(ctx, prev.Year, prev.Week, sel.Supplier)
		if err != nil {
			log.Warn().Err(err).Str("week", prev.String()).Msg("viewmodel: previous week unavailable")
			return
		}
		cached = products
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.session[key] = cached
	if vm.state.Generation != gen {
		return
	}
	vm.state.Previous = cached
	vm.publishLocked()
}

func (vm *DecisionsViewModel) settleLoading(gen uint64) {
	if vm.settle > 0 {
		time.Sleep(vm.settle)
	}
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.state.Generation != gen {
		return
	}
	vm.state.Loading = false
	vm.publishLocked()
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidSupplier):
		return "Fournisseur inconnu"
	case errors.Is(err, domain.ErrInvalidWeek):
		return "Semaine invalide"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Chargement interrompu"
	default:
		return "Erreur lors du chargement des décisions"
	}
}

// AcknowledgeError clears the displayed error.
func (vm *DecisionsViewModel) AcknowledgeError() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.state.Error == "" {
		return
	}
	vm.state.Error = ""
	vm.publishLocked()
}
