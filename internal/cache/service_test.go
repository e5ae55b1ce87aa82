package cache

import (
	"context"
	"testing"
	"time"

	"github.com/andresuchdata/scamark/backend-go/internal/domain"
)

func newTestService(t *testing.T) (*Service, *ManualClock, *MemoryBackend) {
	t.Helper()
	clock := NewManualClock(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC))
	backend := NewMemoryBackend(clock)
	return NewService(backend, DefaultTTLPolicy()), clock, backend
}

func TestCategoryExpiresLazily(t *testing.T) {
	ctx := context.Background()
	svc, clock, backend := newTestService(t)
	wk := domain.WeekRef{Year: 2024, Week: 10}

	stats := domain.WeekStats{Year: 2024, Week: 10, Supplier: "anecoop", TotalProducts: 3}
	if err := svc.Stats.Set(ctx, StatsKey("anecoop", wk), stats); err != nil {
		t.Fatalf("set stats: %v", err)
	}

	clock.Advance(119 * time.Second)
	got, ok, err := svc.Stats.Get(ctx, StatsKey("anecoop", wk))
	if err != nil || !ok {
		t.Fatalf("expected hit before ttl, got ok=%v err=%v", ok, err)
	}
	if got != stats {
		t.Errorf("unexpected stats: %+v", got)
	}

	clock.Advance(time.Second)
	if backend.Len() != 1 {
		t.Fatalf("expected entry to stay until accessed, have %d", backend.Len())
	}
	if _, ok, _ := svc.Stats.Get(ctx, StatsKey("anecoop", wk)); ok {
		t.Fatal("expected miss once the stats ttl elapsed")
	}
	if backend.Len() != 0 {
		t.Errorf("expected expired entry to be evicted on access, have %d", backend.Len())
	}
}

func TestCategoriesHaveIndependentTTLs(t *testing.T) {
	ctx := context.Background()
	svc, clock, _ := newTestService(t)
	wk := domain.WeekRef{Year: 2024, Week: 10}

	_ = svc.Decisions.Set(ctx, DecisionsKey("anecoop", wk), []domain.EnrichedProduct{{ProductName: "Tomato"}})
	_ = svc.Stats.Set(ctx, StatsKey("anecoop", wk), domain.WeekStats{TotalProducts: 1})
	_ = svc.Clients.Set(ctx, ClientsKey(), map[string]domain.ClientInfo{"CL1": {ID: "CL1"}})

	clock.Advance(3 * time.Minute)
	if _, ok, _ := svc.Stats.Get(ctx, StatsKey("anecoop", wk)); ok {
		t.Error("stats should expire after 2 minutes")
	}
	if _, ok, _ := svc.Decisions.Get(ctx, DecisionsKey("anecoop", wk)); !ok {
		t.Error("decisions should live 5 minutes")
	}

	clock.Advance(3 * time.Minute)
	if _, ok, _ := svc.Decisions.Get(ctx, DecisionsKey("anecoop", wk)); ok {
		t.Error("decisions should expire after 5 minutes")
	}
	if _, ok, _ := svc.Clients.Get(ctx, ClientsKey()); !ok {
		t.Error("reference data should live 30 minutes")
	}
}

func TestKeysCarrySupplierFilter(t *testing.T) {
	wk := domain.WeekRef{Year: 2024, Week: 2}
	if DecisionsKey("anecoop", wk) == DecisionsKey("solagora", wk) {
		t.Fatal("decision keys must differ per supplier")
	}
	if DecisionsKey("", wk) != DecisionsKey("all", wk) {
		t.Error("empty supplier should key as all")
	}
	if ArticlesKey([]string{"solagora", "anecoop"}) != "anecoop,solagora" {
		t.Errorf("articles key should be the sorted supplier set, got %q", ArticlesKey([]string{"solagora", "anecoop"}))
	}
}

func TestClearSupplierKeepsOtherSuppliers(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	wk := domain.WeekRef{Year: 2024, Week: 2}

	_ = svc.Decisions.Set(ctx, DecisionsKey("anecoop", wk), []domain.EnrichedProduct{{ProductName: "A"}})
	_ = svc.Decisions.Set(ctx, DecisionsKey("solagora", wk), []domain.EnrichedProduct{{ProductName: "S"}})
	_ = svc.Decisions.Set(ctx, DecisionsKey("all", wk), []domain.EnrichedProduct{{ProductName: "A"}, {ProductName: "S"}})
	_ = svc.Weeks.Set(ctx, WeeksKey("anecoop"), []domain.AvailableWeek{{Year: 2024, Week: 2, Supplier: "anecoop"}})
	_ = svc.Articles.Set(ctx, ArticlesKey([]string{"anecoop", "solagora"}), map[string]domain.Article{})

	if err := svc.ClearSupplier(ctx, "anecoop"); err != nil {
		t.Fatalf("clear supplier: %v", err)
	}

	if _, ok, _ := svc.Decisions.Get(ctx, DecisionsKey("anecoop", wk)); ok {
		t.Error("anecoop decisions should be cleared")
	}
	if _, ok, _ := svc.Decisions.Get(ctx, DecisionsKey("all", wk)); ok {
		t.Error("all-supplier decisions include anecoop and should be cleared")
	}
	if _, ok, _ := svc.Weeks.Get(ctx, WeeksKey("anecoop")); ok {
		t.Error("anecoop weeks should be cleared")
	}
	if _, ok, _ := svc.Articles.Get(ctx, ArticlesKey([]string{"anecoop", "solagora"})); ok {
		t.Error("article index containing anecoop should be cleared")
	}
	if _, ok, _ := svc.Decisions.Get(ctx, DecisionsKey("solagora", wk)); !ok {
		t.Error("solagora decisions should survive")
	}

	if err := svc.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := svc.Decisions.Get(ctx, DecisionsKey("solagora", wk)); ok {
		t.Error("clear should drop everything")
	}
}
