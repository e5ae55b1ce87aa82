package repository

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/andresuchdata/scamark/backend-go/internal/cache"
	"github.com/andresuchdata/scamark/backend-go/internal/domain"
	"github.com/andresuchdata/scamark/backend-go/internal/store/memstore"
)

// 2025-03-12 falls in ISO week 11 of 2025.
var fixedNow = time.Date(2025, time.March, 12, 10, 0, 0, 0, time.UTC)

var (
	week11 = domain.WeekRef{Year: 2025, Week: 11}
	week10 = domain.WeekRef{Year: 2025, Week: 10}
)

type fixture struct {
	store *memstore.Store
	clock *cache.ManualClock
	repo  DecisionRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	clock := cache.NewManualClock(fixedNow)
	repo := NewDecisionRepository(st, cache.NewInMemory(clock, cache.DefaultTTLPolicy()), Options{
		Suppliers: domain.DefaultSuppliers,
		Clock:     clock,
	})
	return &fixture{store: st, clock: clock, repo: repo}
}

func decision(supplier string, wk domain.WeekRef, code, label string, clients ...string) domain.Decision {
	d := domain.Decision{
		Supplier:    supplier,
		Year:        wk.Year,
		Week:        wk.Week,
		ProductCode: code,
		Label:       label,
		PrixRetenu:  1.25,
		PrixOffert:  1.10,
	}
	for _, c := range clients {
		d.Scas = append(d.Scas, domain.ScaReference{ClientCode: c})
	}
	return d
}

func productNames(ps []domain.EnrichedProduct) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ProductName
	}
	return out
}

func TestGetWeekDecisionsEmptyWeek(t *testing.T) {
	f := newFixture(t)

	got, err := f.repo.GetWeekDecisions(context.Background(), 2025, 3, domain.SupplierAnecoop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected an empty list, got %v", got)
	}
}

func TestGetWeekDecisionsEnrichesAndSorts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	foo := decision(domain.SupplierAnecoop, week11, "P1", "Bar", "CL123-X", "ZZ9")
	foo.TotalScas = 7
	promo := decision(domain.SupplierAnecoop, week11, "P2", "Apple", "CL123")
	promo.Comment = "Remise fin de saison"
	f.store.AddDecisions(foo, promo, decision(domain.SupplierAnecoop, week11, "P3", "Cherry", "CL123", "CL900"))
	f.store.SetArticles(domain.Article{ProductCode: "P1", Name: "Foo", Brand: "Marque", Supplier: domain.SupplierAnecoop})
	f.store.SetClients(
		domain.ClientInfo{ID: "CL123", Name: "Carrefour Lyon"},
		domain.ClientInfo{ID: "CL900", Name: "Auchan Nord"},
	)

	got, err := f.repo.GetWeekDecisions(ctx, 2025, 11, domain.SupplierAnecoop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if names := productNames(got); !reflect.DeepEqual(names, []string{"Apple", "Cherry", "Foo"}) {
		t.Fatalf("products not sorted by name: %v", names)
	}

	apple, cherry, fooProduct := got[0], got[1], got[2]
	if !apple.IsPromo {
		t.Error("comment keyword should flag Apple as promo")
	}
	if apple.Year != 2025 || apple.Week != 11 {
		t.Errorf("week not set on product: %d-%d", apple.Year, apple.Week)
	}
	if fooProduct.Article == nil || fooProduct.Article.Brand != "Marque" {
		t.Errorf("article not resolved: %+v", fooProduct.Article)
	}
	if fooProduct.TotalScas != 7 {
		t.Errorf("authoritative total scas overwritten: %d", fooProduct.TotalScas)
	}
	if cherry.TotalScas != 2 {
		t.Errorf("total scas should fall back to decision count, got %d", cherry.TotalScas)
	}

	if len(fooProduct.Decisions) != 2 {
		t.Fatalf("expected 2 client decisions, got %d", len(fooProduct.Decisions))
	}
	if cd := fooProduct.Decisions[0]; cd.ClientName != "Carrefour Lyon" || cd.Client == nil {
		t.Errorf("CL123-X should resolve through prefix fallback, got %+v", cd)
	}
	if cd := fooProduct.Decisions[1]; cd.ClientName != "ZZ9" || cd.Client != nil {
		t.Errorf("unknown client should keep its raw code, got %+v", cd)
	}
	if cd := fooProduct.Decisions[0]; cd.ProductLabel != "Bar" || cd.PrixRetenu != 1.25 {
		t.Errorf("client decision should carry the raw label and prices, got %+v", cd)
	}
}

func TestGetWeekDecisionsCachesCurrentWeekOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.AddDecisions(
		decision(domain.SupplierAnecoop, week11, "P1", "Tomato", "C1"),
		decision(domain.SupplierAnecoop, week10, "P1", "Tomato", "C1"),
	)

	first, _ := f.repo.GetWeekDecisions(ctx, 2025, 11, domain.SupplierAnecoop)
	second, _ := f.repo.GetWeekDecisions(ctx, 2025, 11, domain.SupplierAnecoop)
	if n := f.store.Counters.ListDecisions.Load(); n != 1 {
		t.Fatalf("expected a single remote fetch for the current week, got %d", n)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("cached result differs:\n%+v\n%+v", first, second)
	}

	f.clock.Advance(5*time.Minute + time.Second)
	_, _ = f.repo.GetWeekDecisions(ctx, 2025, 11, domain.SupplierAnecoop)
	if n := f.store.Counters.ListDecisions.Load(); n != 2 {
		t.Fatalf("expired entry should be fetched again, got %d fetches", n)
	}

	_, _ = f.repo.GetWeekDecisions(ctx, 2025, 10, domain.SupplierAnecoop)
	_, _ = f.repo.GetWeekDecisions(ctx, 2025, 10, domain.SupplierAnecoop)
	if n := f.store.Counters.ListDecisions.Load(); n != 4 {
		t.Fatalf("historical weeks should not be cached, got %d fetches", n)
	}
}

func TestGetWeekDecisionsSupplierIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.AddDecisions(
		decision(domain.SupplierAnecoop, week11, "A1", "Orange"),
		decision(domain.SupplierSolagora, week11, "S1", "Melon"),
	)

	anecoop, _ := f.repo.GetWeekDecisions(ctx, 2025, 11, domain.SupplierAnecoop)
	solagora, _ := f.repo.GetWeekDecisions(ctx, 2025, 11, domain.SupplierSolagora)
	all, _ := f.repo.GetWeekDecisions(ctx, 2025, 11, domain.SupplierAll)

	if names := productNames(anecoop); !reflect.DeepEqual(names, []string{"Orange"}) {
		t.Errorf("anecoop = %v", names)
	}
	if names := productNames(solagora); !reflect.DeepEqual(names, []string{"Melon"}) {
		t.Errorf("solagora = %v, must not reuse the anecoop entry", names)
	}
	if names := productNames(all); !reflect.DeepEqual(names, []string{"Melon", "Orange"}) {
		t.Errorf("all = %v", names)
	}
}

func TestGetWeekDecisionsDegradesOnFailure(t *testing.T) {
	f := newFixture(t)
	f.store.AddDecisions(decision(domain.SupplierAnecoop, week11, "A1", "Orange"))
	f.store.FailAll(true)

	got, err := f.repo.GetWeekDecisions(context.Background(), 2025, 11, domain.SupplierAnecoop)
	if err != nil {
		t.Fatalf("store failures should not surface: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty list, got %v", productNames(got))
	}

	if _, err := f.repo.GetWeekDecisions(context.Background(), 2025, 11, "unknown"); !errors.Is(err, domain.ErrInvalidSupplier) {
		t.Fatalf("expected ErrInvalidSupplier, got %v", err)
	}
}

func TestGetWeekStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	promo := decision(domain.SupplierAnecoop, week11, "C", "Tomato C", "C2")
	promo.Promo = true
	f.store.AddDecisions(
		decision(domain.SupplierAnecoop, week10, "A", "Tomato A", "C1"),
		decision(domain.SupplierAnecoop, week10, "B", "Tomato B", "C1"),
		decision(domain.SupplierAnecoop, week11, "B", "Tomato B", "C1", "C2"),
		promo,
	)

	stats, err := f.repo.GetWeekStats(ctx, 2025, 11, domain.SupplierAnecoop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := domain.WeekStats{
		Year: 2025, Week: 11, Supplier: domain.SupplierAnecoop,
		TotalProducts: 2, UniqueClients: 2, PromoProducts: 1,
		ProductsIn: 1, ProductsOut: 1,
	}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}
}

func TestGetWeekStatsPreviousWeekFailure(t *testing.T) {
	f := newFixture(t)
	f.store.AddDecisions(
		decision(domain.SupplierAnecoop, week10, "A", "Tomato A"),
		decision(domain.SupplierAnecoop, week11, "B", "Tomato B"),
	)
	f.store.FailWeek(domain.SupplierAnecoop, week10)

	stats, err := f.repo.GetWeekStats(context.Background(), 2025, 11, domain.SupplierAnecoop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalProducts != 1 || stats.ProductsIn != 0 || stats.ProductsOut != 0 {
		t.Fatalf("expected counts with zero deltas, got %+v", stats)
	}
}

func TestGetAvailableWeeks(t *testing.T) {
	f := newFixture(t)
	f.store.AddDecisions(
		decision(domain.SupplierAnecoop, domain.WeekRef{Year: 2025, Week: 3}, "A", "a"),
		decision(domain.SupplierAnecoop, week10, "A", "a"),
		decision(domain.SupplierSolagora, week11, "S", "s"),
		decision(domain.SupplierSolagora, domain.WeekRef{Year: 2025, Week: 12}, "S", "s"),
		decision(domain.SupplierSolagora, domain.WeekRef{Year: 2025, Week: 13}, "S", "s"),
	)

	got, err := f.repo.GetAvailableWeeks(context.Background(), domain.SupplierAll)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []domain.AvailableWeek{
		{Year: 2025, Week: 12, Supplier: domain.SupplierSolagora},
		{Year: 2025, Week: 11, Supplier: domain.SupplierSolagora},
		{Year: 2025, Week: 10, Supplier: domain.SupplierAnecoop},
		{Year: 2025, Week: 3, Supplier: domain.SupplierAnecoop},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("weeks = %+v, want %+v", got, want)
	}
}

func TestGetAvailableWeeksFallsBackOnTotalFailure(t *testing.T) {
	f := newFixture(t)
	f.store.FailAll(true)

	got, err := f.repo.GetAvailableWeeks(context.Background(), domain.SupplierAll)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []domain.AvailableWeek{
		{Year: 2025, Week: 11, Supplier: domain.SupplierAnecoop},
		{Year: 2025, Week: 11, Supplier: domain.SupplierSolagora},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("fallback = %+v, want %+v", got, want)
	}
}

func TestGetAvailableWeeksForYearWithoutData(t *testing.T) {
	f := newFixture(t)
	got, err := f.repo.GetAvailableWeeksForYear(context.Background(), domain.SupplierAnecoop, 2023)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no weeks, got %+v", got)
	}
}

func TestGetExtendedAvailableWeeksFromWeek(t *testing.T) {
	f := newFixture(t)
	for _, w := range []int{10, 9, 8, 1} {
		f.store.AddDecisions(decision(domain.SupplierAnecoop, domain.WeekRef{Year: 2025, Week: w}, "A", "a"))
	}
	ctx := context.Background()

	got, err := f.repo.GetExtendedAvailableWeeksFromWeek(ctx, domain.SupplierAnecoop, 11, 2025)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var weeks []int
	for _, w := range got {
		weeks = append(weeks, w.Week)
	}
	// week 1 sits behind an empty batch and is not reached
	if !reflect.DeepEqual(weeks, []int{10, 9, 8}) {
		t.Fatalf("extended weeks = %v, want [10 9 8]", weeks)
	}

	before := f.store.Counters.Probes.Load()
	got, _ = f.repo.GetExtendedAvailableWeeksFromWeek(ctx, domain.SupplierAnecoop, 8, 2025)
	if len(got) != 0 {
		t.Fatalf("expected nothing before week 8, got %+v", got)
	}
	if n := f.store.Counters.Probes.Load() - before; n != 1 {
		t.Fatalf("scan should stop at the first empty week when nothing was found, got %d probes", n)
	}

	if got, _ := f.repo.GetExtendedAvailableWeeksFromWeek(ctx, domain.SupplierAnecoop, 20, 2024); len(got) != 0 {
		t.Fatalf("other years are not extended, got %+v", got)
	}
}

func TestCheckWeekAvailability(t *testing.T) {
	f := newFixture(t)
	f.store.AddDecisions(decision(domain.SupplierSolagora, week10, "S", "s"))
	ctx := context.Background()

	if ok, _ := f.repo.CheckWeekAvailability(ctx, domain.SupplierAll, 10, 2025); !ok {
		t.Error("expected week 10 available for all")
	}
	if ok, _ := f.repo.CheckWeekAvailability(ctx, domain.SupplierAnecoop, 10, 2025); ok {
		t.Error("anecoop has no data in week 10")
	}
}

func TestGetProductHistorySinceOctober(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, w := range []int{43, 44, 45} {
		f.store.AddDecisions(decision(domain.SupplierAnecoop, domain.WeekRef{Year: 2024, Week: w}, "T1", "Tomate"))
	}
	// matched by label only
	f.store.AddDecisions(decision(domain.SupplierAnecoop, domain.WeekRef{Year: 2024, Week: 41}, "OTHER", "Tomate"))

	p, err := f.repo.GetProductHistorySinceOctober(ctx, "Tomate", domain.SupplierAnecoop, HistoryOptions{ProductCode: "T1", Year: 2024, Week: 45})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.TotalWeeks != 6 || p.TotalReferences != 4 || p.ConsecutiveWeeks != 3 || p.Percentage != 66 {
		t.Fatalf("palmares = %+v", p)
	}

	later, _ := f.repo.GetProductHistorySinceOctober(ctx, "Tomate", domain.SupplierAnecoop, HistoryOptions{ProductCode: "T1", Year: 2024, Week: 46})
	if later.TotalReferences < p.TotalReferences {
		t.Fatalf("references decreased when the target advanced: %d < %d", later.TotalReferences, p.TotalReferences)
	}
	if later.ConsecutiveWeeks != 0 || later.TotalWeeks != 7 || later.Percentage != 57 {
		t.Fatalf("later palmares = %+v", later)
	}

	early, _ := f.repo.GetProductHistorySinceOctober(ctx, "Tomate", domain.SupplierAnecoop, HistoryOptions{Year: 2024, Week: 30})
	if early.TotalWeeks != 0 || early.TotalReferences != 0 {
		t.Fatalf("target before the epoch should be empty, got %+v", early)
	}
}

func TestGetProductHistoryTotalFailure(t *testing.T) {
	f := newFixture(t)
	f.store.FailAll(true)
	p, err := f.repo.GetProductHistorySinceOctober(context.Background(), "Tomate", domain.SupplierAnecoop, HistoryOptions{Year: 2024, Week: 45})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(p, domain.Palmares{}) {
		t.Fatalf("expected zero palmares, got %+v", p)
	}
}

func TestRuptureHistoryAndSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	older := time.Date(2025, time.February, 3, 8, 0, 0, 0, time.UTC)
	newer := time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)
	f.store.SetRuptureHistory("P1",
		domain.RuptureEvent{Supplier: "Anecoop", Timestamp: older, Year: 2025, Week: 6, Scas: []domain.RuptureSca{
			{ClientCode: "C1", Ordered: 10, Delivered: 6, Missing: 4},
		}},
		domain.RuptureEvent{Supplier: domain.SupplierSolagora, Timestamp: newer, Year: 2025, Week: 10},
		domain.RuptureEvent{Supplier: domain.SupplierAnecoop, Timestamp: newer, Year: 2025, Week: 10, Scas: []domain.RuptureSca{
			{ClientCode: "C1", Ordered: 5, Delivered: 0, Missing: 5},
			{ClientCode: "C2", Ordered: 3, Delivered: 1, Missing: 2},
		}},
	)

	events, err := f.repo.GetRuptureHistoryForProduct(ctx, "P1", domain.SupplierAnecoop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 || !events[0].Timestamp.Equal(newer) {
		t.Fatalf("expected 2 anecoop events newest first, got %+v", events)
	}

	all, _ := f.repo.GetRuptureHistoryForProduct(ctx, "P1", domain.SupplierAll)
	if len(all) != 3 {
		t.Fatalf("all should keep every event, got %d", len(all))
	}

	sum, _ := f.repo.GetRuptureSummaryForProduct(ctx, "P1", domain.SupplierAnecoop)
	if sum.TotalRuptures != 2 || sum.TotalOrdered != 18 || sum.TotalMissing != 11 || sum.AffectedClients != 2 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.LastRupture == nil || !sum.LastRupture.Equal(newer) || len(sum.Weeks) != 2 {
		t.Fatalf("summary weeks/last = %+v", sum)
	}

	missing, err := f.repo.GetRuptureHistoryForProduct(ctx, "NOPE", domain.SupplierAll)
	if err != nil || len(missing) != 0 {
		t.Fatalf("missing history should be empty, got %v %v", missing, err)
	}
}

func TestSearchProductsInAllWeeks(t *testing.T) {
	f := newFixture(t)
	f.store.AddDecisions(
		decision(domain.SupplierAnecoop, week11, "T1", "Tomate grappe", "C1"),
		decision(domain.SupplierAnecoop, domain.WeekRef{Year: 2025, Week: 9}, "T1", "Tomate grappe", "C1", "C2"),
		decision(domain.SupplierAnecoop, domain.WeekRef{Year: 2025, Week: 5}, "T2", "Tomate cerise"),
		decision(domain.SupplierAnecoop, domain.WeekRef{Year: 2024, Week: 40}, "T3", "Tomate ancienne"),
		decision(domain.SupplierAnecoop, week10, "M1", "Melon"),
	)

	got, err := f.repo.SearchProductsInAllWeeks(context.Background(), "tomate", domain.SupplierAnecoop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if names := productNames(got); !reflect.DeepEqual(names, []string{"Tomate cerise", "Tomate grappe"}) {
		t.Fatalf("search = %v", names)
	}
	if got[1].Week != 11 || len(got[1].Decisions) != 1 {
		t.Errorf("collision should keep the most recent week, got week %d with %d clients", got[1].Week, len(got[1].Decisions))
	}
	if got[0].Week != 5 {
		t.Errorf("result should carry its week, got %d", got[0].Week)
	}

	if empty, _ := f.repo.SearchProductsInAllWeeks(context.Background(), "  ", domain.SupplierAll); len(empty) != 0 {
		t.Errorf("blank query should return nothing, got %v", productNames(empty))
	}
}

func TestGetUserProfile(t *testing.T) {
	f := newFixture(t)
	f.store.SetUserProfile(domain.UserProfile{UID: "u1", Email: "a@b.c", PreferredSupplier: domain.SupplierAnecoop})

	if p := f.repo.GetUserProfile(context.Background(), "u1"); p == nil || p.Email != "a@b.c" {
		t.Fatalf("profile = %+v", p)
	}
	if p := f.repo.GetUserProfile(context.Background(), "ghost"); p != nil {
		t.Fatalf("missing profile should be nil, got %+v", p)
	}
}

func TestClearSupplierCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.AddDecisions(decision(domain.SupplierAnecoop, week11, "A1", "Orange"))

	_, _ = f.repo.GetWeekDecisions(ctx, 2025, 11, domain.SupplierAnecoop)
	f.repo.ClearSupplierCache(ctx, domain.SupplierAnecoop)
	_, _ = f.repo.GetWeekDecisions(ctx, 2025, 11, domain.SupplierAnecoop)

	if n := f.store.Counters.ListDecisions.Load(); n != 2 {
		t.Fatalf("cleared entry should be fetched again, got %d fetches", n)
	}
}
