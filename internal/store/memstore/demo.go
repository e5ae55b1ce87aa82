package memstore

import (
	"fmt"
	"time"

	"github.com/andresuchdata/scamark/backend-go/internal/domain"
	"github.com/andresuchdata/scamark/backend-go/internal/store"
)

// Load adds every document of ds to the store.
func (s *Store) Load(ds store.Dataset) {
	s.AddDecisions(ds.Decisions...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles = append(s.articles, ds.Articles...)
	s.clients = append(s.clients, ds.Clients...)
	for code, events := range ds.Ruptures {
		s.ruptures[code] = append(s.ruptures[code], events...)
	}
	for _, p := range ds.Profiles {
		s.profiles[p.UID] = p
	}
}

type demoProduct struct {
	code, name, brand, origin, category string
	supplier                            string
	price                               float64
}

var demoCatalog = []demoProduct{
	{"AN-1001", "Tomate grappe", "Anecoop", "Espagne", "Légumes", domain.SupplierAnecoop, 2.15},
	{"AN-1002", "Tomate cerise", "Anecoop", "Espagne", "Légumes", domain.SupplierAnecoop, 3.40},
	{"AN-1003", "Poivron rouge", "Bouquet", "Espagne", "Légumes", domain.SupplierAnecoop, 2.90},
	{"AN-1004", "Clémentine", "Bouquet", "Espagne", "Agrumes", domain.SupplierAnecoop, 1.95},
	{"SO-2001", "Courgette", "Solagora", "France", "Légumes", domain.SupplierSolagora, 1.60},
	{"SO-2002", "Concombre", "Solagora", "France", "Légumes", domain.SupplierSolagora, 0.85},
	{"SO-2003", "Melon charentais", "Solagora", "France", "Fruits", domain.SupplierSolagora, 2.50},
	{"SO-2004", "Fraise gariguette", "Solagora", "France", "Fruits", domain.SupplierSolagora, 4.20},
}

var demoClients = []domain.ClientInfo{
	{ID: "1001", Name: "SCA Normande", CheckoutType: domain.CheckoutStandard, DepartureTime: "05:30"},
	{ID: "1002", Name: "SCA Ouest", CheckoutType: domain.CheckoutBLL, DepartureTime: "06:00"},
	{ID: "1003", Name: "SCA Provence", CheckoutType: domain.CheckoutEuropool, DepartureTime: "04:45"},
	{ID: "1004 LYON", AltID: "1004", Name: "SCA Rhône", CheckoutType: domain.CheckoutStandard, DepartureTime: "05:00"},
}

// DemoDataset builds a deterministic dataset covering the weeks from
// 2024-W40 up to the week of now, for both known suppliers.
func DemoDataset(now time.Time) store.Dataset {
	ds := store.Dataset{
		Clients:  append([]domain.ClientInfo(nil), demoClients...),
		Ruptures: make(map[string][]domain.RuptureEvent),
	}
	for _, p := range demoCatalog {
		ds.Articles = append(ds.Articles, domain.Article{
			ProductCode: p.code,
			Name:        p.name,
			Brand:       p.brand,
			Origin:      p.origin,
			Category:    p.category,
			Supplier:    p.supplier,
		})
	}

	current := domain.CurrentWeek(now)
	for _, wk := range domain.WeeksBetween(domain.WeekRef{Year: 2024, Week: 40}, current) {
		for i, p := range demoCatalog {
			// each product skips one week in three, shifted per product
			if (wk.Week+i)%3 == 0 {
				continue
			}
			d := domain.Decision{
				Supplier:    p.supplier,
				Year:        wk.Year,
				Week:        wk.Week,
				ProductCode: p.code,
				Label:       p.name,
				PrixRetenu:  p.price,
				PrixOffert:  p.price - 0.10,
				Category:    p.category,
				Brand:       p.brand,
				Origin:      p.origin,
			}
			if (wk.Week+i)%5 == 0 {
				d.Promo = true
				d.Comment = "Remise fin de semaine"
			}
			for j, c := range demoClients {
				if (wk.Week+i+j)%2 == 0 {
					d.Scas = append(d.Scas, domain.ScaReference{ClientCode: c.ID, Week: wk.TwoDigit()})
				}
			}
			ds.Decisions = append(ds.Decisions, d)
		}
	}

	for i, p := range demoCatalog[:3] {
		wk := current
		for k := 0; k <= i; k++ {
			wk = wk.Previous()
		}
		ds.Ruptures[p.code] = append(ds.Ruptures[p.code], domain.RuptureEvent{
			Supplier:  p.supplier,
			Timestamp: now.Add(-time.Duration(i+1) * 7 * 24 * time.Hour).UTC(),
			Year:      wk.Year,
			Week:      wk.Week,
			Scas: []domain.RuptureSca{{
				ClientCode: demoClients[i].ID,
				ClientName: demoClients[i].Name,
				Ordered:    float64(40 + 10*i),
				Delivered:  float64(30 + 5*i),
				Missing:    float64(10 + 5*i),
			}},
		})
	}

	ds.Profiles = append(ds.Profiles, domain.UserProfile{
		UID:               "demo",
		Email:             "demo@scamark.local",
		DisplayName:       fmt.Sprintf("Démo %d", current.Year),
		Role:              "user",
		PreferredSupplier: domain.SupplierAll,
		CreatedAt:         now.UTC(),
	})
	return ds
}

// NewDemo is a store loaded with DemoDataset.
func NewDemo(now time.Time) *Store {
	s := New()
	s.Load(DemoDataset(now))
	return s
}
