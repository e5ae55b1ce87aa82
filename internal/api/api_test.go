package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/andresuchdata/scamark/backend-go/internal/auth"
	"github.com/andresuchdata/scamark/backend-go/internal/cache"
	"github.com/andresuchdata/scamark/backend-go/internal/config"
	"github.com/andresuchdata/scamark/backend-go/internal/domain"
	"github.com/andresuchdata/scamark/backend-go/internal/repository"
	"github.com/andresuchdata/scamark/backend-go/internal/store/memstore"
	"github.com/gin-gonic/gin"
)

// 2025-03-12 falls in ISO week 11 of 2025.
var fixedNow = time.Date(2025, time.March, 12, 10, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) (*gin.Engine, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	clock := cache.NewManualClock(fixedNow)
	repo := repository.NewDecisionRepository(st, cache.NewInMemory(clock, cache.DefaultTTLPolicy()), repository.Options{
		Suppliers: domain.DefaultSuppliers,
		Clock:     clock,
	})
	authSvc := auth.NewService(st, config.AuthConfig{JWTSecret: "test-secret"})
	return NewRouter(&Services{Repo: repo, Auth: authSvc}, nil), st
}

func seed(st *memstore.Store) {
	mk := func(week int, code, label string, clients ...string) domain.Decision {
		d := domain.Decision{
			Supplier:    domain.SupplierAnecoop,
			Year:        2025,
			Week:        week,
			ProductCode: code,
			Label:       label,
		}
		for _, c := range clients {
			d.Scas = append(d.Scas, domain.ScaReference{ClientCode: c})
		}
		return d
	}
	st.AddDecisions(
		mk(10, "P1", "Tomate", "C1"),
		mk(10, "P3", "Courgette", "C1"),
		mk(11, "P1", "Tomate", "C1", "C2"),
		mk(11, "P2", "Poivron", "C2"),
	)
}

func do(t *testing.T, r http.Handler, method, target string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type decisionsResponse struct {
	Items []domain.EnrichedProduct `json:"items"`
	Total int                      `json:"total"`
}

func itemNames(ps []domain.EnrichedProduct) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ProductName
	}
	return out
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := do(t, r, http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestGetDecisionsWithFilters(t *testing.T) {
	r, st := newTestRouter(t)
	seed(st)

	cases := []struct {
		target string
		want   []string
	}{
		{"/api/v1/decisions/2025/11?supplier=anecoop", []string{"Poivron", "Tomate"}},
		{"/api/v1/decisions/2025/11?supplier=anecoop&filter=entrants", []string{"Poivron"}},
		{"/api/v1/decisions/2025/11?supplier=anecoop&filter=sortants", []string{"Courgette"}},
		{"/api/v1/decisions/2025/11?supplier=anecoop&q=tom", []string{"Tomate"}},
		{"/api/v1/decisions/2025/4?supplier=anecoop", []string{}},
		// the week before 2000-W01 is out of range and compares as empty
		{"/api/v1/decisions/2000/1?supplier=anecoop&filter=sortants", []string{}},
		{"/api/v1/decisions/2000/1?supplier=anecoop&filter=entrants", []string{}},
	}
	for _, tc := range cases {
		rec := do(t, r, http.MethodGet, tc.target, nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d body=%s", tc.target, rec.Code, rec.Body.String())
		}
		var resp decisionsResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s: decode: %v", tc.target, err)
		}
		if got := itemNames(resp.Items); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s: items = %v, want %v", tc.target, got, tc.want)
		}
		if resp.Total != len(tc.want) {
			t.Errorf("%s: total = %d", tc.target, resp.Total)
		}
	}
}

func TestInvalidArgumentsAreBadRequests(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, target := range []string{
		"/api/v1/decisions/2025/11?supplier=unknown",
		"/api/v1/decisions/2025/60",
		"/api/v1/decisions/2025/xx",
		"/api/v1/stats/1999/10",
		"/api/v1/weeks?supplier=unknown",
		"/api/v1/weeks/check?year=2025",
		"/api/v1/palmares",
	} {
		if rec := do(t, r, http.MethodGet, target, nil, nil); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestStatsAndWeeks(t *testing.T) {
	r, st := newTestRouter(t)
	seed(st)

	rec := do(t, r, http.MethodGet, "/api/v1/stats/2025/11?supplier=anecoop", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}
	var stats domain.WeekStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	want := domain.WeekStats{Year: 2025, Week: 11, Supplier: "anecoop", TotalProducts: 2, UniqueClients: 2, ProductsIn: 1, ProductsOut: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}

	rec = do(t, r, http.MethodGet, "/api/v1/weeks/check?supplier=anecoop&year=2025&week=10", nil, nil)
	var check struct {
		Available bool `json:"available"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &check); err != nil || !check.Available {
		t.Errorf("week 10 should be available: %s", rec.Body.String())
	}

	rec = do(t, r, http.MethodGet, "/api/v1/weeks/2025?supplier=anecoop", nil, nil)
	var weeks struct {
		Weeks []domain.AvailableWeek `json:"weeks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &weeks); err != nil {
		t.Fatalf("decode weeks: %v", err)
	}
	if len(weeks.Weeks) != 2 || weeks.Weeks[0].Week != 11 || weeks.Weeks[1].Week != 10 {
		t.Errorf("weeks = %+v", weeks.Weeks)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r, st := newTestRouter(t)
	st.SetUserProfile(domain.UserProfile{UID: "u-1", Email: "ops@example.com"})

	if rec := do(t, r, http.MethodDelete, "/api/v1/cache", nil, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("clear cache without token: status = %d", rec.Code)
	}

	rec := do(t, r, http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"email":    "ops@example.com",
		"password": "password1",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d body=%s", rec.Code, rec.Body.String())
	}
	var sess auth.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil || sess.Token == "" {
		t.Fatalf("decode session: %v %s", err, rec.Body.String())
	}
	bearer := http.Header{"Authorization": []string{"Bearer " + sess.Token}}

	if rec := do(t, r, http.MethodDelete, "/api/v1/cache?supplier=anecoop", nil, bearer); rec.Code != http.StatusOK {
		t.Errorf("clear cache with token: status = %d", rec.Code)
	}
	if rec := do(t, r, http.MethodGet, "/api/v1/profile/u-1", nil, bearer); rec.Code != http.StatusOK {
		t.Errorf("profile: status = %d", rec.Code)
	}
	if rec := do(t, r, http.MethodGet, "/api/v1/profile/missing", nil, bearer); rec.Code != http.StatusNotFound {
		t.Errorf("missing profile: status = %d", rec.Code)
	}

	rec = do(t, r, http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"email":    "ops@example.com",
		"password": "password2",
	}, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate signup: status = %d", rec.Code)
	}
	rec = do(t, r, http.MethodPost, "/api/v1/auth/signin", map[string]string{
		"email":    "ops@example.com",
		"password": "wrong",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad signin: status = %d", rec.Code)
	}
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	got, all := normalizeAllowedOrigins([]string{"http://a.test, http://b.test", " "})
	if all || !reflect.DeepEqual(got, []string{"http://a.test", "http://b.test"}) {
		t.Errorf("got %v %v", got, all)
	}
	if _, all := normalizeAllowedOrigins([]string{"*"}); !all {
		t.Error("wildcard should allow all origins")
	}
}
