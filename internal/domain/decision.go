// backend-go/internal/domain/decision.go
package domain

import "strings"

// ScaReference links a decision to one client allocation.
type ScaReference struct {
	ClientCode string `json:"codeClient" firestore:"codeClient"`
	Week       string `json:"semaine,omitempty" firestore:"semaine"`
}

// Decision is one weekly purchasing decision for a product of a supplier.
// Identity is (supplier, year, week, product code).
type Decision struct {
	Supplier    string         `json:"fournisseur" firestore:"fournisseur"`
	Year        int            `json:"annee" firestore:"annee"`
	Week        int            `json:"semaine" firestore:"semaine"`
	ProductCode string         `json:"codeProduit" firestore:"codeProduit"`
	Label       string         `json:"libelle" firestore:"libelle"`
	PrixRetenu  float64        `json:"prixRetenu" firestore:"prixRetenu"`
	PrixOffert  float64        `json:"prixOffert" firestore:"prixOffert"`
	Promo       bool           `json:"promo" firestore:"promo"`
	Comment     string         `json:"commentaire" firestore:"commentaire"`
	Category    string         `json:"categorie" firestore:"categorie"`
	Brand       string         `json:"marque" firestore:"marque"`
	Origin      string         `json:"origine" firestore:"origine"`
	EAN         string         `json:"ean" firestore:"ean"`
	TotalScas   int            `json:"totalScas" firestore:"totalScas"`
	Scas        []ScaReference `json:"scas" firestore:"scas"`
}

// Article is reference data for a product code.
type Article struct {
	ProductCode string `json:"codeProduit" firestore:"codeProduit"`
	Name        string `json:"nom" firestore:"nom"`
	Brand       string `json:"marque" firestore:"marque"`
	Origin      string `json:"origine" firestore:"origine"`
	Category    string `json:"categorie" firestore:"categorie"`
	EAN         string `json:"ean" firestore:"ean"`
	Supplier    string `json:"fournisseur" firestore:"fournisseur"`
}

// ArticleFromDecision derives an article from the fields denormalized on the decision.
func ArticleFromDecision(d Decision) Article {
	return Article{
		ProductCode: d.ProductCode,
		Name:        d.Label,
		Brand:       d.Brand,
		Origin:      d.Origin,
		Category:    d.Category,
		EAN:         d.EAN,
		Supplier:    d.Supplier,
	}
}

// Checkout types of a client.
const (
	CheckoutStandard = "standard"
	CheckoutBLL      = "BLL"
	CheckoutEuropool = "EUROPOOL"
)

// ClientInfo is reference data for a client (SCA).
type ClientInfo struct {
	ID            string `json:"id" firestore:"-"`
	AltID         string `json:"clientId,omitempty" firestore:"clientId"`
	Name          string `json:"nom" firestore:"nom"`
	CheckoutType  string `json:"typeCaisse" firestore:"typeCaisse"`
	DepartureTime string `json:"heureDepart" firestore:"heureDepart"`
}

// ClientDecision is one client allocation of an enriched product.
type ClientDecision struct {
	ClientCode   string      `json:"client_code"`
	ClientName   string      `json:"client_name"`
	ProductCode  string      `json:"product_code"`
	ProductLabel string      `json:"product_label"`
	PrixRetenu   float64     `json:"prix_retenu"`
	PrixOffert   float64     `json:"prix_offert"`
	Client       *ClientInfo `json:"client,omitempty"`
}

// EnrichedProduct is a decision joined with its article and client reference data.
// Values are never mutated once built; use the With helpers to derive copies.
type EnrichedProduct struct {
	ProductName string           `json:"product_name"`
	ProductCode string           `json:"product_code"`
	Supplier    string           `json:"supplier"`
	Year        int              `json:"year"`
	Week        int              `json:"week"`
	PrixRetenu  float64          `json:"prix_retenu"`
	PrixOffert  float64          `json:"prix_offert"`
	IsPromo     bool             `json:"is_promo"`
	Article     *Article         `json:"article,omitempty"`
	Decisions   []ClientDecision `json:"decisions"`
	TotalScas   int              `json:"total_scas"`
}

// WithWeek returns a copy of p tagged with the given week.
func (p EnrichedProduct) WithWeek(year, week int) EnrichedProduct {
	p.Year = year
	p.Week = week
	return p
}

// WithDecisions returns a copy of p holding ds. TotalScas follows the new list.
func (p EnrichedProduct) WithDecisions(ds []ClientDecision) EnrichedProduct {
	p.Decisions = append([]ClientDecision(nil), ds...)
	p.TotalScas = len(ds)
	return p
}

// Key identifies a product across weeks: the product code when known, the name otherwise.
func (p EnrichedProduct) Key() string {
	if code := strings.TrimSpace(p.ProductCode); code != "" {
		return p.Supplier + "|" + code
	}
	return p.Supplier + "|" + strings.ToLower(strings.TrimSpace(p.ProductName))
}

// AvailableWeek signals that a (year, week, supplier) partition holds at least one decision.
type AvailableWeek struct {
	Year     int    `json:"year"`
	Week     int    `json:"week"`
	Supplier string `json:"supplier"`
}

// Ref returns the week reference of w.
func (w AvailableWeek) Ref() WeekRef {
	return WeekRef{Year: w.Year, Week: w.Week}
}

// WeekStats aggregates one week of decisions.
type WeekStats struct {
	Year          int    `json:"year"`
	Week          int    `json:"week"`
	Supplier      string `json:"supplier"`
	TotalProducts int    `json:"total_products"`
	UniqueClients int    `json:"unique_clients"`
	PromoProducts int    `json:"promo_products"`
	ProductsIn    int    `json:"products_in"`
	ProductsOut   int    `json:"products_out"`
}

// Palmares describes how regularly a product has been referenced since the epoch.
type Palmares struct {
	ConsecutiveWeeks int       `json:"consecutive_weeks"`
	TotalReferences  int       `json:"total_references"`
	TotalWeeks       int       `json:"total_weeks"`
	Percentage       int       `json:"percentage"`
	ReferencedWeeks  []WeekRef `json:"referenced_weeks,omitempty"`
}
