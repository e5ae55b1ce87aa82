package domain

import "time"

// RuptureSca is the shortage recorded for one client during a rupture.
type RuptureSca struct {
	ClientCode string  `json:"codeClient" firestore:"codeClient"`
	ClientName string  `json:"nomClient" firestore:"nomClient"`
	Ordered    float64 `json:"quantiteCommandee" firestore:"quantiteCommandee"`
	Delivered  float64 `json:"quantiteLivree" firestore:"quantiteLivree"`
	Missing    float64 `json:"quantiteManquante" firestore:"quantiteManquante"`
}

// RuptureEvent is one stock shortage of a product.
type RuptureEvent struct {
	Supplier  string       `json:"supplier" firestore:"supplier"`
	Timestamp time.Time    `json:"timestamp" firestore:"timestamp"`
	Year      int          `json:"annee" firestore:"annee"`
	Week      int          `json:"semaine" firestore:"semaine"`
	Scas      []RuptureSca `json:"scas" firestore:"scas"`
}

// RuptureSummary aggregates the rupture history of a product.
type RuptureSummary struct {
	ProductCode     string     `json:"product_code"`
	Supplier        string     `json:"supplier"`
	TotalRuptures   int        `json:"total_ruptures"`
	TotalOrdered    float64    `json:"total_ordered"`
	TotalMissing    float64    `json:"total_missing"`
	AffectedClients int        `json:"affected_clients"`
	LastRupture     *time.Time `json:"last_rupture,omitempty"`
	Weeks           []WeekRef  `json:"weeks"`
}

// UserProfile is the profile document of a signed-in user.
type UserProfile struct {
	UID               string    `json:"uid" firestore:"-"`
	Email             string    `json:"email" firestore:"email"`
	DisplayName       string    `json:"display_name" firestore:"displayName"`
	Role              string    `json:"role" firestore:"role"`
	PreferredSupplier string    `json:"preferred_supplier" firestore:"fournisseurPrefere"`
	CreatedAt         time.Time `json:"created_at" firestore:"createdAt"`
}

// UserAccount is the credential record backing sign in.
type UserAccount struct {
	UID          string    `json:"uid" firestore:"-"`
	Email        string    `json:"email" firestore:"email"`
	PasswordHash string    `json:"-" firestore:"passwordHash"`
	DisplayName  string    `json:"display_name" firestore:"displayName"`
	CreatedAt    time.Time `json:"created_at" firestore:"createdAt"`
}
