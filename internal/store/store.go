package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/andresuchdata/scamark/backend-go/internal/domain"
)

// ErrNotFound is returned when a single document does not exist.
var ErrNotFound = errors.New("document not found")

// Collection names of the remote document database.
const (
	ArticlesCollection       = "articles"
	ClientsCollection        = "clients"
	RuptureHistoryCollection = "ruptures-history"
	UsersCollection          = "users"
	decisionsPrefix          = "decisions_"
)

// DocumentStore is the read surface of the remote document database.
type DocumentStore interface {
	ListDecisions(ctx context.Context, supplier string, wk domain.WeekRef) ([]domain.Decision, error)
	// HasDecisions is a limit-1 existence probe on a week partition.
	HasDecisions(ctx context.Context, supplier string, wk domain.WeekRef) (bool, error)
	FindDecisionByCode(ctx context.Context, supplier string, wk domain.WeekRef, code string) (bool, error)
	FindDecisionByLabel(ctx context.Context, supplier string, wk domain.WeekRef, label string) (bool, error)
	ListArticles(ctx context.Context) ([]domain.Article, error)
	ListClients(ctx context.Context) ([]domain.ClientInfo, error)
	GetRuptureHistory(ctx context.Context, productCode string) ([]domain.RuptureEvent, error)
	GetUserProfile(ctx context.Context, uid string) (*domain.UserProfile, error)
}

// UserStore persists the accounts used to sign in.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*domain.UserAccount, error)
	CreateUser(ctx context.Context, account domain.UserAccount, profile domain.UserProfile) error
}

// DecisionCollection is the root collection holding a supplier's decisions.
func DecisionCollection(supplier string) string {
	return decisionsPrefix + supplier
}

// DecisionCollectionPath is the collection of one week partition:
// decisions_{supplier}/{year}/{ww}.
func DecisionCollectionPath(supplier string, wk domain.WeekRef) string {
	return fmt.Sprintf("%s/%d/%s", DecisionCollection(supplier), wk.Year, wk.TwoDigit())
}

// DecisionDocumentPath is the path of one decision document.
func DecisionDocumentPath(supplier string, wk domain.WeekRef, productCode string) string {
	return DecisionCollectionPath(supplier, wk) + "/" + productCode
}
