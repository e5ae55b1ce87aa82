package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/scamark/backend-go/internal/config"
	"github.com/andresuchdata/scamark/backend-go/internal/store/memstore"
)

func newService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	return NewService(st, config.AuthConfig{JWTSecret: "test-secret", TokenTTLHours: 1}), st
}

func TestSignUpThenSignIn(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	sess, err := svc.SignUp(ctx, " Ana@Example.com ", "s3cret!", "Ana")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if sess.User.UID == "" || sess.User.Email != "ana@example.com" {
		t.Fatalf("unexpected session user %+v", sess.User)
	}
	if !svc.IsLoggedIn() {
		t.Fatal("sign up should sign the user in")
	}
	if p, err := st.GetUserProfile(ctx, sess.User.UID); err != nil || p.DisplayName != "Ana" {
		t.Fatalf("profile not stored: %+v %v", p, err)
	}

	svc.SignOut()
	if svc.IsLoggedIn() {
		t.Fatal("still logged in after sign out")
	}
	if _, err := svc.CurrentUser(); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("CurrentUser after sign out: %v", err)
	}

	sess, err = svc.SignIn(ctx, "ana@example.com", "s3cret!")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	claims, err := svc.ParseToken(sess.Token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Subject != sess.User.UID || claims.Email != "ana@example.com" {
		t.Fatalf("claims = %+v", claims)
	}
	if u, err := svc.CurrentUser(); err != nil || u.UID != sess.User.UID {
		t.Fatalf("CurrentUser = %+v, %v", u, err)
	}
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	if _, err := svc.SignUp(ctx, "bob@example.com", "password1", "Bob"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	if _, err := svc.SignIn(ctx, "bob@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: %v", err)
	}
	if _, err := svc.SignIn(ctx, "nobody@example.com", "password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: %v", err)
	}
}

func TestSignUpValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "not-an-email", "password1", ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad email: %v", err)
	}
	if _, err := svc.SignUp(ctx, "c@example.com", "123", ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("short password: %v", err)
	}
	if _, err := svc.SignUp(ctx, "c@example.com", "password1", ""); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if _, err := svc.SignUp(ctx, "C@example.com", "password2", ""); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate email: %v", err)
	}
}

func TestSessionExpires(t *testing.T) {
	svc, _ := newService(t)
	now := time.Date(2025, time.March, 12, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	sess, err := svc.SignUp(context.Background(), "d@example.com", "password1", "")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	now = now.Add(2 * time.Hour)
	if svc.IsLoggedIn() {
		t.Error("session should expire after the token ttl")
	}
	if _, err := svc.ParseToken(sess.Token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token accepted: %v", err)
	}

	other := NewService(memstore.New(), config.AuthConfig{JWTSecret: "other"})
	other.now = svc.now
	if _, err := other.ParseToken(sess.Token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("token signed with another secret accepted: %v", err)
	}
}
