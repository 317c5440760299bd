package monzo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func newTestTokenManager(t *testing.T) *TokenManager {
	t.Helper()
	return NewTokenManager("client-id", "client-secret", "http://localhost:8080/callback",
		filepath.Join(t.TempDir(), "token.json"))
}

func TestTokenManagerStoreAndToken(t *testing.T) {
	tm := newTestTokenManager(t)
	tok := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour),
	}
	if err := tm.Store(tok); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, err := tm.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got != "access" {
		t.Errorf("Token = %q", got)
	}

	// A second manager on the same path must read the persisted token.
	fresh := NewTokenManager("client-id", "client-secret", "http://localhost:8080/callback", tm.tokenPath)
	got, err = fresh.Token(context.Background())
	if err != nil {
		t.Fatalf("Token from persisted file: %v", err)
	}
	if got != "access" {
		t.Errorf("persisted Token = %q", got)
	}
}

func TestTokenManagerMissingToken(t *testing.T) {
	tm := newTestTokenManager(t)
	_, err := tm.Token(context.Background())

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Token = %v, expected AuthError", err)
	}
}

func TestTokenManagerClear(t *testing.T) {
	tm := newTestTokenManager(t)
	if err := tm.Store(&oauth2.Token{AccessToken: "access", Expiry: time.Now().Add(time.Hour)}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := tm.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := tm.Token(context.Background()); err == nil {
		t.Error("Token succeeded after Clear")
	}

	// Clearing again is fine.
	if err := tm.Clear(); err != nil {
		t.Errorf("second Clear: %v", err)
	}
}
