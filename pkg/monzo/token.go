package monzo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

const (
	authURL          = "https://auth.monzo.com/"
	tokenURL         = "https://api.monzo.com/oauth2/token"
	defaultTokenPath = ".config/monzo-sync/token.json"

	// Refresh this long before the access token actually expires.
	tokenExpiryBuffer = 5 * time.Minute
)

// AuthError indicates token acquisition or refresh failed. It is fatal
// for a whole sync run: no account can proceed without a valid token.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("monzo auth failed: %v", e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// storedToken is the on-disk token format.
type storedToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`
}

// TokenManager persists OAuth2 tokens to a JSON file and refreshes
// them when they are close to expiry. It implements TokenProvider.
type TokenManager struct {
	oauth     oauth2.Config
	tokenPath string

	mu    sync.Mutex
	token *oauth2.Token
}

// NewTokenManager creates a token manager. tokenPath defaults to
// ~/.config/monzo-sync/token.json when empty.
func NewTokenManager(clientID, clientSecret, redirectURI, tokenPath string) *TokenManager {
	if tokenPath == "" {
		home, _ := os.UserHomeDir()
		tokenPath = filepath.Join(home, defaultTokenPath)
	}
	return &TokenManager{
		oauth: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
		},
		tokenPath: tokenPath,
	}
}

// Token returns a valid access token, refreshing and re-persisting it
// first if the stored one is expired or about to expire.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token == nil {
		tok, err := m.load()
		if err != nil {
			return "", &AuthError{Err: err}
		}
		m.token = tok
	}

	if m.token.Expiry.IsZero() || time.Until(m.token.Expiry) > tokenExpiryBuffer {
		return m.token.AccessToken, nil
	}

	refreshed, err := m.oauth.TokenSource(ctx, m.token).Token()
	if err != nil {
		return "", &AuthError{Err: fmt.Errorf("token refresh failed: %w", err)}
	}
	m.token = refreshed
	if err := m.save(refreshed); err != nil {
		return "", &AuthError{Err: err}
	}
	return refreshed.AccessToken, nil
}

// Store persists a freshly obtained token (e.g. from the interactive
// auth flow) and makes it the current one.
func (m *TokenManager) Store(tok *oauth2.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = tok
	return m.save(tok)
}

// Clear removes any persisted token material.
func (m *TokenManager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = nil
	if err := os.Remove(m.tokenPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

func (m *TokenManager) load() (*oauth2.Token, error) {
	data, err := os.ReadFile(m.tokenPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no stored token at %s, run the auth command first", m.tokenPath)
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	var st storedToken
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	return &oauth2.Token{
		AccessToken:  st.AccessToken,
		RefreshToken: st.RefreshToken,
		Expiry:       st.Expiry,
	}, nil
}

func (m *TokenManager) save(tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(m.tokenPath), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	data, err := json.MarshalIndent(storedToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := os.WriteFile(m.tokenPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}
