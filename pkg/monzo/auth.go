package monzo

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// authResult carries the callback outcome from the local HTTP handler
// back to Authorize.
type authResult struct {
	code string
	err  error
}

// Authorize runs the interactive OAuth2 authorization-code flow: it
// starts a local callback server, hands the authorization URL to
// notify for the user to open, waits for Monzo to redirect back with a
// code, and exchanges it for a token. The caller decides what to do
// with the returned token (normally TokenManager.Store).
//
// Monzo additionally requires in-app approval before the token can
// read transactions; that is on the user, not this flow.
func (m *TokenManager) Authorize(ctx context.Context, listenAddr string, notify func(authorizeURL string)) (*oauth2.Token, error) {
	state, err := randomState()
	if err != nil {
		return nil, &AuthError{Err: err}
	}

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, &AuthError{Err: fmt.Errorf("failed to start callback listener: %w", err)}
	}

	results := make(chan authResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			results <- authResult{err: fmt.Errorf("authorization denied: %s", q.Get("error"))}
			fmt.Fprintln(w, "Authentication failed. You can close this window.")
		case q.Get("state") != state:
			results <- authResult{err: fmt.Errorf("state mismatch in callback")}
			fmt.Fprintln(w, "Authentication failed (invalid state). You can close this window.")
		case q.Get("code") == "":
			results <- authResult{err: fmt.Errorf("no authorization code in callback")}
			fmt.Fprintln(w, "Authentication failed (no code). You can close this window.")
		default:
			results <- authResult{code: q.Get("code")}
			fmt.Fprintln(w, "Authentication successful. You can close this window.")
		}
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go server.Serve(ln)
	defer server.Close()

	if notify != nil {
		notify(m.oauth.AuthCodeURL(state))
	}

	var res authResult
	select {
	case res = <-results:
	case <-ctx.Done():
		return nil, &AuthError{Err: ctx.Err()}
	}
	if res.err != nil {
		return nil, &AuthError{Err: res.err}
	}

	tok, err := m.oauth.Exchange(ctx, res.code)
	if err != nil {
		return nil, &AuthError{Err: fmt.Errorf("code exchange failed: %w", err)}
	}
	return tok, nil
}

func randomState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
