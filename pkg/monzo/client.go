package monzo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const defaultBaseURL = "https://api.monzo.com"

// pageLimit is the maximum page size the transactions endpoint accepts.
const pageLimit = 100

// TokenProvider supplies a currently valid bearer token on demand.
// The client never persists or inspects token material itself.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken adapts a fixed token string to the TokenProvider interface.
type StaticToken string

// Token implements TokenProvider.
func (s StaticToken) Token(context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("empty access token")
	}
	return string(s), nil
}

// ClientConfig configures a Monzo API client.
type ClientConfig struct {
	BaseURL    string
	Tokens     TokenProvider
	Timeout    time.Duration // default 30s
	MaxRetries uint64        // retries on transient failures, default 4
}

// Client is a Monzo API client. It retries transient failures
// (network errors, 429 and 5xx responses) with exponential backoff and
// surfaces a terminal error once retries are exhausted.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenProvider
	maxRetries uint64
}

// NewClient creates a new Monzo API client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 4
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		tokens:     cfg.Tokens,
		maxRetries: maxRetries,
	}
}

// ListTransactions fetches a single page of transactions for an
// account. since can be an RFC3339 timestamp or a transaction id
// (Monzo accepts both as page cursors); before is optional.
func (c *Client) ListTransactions(ctx context.Context, accountID, since, before string) ([]Transaction, error) {
	q := url.Values{}
	q.Set("account_id", accountID)
	q.Set("limit", fmt.Sprintf("%d", pageLimit))
	if since != "" {
		q.Set("since", since)
	}
	if before != "" {
		q.Set("before", before)
	}

	var resp transactionsResponse
	if err := c.get(ctx, "/transactions", q, &resp); err != nil {
		return nil, err
	}

	for _, t := range resp.Transactions {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("malformed transaction in response: %w", err)
		}
	}
	return resp.Transactions, nil
}

// FetchAllTransactions fetches every transaction for an account since
// the given timestamp, following pagination until the API reports no
// further pages. A partial page set is never returned: any error
// mid-pagination fails the whole fetch.
func (c *Client) FetchAllTransactions(ctx context.Context, accountID, sinceISO, beforeISO string) ([]Transaction, error) {
	var all []Transaction
	cursor := sinceISO

	for {
		page, err := c.ListTransactions(ctx, accountID, cursor, beforeISO)
		if err != nil {
			return nil, fmt.Errorf("failed to list transactions (account=%s, fetched=%d): %w", accountID, len(all), err)
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
		if len(page) < pageLimit {
			break
		}
		// Monzo pages by passing the last seen transaction id as since.
		cursor = page[len(page)-1].ID
	}

	return all, nil
}

// ListAccounts lists open accounts accessible with the current token.
func (c *Client) ListAccounts(ctx context.Context) ([]Account, error) {
	var resp accountsResponse
	if err := c.get(ctx, "/accounts", nil, &resp); err != nil {
		return nil, err
	}
	open := resp.Accounts[:0]
	for _, a := range resp.Accounts {
		if !a.Closed {
			open = append(open, a)
		}
	}
	return open, nil
}

// FetchBalance returns the current balance for an account.
func (c *Client) FetchBalance(ctx context.Context, accountID string) (Balance, error) {
	q := url.Values{}
	q.Set("account_id", accountID)
	var bal Balance
	if err := c.get(ctx, "/balance", q, &bal); err != nil {
		return Balance{}, err
	}
	return bal, nil
}

// ListPots lists pots for an account, excluding deleted ones.
func (c *Client) ListPots(ctx context.Context, accountID string) ([]Pot, error) {
	q := url.Values{}
	q.Set("current_account_id", accountID)
	var resp potsResponse
	if err := c.get(ctx, "/pots", q, &resp); err != nil {
		return nil, err
	}
	pots := resp.Pots[:0]
	for _, p := range resp.Pots {
		if !p.Deleted {
			pots = append(pots, p)
		}
	}
	return pots, nil
}

// APIError is a non-2xx response from the Monzo API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("monzo API error (status %d): %s", e.StatusCode, e.Message)
}

// Transient reports whether the error is worth retrying.
func (e *APIError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	op := func() error {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to obtain access token: %w", err))
		}

		endpoint := c.baseURL + path
		if len(query) > 0 {
			endpoint += "?" + query.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			apiErr := parseAPIError(resp)
			if apiErr.Transient() {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	return backoff.Retry(op, policy)
}

func parseAPIError(resp *http.Response) *APIError {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: "failed to read error response"}
	}
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		if payload.Code != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: payload.Code + ": " + payload.Message}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Message}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
}
