package lunchmoney

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const defaultBaseURL = "https://api.lunchmoney.app/v1"

// ClientConfig configures a Lunch Money API client.
type ClientConfig struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration // default 60s
	MaxRetries  uint64        // retries on transient failures, default 4
}

// Client is a Lunch Money API client. Transient failures (network
// errors, 429 and 5xx responses) are retried with exponential backoff;
// 4xx responses are terminal.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	maxRetries  uint64
}

// NewClient creates a new Lunch Money API client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
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
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		accessToken: cfg.AccessToken,
		maxRetries:  maxRetries,
	}
}

// InsertTransactions creates transactions, relying on external_id for
// server-side deduplication. An empty batch is a no-op.
func (c *Client) InsertTransactions(ctx context.Context, txns []Transaction) (InsertResult, error) {
	if len(txns) == 0 {
		return InsertResult{}, nil
	}
	req := insertRequest{
		Transactions:    txns,
		SkipDuplicates:  true,
		DebitAsNegative: true,
	}
	var result InsertResult
	if err := c.do(ctx, http.MethodPost, "/transactions", nil, req, &result); err != nil {
		return InsertResult{}, err
	}
	return result, nil
}

// ListCategories lists all categories, including category groups.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var resp categoriesResponse
	if err := c.do(ctx, http.MethodGet, "/categories", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Categories, nil
}

// ListAssets lists manually managed assets.
func (c *Client) ListAssets(ctx context.Context) ([]Asset, error) {
	var resp assetsResponse
	if err := c.do(ctx, http.MethodGet, "/assets", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Assets, nil
}

// ListTransactions lists transactions in an inclusive date range
// (YYYY-MM-DD). Used to preflight existing external ids before a post.
func (c *Client) ListTransactions(ctx context.Context, startDate, endDate string) ([]ExistingTransaction, error) {
	q := url.Values{}
	q.Set("start_date", startDate)
	q.Set("end_date", endDate)
	q.Set("debit_as_negative", "true")
	var resp listTransactionsResponse
	if err := c.do(ctx, http.MethodGet, "/transactions", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}

// UpdateAssetBalance sets the current balance (major units) of an asset.
func (c *Client) UpdateAssetBalance(ctx context.Context, assetID int64, balance string) error {
	body := map[string]string{"balance": balance}
	var out map[string]interface{}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/assets/%d", assetID), nil, body, &out)
}

// APIError is a non-2xx response from the Lunch Money API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lunchmoney API error (status %d): %s", e.StatusCode, e.Message)
}

// Transient reports whether the error is worth retrying.
func (e *APIError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	op := func() error {
		endpoint := c.baseURL + path
		if len(query) > 0 {
			endpoint += "?" + query.Encode()
		}
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
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
		Error interface{} `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("%v", payload.Error)}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
}
