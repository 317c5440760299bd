// Package monzo provides a Monzo API client and OAuth2 token management.
package monzo

import (
	"fmt"
	"time"
)

// Transaction represents a transaction returned by the Monzo API.
// Amount is in minor currency units (pence for GBP) and is negative
// for outflows.
type Transaction struct {
	ID            string            `json:"id"`
	AccountID     string            `json:"account_id"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Created       time.Time         `json:"created"`
	Settled       string            `json:"settled"` // empty until the transaction settles
	Declined      bool              `json:"declined"`
	DeclineReason string            `json:"decline_reason,omitempty"`
	Description   string            `json:"description"`
	Notes         string            `json:"notes"`
	Category      string            `json:"category"`
	Scheme        string            `json:"scheme"`
	Merchant      *Merchant         `json:"merchant,omitempty"`
	Counterparty  Counterparty      `json:"counterparty"`
	Metadata      map[string]string `json:"metadata"`
}

// IsSettled reports whether the transaction has a settlement timestamp.
func (t Transaction) IsSettled() bool {
	return t.Settled != ""
}

// PotID returns the pot referenced by the transaction's metadata, if any.
func (t Transaction) PotID() string {
	return t.Metadata["pot_id"]
}

// Validate rejects malformed records at the API boundary so downstream
// code can rely on the required fields being present.
func (t Transaction) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("transaction missing id")
	}
	if t.AccountID == "" {
		return fmt.Errorf("transaction %s missing account_id", t.ID)
	}
	if t.Created.IsZero() {
		return fmt.Errorf("transaction %s missing created timestamp", t.ID)
	}
	if t.Currency == "" {
		return fmt.Errorf("transaction %s missing currency", t.ID)
	}
	return nil
}

// Merchant is the merchant block attached to card transactions.
type Merchant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Counterparty identifies the other side of a transfer, when Monzo can
// derive one.
type Counterparty struct {
	AccountID string `json:"account_id,omitempty"`
	Name      string `json:"name,omitempty"`
}

// Account represents a Monzo account.
type Account struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Closed      bool   `json:"closed"`
}

// Balance represents an account balance. Balance is in minor units.
type Balance struct {
	Balance  int64  `json:"balance"`
	Currency string `json:"currency"`
}

// Pot represents a Monzo pot (sub-account). Balance is in minor units.
type Pot struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Balance  int64  `json:"balance"`
	Currency string `json:"currency"`
	Deleted  bool   `json:"deleted"`
}

type transactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
}

type accountsResponse struct {
	Accounts []Account `json:"accounts"`
}

type potsResponse struct {
	Pots []Pot `json:"pots"`
}
