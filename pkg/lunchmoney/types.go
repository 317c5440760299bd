// Package lunchmoney provides a Lunch Money API client.
package lunchmoney

import "github.com/shopspring/decimal"

// Transaction is a transaction in Lunch Money insert format. Amount is
// in major currency units; ExternalID is the idempotency key Lunch
// Money deduplicates on.
type Transaction struct {
	Date       string          `json:"date"` // YYYY-MM-DD
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency,omitempty"`
	Payee      string          `json:"payee,omitempty"`
	Notes      string          `json:"notes,omitempty"`
	Status     string          `json:"status,omitempty"`
	AssetID    int64           `json:"asset_id,omitempty"`
	CategoryID *int64          `json:"category_id,omitempty"`
	ExternalID string          `json:"external_id,omitempty"`
}

// Category is a Lunch Money category. Entries without a GroupID are
// category groups and cannot be assigned to transactions.
type Category struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	IsGroup bool   `json:"is_group"`
	GroupID *int64 `json:"group_id"`
}

// Assignable reports whether transactions may be tagged with this
// category (groups are not assignable).
func (c Category) Assignable() bool {
	return !c.IsGroup && c.GroupID != nil
}

// Asset is a manually managed Lunch Money account.
type Asset struct {
	ID              int64  `json:"id"`
	TypeName        string `json:"type_name"`
	Subtype         string `json:"subtype"`
	Name            string `json:"name"`
	DisplayName     string `json:"display_name"`
	Balance         string `json:"balance"`
	BalanceAsOf     string `json:"balance_as_of"`
	InstitutionName string `json:"institution_name"`
}

// InsertResult is the outcome of an insert call.
type InsertResult struct {
	IDs []int64 `json:"ids"`
}

// Created returns how many transactions the insert actually created.
func (r InsertResult) Created() int {
	return len(r.IDs)
}

// ExistingTransaction is the subset of a listed transaction needed for
// the duplicate preflight.
type ExistingTransaction struct {
	ID         int64  `json:"id"`
	Date       string `json:"date"`
	ExternalID string `json:"external_id"`
}

type categoriesResponse struct {
	Categories []Category `json:"categories"`
}

type assetsResponse struct {
	Assets []Asset `json:"assets"`
}

type listTransactionsResponse struct {
	Transactions []ExistingTransaction `json:"transactions"`
}

type insertRequest struct {
	Transactions    []Transaction `json:"transactions"`
	SkipDuplicates  bool          `json:"skip_duplicates"`
	DebitAsNegative bool          `json:"debit_as_negative"`
}
