package sync

import "fmt"

// AccountError is a per-account sync failure. It is recorded in the
// Summary and never unwinds past the per-account loop: one account
// failing must not block the others.
type AccountError struct {
	AccountID string
	Stage     string // fetch, post, commit
	Err       error
}

func (e *AccountError) Error() string {
	return fmt.Sprintf("sync failed for %s during %s: %v", e.AccountID, e.Stage, e.Err)
}

func (e *AccountError) Unwrap() error { return e.Err }

// AccountResult is the per-account outcome of a run.
type AccountResult struct {
	AccountID  string
	Since      string // effective fetch-window start used
	Fetched    int    // raw records fetched from Monzo
	Filtered   int    // dropped as declined or unsettled
	Prepared   int    // outgoing records built (incl. mirror legs)
	Posted     int    // records Lunch Money actually created
	Duplicates int    // skipped as already present in Lunch Money
	Cursor     string // new cursor, empty if not committed
	Err        error  // nil on success
}

// Summary is the overall outcome of a run, per account plus totals.
type Summary struct {
	DryRun   bool
	Accounts []AccountResult
}

// Totals sums the per-account counters.
func (s *Summary) Totals() (fetched, filtered, prepared, posted, duplicates int) {
	for _, a := range s.Accounts {
		fetched += a.Fetched
		filtered += a.Filtered
		prepared += a.Prepared
		posted += a.Posted
		duplicates += a.Duplicates
	}
	return
}

// FailedAccounts lists the accounts whose sync failed.
func (s *Summary) FailedAccounts() []string {
	var failed []string
	for _, a := range s.Accounts {
		if a.Err != nil {
			failed = append(failed, a.AccountID)
		}
	}
	return failed
}

// Ok reports whether every account synced cleanly.
func (s *Summary) Ok() bool {
	return len(s.FailedAccounts()) == 0
}
