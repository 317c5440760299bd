// Package sync implements the incremental transaction sync engine:
// per-account fetch, filter, classify, transform, idempotent post, and
// cursor advancement.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tomharle/monzo-lunchmoney-sync/pkg/config"
	"github.com/tomharle/monzo-lunchmoney-sync/pkg/history"
	"github.com/tomharle/monzo-lunchmoney-sync/pkg/lunchmoney"
	"github.com/tomharle/monzo-lunchmoney-sync/pkg/monzo"
	"github.com/tomharle/monzo-lunchmoney-sync/pkg/state"
	"github.com/tomharle/monzo-lunchmoney-sync/pkg/transform"
)

// SourceClient fetches transactions from the bank.
type SourceClient interface {
	FetchAllTransactions(ctx context.Context, accountID, sinceISO, beforeISO string) ([]monzo.Transaction, error)
}

// DestinationClient posts transactions to the budgeting ledger.
type DestinationClient interface {
	InsertTransactions(ctx context.Context, txns []lunchmoney.Transaction) (lunchmoney.InsertResult, error)
	ListCategories(ctx context.Context) ([]lunchmoney.Category, error)
	ListTransactions(ctx context.Context, startDate, endDate string) ([]lunchmoney.ExistingTransaction, error)
}

// CursorStore persists per-account sync cursors.
type CursorStore interface {
	Load() (map[string]string, error)
	Set(accountID, cursor string) error
}

// HistoryRecorder records posted transactions. Optional; recording
// failures never fail a sync.
type HistoryRecorder interface {
	RecordPosted(records []history.PostRecord) error
}

// Options configures an Engine.
type Options struct {
	Config      *config.Config
	Source      SourceClient
	Destination DestinationClient
	Cursors     CursorStore
	History     HistoryRecorder // may be nil
	Logger      *slog.Logger    // defaults to slog.Default()
	Now         func() time.Time

	// SinceOverride/BeforeOverride bound the fetch window for this run
	// only (backfill chunks). RFC3339; empty means unbounded/default.
	SinceOverride  string
	BeforeOverride string
}

// Engine drives one sync run across the configured accounts. Accounts
// are processed sequentially and independently: a failure in one is
// recorded and the loop moves on, except auth failures which abort the
// whole run since no account can proceed without a token.
type Engine struct {
	cfg     *config.Config
	source  SourceClient
	dest    DestinationClient
	cursors CursorStore
	history HistoryRecorder
	log     *slog.Logger
	now     func() time.Time

	sinceOverride  string
	beforeOverride string
}

// New creates an Engine.
func New(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		cfg:            opts.Config,
		source:         opts.Source,
		dest:           opts.Destination,
		cursors:        opts.Cursors,
		history:        opts.History,
		log:            log,
		now:            now,
		sinceOverride:  opts.SinceOverride,
		beforeOverride: opts.BeforeOverride,
	}
}

// Run executes one sync run and returns its Summary. The returned
// error is non-nil only for fatal conditions (invalid configuration,
// corrupt cursor state, auth failure); per-account failures live in
// the Summary.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}

	cursors, err := e.cursors.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load sync cursors: %w", err)
	}

	mapper := e.buildMapper(ctx)
	topo := transform.Topology{
		AccountIDs:   make(map[string]bool, len(e.cfg.Monzo.AccountIDs)),
		SavingsPotID: e.cfg.Monzo.SavingsPotID,
	}
	for _, id := range e.cfg.Monzo.AccountIDs {
		topo.AccountIDs[id] = true
	}
	tf := transform.NewTransformer(transform.Options{
		AssetIDs:           e.cfg.LunchMoney.AssetIDs,
		SavingsAssetID:     e.cfg.LunchMoney.SavingsAssetID,
		TransferCategoryID: e.cfg.LunchMoney.TransferCategoryID,
		Mapper:             mapper,
	})

	summary := &Summary{DryRun: e.cfg.Sync.DryRun}
	for _, accountID := range e.cfg.Monzo.AccountIDs {
		res := e.syncAccount(ctx, accountID, cursors, tf, topo)
		summary.Accounts = append(summary.Accounts, res)

		if res.Err != nil {
			e.log.Error("account sync failed", "account", accountID, "error", res.Err)
			var authErr *monzo.AuthError
			if errors.As(res.Err, &authErr) {
				return summary, authErr
			}
		}
	}
	return summary, nil
}

// buildMapper loads the static category map and resolves it against
// the Lunch Money category list. Any failure here degrades to syncing
// without category mapping, it never fails the run.
func (e *Engine) buildMapper(ctx context.Context) *transform.CategoryMapper {
	entries, err := transform.LoadCategoryMap(e.cfg.Sync.CategoryMapPath)
	if err != nil {
		e.log.Warn("failed to load category map, continuing without category mapping", "error", err)
		return nil
	}
	if len(entries) == 0 {
		return nil
	}
	categories, err := e.dest.ListCategories(ctx)
	if err != nil {
		e.log.Warn("failed to fetch Lunch Money categories, continuing without category mapping", "error", err)
		return nil
	}
	return transform.BuildCategoryMapper(entries, categories, e.log)
}

func (e *Engine) syncAccount(ctx context.Context, accountID string, cursors map[string]string, tf *transform.Transformer, topo transform.Topology) AccountResult {
	res := AccountResult{AccountID: accountID}

	since := state.EffectiveSince(cursors, accountID,
		e.cfg.Sync.OverrideSinceDays, e.cfg.Sync.LookbackDays, e.now())
	if e.sinceOverride != "" {
		since = e.sinceOverride
	}
	res.Since = since

	// Fetching: all pages or nothing.
	txns, err := e.source.FetchAllTransactions(ctx, accountID, since, e.beforeOverride)
	if err != nil {
		res.Err = &AccountError{AccountID: accountID, Stage: "fetch", Err: err}
		return res
	}
	res.Fetched = len(txns)

	// Filtering: only settled, non-declined transactions are eligible.
	// Everything else is silently discarded.
	eligible := make([]monzo.Transaction, 0, len(txns))
	for _, tx := range txns {
		if tx.Declined || !tx.IsSettled() {
			continue
		}
		eligible = append(eligible, tx)
	}
	res.Filtered = len(txns) - len(eligible)

	if len(eligible) == 0 {
		e.log.Info("nothing to sync", "account", accountID, "since", since, "filtered", res.Filtered)
		return res
	}

	// Transforming: build the full outgoing batch and track the newest
	// source timestamp for the next cursor.
	var batch []lunchmoney.Transaction
	classByExternalID := make(map[string]transform.Classification)
	var maxCreated time.Time
	for _, tx := range eligible {
		class := transform.Classify(tx, topo)
		records := tf.Transform(tx, class)
		if class == transform.InternalTransfer {
			if mirror, ok := e.internalMirror(tx, records[0]); ok {
				records = append(records, mirror)
			}
		}
		for _, r := range records {
			classByExternalID[r.ExternalID] = class
		}
		batch = append(batch, records...)
		if tx.Created.After(maxCreated) {
			maxCreated = tx.Created
		}
	}
	res.Prepared = len(batch)

	// Preflight: drop records whose idempotency key is already in the
	// destination for this window. Best effort; the destination's own
	// dedupe still protects us when this fails.
	existing := e.preflightExternalIDs(ctx, accountID, since, maxCreated)
	if len(existing) > 0 {
		kept := batch[:0]
		for _, r := range batch {
			if r.ExternalID != "" && existing[r.ExternalID] {
				res.Duplicates++
				continue
			}
			kept = append(kept, r)
		}
		batch = kept
	}

	if e.cfg.Sync.DryRun {
		e.log.Info("dry-run: would post transactions",
			"account", accountID, "since", since, "count", len(batch), "duplicates", res.Duplicates)
		return res
	}

	// Posting: bounded sub-batches, every one must be acknowledged.
	var posted []lunchmoney.Transaction
	for start := 0; start < len(batch); start += e.cfg.Sync.MaxBatchSize {
		end := start + e.cfg.Sync.MaxBatchSize
		if end > len(batch) {
			end = len(batch)
		}
		sub := batch[start:end]
		result, err := e.dest.InsertTransactions(ctx, sub)
		if err != nil {
			res.Err = &AccountError{AccountID: accountID, Stage: "post", Err: err}
			return res
		}
		res.Posted += result.Created()
		// skip_duplicates means created < submitted when the server
		// already knew some external ids.
		res.Duplicates += len(sub) - result.Created()
		posted = append(posted, sub...)
	}

	// Committing: advance the cursor only now that every sub-batch is
	// acknowledged. A failed write leaves the old cursor in place.
	// Cursors never move backwards: a backfill chunk replaying history
	// older than the stored cursor keeps it untouched.
	cursor := maxCreated.UTC().Format(time.RFC3339)
	if prev := cursors[accountID]; prev >= cursor {
		res.Cursor = prev
	} else {
		if err := e.cursors.Set(accountID, cursor); err != nil {
			res.Err = &AccountError{AccountID: accountID, Stage: "commit", Err: err}
			return res
		}
		res.Cursor = cursor
		cursors[accountID] = cursor
	}

	e.recordHistory(accountID, posted, classByExternalID)

	e.log.Info("account synced",
		"account", accountID, "since", since,
		"fetched", res.Fetched, "filtered", res.Filtered,
		"posted", res.Posted, "duplicates", res.Duplicates,
		"cursor", cursor)
	return res
}

// internalMirror builds the counterparty leg for a transfer between
// two managed accounts, when the counterparty has an asset mapping.
func (e *Engine) internalMirror(tx monzo.Transaction, base lunchmoney.Transaction) (lunchmoney.Transaction, bool) {
	cp := tx.Counterparty.AccountID
	assetID, ok := e.cfg.LunchMoney.AssetIDs[cp]
	if !ok {
		return lunchmoney.Transaction{}, false
	}

	phrase := "Transfer between Monzo accounts"
	sourceLabel := e.cfg.Monzo.AccountLabels[tx.AccountID]
	targetLabel := e.cfg.Monzo.AccountLabels[cp]
	if sourceLabel != "" && targetLabel != "" {
		phrase = fmt.Sprintf("Transfer to %s from %s", targetLabel, sourceLabel)
	}

	mirror := base
	mirror.Amount = base.Amount.Neg()
	mirror.AssetID = assetID
	mirror.ExternalID = fmt.Sprintf("%s:mirror_internal:%s", tx.ID, cp)
	mirror.Notes = transform.AppendNote(base.Notes, phrase)
	return mirror, true
}

// preflightExternalIDs lists destination transactions over the batch's
// date window and returns their external ids.
func (e *Engine) preflightExternalIDs(ctx context.Context, accountID, since string, maxCreated time.Time) map[string]bool {
	startDate := since
	if len(startDate) >= 10 {
		startDate = startDate[:10]
	}
	endDate := maxCreated.Format("2006-01-02")
	if e.beforeOverride != "" && len(e.beforeOverride) >= 10 {
		endDate = e.beforeOverride[:10]
	}

	existing, err := e.dest.ListTransactions(ctx, startDate, endDate)
	if err != nil {
		e.log.Warn("failed to preflight existing external ids", "account", accountID, "error", err)
		return nil
	}
	ids := make(map[string]bool, len(existing))
	for _, t := range existing {
		if t.ExternalID != "" {
			ids[t.ExternalID] = true
		}
	}
	return ids
}

// recordHistory writes posted records to the history database. Best
// effort only.
func (e *Engine) recordHistory(accountID string, posted []lunchmoney.Transaction, classes map[string]transform.Classification) {
	if e.history == nil || len(posted) == 0 {
		return
	}
	records := make([]history.PostRecord, 0, len(posted))
	for _, t := range posted {
		records = append(records, history.PostRecord{
			AccountID:      accountID,
			ExternalID:     t.ExternalID,
			Date:           t.Date,
			Amount:         t.Amount.String(),
			AssetID:        t.AssetID,
			Classification: classes[t.ExternalID].String(),
		})
	}
	if err := e.history.RecordPosted(records); err != nil {
		e.log.Warn("failed to record post history", "account", accountID, "error", err)
	}
}
