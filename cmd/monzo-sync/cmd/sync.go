package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomharle/monzo-lunchmoney-sync/pkg/config"
	"github.com/tomharle/monzo-lunchmoney-sync/pkg/history"
	"github.com/tomharle/monzo-lunchmoney-sync/pkg/state"
	"github.com/tomharle/monzo-lunchmoney-sync/pkg/sync"
)

var (
	syncSince  string
	syncBefore string
	syncDryRun bool
)

// syncCmd represents the sync command.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync Monzo transactions to Lunch Money",
	Long: `Sync transactions from the Monzo API into Lunch Money.

This command:
1. Fetches settled transactions for each configured account since its cursor
2. Classifies internal transfers and savings pot movements
3. Converts them to Lunch Money format with stable external ids
4. Posts them in batches, skipping duplicates
5. Advances each account's cursor only after a fully acknowledged post

Example:
  monzo-sync sync
  monzo-sync sync --since 2025-01-01 --dry-run`,
	Run: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncSince, "since", "", "Backfill start date (YYYY-MM-DD, UTC midnight) for this run only")
	syncCmd.Flags().StringVar(&syncBefore, "before", "", "End date (YYYY-MM-DD, UTC midnight) for this run only")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Dry run mode (no posts, no cursor writes)")
}

func runSync(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	exitOnError(err, "failed to load configuration")
	if syncDryRun {
		cfg.Sync.DryRun = true
	}

	sinceISO, err := parseDayFlag(syncSince)
	exitOnError(err, "invalid --since date (expected YYYY-MM-DD)")
	beforeISO, err := parseDayFlag(syncBefore)
	exitOnError(err, "invalid --before date (expected YYYY-MM-DD)")

	summary, err := runEngine(cfg, sinceISO, beforeISO)
	exitOnError(err, "sync failed")

	printSummary(summary)
	if !summary.Ok() {
		os.Exit(1)
	}
}

// runEngine wires the real clients and stores into an engine and runs
// it once with the given window overrides.
func runEngine(cfg *config.Config, sinceISO, beforeISO string) (*sync.Summary, error) {
	opts := sync.Options{
		Config:         cfg,
		Source:         newMonzoClient(cfg),
		Destination:    newLunchMoneyClient(cfg),
		Cursors:        state.NewStore(cfg.Sync.StatePath),
		Logger:         slog.Default(),
		SinceOverride:  sinceISO,
		BeforeOverride: beforeISO,
	}

	if !cfg.Sync.DryRun {
		if db, err := history.Open(cfg.Sync.HistoryDBPath); err != nil {
			slog.Warn("failed to open history database, continuing without it", "error", err)
		} else {
			defer db.Close()
			opts.History = db
		}
	}

	return sync.New(opts).Run(cmdContext())
}

func printSummary(summary *sync.Summary) {
	for _, a := range summary.Accounts {
		switch {
		case a.Err != nil:
			fmt.Printf("%s: FAILED (%v)\n", a.AccountID, a.Err)
		case summary.DryRun:
			fmt.Printf("%s: DRY-RUN would post %d transactions since %s (%d duplicates)\n",
				a.AccountID, a.Prepared-a.Duplicates, a.Since, a.Duplicates)
		default:
			fmt.Printf("%s: posted %d/%d transactions since %s (%d filtered, %d duplicates)\n",
				a.AccountID, a.Posted, a.Prepared, a.Since, a.Filtered, a.Duplicates)
		}
	}

	fetched, _, prepared, posted, duplicates := summary.Totals()
	if summary.DryRun {
		fmt.Printf("DRY-RUN fetched %d transactions across %d accounts.\n", fetched, len(summary.Accounts))
		return
	}
	fmt.Printf("Posted %d/%d transactions across %d accounts (%d duplicates).\n",
		posted, prepared, len(summary.Accounts), duplicates)
	if failed := summary.FailedAccounts(); len(failed) > 0 {
		fmt.Printf("Failed accounts: %v\n", failed)
	}
}

// parseDayFlag converts YYYY-MM-DD to RFC3339 at UTC midnight; empty
// input passes through.
func parseDayFlag(day string) (string, error) {
	if day == "" {
		return "", nil
	}
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		return "", err
	}
	return t.UTC().Format(time.RFC3339), nil
}
