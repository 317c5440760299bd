package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	backfillFrom   string
	backfillTo     string
	backfillDryRun bool
)

// backfillChunk bounds one engine run; Monzo limits how much history a
// single request window may span.
const backfillChunk = 30 * 24 * time.Hour

// backfillCmd represents the backfill command.
var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Sync historical transactions in 30-day chunks",
	Long: `Backfill historical Monzo transactions into Lunch Money.

Works backwards from --to (default today) to --from in 30-day chunks,
running a full sync for each chunk. Cursors are advanced per chunk as
usual, and external ids keep re-runs idempotent, so an interrupted
backfill can simply be restarted.

Example:
  monzo-sync backfill --from 2024-01-01
  monzo-sync backfill --from 2024-01-01 --to 2024-06-30 --dry-run`,
	Run: runBackfill,
}

func init() {
	backfillCmd.Flags().StringVar(&backfillFrom, "from", "", "Earliest date to backfill (YYYY-MM-DD) (required)")
	backfillCmd.Flags().StringVar(&backfillTo, "to", "", "Latest date to backfill (YYYY-MM-DD, default today)")
	backfillCmd.Flags().BoolVar(&backfillDryRun, "dry-run", false, "Dry run mode (no posts, no cursor writes)")

	backfillCmd.MarkFlagRequired("from")
}

func runBackfill(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	exitOnError(err, "failed to load configuration")
	if backfillDryRun {
		cfg.Sync.DryRun = true
	}

	start, err := time.Parse("2006-01-02", backfillFrom)
	exitOnError(err, "invalid --from date (expected YYYY-MM-DD)")

	end := time.Now().UTC().Truncate(24 * time.Hour)
	if backfillTo != "" {
		end, err = time.Parse("2006-01-02", backfillTo)
		exitOnError(err, "invalid --to date (expected YYYY-MM-DD)")
	}
	if !end.After(start) {
		exitOnError(fmt.Errorf("--to (%s) must be after --from (%s)", backfillTo, backfillFrom), "invalid date range")
	}

	// Newest chunks first, so the common recent history lands before
	// long-tail older data.
	failed := false
	for current := end; current.After(start); {
		chunkStart := current.Add(-backfillChunk)
		if chunkStart.Before(start) {
			chunkStart = start
		}

		fmt.Printf("Syncing chunk %s to %s\n", chunkStart.Format("2006-01-02"), current.Format("2006-01-02"))
		summary, err := runEngine(cfg,
			chunkStart.UTC().Format(time.RFC3339),
			current.UTC().Format(time.RFC3339))
		exitOnError(err, "backfill chunk failed")

		printSummary(summary)
		if !summary.Ok() {
			failed = true
		}
		current = chunkStart
	}

	fmt.Println("Backfill complete.")
	if failed {
		os.Exit(1)
	}
}
