package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tomharle/monzo-lunchmoney-sync/pkg/history"
)

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display posting statistics",
	Long: `Display statistics from the local post history database.

Shows:
- Total number of transactions posted to Lunch Money
- Per-account and per-classification breakdowns
- Last posting timestamp

Example:
  monzo-sync stats`,
	Run: runStats,
}

func runStats(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	exitOnError(err, "failed to load configuration")

	db, err := history.Open(cfg.Sync.HistoryDBPath)
	exitOnError(err, "failed to open history database")
	defer db.Close()

	stats, err := db.GetStats()
	exitOnError(err, "failed to get statistics")

	fmt.Println("\n=== Post History ===")
	fmt.Printf("Total posted: %d\n", stats.TotalPosted)
	if stats.LastPostedAt.Valid {
		fmt.Printf("Last posted:  %s\n", stats.LastPostedAt.String)
	} else {
		fmt.Printf("Last posted:  (never)\n")
	}

	if len(stats.ByAccount) > 0 {
		fmt.Println("\nBy account:")
		labels := cfg.Monzo.AccountLabels
		for _, account := range sortedKeys(stats.ByAccount) {
			name := account
			if label, ok := labels[account]; ok {
				name = fmt.Sprintf("%s (%s)", label, account)
			}
			fmt.Printf("  %-40s %d\n", name, stats.ByAccount[account])
		}
	}

	if len(stats.ByClass) > 0 {
		fmt.Println("\nBy classification:")
		for _, class := range sortedKeys(stats.ByClass) {
			fmt.Printf("  %-20s %d\n", class, stats.ByClass[class])
		}
	}

	fmt.Println()
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
