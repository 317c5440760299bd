package cmd

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomharle/monzo-lunchmoney-sync/pkg/transform"
)

var (
	categoriesDays   int
	categoriesListLM bool
)

// categoriesCmd represents the categories command.
var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Inspect Monzo category usage and Lunch Money categories",
	Long: `Aggregate Monzo category codes seen across recent transactions,
showing which ones the category map resolves to a Lunch Money
category. Useful for keeping category-map.yaml complete.

With --list-lm, instead lists the Lunch Money categories with their
ids (groups are marked and cannot be assigned to transactions).

Example:
  monzo-sync categories --days 90
  monzo-sync categories --list-lm`,
	Run: runCategories,
}

func init() {
	categoriesCmd.Flags().IntVar(&categoriesDays, "days", 30, "How many days of transactions to inspect")
	categoriesCmd.Flags().BoolVar(&categoriesListLM, "list-lm", false, "List Lunch Money categories instead")
}

func runCategories(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	exitOnError(err, "failed to load configuration")
	ctx := cmdContext()

	if categoriesListLM {
		lm := newLunchMoneyClient(cfg)
		categories, err := lm.ListCategories(ctx)
		exitOnError(err, "failed to list Lunch Money categories")

		fmt.Println("\n=== Lunch Money Categories ===")
		for _, cat := range categories {
			marker := ""
			if cat.IsGroup {
				marker = " (group)"
			}
			fmt.Printf("  %6d  %s%s\n", cat.ID, cat.Name, marker)
		}
		fmt.Println()
		return
	}

	exitOnError(cfg.Validate(), "invalid configuration")

	entries, err := transform.LoadCategoryMap(cfg.Sync.CategoryMapPath)
	if err != nil {
		slog.Warn("Category map unavailable", "path", cfg.Sync.CategoryMapPath, "error", err)
	}

	lm := newLunchMoneyClient(cfg)
	lmCategories, err := lm.ListCategories(ctx)
	exitOnError(err, "failed to list Lunch Money categories")
	mapper := transform.BuildCategoryMapper(entries, lmCategories, slog.Default())

	since := time.Now().UTC().AddDate(0, 0, -categoriesDays).Format(time.RFC3339)
	source := newMonzoClient(cfg)

	counts := make(map[string]int)
	for _, account := range cfg.Monzo.AccountIDs {
		txns, err := source.FetchAllTransactions(ctx, account, since, "")
		if err != nil {
			slog.Warn("Failed to fetch transactions", "account", account, "error", err)
			continue
		}
		for _, tx := range txns {
			if tx.Declined || tx.Category == "" {
				continue
			}
			counts[tx.Category]++
		}
	}

	fmt.Printf("\n=== Monzo Categories (last %d days) ===\n", categoriesDays)
	for _, code := range sortedCategoryCodes(counts) {
		target := "(unmapped)"
		if id, ok := mapper.Resolve(code); ok {
			target = fmt.Sprintf("-> %d", id)
		}
		fmt.Printf("  %-24s %4d  %s\n", code, counts[code], target)
	}
	fmt.Println()
}

// sortedCategoryCodes orders by descending count, then name.
func sortedCategoryCodes(counts map[string]int) []string {
	codes := make([]string, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		if counts[codes[i]] != counts[codes[j]] {
			return counts[codes[i]] > counts[codes[j]]
		}
		return codes[i] < codes[j]
	})
	return codes
}
