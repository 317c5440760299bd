package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tomharle/monzo-lunchmoney-sync/pkg/lunchmoney"
)

var (
	interestFile   string
	interestDryRun bool
)

// interestEntry is one manually recorded interest payment. Amount is
// kept as a string so YAML never mangles it into a float.
type interestEntry struct {
	Date   string `yaml:"date"` // YYYY-MM-DD
	Amount string `yaml:"amount"`
	Note   string `yaml:"note"`
}

// interestCmd represents the interest command.
var interestCmd = &cobra.Command{
	Use:   "interest",
	Short: "Post recorded savings interest to Lunch Money",
	Long: `Post manually recorded savings interest entries to the savings
asset. Monzo does not emit interest as transactions, so entries are
kept by hand in a YAML file:

  - date: 2025-01-31
    amount: 1.23
    note: January interest

External ids are derived from the month and amount, so re-running the
command never duplicates an entry.

Example:
  monzo-sync interest
  monzo-sync interest --file data/interest.yaml --dry-run`,
	Run: runInterest,
}

func init() {
	interestCmd.Flags().StringVar(&interestFile, "file", "data/interest.yaml", "Interest entries file")
	interestCmd.Flags().BoolVar(&interestDryRun, "dry-run", false, "Preview entries without posting")
}

func runInterest(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	exitOnError(err, "failed to load configuration")
	if cfg.LunchMoney.SavingsAssetID == 0 {
		exitOnError(fmt.Errorf("LM_SAVINGS_ASSET_ID is not set"), "invalid configuration")
	}

	entries, err := loadInterestEntries(interestFile)
	exitOnError(err, "failed to load interest entries")

	txns := make([]lunchmoney.Transaction, 0, len(entries))
	for _, e := range entries {
		amount, err := decimal.NewFromString(e.Amount)
		if len(e.Date) < 10 || err != nil || amount.IsZero() {
			slog.Warn("Skipping incomplete interest entry", "date", e.Date, "amount", e.Amount)
			continue
		}
		txns = append(txns, buildInterestTxn(e.Date, amount, e.Note, cfg.LunchMoney.SavingsAssetID))
	}
	if len(txns) == 0 {
		fmt.Println("No interest entries to post.")
		return
	}

	if interestDryRun || cfg.Sync.DryRun {
		fmt.Println("DRY RUN - would post:")
		for _, t := range txns {
			fmt.Printf("  %s | %s | %s | ext=%s\n", t.Date, t.Amount.StringFixed(2), t.Payee, t.ExternalID)
		}
		return
	}

	lm := newLunchMoneyClient(cfg)
	result, err := lm.InsertTransactions(cmdContext(), txns)
	exitOnError(err, "failed to post interest entries")
	fmt.Printf("Posted %d/%d interest entries.\n", result.Created(), len(txns))
}

// buildInterestTxn posts interest as a positive inflow. The external
// id is keyed on month and pence, sign-agnostic.
func buildInterestTxn(date string, amount decimal.Decimal, note string, assetID int64) lunchmoney.Transaction {
	amount = amount.Abs()
	pence := amount.Mul(decimal.New(100, 0)).Round(0).IntPart()
	if note == "" {
		note = "Monzo Savings Interest"
	}
	return lunchmoney.Transaction{
		Date:       date,
		Amount:     amount,
		Payee:      "Monzo Savings Interest",
		Notes:      note,
		Status:     "cleared",
		AssetID:    assetID,
		ExternalID: fmt.Sprintf("monzo_pot_interest:%s:%d", date[:7], pence),
	}
}

func loadInterestEntries(path string) ([]interestEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []interestEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return entries, nil
}
