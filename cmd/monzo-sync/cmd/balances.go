package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomharle/monzo-lunchmoney-sync/pkg/config"
	"github.com/tomharle/monzo-lunchmoney-sync/pkg/lunchmoney"
	"github.com/tomharle/monzo-lunchmoney-sync/pkg/monzo"
	"github.com/tomharle/monzo-lunchmoney-sync/pkg/transform"
)

var balancesDryRun bool

// balancesCmd represents the balances command.
var balancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "Push Monzo balances to Lunch Money assets",
	Long: `Fetch the current balance of each configured Monzo account (and
the savings pot, if configured) and update the mapped Lunch Money
asset balances to match.

Example:
  monzo-sync balances
  monzo-sync balances --dry-run`,
	Run: runBalances,
}

func init() {
	balancesCmd.Flags().BoolVar(&balancesDryRun, "dry-run", false, "Show balances without updating Lunch Money")
}

func runBalances(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	exitOnError(err, "failed to load configuration")
	exitOnError(cfg.Validate(), "invalid configuration")

	ctx := cmdContext()
	source := newMonzoClient(cfg)
	lm := newLunchMoneyClient(cfg)

	failed := 0
	for _, account := range cfg.Monzo.AccountIDs {
		assetID := cfg.LunchMoney.AssetIDs[account]

		balance, err := source.FetchBalance(ctx, account)
		if err != nil {
			slog.Error("Failed to fetch balance", "account", account, "error", err)
			failed++
			continue
		}
		major := transform.MajorUnits(balance.Balance, balance.Currency)

		fmt.Printf("%-30s %10s %s -> asset %d\n", accountLabel(cfg.Monzo.AccountLabels, account),
			major.StringFixed(2), balance.Currency, assetID)

		if balancesDryRun {
			continue
		}
		if err := lm.UpdateAssetBalance(ctx, assetID, major.StringFixed(2)); err != nil {
			slog.Error("Failed to update asset balance", "asset_id", assetID, "error", err)
			failed++
		}
	}

	if cfg.Monzo.SavingsPotID != "" {
		if err := pushPotBalance(ctx, cfg, source, lm); err != nil {
			slog.Error("Failed to sync savings pot balance", "pot", cfg.Monzo.SavingsPotID, "error", err)
			failed++
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// pushPotBalance looks the savings pot up across the configured
// accounts and pushes its balance to the savings asset.
func pushPotBalance(ctx context.Context, cfg *config.Config, source *monzo.Client, lm *lunchmoney.Client) error {
	for _, account := range cfg.Monzo.AccountIDs {
		pots, err := source.ListPots(ctx, account)
		if err != nil {
			return err
		}
		for _, pot := range pots {
			if pot.ID != cfg.Monzo.SavingsPotID || pot.Deleted {
				continue
			}
			major := transform.MajorUnits(pot.Balance, pot.Currency)
			fmt.Printf("%-30s %10s %s -> asset %d\n", "pot: "+pot.Name,
				major.StringFixed(2), pot.Currency, cfg.LunchMoney.SavingsAssetID)
			if balancesDryRun {
				return nil
			}
			return lm.UpdateAssetBalance(ctx, cfg.LunchMoney.SavingsAssetID, major.StringFixed(2))
		}
	}
	return fmt.Errorf("pot %s not found on any configured account", cfg.Monzo.SavingsPotID)
}

func accountLabel(labels map[string]string, account string) string {
	if label, ok := labels[account]; ok {
		return label
	}
	return account
}
