package cmd

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// assetsCmd represents the assets command.
var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "List Lunch Money assets as CSV",
	Long: `List the manually-managed Lunch Money assets as CSV on stdout.

Use this to find the asset ids for LM_ASSET_IDS_MAP and
LM_SAVINGS_ASSET_ID.

Example:
  monzo-sync assets > assets.csv`,
	Run: runAssets,
}

func runAssets(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	exitOnError(err, "failed to load configuration")

	lm := newLunchMoneyClient(cfg)
	assets, err := lm.ListAssets(cmdContext())
	exitOnError(err, "failed to list assets")

	w := csv.NewWriter(os.Stdout)
	_ = w.Write([]string{"id", "type_name", "subtype", "name", "balance", "balance_as_of", "institution_name"})
	for _, a := range assets {
		_ = w.Write([]string{
			strconv.FormatInt(a.ID, 10),
			a.TypeName,
			a.Subtype,
			a.Name,
			a.Balance,
			a.BalanceAsOf,
			a.InstitutionName,
		})
	}
	w.Flush()
	exitOnError(w.Error(), "failed to write CSV")
}
