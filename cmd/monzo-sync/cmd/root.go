// Package cmd provides CLI commands for monzo-sync.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/tomharle/monzo-lunchmoney-sync/pkg/config"
	"github.com/tomharle/monzo-lunchmoney-sync/pkg/lunchmoney"
	"github.com/tomharle/monzo-lunchmoney-sync/pkg/monzo"
)

var (
	cfgFile string
	debug   bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "monzo-sync",
	Short: "Sync Monzo transactions to Lunch Money",
	Long: `monzo-sync is a CLI tool that incrementally synchronizes Monzo
bank transactions into the Lunch Money budgeting API.

It supports:
- Incremental per-account syncing with durable cursors
- Internal transfer and savings pot mirroring
- Idempotent posting via external ids
- Dry-run mode for testing
- Historical backfill in 30-day chunks

Example:
  monzo-sync auth
  monzo-sync sync
  monzo-sync backfill --from 2024-01-01`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logLevel := slog.LevelInfo
		if debug {
			logLevel = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(assetsCmd)
	rootCmd.AddCommand(balancesCmd)
	rootCmd.AddCommand(interestCmd)
}

// loadConfig loads and returns configuration from the selected .env.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newTokenManager builds the Monzo OAuth token manager from config.
func newTokenManager(cfg *config.Config) *monzo.TokenManager {
	return monzo.NewTokenManager(
		cfg.Monzo.ClientID,
		cfg.Monzo.ClientSecret,
		cfg.Monzo.RedirectURI,
		cfg.Monzo.TokenPath,
	)
}

// newMonzoClient builds a Monzo API client backed by stored tokens.
func newMonzoClient(cfg *config.Config) *monzo.Client {
	return monzo.NewClient(monzo.ClientConfig{
		BaseURL: cfg.Monzo.APIURL,
		Tokens:  newTokenManager(cfg),
	})
}

// newLunchMoneyClient builds a Lunch Money API client.
func newLunchMoneyClient(cfg *config.Config) *lunchmoney.Client {
	return lunchmoney.NewClient(lunchmoney.ClientConfig{
		BaseURL:     cfg.LunchMoney.APIURL,
		AccessToken: cfg.LunchMoney.AccessToken,
	})
}

// cmdContext returns a context cancelled on interrupt, so an
// interrupted run stops cleanly without advancing any cursor mid-account.
func cmdContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt)
	return ctx
}

// exitOnError logs the error and exits non-zero.
func exitOnError(err error, msg string) {
	if err != nil {
		slog.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}
