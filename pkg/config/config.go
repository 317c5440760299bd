// Package config provides configuration management for monzo-sync.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	Monzo      MonzoConfig
	LunchMoney LunchMoneyConfig
	Sync       SyncConfig
}

// MonzoConfig represents Monzo API and account configuration.
type MonzoConfig struct {
	ClientID      string
	ClientSecret  string
	RedirectURI   string
	APIURL        string
	TokenPath     string
	AccountIDs    []string
	AccountLabels map[string]string
	SavingsPotID  string
}

// LunchMoneyConfig represents Lunch Money API configuration.
type LunchMoneyConfig struct {
	AccessToken        string
	APIURL             string
	AssetIDs           map[string]int64 // Monzo account_id -> Lunch Money asset_id
	SavingsAssetID     int64            // 0 if no savings asset configured
	TransferCategoryID int64            // 0 if transfers should post uncategorized
}

// SyncConfig represents sync engine behavior configuration.
type SyncConfig struct {
	StatePath         string
	HistoryDBPath     string
	CategoryMapPath   string
	LookbackDays      int
	MaxBatchSize      int
	OverrideSinceDays int // one-run backfill window, never persisted
	DryRun            bool
}

// Load loads configuration from environment variables. It automatically
// loads a .env file from the current directory if available; a custom
// .env path can be supplied instead.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	assetIDs, err := parseAssetMap(os.Getenv("LM_ASSET_IDS_MAP"))
	if err != nil {
		return nil, fmt.Errorf("invalid LM_ASSET_IDS_MAP: %w", err)
	}
	savingsAssetID, err := parseInt64Env("LM_SAVINGS_ASSET_ID", 0)
	if err != nil {
		return nil, err
	}
	transferCategoryID, err := parseInt64Env("LM_CATEGORY_BANK_TRANSFER_ID", 0)
	if err != nil {
		return nil, err
	}
	lookbackDays, err := parseIntEnv("SYNC_LOOKBACK_DAYS", 7)
	if err != nil {
		return nil, err
	}
	batchSize, err := parseIntEnv("SYNC_MAX_BATCH_SIZE", 100)
	if err != nil {
		return nil, err
	}
	overrideDays, err := parseIntEnv("LM_OVERRIDE_SINCE_DAYS", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Monzo: MonzoConfig{
			ClientID:      os.Getenv("MONZO_CLIENT_ID"),
			ClientSecret:  os.Getenv("MONZO_CLIENT_SECRET"),
			RedirectURI:   getEnvOrDefault("MONZO_REDIRECT_URI", "http://localhost:8080/callback"),
			APIURL:        os.Getenv("MONZO_API_URL"),
			TokenPath:     os.Getenv("MONZO_TOKEN_PATH"),
			AccountIDs:    splitList(os.Getenv("MONZO_ACCOUNT_IDS")),
			AccountLabels: parseLabelMap(os.Getenv("MONZO_ACCOUNT_LABELS")),
			SavingsPotID:  os.Getenv("MONZO_SAVINGS_POT_ID"),
		},
		LunchMoney: LunchMoneyConfig{
			AccessToken:        os.Getenv("LUNCHMONEY_ACCESS_TOKEN"),
			APIURL:             os.Getenv("LUNCHMONEY_API_URL"),
			AssetIDs:           assetIDs,
			SavingsAssetID:     savingsAssetID,
			TransferCategoryID: transferCategoryID,
		},
		Sync: SyncConfig{
			StatePath:         getEnvOrDefault("SYNC_STATE_PATH", "data/last_sync.json"),
			HistoryDBPath:     getEnvOrDefault("SYNC_HISTORY_DB", "data/history.db"),
			CategoryMapPath:   getEnvOrDefault("CATEGORY_MAP_PATH", "category-map.yaml"),
			LookbackDays:      lookbackDays,
			MaxBatchSize:      batchSize,
			OverrideSinceDays: overrideDays,
			DryRun:            parseBool(os.Getenv("DRY_RUN")),
		},
	}

	return cfg, nil
}

// MissingError reports configuration keys that are required but unset.
// It is fatal: the engine aborts before any network call.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing required configuration: %s (check your .env file or environment)",
		strings.Join(e.Keys, ", "))
}

// Validate checks the configuration needed for a sync run. Every
// configured account must map to exactly one Lunch Money asset.
func (c *Config) Validate() error {
	var missing []string

	if len(c.Monzo.AccountIDs) == 0 {
		missing = append(missing, "MONZO_ACCOUNT_IDS")
	}
	if c.LunchMoney.AccessToken == "" {
		missing = append(missing, "LUNCHMONEY_ACCESS_TOKEN")
	}
	for _, acc := range c.Monzo.AccountIDs {
		if _, ok := c.LunchMoney.AssetIDs[acc]; !ok {
			missing = append(missing, "LM_ASSET_IDS_MAP["+acc+"]")
		}
	}
	if c.Monzo.SavingsPotID != "" && c.LunchMoney.SavingsAssetID == 0 {
		missing = append(missing, "LM_SAVINGS_ASSET_ID")
	}

	if len(missing) > 0 {
		return &MissingError{Keys: missing}
	}
	return nil
}

// ValidateAuth checks the OAuth client credentials needed for the
// interactive auth flow and token refresh.
func (c *Config) ValidateAuth() error {
	var missing []string
	if c.Monzo.ClientID == "" {
		missing = append(missing, "MONZO_CLIENT_ID")
	}
	if c.Monzo.ClientSecret == "" {
		missing = append(missing, "MONZO_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return &MissingError{Keys: missing}
	}
	return nil
}

// splitList splits a comma separated list, dropping empty entries.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parseAssetMap parses "acc_1:123,acc_2:456" into a map.
func parseAssetMap(raw string) (map[string]int64, error) {
	out := make(map[string]int64)
	if raw == "" {
		return out, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		acc, id, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("entry %q is not in account:asset_id form", pair)
		}
		parsed, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("entry %q has a non-numeric asset id", pair)
		}
		out[strings.TrimSpace(acc)] = parsed
	}
	return out, nil
}

// parseLabelMap parses "acc_1:personal,acc_2:joint" into a map,
// skipping malformed pairs.
func parseLabelMap(raw string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		acc, label, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		acc = strings.TrimSpace(acc)
		label = strings.TrimSpace(label)
		if acc != "" && label != "" {
			out[acc] = label
		}
	}
	return out
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on", "y":
		return true
	}
	return false
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value for %s: %s", key, value)
	}
	return parsed, nil
}

func parseInt64Env(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value for %s: %s", key, value)
	}
	return parsed, nil
}
