package config

import (
	"errors"
	"strings"
	"testing"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty", "", nil},
		{"single", "acc_1", []string{"acc_1"}},
		{"multiple", "acc_1,acc_2", []string{"acc_1", "acc_2"}},
		{"whitespace and empties", " acc_1 , , acc_2 ,", []string{"acc_1", "acc_2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitList(tt.input)
			if len(got) != len(tt.expected) {
				t.Fatalf("splitList(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("splitList(%q)[%d] = %q, expected %q", tt.input, i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestParseAssetMap(t *testing.T) {
	got, err := parseAssetMap("acc_1:123, acc_2:456")
	if err != nil {
		t.Fatalf("parseAssetMap: %v", err)
	}
	if got["acc_1"] != 123 || got["acc_2"] != 456 {
		t.Errorf("parseAssetMap = %v", got)
	}

	if _, err := parseAssetMap("acc_1=123"); err == nil {
		t.Error("expected error for missing colon")
	}
	if _, err := parseAssetMap("acc_1:abc"); err == nil {
		t.Error("expected error for non-numeric asset id")
	}
	if got, err := parseAssetMap(""); err != nil || len(got) != 0 {
		t.Errorf("empty input = (%v, %v), expected empty map", got, err)
	}
}

func TestParseLabelMap(t *testing.T) {
	got := parseLabelMap("acc_1:personal, acc_2:joint, malformed")
	if got["acc_1"] != "personal" || got["acc_2"] != "joint" {
		t.Errorf("parseLabelMap = %v", got)
	}
	if len(got) != 2 {
		t.Errorf("malformed pair should be skipped, got %v", got)
	}
}

func TestParseBool(t *testing.T) {
	for _, truthy := range []string{"1", "true", "TRUE", "yes", "on", "y", " True "} {
		if !parseBool(truthy) {
			t.Errorf("parseBool(%q) = false, expected true", truthy)
		}
	}
	for _, falsy := range []string{"", "0", "false", "no", "off", "nonsense"} {
		if parseBool(falsy) {
			t.Errorf("parseBool(%q) = true, expected false", falsy)
		}
	}
}

func validConfig() *Config {
	return &Config{
		Monzo: MonzoConfig{
			AccountIDs: []string{"acc_1", "acc_2"},
		},
		LunchMoney: LunchMoneyConfig{
			AccessToken: "token",
			AssetIDs:    map[string]int64{"acc_1": 10, "acc_2": 20},
		},
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestValidateMissingAssetMapping(t *testing.T) {
	cfg := validConfig()
	delete(cfg.LunchMoney.AssetIDs, "acc_2")

	err := cfg.Validate()
	var missing *MissingError
	if !errors.As(err, &missing) {
		t.Fatalf("Validate = %v, expected MissingError", err)
	}
	if !strings.Contains(err.Error(), "LM_ASSET_IDS_MAP[acc_2]") {
		t.Errorf("error does not name the unmapped account: %v", err)
	}
}

func TestValidateMissingToken(t *testing.T) {
	cfg := validConfig()
	cfg.LunchMoney.AccessToken = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing access token")
	}
}

func TestValidatePotRequiresSavingsAsset(t *testing.T) {
	cfg := validConfig()
	cfg.Monzo.SavingsPotID = "pot_savings"
	if err := cfg.Validate(); err == nil {
		t.Error("configured pot without savings asset should fail validation")
	}

	cfg.LunchMoney.SavingsAssetID = 30
	if err := cfg.Validate(); err != nil {
		t.Errorf("pot with savings asset rejected: %v", err)
	}
}

func TestValidateAuth(t *testing.T) {
	cfg := &Config{}
	if err := cfg.ValidateAuth(); err == nil {
		t.Error("expected error for missing client credentials")
	}

	cfg.Monzo.ClientID = "id"
	cfg.Monzo.ClientSecret = "secret"
	if err := cfg.ValidateAuth(); err != nil {
		t.Errorf("ValidateAuth: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MONZO_ACCOUNT_IDS", "acc_1,acc_2")
	t.Setenv("LUNCHMONEY_ACCESS_TOKEN", "token")
	t.Setenv("LM_ASSET_IDS_MAP", "acc_1:10,acc_2:20")
	t.Setenv("SYNC_LOOKBACK_DAYS", "14")
	t.Setenv("DRY_RUN", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Monzo.AccountIDs) != 2 {
		t.Errorf("AccountIDs = %v", cfg.Monzo.AccountIDs)
	}
	if cfg.LunchMoney.AssetIDs["acc_2"] != 20 {
		t.Errorf("AssetIDs = %v", cfg.LunchMoney.AssetIDs)
	}
	if cfg.Sync.LookbackDays != 14 {
		t.Errorf("LookbackDays = %d, expected 14", cfg.Sync.LookbackDays)
	}
	if !cfg.Sync.DryRun {
		t.Error("DryRun should be true")
	}
	if cfg.Sync.MaxBatchSize != 100 {
		t.Errorf("MaxBatchSize default = %d, expected 100", cfg.Sync.MaxBatchSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadRejectsBadInteger(t *testing.T) {
	t.Setenv("SYNC_LOOKBACK_DAYS", "soon")
	if _, err := Load(); err == nil {
		t.Error("expected error for non-integer SYNC_LOOKBACK_DAYS")
	}
}
