package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/papertrade/ledger-engine/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_DB_URL", "postgres://localhost/ledger")

	path := writeConfig(t, `
port: "9090"
database_url: ${TEST_DB_URL}
starting_cash: "5000"
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://localhost/ledger" {
		t.Errorf("env not expanded: %s", cfg.DatabaseURL)
	}
	if !cfg.StartingCashDecimal().Equal(decimal.NewFromInt(5000)) {
		t.Errorf("expected starting cash 5000, got %s", cfg.StartingCash)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{}`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port, got %s", cfg.Port)
	}
	if cfg.TokenTTLHrs != 24 {
		t.Errorf("expected default token ttl, got %d", cfg.TokenTTLHrs)
	}
	if cfg.StartingCash != "10000" {
		t.Errorf("expected default starting cash, got %s", cfg.StartingCash)
	}
}

func TestLoad_RejectsBadStartingCash(t *testing.T) {
	for _, cash := range []string{"abc", "-100"} {
		path := writeConfig(t, "starting_cash: \""+cash+"\"\n")
		if _, err := config.Load(path); err == nil {
			t.Errorf("starting_cash=%s: expected validation error", cash)
		}
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("STARTING_CASH", "2500")

	cfg, err := config.FromEnv()
	if err != nil {
		t.Fatalf("from env failed: %v", err)
	}
	if cfg.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Port)
	}
	if cfg.StartingCash != "2500" {
		t.Errorf("expected starting cash 2500, got %s", cfg.StartingCash)
	}
}
