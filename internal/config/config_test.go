package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_SPREADSHEET_ID", "sheet-env")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.TemplatesRange != "Templates!A1:Z" || cfg.PackagesRange != "Packages!A1:Z" {
		t.Fatalf("unexpected default ranges: %s / %s", cfg.TemplatesRange, cfg.PackagesRange)
	}
	if cfg.CatalogCacheTTL != 60*time.Second {
		t.Fatalf("expected 60s cache TTL, got %v", cfg.CatalogCacheTTL)
	}
	if cfg.CopyPollAttempts != 5 || cfg.CopyPollBackoff != 200*time.Millisecond {
		t.Fatalf("unexpected poll defaults: %d / %v", cfg.CopyPollAttempts, cfg.CopyPollBackoff)
	}
	if cfg.ZendeskBaseURL != "https://api.getbase.com" {
		t.Fatalf("unexpected zendesk base URL: %s", cfg.ZendeskBaseURL)
	}
	if cfg.SpreadsheetID != "sheet-env" {
		t.Fatalf("expected spreadsheet id from env, got %s", cfg.SpreadsheetID)
	}
}

func TestLoadRequiresSpreadsheetID(t *testing.T) {
	t.Setenv("CONFIG_SPREADSHEET_ID", "")

	if _, err := Load(nil); err == nil {
		t.Fatalf("expected error without spreadsheet id")
	}
}

func TestLoadAppliesEnvironment(t *testing.T) {
	t.Setenv("CONFIG_SPREADSHEET_ID", "sheet-env")
	t.Setenv("PORT", "9000")
	t.Setenv("API_KEY", "env-key")
	t.Setenv("TEMPLATES_RANGE", "Tpl!A1:M")
	t.Setenv("PACKAGES_RANGE", "Pkg!A1:M")
	t.Setenv("CATALOG_CACHE_TTL", "90s")
	t.Setenv("DRIVE_FOLDER_ID", "folder-env")
	t.Setenv("ZENDESK_TOKEN", "sell-token")
	t.Setenv("RATE_LIMIT_RPS", "7.5")
	t.Setenv("RATE_LIMIT_BURST", "9")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "9000" || cfg.APIKey != "env-key" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.TemplatesRange != "Tpl!A1:M" || cfg.PackagesRange != "Pkg!A1:M" {
		t.Fatalf("range env overrides not applied: %+v", cfg)
	}
	if cfg.CatalogCacheTTL != 90*time.Second {
		t.Fatalf("TTL env override not applied: %v", cfg.CatalogCacheTTL)
	}
	if cfg.DriveFolderID != "folder-env" || cfg.ZendeskToken != "sell-token" {
		t.Fatalf("drive/zendesk env overrides not applied: %+v", cfg)
	}
	if cfg.RateLimitRPS != 7.5 || cfg.RateLimitBurst != 9 {
		t.Fatalf("rate limit env overrides not applied: %+v", cfg)
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	t.Setenv("CONFIG_SPREADSHEET_ID", "")

	content := `
port: "8081"
spreadsheet_id: sheet-yaml
templates_range: Tpl!A1:Q
packages_range: Pkg!A1:Q
catalog_cache_ttl: 2m
copy_poll_attempts: 7
copy_poll_backoff: 300ms
drive_folder_id: folder-yaml
zendesk_base_url: https://sell.example
api_key: yaml-key
enable_request_logging: true
rate_limit:
  rps: 10
  burst: 20
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Load(&CLIOverrides{ConfigFile: path})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "8081" || cfg.SpreadsheetID != "sheet-yaml" {
		t.Fatalf("YAML values not applied: %+v", cfg)
	}
	if cfg.CatalogCacheTTL != 2*time.Minute || cfg.CopyPollAttempts != 7 || cfg.CopyPollBackoff != 300*time.Millisecond {
		t.Fatalf("YAML durations not applied: %+v", cfg)
	}
	if cfg.ZendeskBaseURL != "https://sell.example" || cfg.APIKey != "yaml-key" {
		t.Fatalf("YAML strings not applied: %+v", cfg)
	}
	if cfg.RateLimitRPS != 10 || cfg.RateLimitBurst != 20 {
		t.Fatalf("YAML rate limit not applied: %+v", cfg)
	}
}

func TestLoadPrecedence(t *testing.T) {
	content := `
port: "8081"
spreadsheet_id: sheet-yaml
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("PORT", "9000")
	t.Setenv("CONFIG_SPREADSHEET_ID", "sheet-env")

	flagPort := "7000"
	cfg, err := Load(&CLIOverrides{ConfigFile: path, Port: &flagPort})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "7000" {
		t.Fatalf("CLI flag must win, got port %s", cfg.Port)
	}
	if cfg.SpreadsheetID != "sheet-env" {
		t.Fatalf("env must beat YAML, got %s", cfg.SpreadsheetID)
	}
}

func TestLoadRejectsMissingConfigFile(t *testing.T) {
	if _, err := Load(&CLIOverrides{ConfigFile: "does-not-exist.yaml"}); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestLoadCLISpreadsheetOverride(t *testing.T) {
	t.Setenv("CONFIG_SPREADSHEET_ID", "sheet-env")

	id := "sheet-flag"
	folder := "folder-flag"
	cfg, err := Load(&CLIOverrides{SpreadsheetID: &id, DriveFolderID: &folder})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.SpreadsheetID != "sheet-flag" || cfg.DriveFolderID != "folder-flag" {
		t.Fatalf("CLI overrides not applied: %+v", cfg)
	}
}
