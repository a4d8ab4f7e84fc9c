package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50

	defaultTemplatesRange = "Templates!A1:Z"
	defaultPackagesRange  = "Packages!A1:Z"
	defaultZendeskBaseURL = "https://api.getbase.com"
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string        `yaml:"port"`
	ShutdownGracePeriod  time.Duration `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    time.Duration `yaml:"read_header_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	IdleTimeout          time.Duration `yaml:"idle_timeout"`
	EnableRequestLogging bool          `yaml:"enable_request_logging"`
	RateLimitRPS         float64       `yaml:"-"`
	RateLimitBurst       int           `yaml:"-"`

	APIKey string `yaml:"api_key"`

	GoogleCredentialsFile string `yaml:"google_credentials_file"`
	GoogleCredentialsJSON string `yaml:"-"`

	SpreadsheetID   string        `yaml:"spreadsheet_id"`
	TemplatesRange  string        `yaml:"templates_range"`
	PackagesRange   string        `yaml:"packages_range"`
	CatalogCacheTTL time.Duration `yaml:"catalog_cache_ttl"`

	DriveFolderID    string        `yaml:"drive_folder_id"`
	CopyPollAttempts int           `yaml:"copy_poll_attempts"`
	CopyPollBackoff  time.Duration `yaml:"copy_poll_backoff"`

	ZendeskBaseURL string `yaml:"zendesk_base_url"`
	ZendeskToken   string `yaml:"-"`
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string        `yaml:"port"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging bool          `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`

	APIKey                string `yaml:"api_key"`
	GoogleCredentialsFile string `yaml:"google_credentials_file"`
	SpreadsheetID         string `yaml:"spreadsheet_id"`
	TemplatesRange        string `yaml:"templates_range"`
	PackagesRange         string `yaml:"packages_range"`
	CatalogCacheTTL       string `yaml:"catalog_cache_ttl"`
	DriveFolderID         string `yaml:"drive_folder_id"`
	CopyPollAttempts      int    `yaml:"copy_poll_attempts"`
	CopyPollBackoff       string `yaml:"copy_poll_backoff"`
	ZendeskBaseURL        string `yaml:"zendesk_base_url"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	SpreadsheetID  *string
	DriveFolderID  *string
	RateLimitRPS   *float64
	RateLimitBurst *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Load from YAML file if specified
	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		applyYAMLConfig(&cfg, yamlCfg)
	}

	// Apply environment variables (override YAML)
	applyEnvConfig(&cfg)

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	// Validate final configuration
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         60 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		TemplatesRange:       defaultTemplatesRange,
		PackagesRange:        defaultPackagesRange,
		CatalogCacheTTL:      60 * time.Second,
		CopyPollAttempts:     5,
		CopyPollBackoff:      200 * time.Millisecond,
		ZendeskBaseURL:       defaultZendeskBaseURL,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	applyDuration(&cfg.ShutdownGracePeriod, yamlCfg.ShutdownGracePeriod)
	applyDuration(&cfg.ReadHeaderTimeout, yamlCfg.ReadHeaderTimeout)
	applyDuration(&cfg.WriteTimeout, yamlCfg.WriteTimeout)
	applyDuration(&cfg.IdleTimeout, yamlCfg.IdleTimeout)
	applyDuration(&cfg.CatalogCacheTTL, yamlCfg.CatalogCacheTTL)
	applyDuration(&cfg.CopyPollBackoff, yamlCfg.CopyPollBackoff)

	cfg.EnableRequestLogging = yamlCfg.EnableRequestLogging

	if yamlCfg.RateLimit.RPS >= 0 {
		cfg.RateLimitRPS = yamlCfg.RateLimit.RPS
	}
	if yamlCfg.RateLimit.Burst >= 0 {
		cfg.RateLimitBurst = yamlCfg.RateLimit.Burst
	}

	if yamlCfg.APIKey != "" {
		cfg.APIKey = yamlCfg.APIKey
	}
	if yamlCfg.GoogleCredentialsFile != "" {
		cfg.GoogleCredentialsFile = yamlCfg.GoogleCredentialsFile
	}
	if yamlCfg.SpreadsheetID != "" {
		cfg.SpreadsheetID = yamlCfg.SpreadsheetID
	}
	if yamlCfg.TemplatesRange != "" {
		cfg.TemplatesRange = yamlCfg.TemplatesRange
	}
	if yamlCfg.PackagesRange != "" {
		cfg.PackagesRange = yamlCfg.PackagesRange
	}
	if yamlCfg.DriveFolderID != "" {
		cfg.DriveFolderID = yamlCfg.DriveFolderID
	}
	if yamlCfg.CopyPollAttempts > 0 {
		cfg.CopyPollAttempts = yamlCfg.CopyPollAttempts
	}
	if yamlCfg.ZendeskBaseURL != "" {
		cfg.ZendeskBaseURL = yamlCfg.ZendeskBaseURL
	}
}

func applyDuration(dst *time.Duration, raw string) {
	if raw == "" {
		return
	}
	if d, err := time.ParseDuration(raw); err == nil {
		*dst = d
	}
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) {
	applyEnvString(&cfg.Port, "PORT")
	applyEnvString(&cfg.APIKey, "API_KEY")
	applyEnvString(&cfg.GoogleCredentialsFile, "GOOGLE_CREDENTIALS_FILE")
	applyEnvString(&cfg.GoogleCredentialsJSON, "GOOGLE_CREDENTIALS_JSON")
	applyEnvString(&cfg.SpreadsheetID, "CONFIG_SPREADSHEET_ID")
	applyEnvString(&cfg.TemplatesRange, "TEMPLATES_RANGE")
	applyEnvString(&cfg.PackagesRange, "PACKAGES_RANGE")
	applyEnvString(&cfg.DriveFolderID, "DRIVE_FOLDER_ID")
	applyEnvString(&cfg.ZendeskBaseURL, "ZENDESK_BASE_URL")
	applyEnvString(&cfg.ZendeskToken, "ZENDESK_TOKEN")

	if ttl := strings.TrimSpace(os.Getenv("CATALOG_CACHE_TTL")); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil && d > 0 {
			cfg.CatalogCacheTTL = d
		}
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}
}

func applyEnvString(dst *string, name string) {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		*dst = value
	}
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}
	if overrides.SpreadsheetID != nil && *overrides.SpreadsheetID != "" {
		cfg.SpreadsheetID = *overrides.SpreadsheetID
	}
	if overrides.DriveFolderID != nil && *overrides.DriveFolderID != "" {
		cfg.DriveFolderID = *overrides.DriveFolderID
	}
	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}
	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if cfg.SpreadsheetID == "" {
		return fmt.Errorf("CONFIG_SPREADSHEET_ID is required")
	}
	if cfg.TemplatesRange == "" || cfg.PackagesRange == "" {
		return fmt.Errorf("templates and packages ranges cannot be empty")
	}
	if cfg.CatalogCacheTTL <= 0 {
		return fmt.Errorf("catalog cache TTL must be positive")
	}
	if cfg.CopyPollAttempts <= 0 || cfg.CopyPollBackoff <= 0 {
		return fmt.Errorf("copy poll attempts and backoff must be positive")
	}
	return nil
}
