// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ledgersync/ledgersync/internal/adapters/ledger"
)

// Config represents the entire application configuration
type Config struct {
	Ledger        ledger.Config       `yaml:"ledger"`
	Import        ImportConfig        `yaml:"import"`
	Storage       StorageConfig       `yaml:"storage"`
	Workspace     WorkspaceConfig     `yaml:"workspace"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ImportConfig holds statement import settings
type ImportConfig struct {
	// Default category accounts for ledger documents created from
	// unmatched statement lines.
	ExpenseAccountID string `yaml:"expense_account_id"`
	IncomeAccountID  string `yaml:"income_account_id"`
	ToleranceDays    int    `yaml:"tolerance_days"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// WorkspaceConfig holds local workspace settings
type WorkspaceConfig struct {
	// Dir is where reconciliation session files are persisted.
	Dir string `yaml:"dir"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${LEDGER_ACCESS_TOKEN})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := &Config{
		Ledger: ledger.Config{
			Environment:  getEnv("LEDGER_ENVIRONMENT", "sandbox"),
			BaseURL:      os.Getenv("LEDGER_BASE_URL"),
			CompanyID:    os.Getenv("LEDGER_COMPANY_ID"),
			AccessToken:  os.Getenv("LEDGER_ACCESS_TOKEN"),
			RefreshToken: os.Getenv("LEDGER_REFRESH_TOKEN"),
			ClientID:     os.Getenv("LEDGER_CLIENT_ID"),
			ClientSecret: os.Getenv("LEDGER_CLIENT_SECRET"),
			TokenURL:     os.Getenv("LEDGER_TOKEN_URL"),
		},
		Import: ImportConfig{
			ExpenseAccountID: getEnv("LEDGERSYNC_EXPENSE_ACCOUNT", ""),
			IncomeAccountID:  getEnv("LEDGERSYNC_INCOME_ACCOUNT", ""),
			ToleranceDays:    getEnvInt("LEDGERSYNC_TOLERANCE_DAYS", 0),
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("LEDGERSYNC_DB_PATH", ""),
		},
		Workspace: WorkspaceConfig{
			Dir: getEnv("LEDGERSYNC_WORKSPACE", ""),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

func (c *Config) applyDefaults() {
	if c.Import.ExpenseAccountID == "" {
		c.Import.ExpenseAccountID = "31" // Uncategorized Expense
	}
	if c.Import.IncomeAccountID == "" {
		c.Import.IncomeAccountID = "32" // Uncategorized Income
	}
	if c.Import.ToleranceDays <= 0 {
		c.Import.ToleranceDays = 3
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "ledgersync.db"
	}
	if c.Workspace.Dir == "" {
		c.Workspace.Dir = "workspace"
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}
