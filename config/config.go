package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/traderagent/risk"
)

const (
	ModePaper = "paper"
	ModeLive  = "live"
)

// Config is the complete agent configuration.
type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account"`
	Market   MarketConfig   `json:"market" yaml:"market"`
	Oracle   OracleConfig   `json:"oracle" yaml:"oracle"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Risk     risk.Policy    `json:"risk" yaml:"risk"`
	Backtest BacktestConfig `json:"backtest" yaml:"backtest"`
	Log      LogConfig      `json:"log" yaml:"log"`
}

// AccountConfig selects the trading mode and the default account used when
// no state file exists yet.
type AccountConfig struct {
	Mode         string   `json:"mode" yaml:"mode"` // "paper" or "live"
	PaperBalance float64  `json:"paper_balance" yaml:"paper_balance"`
	LiveBalance  float64  `json:"live_balance" yaml:"live_balance"`
	Instruments  []string `json:"instruments" yaml:"instruments"`
	StateDir     string   `json:"state_dir" yaml:"state_dir"`
}

// MarketConfig selects where price history comes from.
type MarketConfig struct {
	Provider string `json:"provider" yaml:"provider"` // "binance" or "csv"
	BaseURL  string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Interval string `json:"interval" yaml:"interval"`
	Limit    int    `json:"limit" yaml:"limit"`
	Quote    string `json:"quote" yaml:"quote"`
	Timeout  string `json:"timeout" yaml:"timeout"` // e.g. "15s"
	CSVPath  string `json:"csv_path,omitempty" yaml:"csv_path,omitempty"`
}

// OracleConfig selects who makes the trading decisions.
type OracleConfig struct {
	Provider          string   `json:"provider" yaml:"provider"` // "openai" or "static"
	Model             string   `json:"model" yaml:"model"`
	FallbackModel     string   `json:"fallback_model" yaml:"fallback_model"`
	BaseURL           string   `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIKeyEnv         string   `json:"api_key_env" yaml:"api_key_env"`
	Timeout           string   `json:"timeout" yaml:"timeout"`
	MaxRetries        int      `json:"max_retries" yaml:"max_retries"`
	RequestsPerMinute float64  `json:"requests_per_minute" yaml:"requests_per_minute"`
	UseVolume         bool     `json:"use_volume" yaml:"use_volume"`
	Responses         []string `json:"responses,omitempty" yaml:"responses,omitempty"`
}

// JournalConfig contains journaling parameters.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	FillsFile  string `json:"fills_file,omitempty" yaml:"fills_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

type BacktestConfig struct {
	Warmup     int    `json:"warmup" yaml:"warmup"`
	ReportPath string `json:"report_path,omitempty" yaml:"report_path,omitempty"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

// Paper reports whether the account trades on paper.
func (c *Config) Paper() bool {
	return c.Account.Mode != ModeLive
}

// StartingBalance is the default balance for the configured mode.
func (c *Config) StartingBalance() float64 {
	if c.Paper() {
		return c.Account.PaperBalance
	}
	return c.Account.LiveBalance
}

// StatePath returns the account file for the configured mode.
func (c *Config) StatePath() string {
	name := "balance.json"
	if c.Paper() {
		name = "paper_balance.json"
	}
	return filepath.Join(c.Account.StateDir, name)
}

// APIKey reads the oracle key from the configured environment variable.
func (c *Config) APIKey() string {
	return strings.TrimSpace(os.Getenv(c.Oracle.APIKeyEnv))
}

// MarketTimeout parses market.timeout; empty means zero.
func (c *Config) MarketTimeout() (time.Duration, error) {
	return parseDuration(c.Market.Timeout)
}

// OracleTimeout parses oracle.timeout; empty means zero.
func (c *Config) OracleTimeout() (time.Duration, error) {
	return parseDuration(c.Oracle.Timeout)
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// LoadEnv loads KEY=VALUE pairs from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// LoadFromFile loads configuration from a file (YAML or JSON). Fields the
// file leaves out keep their Default values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

func (c *Config) normalize() {
	c.Account.Mode = strings.ToLower(strings.TrimSpace(c.Account.Mode))
	for i, sym := range c.Account.Instruments {
		c.Account.Instruments[i] = strings.ToUpper(strings.TrimSpace(sym))
	}
	c.Market.Provider = strings.ToLower(strings.TrimSpace(c.Market.Provider))
	c.Oracle.Provider = strings.ToLower(strings.TrimSpace(c.Oracle.Provider))
	c.Journal.Type = strings.ToLower(strings.TrimSpace(c.Journal.Type))
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Account.Mode != ModePaper && c.Account.Mode != ModeLive {
		return fmt.Errorf("account.mode must be 'paper' or 'live'")
	}
	if c.Account.PaperBalance <= 0 || c.Account.LiveBalance <= 0 {
		return fmt.Errorf("account balances must be positive")
	}
	if len(c.Account.Instruments) == 0 {
		return fmt.Errorf("account.instruments is required")
	}
	seen := map[string]bool{}
	for _, sym := range c.Account.Instruments {
		if sym == "" || strings.ContainsAny(sym, ": \t") {
			return fmt.Errorf("invalid instrument %q", sym)
		}
		if seen[sym] {
			return fmt.Errorf("duplicate instrument %q", sym)
		}
		seen[sym] = true
	}
	if c.Account.StateDir == "" {
		return fmt.Errorf("account.state_dir is required")
	}

	switch c.Market.Provider {
	case "binance":
	case "csv":
		if c.Market.CSVPath == "" {
			return fmt.Errorf("market.csv_path required for csv provider")
		}
	default:
		return fmt.Errorf("market.provider must be 'binance' or 'csv'")
	}
	if c.Market.Limit <= 0 {
		return fmt.Errorf("market.limit must be positive")
	}
	if _, err := c.MarketTimeout(); err != nil {
		return fmt.Errorf("market.timeout: %w", err)
	}

	switch c.Oracle.Provider {
	case "openai":
		if c.Oracle.Model == "" {
			return fmt.Errorf("oracle.model is required")
		}
		if c.Oracle.APIKeyEnv == "" {
			return fmt.Errorf("oracle.api_key_env is required")
		}
	case "static":
	default:
		return fmt.Errorf("oracle.provider must be 'openai' or 'static'")
	}
	if c.Oracle.RequestsPerMinute < 0 {
		return fmt.Errorf("oracle.requests_per_minute must not be negative")
	}
	if _, err := c.OracleTimeout(); err != nil {
		return fmt.Errorf("oracle.timeout: %w", err)
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.FillsFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal fills_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}

	if c.Risk.MaxRiskPct < 0 || c.Risk.MinRR < 0 || c.Risk.MaxOpenPositions < 0 || c.Risk.MaxMarginPct < 0 {
		return fmt.Errorf("risk limits must not be negative")
	}

	if c.Backtest.Warmup < 1 {
		return fmt.Errorf("backtest.warmup must be at least 1")
	}
	if c.Log.Level != "" && !slices.Contains([]string{"debug", "info", "warn", "warning", "error"}, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("log.level must be debug, info, warn or error")
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Mode:         ModePaper,
			PaperBalance: 10000,
			LiveBalance:  1000,
			Instruments:  []string{"BTC", "SOL"},
			StateDir:     "data",
		},
		Market: MarketConfig{
			Provider: "binance",
			Interval: "1h",
			Limit:    72,
			Quote:    "USDT",
			Timeout:  "15s",
		},
		Oracle: OracleConfig{
			Provider:          "openai",
			Model:             "gpt-4o",
			FallbackModel:     "gpt-4",
			APIKeyEnv:         "OPENAI_API_KEY",
			Timeout:           "60s",
			MaxRetries:        2,
			RequestsPerMinute: 20,
			UseVolume:         true,
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "data/trader.sqlite",
		},
		Backtest: BacktestConfig{
			Warmup: 30,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
