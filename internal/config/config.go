// Package config provides configuration management for btckit.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all btckit configuration.
type Config struct {
	Network string        `yaml:"network"` // mainnet, testnet, signet, regtest
	RPC     RPCConfig     `yaml:"rpc"`
	Store   StoreConfig   `yaml:"store"`
	Regtest RegtestConfig `yaml:"regtest"`
	Logging LoggingConfig `yaml:"logging"`
}

// RPCConfig configures the bitcoind JSON-RPC client.
type RPCConfig struct {
	URL      string `yaml:"url"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Timeout  string `yaml:"timeout"`
	Wallet   string `yaml:"wallet"` // optional wallet name appended to the URL
}

// StoreConfig configures the local chain index.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// RegtestConfig configures the regtest harness.
type RegtestConfig struct {
	DataDir      string `yaml:"data_dir"`
	DebugLog     string `yaml:"debug_log"`     // defaults to <data_dir>/regtest/debug.log
	PollInterval string `yaml:"poll_interval"` // chain scanner poll interval
	MineAddress  string `yaml:"mine_address"`  // coinbase target for generatetoaddress
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
	File   string `yaml:"file"`   // empty means stderr only
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Network: "mainnet",

		RPC: RPCConfig{
			URL:     "http://127.0.0.1:8332",
			User:    "bitcoin",
			Timeout: "30s",
		},

		Store: StoreConfig{
			DatabasePath: "data/btckit.db",
		},

		Regtest: RegtestConfig{
			DataDir:      "data/regtest",
			PollInterval: "2s",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if net := os.Getenv("BTCKIT_NETWORK"); net != "" {
		c.Network = net
	}
	if url := os.Getenv("BTCKIT_RPC_URL"); url != "" {
		c.RPC.URL = url
	}
	if user := os.Getenv("BTCKIT_RPC_USER"); user != "" {
		c.RPC.User = user
	}
	if pass := os.Getenv("BTCKIT_RPC_PASSWORD"); pass != "" {
		c.RPC.Password = pass
	}
	if path := os.Getenv("BTCKIT_DB"); path != "" {
		c.Store.DatabasePath = path
	}
	if dir := os.Getenv("BTCKIT_REGTEST_DIR"); dir != "" {
		c.Regtest.DataDir = dir
	}
}

// GetRPCTimeout returns the RPC timeout as a duration.
func (c *Config) GetRPCTimeout() time.Duration {
	d, err := time.ParseDuration(c.RPC.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetPollInterval returns the regtest scanner poll interval as a duration.
func (c *Config) GetPollInterval() time.Duration {
	d, err := time.ParseDuration(c.Regtest.PollInterval)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// DebugLogPath returns the configured debug log path, falling back to the
// standard location under the regtest data directory.
func (c *Config) DebugLogPath() string {
	if c.Regtest.DebugLog != "" {
		return c.Regtest.DebugLog
	}
	return filepath.Join(c.Regtest.DataDir, "regtest", "debug.log")
}

// ValidNetworks lists all supported network names.
var ValidNetworks = []string{"mainnet", "testnet", "signet", "regtest"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validNetwork := false
	for _, n := range ValidNetworks {
		if c.Network == n {
			validNetwork = true
			break
		}
	}
	if !validNetwork {
		return fmt.Errorf("invalid network: %s (valid: %v)", c.Network, ValidNetworks)
	}

	if c.RPC.URL == "" {
		return fmt.Errorf("RPC URL not configured")
	}
	if c.RPC.Timeout != "" {
		if _, err := time.ParseDuration(c.RPC.Timeout); err != nil {
			return fmt.Errorf("invalid RPC timeout %q: %w", c.RPC.Timeout, err)
		}
	}
	if c.Regtest.PollInterval != "" {
		if _, err := time.ParseDuration(c.Regtest.PollInterval); err != nil {
			return fmt.Errorf("invalid poll interval %q: %w", c.Regtest.PollInterval, err)
		}
	}

	validLevel := false
	for _, l := range []string{"debug", "info", "warn", "error"} {
		if c.Logging.Level == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}
