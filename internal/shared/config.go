package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Sync        SyncConfig        `toml:"sync"`
	Cache       CacheConfig       `toml:"cache"`
	Database    DatabaseConfig    `toml:"database"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Google GoogleConfig `toml:"google"`
}

// GoogleConfig contains the OAuth client used for both Drive and Photos.
type GoogleConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	TokenPath    string `toml:"token_path"`
}

// SyncConfig contains tuning knobs for the transfer pipeline.
type SyncConfig struct {
	Workers          int     `toml:"workers"`            // parallel transfer workers
	BatchSize        int     `toml:"batch_size"`         // max items per group commit
	FlushInterval    float64 `toml:"flush_interval"`     // seconds of batcher inactivity before a flush
	SaveEvery        int     `toml:"save_every"`         // ledger records between checkpoints
	RetryAttempts    int     `toml:"retry_attempts"`     // attempt ceiling for transient errors
	RetryBaseDelay   float64 `toml:"retry_base_delay"`   // seconds, doubled each attempt
	RateLimit        float64 `toml:"rate_limit"`         // downloads per second across the pool
	DedupMode        string  `toml:"dedup_mode"`         // none, name, hash, name+hash
	LedgerIDsPath    string  `toml:"ledger_ids_path"`    // committed source IDs
	LedgerHashesPath string  `toml:"ledger_hashes_path"` // committed content hashes
}

// CacheConfig contains settings for the destination filename cache.
type CacheConfig struct {
	Path string `toml:"path"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
