package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "windsync.db" {
			t.Errorf("expected database path windsync.db, got %s", config.Database.Path)
		}

		if config.Sync.Workers != 10 {
			t.Errorf("expected 10 workers, got %d", config.Sync.Workers)
		}

		if config.Sync.BatchSize != 50 {
			t.Errorf("expected batch size 50, got %d", config.Sync.BatchSize)
		}

		if config.Sync.DedupMode != "name" {
			t.Errorf("expected dedup mode name, got %s", config.Sync.DedupMode)
		}

		if config.Credentials.Google.RedirectURI != "http://localhost:3000/callback" {
			t.Errorf("unexpected redirect URI %s", config.Credentials.Google.RedirectURI)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		content := `
[credentials.google]
client_id = "test-client"
client_secret = "test-secret"

[sync]
workers = 4
dedup_mode = "hash"
`
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Credentials.Google.ClientID != "test-client" {
			t.Errorf("expected client_id test-client, got %s", config.Credentials.Google.ClientID)
		}
		if config.Sync.Workers != 4 {
			t.Errorf("expected 4 workers, got %d", config.Sync.Workers)
		}
		if config.Sync.DedupMode != "hash" {
			t.Errorf("expected dedup mode hash, got %s", config.Sync.DedupMode)
		}
	})

	t.Run("LoadConfigMissingFile", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("loading a missing config should fail")
		}
	})

	t.Run("LoadConfigInvalidTOML", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")
		if err := os.WriteFile(configPath, []byte("not [valid toml"), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		if _, err := LoadConfig(configPath); err == nil {
			t.Error("loading invalid TOML should fail")
		}
	})
}
