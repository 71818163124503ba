package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./songlist.db" {
			t.Errorf("expected database path ./songlist.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.Credentials.Spotify.RedirectURI != "http://localhost:8080/callback" {
			t.Errorf("unexpected redirect uri %s", config.Credentials.Spotify.RedirectURI)
		}

		if config.Import.ReportPath != "unable_to_find.txt" {
			t.Errorf("expected report path unable_to_find.txt, got %s", config.Import.ReportPath)
		}

		if config.Import.Delay.Duration != 500*time.Millisecond {
			t.Errorf("expected delay 500ms, got %v", config.Import.Delay)
		}

		if config.Import.Backoff.Duration != 5*time.Second {
			t.Errorf("expected backoff 5s, got %v", config.Import.Backoff)
		}

		if config.Import.LegacyRetry {
			t.Error("expected legacy retry to be off by default")
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[server]
host = "0.0.0.0"
port = 9090

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"

[import]
delay = "1s"
legacy_retry = true
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}
		if config.Server.Port != 9090 {
			t.Errorf("expected server port 9090, got %d", config.Server.Port)
		}
		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Import.Delay.Duration != time.Second {
			t.Errorf("expected delay 1s, got %v", config.Import.Delay)
		}
		if !config.Import.LegacyRetry {
			t.Error("expected legacy retry to be enabled")
		}
		if config.Import.Backoff.Duration != 5*time.Second {
			t.Errorf("expected backoff to keep its default, got %v", config.Import.Backoff)
		}
		if config.Import.ReportPath != "unable_to_find.txt" {
			t.Errorf("expected report path default, got %s", config.Import.ReportPath)
		}
	})

	t.Run("LoadConfig invalid duration", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[import]\ndelay = \"soon\"\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected error for invalid duration")
		}
	})

	t.Run("LoadOrDefault missing file", func(t *testing.T) {
		config, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.Server.Port != 8080 {
			t.Errorf("expected defaults, got port %d", config.Server.Port)
		}
	})

	t.Run("SaveConfig round trips tokens", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()
		expiry := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

		err := config.Credentials.Spotify.Update(&oauth2.Token{
			AccessToken:  "access",
			RefreshToken: "refresh",
			TokenType:    "Bearer",
			Expiry:       expiry,
		})
		if err != nil {
			t.Fatalf("failed to update token: %v", err)
		}

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		info, err := os.Stat(configPath)
		if err != nil {
			t.Fatalf("config file should exist: %v", err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to reload config: %v", err)
		}

		token := loaded.Credentials.Spotify.Token()
		if token == nil {
			t.Fatal("expected cached token")
		}
		if token.AccessToken != "access" || token.RefreshToken != "refresh" {
			t.Errorf("unexpected token %+v", token)
		}
		if !token.Expiry.Equal(expiry) {
			t.Errorf("expected expiry %v, got %v", expiry, token.Expiry)
		}
		if loaded.Import.Delay.Duration != 500*time.Millisecond {
			t.Errorf("expected delay to survive round trip, got %v", loaded.Import.Delay)
		}
	})
}

func TestSpotifyConfig(t *testing.T) {
	t.Run("Token without refresh token", func(t *testing.T) {
		cfg := SpotifyConfig{AccessToken: "only-access"}
		if cfg.Token() != nil {
			t.Error("expected nil token without a refresh token")
		}
	})

	t.Run("Update keeps previous refresh token", func(t *testing.T) {
		cfg := SpotifyConfig{RefreshToken: "old"}
		if err := cfg.Update(&oauth2.Token{AccessToken: "new"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.RefreshToken != "old" {
			t.Errorf("expected refresh token to be kept, got %s", cfg.RefreshToken)
		}
		if cfg.AccessToken != "new" {
			t.Errorf("expected access token to be replaced, got %s", cfg.AccessToken)
		}
	})

	t.Run("Update rejects empty token", func(t *testing.T) {
		cfg := SpotifyConfig{}
		if err := cfg.Update(nil); err == nil {
			t.Error("expected error for nil token")
		}
		if err := cfg.Update(&oauth2.Token{}); err == nil {
			t.Error("expected error for empty access token")
		}
	})

	t.Run("Map", func(t *testing.T) {
		m := SpotifyConfig{ClientID: "id", ClientSecret: "secret", RedirectURI: "uri"}.Map()
		if m["client_id"] != "id" || m["client_secret"] != "secret" || m["redirect_uri"] != "uri" {
			t.Errorf("unexpected map %v", m)
		}
	})
}
