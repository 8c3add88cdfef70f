package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnvironment(t *testing.T) {
	t.Helper()
	for _, env := range os.Environ() {
		key, _, _ := strings.Cut(env, "=")
		if strings.HasPrefix(key, "REMINDERBOT_") {
			t.Setenv(key, "")
		}
	}
}

func TestLoad(t *testing.T) {

	t.Run("applies defaults when nothing is configured", func(t *testing.T) {
		clearEnvironment(t)

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.SQLitePath != "reminderbot.db" {
			t.Fatalf("unexpected default database path: %q", cfg.SQLitePath)
		}
		if cfg.HorizonDays != 30 {
			t.Fatalf("expected default horizon of 30 days, got %d", cfg.HorizonDays)
		}
		if cfg.OpenAIModel == "" {
			t.Fatal("expected a default chat model")
		}
	})

	t.Run("reads values from a YAML file", func(t *testing.T) {
		clearEnvironment(t)

		path := filepath.Join(t.TempDir(), "config.yaml")
		contents := strings.Join([]string{
			"http_port: 9090",
			"sqlite_path: /var/lib/reminderbot/bot.db",
			"green_api_instance_id: inst-1",
			"green_api_token: token-1",
			"horizon_days: 14",
		}, "\n")
		if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 {
			t.Fatalf("expected HTTP port 9090, got %d", cfg.HTTPPort)
		}
		if cfg.SQLitePath != "/var/lib/reminderbot/bot.db" {
			t.Fatalf("unexpected database path: %q", cfg.SQLitePath)
		}
		if cfg.HorizonDays != 14 {
			t.Fatalf("expected horizon of 14 days, got %d", cfg.HorizonDays)
		}
		if err := cfg.ValidateMessaging(); err != nil {
			t.Fatalf("ValidateMessaging returned error: %v", err)
		}
	})

	t.Run("environment overrides file values", func(t *testing.T) {
		clearEnvironment(t)

		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("http_port: 9090\n"), 0o600); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		t.Setenv("REMINDERBOT_CONFIG", path)
		t.Setenv("REMINDERBOT_HTTP_PORT", "7070")
		t.Setenv("REMINDERBOT_OPENAI_API_KEY", "sk-test")

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 7070 {
			t.Fatalf("expected HTTP port 7070, got %d", cfg.HTTPPort)
		}
		if err := cfg.ValidateAgent(); err != nil {
			t.Fatalf("ValidateAgent returned error: %v", err)
		}
	})

	t.Run("errors on an explicit file that does not exist", func(t *testing.T) {
		clearEnvironment(t)

		if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Fatal("expected error for a missing config file")
		}
	})

	t.Run("errors on invalid numeric values", func(t *testing.T) {
		clearEnvironment(t)

		t.Setenv("REMINDERBOT_HTTP_PORT", "not-a-port")

		_, err := Load("")
		if err == nil {
			t.Fatal("expected error for an invalid port")
		}
		if !strings.Contains(err.Error(), "REMINDERBOT_HTTP_PORT") {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("missing credentials fail targeted validation only", func(t *testing.T) {
		clearEnvironment(t)

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if err := cfg.ValidateMessaging(); err == nil {
			t.Fatal("expected ValidateMessaging to fail without credentials")
		}
		if err := cfg.ValidateAgent(); err == nil {
			t.Fatal("expected ValidateAgent to fail without an API key")
		}
	})
}
