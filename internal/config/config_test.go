package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URI", "postgres://localhost/reminders")
	t.Setenv("AGENT_API_URL", "https://agents.example.com")
	t.Setenv("AGENT_API_TOKEN", "")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("TIMEZONE", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DatabaseURI != "postgres://localhost/reminders" {
		t.Errorf("DatabaseURI = %q", cfg.DatabaseURI)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.ListenAddr)
	}
	if cfg.Timezone != "Local" {
		t.Errorf("Timezone = %q, want Local", cfg.Timezone)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URI", "postgres://db/reminders")
	t.Setenv("AGENT_API_URL", "https://agents.example.com")
	t.Setenv("AGENT_API_TOKEN", "secret")
	t.Setenv("LISTEN_ADDR", ":9999")
	t.Setenv("TIMEZONE", "Europe/Amsterdam")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.AgentAPIToken != "secret" {
		t.Errorf("AgentAPIToken = %q", cfg.AgentAPIToken)
	}
	if cfg.ListenAddr != ":9999" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.Timezone != "Europe/Amsterdam" {
		t.Errorf("Timezone = %q", cfg.Timezone)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}
