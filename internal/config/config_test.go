package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8000" || cfg.DataSource.Name != "yahoo" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.DataSource.Timeout != 15*time.Second {
		t.Errorf("timeout = %v", cfg.DataSource.Timeout)
	}
	if cfg.Health.Cron == "" || cfg.Health.ProbeSymbol == "" {
		t.Error("health defaults not applied")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
	if cfg.TelegramEnabled() {
		t.Error("telegram should be disabled by default")
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9000"
  allowed_origins: ["http://localhost:8501"]
data_source:
  name: REST
  base_url: http://md.local
  timeout: 3s
health:
  probe_symbol: MSFT
`)
	t.Setenv("DATA_SOURCE_API_KEY", "k")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("QUANT_ADDR", ":9100")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9100" {
		t.Errorf("addr = %q, env should win", cfg.Server.Addr)
	}
	if cfg.DataSource.Name != "rest" || cfg.DataSource.APIKey != "k" || cfg.DataSource.Timeout != 3*time.Second {
		t.Errorf("unexpected data source: %+v", cfg.DataSource)
	}
	if cfg.Log.Level != "debug" || cfg.Health.ProbeSymbol != "MSFT" {
		t.Errorf("unexpected log/health: %+v %+v", cfg.Log, cfg.Health)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "http://localhost:8501" {
		t.Errorf("origins = %v", cfg.Server.AllowedOrigins)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadBadYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "server: [")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
	}{
		{"unknown source", func(c *Config) { c.DataSource.Name = "bloomberg" }},
		{"rest without url", func(c *Config) { c.DataSource.Name = "rest"; c.DataSource.BaseURL = "" }},
		{"telegram half configured", func(c *Config) { c.Telegram.BotToken = "t" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
			if err != nil {
				t.Fatal(err)
			}
			tc.mut(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
