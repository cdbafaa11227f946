package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Session.TextStrategy != "remote" {
		t.Errorf("text strategy = %q", cfg.Session.TextStrategy)
	}
	if got := len(cfg.OCR.Operations); got != 3 {
		t.Errorf("ocr operations = %v", cfg.OCR.Operations)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	got := cfg.Retry.Delays()
	if len(got) != len(want) {
		t.Fatalf("delays = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("delays = %v, want %v", got, want)
		}
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("APP_SESSION_TEXT_STRATEGY", "local")
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/recipes")
	t.Setenv("IMPORT_SERVICE_URL", "http://importer:9000")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Session.TextStrategy != "local" {
		t.Errorf("text strategy = %q, want local", cfg.Session.TextStrategy)
	}
	if cfg.Store.Backend != "postgres" || cfg.Store.DSN != "postgres://localhost/recipes" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.ImportService.BaseURL != "http://importer:9000" {
		t.Errorf("import service url = %q", cfg.ImportService.BaseURL)
	}
}

func TestValidate(t *testing.T) {
	chdir(t, t.TempDir())
	base, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no port", func(c *Config) { c.Server.Port = 0 }},
		{"bad strategy", func(c *Config) { c.Session.TextStrategy = "magic" }},
		{"bad store", func(c *Config) { c.Store.Backend = "mongo" }},
		{"openrouter without key", func(c *Config) { c.OpenRouter.Enabled = true; c.OpenRouter.APIKey = "" }},
		{"remote store without service", func(c *Config) { c.Store.Backend = "remote"; c.ImportService.Enabled = false }},
		{"inverted image limits", func(c *Config) { c.Image.MaxSizeBytes = c.Image.MinSizeBytes }},
		{"zero retries", func(c *Config) { c.Retry.MaxAttempts = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := MaskAPIKey("short"); got != "****" {
		t.Errorf("MaskAPIKey(short) = %q", got)
	}
	if got := MaskAPIKey("sk-or-1234567890"); got != "sk-o...7890" {
		t.Errorf("MaskAPIKey = %q", got)
	}
}
