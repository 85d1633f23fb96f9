package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ARK_API_KEY", "ARK_MODEL", "Model", "STORE_DRIVER", "STORE_PATH", "ASK_TIMEOUT", "ARK_STREAM", "VOICE_WELCOME", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != ":5000" {
		t.Fatalf("unexpected addr %s", cfg.Server.Addr)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "*" {
		t.Fatalf("unexpected origins %v", cfg.Server.AllowedOrigins)
	}
	if cfg.AI.Enabled() {
		t.Fatal("AI should be disabled without credentials")
	}
	if cfg.AI.Timeout != 60*time.Second || !cfg.AI.StreamResponse {
		t.Fatalf("unexpected AI defaults: %+v", cfg.AI)
	}
	if cfg.Store.Driver != "file" || cfg.Store.Path != "data/chats.json" {
		t.Fatalf("unexpected store defaults: %+v", cfg.Store)
	}
	if !cfg.Voice.SpeakWelcome {
		t.Fatal("welcome speech should default on")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("ARK_API_KEY", "key")
	t.Setenv("ARK_MODEL", "")
	t.Setenv("Model", "legacy-model")
	t.Setenv("ASK_TIMEOUT", "15")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("STORE_PATH", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, http://example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr %s", cfg.Server.Addr)
	}
	if !cfg.AI.Enabled() || cfg.AI.Model != "legacy-model" {
		t.Fatalf("expected enabled AI with legacy model: %+v", cfg.AI)
	}
	if cfg.AI.Timeout != 15*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.AI.Timeout)
	}
	if cfg.Store.Path != "data/chats.db" {
		t.Fatalf("unexpected sqlite path %s", cfg.Store.Path)
	}
	if len(cfg.Server.AllowedOrigins) != 2 {
		t.Fatalf("unexpected origins %v", cfg.Server.AllowedOrigins)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":         "80 80",
		"ARK_STREAM":   "maybe",
		"ASK_TIMEOUT":  "soon",
		"STORE_DRIVER": "redis",
	}

	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			for _, k := range []string{"PORT", "ARK_STREAM", "ASK_TIMEOUT", "STORE_DRIVER"} {
				t.Setenv(k, "")
			}
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}
