package config

import (
	"testing"
)

func TestLoadConfigWithEnvOverride(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)

	cfg := DefaultConfig()
	cfg.Provider = "imap"
	cfg.IMAP.Host = "imap.example.com"
	cfg.Auth.Username = "user@example.com"
	cfg.Auth.Password = "secret"

	if _, err := Save(cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	t.Setenv("MAILSWEEP_IMAP_HOST", "env.imap.local")

	loaded, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if loaded.IMAP.Host != "env.imap.local" {
		t.Fatalf("expected env override, got %q", loaded.IMAP.Host)
	}
	if loaded.Provider != "imap" {
		t.Fatalf("expected provider from file, got %q", loaded.Provider)
	}
	if loaded.Run.BatchSize != 50 {
		t.Fatalf("expected default batch size, got %d", loaded.Run.BatchSize)
	}
}

func TestValidateProviderUnknown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = "exchange"
	if err := ValidateProvider(cfg); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestValidateProviderIMAP(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = "imap"
	cfg.IMAP.Host = "mail.example.com"
	cfg.Auth.Username = "user"
	if err := ValidateProvider(cfg); err == nil {
		t.Fatal("expected error for missing password")
	}

	cfg.Auth.Password = "hunter2"
	if err := ValidateProvider(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateLLM(t *testing.T) {
	cfg := DefaultConfig()
	if err := ValidateLLM(cfg); err == nil {
		t.Fatal("expected error when no backend configured")
	}

	cfg.LLM.OpenAIAPIKey = "sk-test"
	if err := ValidateLLM(cfg); err == nil {
		t.Fatal("expected error: selected backend groq has no key")
	}

	cfg.LLM.Backend = "openai"
	if err := ValidateLLM(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRedactMasksSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.GroqAPIKey = "gsk_abc"
	cfg.Microsoft.ClientSecret = "s3cr3t"

	masked := Redact(cfg)
	if masked.LLM.GroqAPIKey != "****" || masked.Microsoft.ClientSecret != "****" {
		t.Fatalf("secrets not masked: %+v", masked)
	}
	if cfg.LLM.GroqAPIKey != "gsk_abc" {
		t.Fatal("original config mutated")
	}
}
