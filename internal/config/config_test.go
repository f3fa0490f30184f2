package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "listen:\n  port: 9000\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Listen.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Listen.Port)
	}
	if cfg.Model.Provider != "gemini" {
		t.Errorf("provider = %q, want gemini default", cfg.Model.Provider)
	}
	if cfg.Search.MaxResults != 5 {
		t.Errorf("max_results = %d, want 5", cfg.Search.MaxResults)
	}
	if cfg.Memory.PageSize != 50 {
		t.Errorf("memory page_size = %d, want 50", cfg.Memory.PageSize)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_STYLEGENIE_KEY", "abc123")
	path := writeConfig(t, "credentials:\n  gemini_api_key: ${TEST_STYLEGENIE_KEY}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Credentials.GeminiAPIKey != "abc123" {
		t.Errorf("gemini key = %q, want abc123", cfg.Credentials.GeminiAPIKey)
	}
}

func TestCredentialEnvFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "from-env")
	path := writeConfig(t, "log_level: debug\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Credentials.GeminiAPIKey != "from-env" {
		t.Errorf("gemini key = %q, want env fallback", cfg.Credentials.GeminiAPIKey)
	}
}

func TestConfigFileWinsOverEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "from-env")
	path := writeConfig(t, "credentials:\n  gemini_api_key: from-file\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Credentials.GeminiAPIKey != "from-file" {
		t.Errorf("gemini key = %q, want from-file", cfg.Credentials.GeminiAPIKey)
	}
}

func TestValidateMissingCredential(t *testing.T) {
	cfg := Default()
	cfg.Credentials = CredentialsConfig{}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing gemini key")
	}
	var missing *MissingCredentialError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingCredentialError, got %T", err)
	}
	if missing.Name != "gemini_api_key" {
		t.Errorf("missing credential = %q, want gemini_api_key", missing.Name)
	}
}

func TestValidateSearchProviderKey(t *testing.T) {
	cfg := Default()
	cfg.Credentials.GeminiAPIKey = "x"
	cfg.Search.Primary = "linkup"

	err := cfg.Validate()
	var missing *MissingCredentialError
	if !errors.As(err, &missing) || missing.Name != "linkup_api_key" {
		t.Fatalf("expected missing linkup_api_key, got %v", err)
	}

	cfg.Credentials.LinkupAPIKey = "y"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateUnknownProvider(t *testing.T) {
	cfg := Default()
	cfg.Credentials.GeminiAPIKey = "x"
	cfg.Credentials.TavilyAPIKey = "y"
	cfg.Model.Provider = "mystery"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown model provider")
	}
}

func TestFindConfigExplicitMissing(t *testing.T) {
	_, err := FindConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"TRACE", LevelTrace, false},
		{"Debug", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"  warn  ", slog.LevelWarn, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
