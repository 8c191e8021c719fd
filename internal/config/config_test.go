package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Provider.Model != "gpt-4.1-mini" {
		t.Errorf("unexpected default model: %s", cfg.Provider.Model)
	}
	if cfg.Provider.APIKey != "${OPENAI_API_KEY}" {
		t.Error("expected API key placeholder")
	}
	if cfg.Pipeline.MaxPages != 20 {
		t.Errorf("expected 20 page cap, got %d", cfg.Pipeline.MaxPages)
	}
	if cfg.Pipeline.MaxDocumentMB != 20 {
		t.Errorf("expected 20 MB limit, got %d", cfg.Pipeline.MaxDocumentMB)
	}
	if len(cfg.Aliases["Vitamin D"]) == 0 {
		t.Error("expected Vitamin D aliases seeded")
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		os.Setenv("TEST_API_KEY", "secret123")
		defer os.Unsetenv("TEST_API_KEY")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")

		configContent := `
provider:
  model: gpt-4o
  rate_limit_rpm: 60
pipeline:
  max_pages: 5
`
		if err := os.WriteFile(configFile, []byte(configContent), 0o644); err != nil {
			t.Fatalf("writing config: %v", err)
		}

		viper.Reset()
		cm, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cfg := cm.Get()
		if cfg.Provider.Model != "gpt-4o" {
			t.Errorf("expected gpt-4o, got %s", cfg.Provider.Model)
		}
		if cfg.Provider.RateLimitRPM != 60 {
			t.Errorf("expected rate limit 60, got %d", cfg.Provider.RateLimitRPM)
		}
		if cfg.Pipeline.MaxPages != 5 {
			t.Errorf("expected max pages 5, got %d", cfg.Pipeline.MaxPages)
		}
	})

	t.Run("errors on explicitly named missing file", func(t *testing.T) {
		viper.Reset()
		if _, err := NewManager(filepath.Join(t.TempDir(), "does-not-exist.yaml")); err == nil {
			t.Error("expected error for missing config file")
		}
	})
}

func TestWriteDefault(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	if err := WriteDefault(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written config: %v", err)
	}
	content := string(data)

	if !strings.HasPrefix(content, "# Labsight configuration") {
		t.Error("expected header comment")
	}
	if !strings.Contains(content, "gpt-4.1-mini") {
		t.Error("expected default model in output")
	}

	// Round-trip: the written file loads back cleanly.
	viper.Reset()
	cm, err := NewManager(path)
	if err != nil {
		t.Fatalf("loading written config: %v", err)
	}
	if cm.Get().Pipeline.MaxPages != 20 {
		t.Errorf("round-trip lost defaults: %+v", cm.Get().Pipeline)
	}
}
