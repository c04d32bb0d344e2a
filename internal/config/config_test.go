package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromPathReadsGenerationAndLayout(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, ".slidefit.yaml")
	content := `generation:
  max_retries: 4
  call_timeout: 12s
  structure_temperature: 0.1
  max_concurrency: 3
layout:
  fill_factor: 0.85
  grid_unit_px: 40
registry:
  variants_dir: "/srv/variants"
  templates_dir: "/srv/templates"
storage:
  enabled: false
`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Generation.MaxRetries != 4 {
		t.Fatalf("expected max_retries=4, got %d", cfg.Generation.MaxRetries)
	}
	if cfg.Generation.CallTimeout != 12*time.Second {
		t.Fatalf("expected call_timeout=12s, got %s", cfg.Generation.CallTimeout)
	}
	if cfg.Generation.MaxConcurrency != 3 {
		t.Fatalf("unexpected max_concurrency: %d", cfg.Generation.MaxConcurrency)
	}
	if cfg.Layout.FillFactor != 0.85 || cfg.Layout.GridUnitPx != 40 {
		t.Fatalf("unexpected layout: %#v", cfg.Layout)
	}
	// unspecified keys keep their defaults
	if cfg.Layout.LinesPerPoint != 2 {
		t.Fatalf("expected default lines_per_point=2, got %d", cfg.Layout.LinesPerPoint)
	}
	if cfg.Registry.VariantsDir != "/srv/variants" {
		t.Fatalf("unexpected variants dir: %s", cfg.Registry.VariantsDir)
	}
	if cfg.Storage.Enabled {
		t.Fatalf("expected storage disabled")
	}
}

func TestLoadFromPathMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Generation.MaxRetries != 2 {
		t.Fatalf("expected default max_retries=2, got %d", cfg.Generation.MaxRetries)
	}
	if cfg.Layout.FillFactor != 0.90 {
		t.Fatalf("expected default fill factor, got %v", cfg.Layout.FillFactor)
	}
}

func TestEnvOverridesAIProvider(t *testing.T) {
	t.Setenv("SLIDEFIT_AI_PROVIDER", "deepseek")
	t.Setenv("SLIDEFIT_AI_API_KEY", "sk-test")

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.AI.Provider != "deepseek" || cfg.AI.APIKey != "sk-test" {
		t.Fatalf("env override not applied: %#v", cfg.AI)
	}
}
