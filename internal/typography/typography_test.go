package typography

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSourceMergesWithDefault(t *testing.T) {
	dir := t.TempDir()
	content := `theme_id: dense
style: compact and technical
levels:
  body:
    size: 14
    line_height: 1.4
`
	if err := os.WriteFile(filepath.Join(dir, "dense.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("write theme: %v", err)
	}

	src, err := LoadSource(dir, 0.52)
	if err != nil {
		t.Fatalf("load source: %v", err)
	}

	body, err := src.Typography("dense", LevelBody)
	if err != nil {
		t.Fatalf("typography: %v", err)
	}
	if body.Size != 14 || body.CharWidthRatio != 0.52 {
		t.Fatalf("unexpected body metrics: %#v", body)
	}

	title, err := src.Typography("dense", LevelTitle)
	if err != nil {
		t.Fatalf("typography: %v", err)
	}
	if title.Size != 44 {
		t.Fatalf("title should come from default theme, got %#v", title)
	}

	if src.Theme("missing").ID != DefaultThemeID {
		t.Fatalf("unknown theme should fall back to default")
	}
}

func TestLoadSourceMissingDir(t *testing.T) {
	src, err := LoadSource(filepath.Join(t.TempDir(), "nope"), 0.5)
	if err != nil {
		t.Fatalf("missing dir should not fail: %v", err)
	}
	set, err := src.Resolve("")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if set.Body.LinePx() != 27 {
		t.Fatalf("unexpected body line height: %v", set.Body.LinePx())
	}
}

func TestLoadSourceRejectsBadMetrics(t *testing.T) {
	dir := t.TempDir()
	content := "theme_id: broken\nlevels:\n  body:\n    size: 0\n    line_height: 1.2\n"
	if err := os.WriteFile(filepath.Join(dir, "broken.yml"), []byte(content), 0644); err != nil {
		t.Fatalf("write theme: %v", err)
	}
	if _, err := LoadSource(dir, 0.5); err == nil {
		t.Fatalf("expected validation error")
	}
}
