package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadLayersFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "yq.yaml")
	data := "addr: \":7000\"\nurlKeyword: FEED\nclickIntervalMs: 2500\nselectors:\n  cover: \".cover\"\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("ADDR", ":7001")
	t.Setenv("HEADLESS", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7001" {
		t.Fatalf("env should win over file: %q", cfg.Addr)
	}
	if cfg.URLKeyword != "feed" {
		t.Fatalf("keyword should be lower-cased: %q", cfg.URLKeyword)
	}
	if cfg.ClickIntervalMs != 2500 || !cfg.Headless {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.Selectors.Cover != ".cover" || cfg.Selectors.Close != ".close-circle" {
		t.Fatalf("selectors not merged with defaults: %+v", cfg.Selectors)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()
	if cfg.URLKeyword != "feed" || cfg.ClickIntervalMs != 1000 || cfg.Selectors.IndexAttr != "data-index" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}
