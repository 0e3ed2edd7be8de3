package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/piwi3910/BarCut/internal/model"
)

func TestSaveAndLoadAppConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := model.DefaultAppConfig()
	cfg.Defaults.Algorithm = model.AlgorithmFFD
	cfg.Defaults.MaxPatterns = 50
	cfg.DefaultProfile = "IPE100"
	cfg.AddRecentInput("/tmp/order1.csv")
	cfg.AddRecentInput("/tmp/order2.xlsx")

	if err := SaveAppConfig(path, cfg); err != nil {
		t.Fatalf("SaveAppConfig failed: %v", err)
	}

	loaded, err := LoadAppConfig(path)
	if err != nil {
		t.Fatalf("LoadAppConfig failed: %v", err)
	}

	if loaded.Defaults.Algorithm != model.AlgorithmFFD {
		t.Errorf("expected algorithm ffd, got %s", loaded.Defaults.Algorithm)
	}
	if loaded.Defaults.MaxPatterns != 50 {
		t.Errorf("expected MaxPatterns=50, got %d", loaded.Defaults.MaxPatterns)
	}
	if loaded.DefaultProfile != "IPE100" {
		t.Errorf("expected DefaultProfile=IPE100, got %s", loaded.DefaultProfile)
	}
	if len(loaded.RecentInputs) != 2 || loaded.RecentInputs[0] != "/tmp/order2.xlsx" {
		t.Errorf("unexpected recent inputs: %v", loaded.RecentInputs)
	}
}

func TestLoadAppConfigMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent", "config.json")

	cfg, err := LoadAppConfig(path)
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}

	defaults := model.DefaultAppConfig()
	if cfg.Defaults != defaults.Defaults {
		t.Errorf("expected default settings %+v, got %+v", defaults.Defaults, cfg.Defaults)
	}
	if cfg.DefaultProfile != "default" {
		t.Errorf("expected default profile, got %s", cfg.DefaultProfile)
	}
}

func TestLoadAppConfigInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	if err := os.WriteFile(path, []byte("not valid json{{{"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadAppConfig(path); err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}

func TestLoadAppConfigPartialSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	data := []byte(`{"defaults":{"algorithm":"ilp","ilp_timeout_ms":500},"recent_inputs":null}`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadAppConfig(path)
	if err != nil {
		t.Fatalf("LoadAppConfig failed: %v", err)
	}
	if cfg.Defaults.Algorithm != model.AlgorithmILP || cfg.Defaults.ILPTimeoutMs != 500 {
		t.Errorf("explicit settings lost: %+v", cfg.Defaults)
	}
	if cfg.Defaults.MaxPatterns != model.DefaultSettings().MaxPatterns {
		t.Errorf("missing MaxPatterns should default, got %d", cfg.Defaults.MaxPatterns)
	}
	if cfg.RecentInputs == nil {
		t.Error("RecentInputs should not be nil after loading")
	}
	if cfg.DefaultProfile != "default" {
		t.Errorf("missing default_profile should default, got %q", cfg.DefaultProfile)
	}
}

func TestSaveAppConfigCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "dir", "config.json")

	if err := SaveAppConfig(path, model.DefaultAppConfig()); err != nil {
		t.Fatalf("SaveAppConfig should create parent dirs: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatal("config file was not created")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()
	if !strings.HasSuffix(path, filepath.Join(".barcut", "config.json")) {
		t.Errorf("unexpected config path %s", path)
	}
}
