package model

import "testing"

func TestDefaultAppConfigMatchesDefaultSettings(t *testing.T) {
	cfg := DefaultAppConfig()
	defaults := DefaultSettings()

	if cfg.Defaults != defaults {
		t.Errorf("defaults mismatch: config=%+v settings=%+v", cfg.Defaults, defaults)
	}
	if cfg.RecentInputs == nil {
		t.Error("RecentInputs should not be nil")
	}
}

func TestApplyToSettings(t *testing.T) {
	cfg := DefaultAppConfig()
	cfg.Defaults.Algorithm = AlgorithmFFD
	cfg.Defaults.MaxPatterns = 50
	cfg.Defaults.ILPTimeoutMs = 0

	var s Settings
	cfg.ApplyToSettings(&s)

	if s.Algorithm != AlgorithmFFD {
		t.Errorf("expected Algorithm=ffd, got %s", s.Algorithm)
	}
	if s.MaxPatterns != 50 {
		t.Errorf("expected MaxPatterns=50, got %d", s.MaxPatterns)
	}
	if s.ILPTimeoutMs != DefaultSettings().ILPTimeoutMs {
		t.Errorf("expected zero timeout to fall back to default, got %d", s.ILPTimeoutMs)
	}
}

func TestAddRecentInput(t *testing.T) {
	cfg := DefaultAppConfig()
	cfg.AddRecentInput("a.csv")
	cfg.AddRecentInput("b.csv")
	cfg.AddRecentInput("a.csv")

	if len(cfg.RecentInputs) != 2 {
		t.Fatalf("expected 2 recent inputs, got %d", len(cfg.RecentInputs))
	}
	if cfg.RecentInputs[0] != "a.csv" {
		t.Errorf("expected a.csv first, got %s", cfg.RecentInputs[0])
	}

	for i := 0; i < 20; i++ {
		cfg.AddRecentInput(string(rune('c'+i)) + ".csv")
	}
	if len(cfg.RecentInputs) != maxRecentInputs {
		t.Errorf("expected list capped at %d, got %d", maxRecentInputs, len(cfg.RecentInputs))
	}
}
