package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sharplabs/sharpline/pkg/model/market"
	"github.com/sharplabs/sharpline/pkg/tracker/policy"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Addr != ":8090" {
		t.Errorf("Addr = %q, want default :8090", cfg.Addr)
	}
	if cfg.RunInterval != 30*time.Minute {
		t.Errorf("RunInterval = %v, want 30m", cfg.RunInterval)
	}
	if cfg.MaxPlays != 50 {
		t.Errorf("MaxPlays = %d, want 50", cfg.MaxPlays)
	}
}

func TestLoad_FileAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := "addr: \":7000\"\nledger_path: /var/lib/sharpline\npolicy_gate: or\n"
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	t.Setenv("SHARPLINE_CONFIG", path)
	t.Setenv("SHARPLINE_ADDR", ":7001") // env wins over file

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Addr != ":7001" {
		t.Errorf("Addr = %q, want env override :7001", cfg.Addr)
	}
	if cfg.LedgerPath != "/var/lib/sharpline" {
		t.Errorf("LedgerPath = %q, want file value", cfg.LedgerPath)
	}
	if cfg.PolicyGate != "or" {
		t.Errorf("PolicyGate = %q, want file value or", cfg.PolicyGate)
	}
}

func TestLoad_RejectsBadGate(t *testing.T) {
	t.Setenv("SHARPLINE_POLICY_GATE", "maybe")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid policy_gate")
	}
}

func TestPolicyConfig_GateApplied(t *testing.T) {
	cfg := New()
	cfg.PolicyGate = "or"

	pc := cfg.PolicyConfig()
	for category, limits := range pc.Categories {
		if limits.Gate != policy.GateOr {
			t.Errorf("category %s gate = %v, want or", category, limits.Gate)
		}
	}

	// Thresholds stay at their defaults.
	if pc.Categories[market.CategorySpread].TrackEdge != 2.5 {
		t.Errorf("spread TrackEdge = %v, want 2.5", pc.Categories[market.CategorySpread].TrackEdge)
	}
}

func TestProjectionConfig_Overrides(t *testing.T) {
	cfg := New()
	cfg.HomeAdvantage = 2.0
	cfg.MinGamesPlayed = 8

	pc := cfg.ProjectionConfig()
	if pc.HomeAdvantage != 2.0 {
		t.Errorf("HomeAdvantage = %v, want 2.0", pc.HomeAdvantage)
	}
	if pc.MinGamesPlayed != 8 {
		t.Errorf("MinGamesPlayed = %d, want 8", pc.MinGamesPlayed)
	}
	// Untouched knobs keep their defaults.
	if pc.OffenseWeight != 0.60 {
		t.Errorf("OffenseWeight = %v, want 0.60", pc.OffenseWeight)
	}
}
