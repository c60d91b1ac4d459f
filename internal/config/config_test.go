package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Rewards.ConversionRate != 0.8 || cfg.Rewards.SignupBonus != 100 {
		t.Fatalf("unexpected reward defaults: %+v", cfg.Rewards)
	}
	if len(cfg.Levels) != 5 || cfg.Levels[1].TasksRequired != 10 {
		t.Fatalf("unexpected levels: %+v", cfg.Levels)
	}
	if len(cfg.Offerwall.Providers) != 9 || cfg.Offerwall.Providers[0].ID != "tapjoy" {
		t.Fatalf("unexpected providers: %+v", cfg.Offerwall.Providers)
	}
	if cfg.Referral.BaseURL != "https://rewario.com/ref/" || cfg.Referral.Bonus != 50 {
		t.Fatalf("unexpected referral defaults: %+v", cfg.Referral)
	}
	if cfg.Fetch.ListLatency != 800*time.Millisecond {
		t.Fatalf("unexpected list latency %s", cfg.Fetch.ListLatency)
	}
}

func TestFromYAMLKeepsDefaultsForMissingSections(t *testing.T) {
	cfg, err := FromYAML([]byte("rewards:\n  conversion_rate: 0.5\n  signup_bonus: 10\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Rewards.ConversionRate != 0.5 || cfg.Rewards.SignupBonus != 10 {
		t.Fatalf("override not applied: %+v", cfg.Rewards)
	}
	if cfg.Rewards.MinWithdrawal != 500 {
		t.Fatalf("expected default min withdrawal, got %d", cfg.Rewards.MinWithdrawal)
	}
	if len(cfg.Levels) != 5 || len(cfg.Offerwall.Providers) != 9 {
		t.Fatalf("expected default levels and providers")
	}
}

func TestFromYAMLReplacesLists(t *testing.T) {
	cfg, err := FromYAML([]byte("levels:\n  - {level: 1, tasks_required: 0}\n  - {level: 2, tasks_required: 3}\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(cfg.Levels) != 2 || cfg.Levels[1].TasksRequired != 3 {
		t.Fatalf("levels not replaced: %+v", cfg.Levels)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := map[string]string{
		"rate":     "rewards:\n  conversion_rate: 1.5\n",
		"unsorted": "levels:\n  - {level: 1, tasks_required: 5}\n  - {level: 2, tasks_required: 1}\n",
		"backend":  "storage:\n  backend: mongo\n",
		"dup":      "offerwall:\n  providers:\n    - {id: a}\n    - {id: a}\n",
		"redis":    "storage:\n  backend: redis\n  redis:\n    addr: \"\"\n",
	}
	for name, doc := range cases {
		if _, err := FromYAML([]byte(doc)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(Path(dir))
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if cfg.Storage.Backend != BackendSQLite {
		t.Fatalf("expected default backend")
	}
	if err := os.WriteFile(filepath.Join(dir, "rewario.yml"), []byte("rewards:\n  min_withdrawal: 50\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadOptional(Path(dir))
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if cfg.Rewards.MinWithdrawal != 50 {
		t.Fatalf("file not applied")
	}
}
