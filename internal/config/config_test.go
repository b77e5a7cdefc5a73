package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clockbook", "clockbook.yml")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file was not written: %v", err)
	}
	if cfg.ResumeWindow != 60*time.Second {
		t.Errorf("ResumeWindow = %v, want 60s", cfg.ResumeWindow)
	}
	if !cfg.SingleRunning {
		t.Error("SingleRunning default should be true")
	}
	if cfg.Driver != "sqlite" {
		t.Errorf("Driver = %q, want sqlite", cfg.Driver)
	}
	if cfg.DatabasePath == "" || cfg.LegacyPath == "" {
		t.Errorf("paths not defaulted: db=%q legacy=%q", cfg.DatabasePath, cfg.LegacyPath)
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clockbook.yml")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	cfg.ResumeWindow = 5 * time.Minute
	cfg.SingleRunning = false
	cfg.Driver = "postgres"
	cfg.DatabasePath = "postgres://localhost/clockbook"
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.ResumeWindow != 5*time.Minute {
		t.Errorf("ResumeWindow = %v, want 5m", reloaded.ResumeWindow)
	}
	if reloaded.SingleRunning {
		t.Error("SingleRunning should reload as false")
	}
	if reloaded.Driver != "postgres" || reloaded.DatabasePath != "postgres://localhost/clockbook" {
		t.Errorf("driver/path = %q/%q, want the saved values", reloaded.Driver, reloaded.DatabasePath)
	}
}
