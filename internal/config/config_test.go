package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/clinicdesk_test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("Port = %q, want 8000", cfg.Port)
	}
	if !cfg.IsDev() {
		t.Error("default ENV should be development")
	}
	if cfg.CancelLeadTime() != 2*time.Hour {
		t.Errorf("CancelLeadTime = %v, want 2h", cfg.CancelLeadTime())
	}
	if cfg.NoShowGrace() != 30*time.Minute {
		t.Errorf("NoShowGrace = %v, want 30m", cfg.NoShowGrace())
	}
	if cfg.NoShowSweepCron != "" {
		t.Errorf("NoShowSweepCron should default to empty, got %q", cfg.NoShowSweepCron)
	}
	if cfg.Location() != time.UTC {
		t.Errorf("default Location = %v, want UTC", cfg.Location())
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Error("expected error when DATABASE_URL is missing")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Env:                "production",
			JWTSecret:          "secret",
			ClinicTimezone:     "UTC",
			CancelLeadMinutes:  120,
			NoShowGraceMinutes: 30,
		}
	}

	if err := base().Validate(); err != nil {
		t.Errorf("valid config: %v", err)
	}

	cfg := base()
	cfg.JWTSecret = ""
	if err := cfg.Validate(); err == nil {
		t.Error("production without JWT_SECRET should fail validation")
	}

	cfg = base()
	cfg.Env = "development"
	cfg.JWTSecret = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("development without JWT_SECRET should pass: %v", err)
	}

	cfg = base()
	cfg.CancelLeadMinutes = -1
	if err := cfg.Validate(); err == nil {
		t.Error("negative CANCEL_LEAD_MINUTES should fail validation")
	}

	cfg = base()
	cfg.ClinicTimezone = "Mars/Olympus"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown timezone should fail validation")
	}
}
