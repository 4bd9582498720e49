package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	JWTSecret   string   `mapstructure:"JWT_SECRET"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	// Scheduling policy.
	ClinicTimezone    string `mapstructure:"CLINIC_TIMEZONE"`
	CancelLeadMinutes int    `mapstructure:"CANCEL_LEAD_MINUTES"`

	// No-show sweeper. Empty cron spec disables the sweeper.
	NoShowSweepCron    string `mapstructure:"NOSHOW_SWEEP_CRON"`
	NoShowGraceMinutes int    `mapstructure:"NOSHOW_GRACE_MINUTES"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("CLINIC_TIMEZONE", "UTC")
	v.SetDefault("CANCEL_LEAD_MINUTES", 120)
	v.SetDefault("NOSHOW_GRACE_MINUTES", 30)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("CLINIC_TIMEZONE")
	v.BindEnv("CANCEL_LEAD_MINUTES")
	v.BindEnv("NOSHOW_SWEEP_CRON")
	v.BindEnv("NOSHOW_GRACE_MINUTES")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// CancelLeadTime returns the minimum interval before an appointment's start
// within which self-service cancellation is refused.
func (c *Config) CancelLeadTime() time.Duration {
	return time.Duration(c.CancelLeadMinutes) * time.Minute
}

// NoShowGrace returns how long after an appointment's start the sweeper
// waits before marking it a no-show.
func (c *Config) NoShowGrace() time.Duration {
	return time.Duration(c.NoShowGraceMinutes) * time.Minute
}

// Location resolves the configured clinic timezone. Falls back to UTC when
// the name cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ClinicTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks that the configuration is safe to run. Production requires
// a JWT secret so that staff authentication is enforced; development falls
// back to the dev auth middleware.
func (c *Config) Validate() error {
	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.CancelLeadMinutes < 0 {
		return fmt.Errorf("CANCEL_LEAD_MINUTES must not be negative, got %d", c.CancelLeadMinutes)
	}
	if c.NoShowGraceMinutes < 0 {
		return fmt.Errorf("NOSHOW_GRACE_MINUTES must not be negative, got %d", c.NoShowGraceMinutes)
	}
	if _, err := time.LoadLocation(c.ClinicTimezone); err != nil {
		return fmt.Errorf("CLINIC_TIMEZONE %q is not a valid IANA timezone: %w", c.ClinicTimezone, err)
	}
	return nil
}
