// Package config loads roomboard settings from ROOMBOARD_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const minSecretLength = 16

type Config struct {
	Port          string        `env:"ROOMBOARD_PORT" env-default:"8080"`
	DBPath        string        `env:"ROOMBOARD_DB_PATH" env-default:"roomboard.db"`
	APIBaseURL    string        `env:"ROOMBOARD_API_BASE_URL" env-required:"true"`
	SessionSecret string        `env:"ROOMBOARD_SESSION_SECRET" env-required:"true"`
	SessionTTL    time.Duration `env:"ROOMBOARD_SESSION_TTL" env-default:"24h"`
	LogLevel      string        `env:"ROOMBOARD_LOG_LEVEL" env-default:"info"`
	LogFormat     string        `env:"ROOMBOARD_LOG_FORMAT" env-default:"text"`
	EnforceAdmin  bool          `env:"ROOMBOARD_ENFORCE_ADMIN" env-default:"true"`
	// TrustProxy keys rate limits on X-Real-IP / X-Forwarded-For. Enable it
	// only behind a proxy that overwrites those headers.
	TrustProxy      bool          `env:"ROOMBOARD_TRUST_PROXY" env-default:"false"`
	RefreshInterval time.Duration `env:"ROOMBOARD_REFRESH_INTERVAL" env-default:"120s"`
	ClockInterval   time.Duration `env:"ROOMBOARD_CLOCK_INTERVAL" env-default:"30s"`
	APITimeout      time.Duration `env:"ROOMBOARD_API_TIMEOUT" env-default:"10s"`
	Timezone        string        `env:"ROOMBOARD_TIMEZONE" env-default:"Local"`
	// AllowedOrigins are extra origin patterns accepted on the kiosk
	// websocket. Same-origin is always allowed.
	AllowedOrigins []string `env:"ROOMBOARD_ALLOWED_ORIGINS" env-separator:","`

	location *time.Location
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values cleanenv cannot express as tags and resolves the
// timezone.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("ROOMBOARD_API_BASE_URL must be an absolute http(s) URL, got %q", c.APIBaseURL))
	}
	if len(c.SessionSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("ROOMBOARD_SESSION_SECRET must be at least %d characters", minSecretLength))
	}
	for name, d := range map[string]time.Duration{
		"ROOMBOARD_SESSION_TTL":      c.SessionTTL,
		"ROOMBOARD_REFRESH_INTERVAL": c.RefreshInterval,
		"ROOMBOARD_CLOCK_INTERVAL":   c.ClockInterval,
		"ROOMBOARD_API_TIMEOUT":      c.APITimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("ROOMBOARD_TIMEZONE: %w", err))
	}
	c.location = loc

	return errors.Join(errs...)
}

// Location is the timezone used to interpret form times and the day
// boundaries of room schedules.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

func (c *Config) Addr() string {
	return ":" + c.Port
}
