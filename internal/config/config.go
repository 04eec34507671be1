package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port                int    `env:"PORT" envDefault:"8080"`
	DatabaseURL         string `env:"DATABASE_URL,required"`
	RedisURL            string `env:"REDIS_URL,required"`
	ProvisionAPIKey     string `env:"PROVISION_API_KEY"`
	SessionTTLSeconds   int    `env:"SESSION_TTL_SECONDS" envDefault:"3600"`
	CodeTTLSeconds      int    `env:"PAIRING_CODE_TTL_SECONDS" envDefault:"600"`
	PairRateLimitPerMin int    `env:"PAIR_RATE_LIMIT_PER_MIN" envDefault:"30"`
	Environment         string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel            string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

func (c *Config) CodeTTL() time.Duration {
	return time.Duration(c.CodeTTLSeconds) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) Validate() error {
	if c.SessionTTLSeconds <= 0 {
		return fmt.Errorf("SESSION_TTL_SECONDS must be positive")
	}
	if c.CodeTTLSeconds <= 0 {
		return fmt.Errorf("PAIRING_CODE_TTL_SECONDS must be positive")
	}

	if c.IsProduction() {
		if c.ProvisionAPIKey == "" {
			log.Warn().Msg("PROVISION_API_KEY is empty in production: code provisioning endpoints disabled")
		} else if err := validateSecret("PROVISION_API_KEY", c.ProvisionAPIKey); err != nil {
			return err
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
