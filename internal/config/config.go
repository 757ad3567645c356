// Package config loads runtime settings from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Settings is the full runtime configuration. Collection and export
// commands share one struct: unset backends only matter for the commands
// that reach for them, so Validate checks presence per concern and the
// callers decide which concerns they require.
type Settings struct {
	Database   DatabaseSettings   `envconfig:"DATABASE"`
	ClickHouse ClickHouseSettings `envconfig:"CLICKHOUSE"`
	KRX        KRXSettings        `envconfig:"KRX"`
	LogLevel   string             `envconfig:"LOG_LEVEL" default:"info"`
}

// DatabaseSettings configures the PostgreSQL pool.
type DatabaseSettings struct {
	URL string `envconfig:"URL"`
}

// ClickHouseSettings configures the export warehouse connection.
type ClickHouseSettings struct {
	URL string `envconfig:"URL"`
}

// KRXSettings configures the market data provider client.
type KRXSettings struct {
	AuthKey    string        `envconfig:"AUTH_KEY"`
	BaseURL    string        `envconfig:"BASE_URL"`
	Timeout    time.Duration `envconfig:"TIMEOUT" default:"20s"`
	MaxRetries int           `envconfig:"MAX_RETRIES" default:"5"`
	DailyLimit int64         `envconfig:"DAILY_LIMIT" default:"10000"`
}

// Load reads a .env file when present, then the environment. A missing
// .env is not an error; explicit environment variables win over the file.
func Load() (*Settings, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var s Settings
	if err := envconfig.Process("", &s); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	return &s, nil
}

// Validate checks the named concerns ("database", "clickhouse", "provider")
// and reports every problem at once rather than the first one hit.
func (s *Settings) Validate(concerns ...string) error {
	var problems []string
	for _, concern := range concerns {
		switch concern {
		case "database":
			if s.Database.URL == "" {
				problems = append(problems, "DATABASE_URL is required")
			}
		case "clickhouse":
			if s.ClickHouse.URL == "" {
				problems = append(problems, "CLICKHOUSE_URL is required")
			}
		case "provider":
			if s.KRX.AuthKey == "" {
				problems = append(problems, "KRX_AUTH_KEY is required")
			}
			if s.KRX.Timeout <= 0 {
				problems = append(problems, "KRX_TIMEOUT must be positive")
			}
			if s.KRX.MaxRetries < 0 {
				problems = append(problems, "KRX_MAX_RETRIES must not be negative")
			}
			if s.KRX.DailyLimit <= 0 {
				problems = append(problems, "KRX_DAILY_LIMIT must be positive")
			}
		default:
			problems = append(problems, fmt.Sprintf("unknown concern %q", concern))
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
