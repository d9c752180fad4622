// Package config provides runtime configuration and logger construction.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Prefix is the environment variable prefix, e.g. INVENTORY_DB_PATH.
const Prefix = "inventory"

// Config holds configuration knobs for the store, HTTP server and monitor.
type Config struct {
	DBPath            string        `envconfig:"DB_PATH" default:"inventory.db"`
	Port              int           `envconfig:"PORT" default:"8080"`
	LockTimeout       time.Duration `envconfig:"LOCK_TIMEOUT" default:"5s"`
	ShutdownTimeout   time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	LowStockThreshold int           `envconfig:"LOW_STOCK_THRESHOLD" default:"5"`
	AlertInterval     time.Duration `envconfig:"ALERT_INTERVAL" default:"1h"`
	AlertsEnabled     bool          `envconfig:"ALERTS_ENABLED" default:"true"`
	LogLevel          string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat         string        `envconfig:"LOG_FORMAT" default:"text"`
	CORSOrigins       []string      `envconfig:"CORS_ORIGINS" default:"http://localhost:5173,http://localhost:8080"`
}

// Load reads an optional .env file, then INVENTORY_* variables.
// Variables already set in the environment win over the .env file.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, errors.Wrapf(err, "load %s", f)
		}
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "process environment")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the rest of the system can't work with.
func (c Config) Validate() error {
	switch {
	case c.DBPath == "":
		return errors.New("DB_PATH must not be empty")
	case c.Port <= 0 || c.Port > 65535:
		return errors.Errorf("PORT out of range: %d", c.Port)
	case c.LockTimeout <= 0:
		return errors.New("LOCK_TIMEOUT must be positive")
	case c.LowStockThreshold < 0:
		return errors.New("LOW_STOCK_THRESHOLD must not be negative")
	case c.AlertsEnabled && c.AlertInterval <= 0:
		return errors.New("ALERT_INTERVAL must be positive when alerts are enabled")
	}
	return nil
}

// NewLogger builds a logrus logger from LogLevel and LogFormat.
func NewLogger(c Config) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, errors.Wrap(err, "LOG_LEVEL")
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(level)

	switch strings.ToLower(c.LogFormat) {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	case "text", "":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	default:
		return nil, errors.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return log, nil
}
