/*
Package config loads engine configuration from the environment.

PURPOSE:
  Central place for the few runtime knobs the engine has. A local .env
  file is loaded when present (godotenv); real environments set variables
  directly. Command-line flags in cmd/server may override these.

VARIABLES:
  PORT               HTTP port                    (default 8080)
  DB_PATH            SQLite database path         (default paca.db)
  SCHEDULER_ENABLED  run the settlement scheduler (default true)
  SCHEDULER_TZ       settlement time zone         (default Asia/Seoul)
  SCHEDULER_HOUR     local hour of daily trigger  (default 23)
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the engine's runtime configuration.
type Config struct {
	Port             int
	DBPath           string
	SchedulerEnabled bool
	SchedulerTZ      string
	SchedulerHour    int
}

// Load reads configuration from the environment, consulting a local .env
// file if one exists.
func Load() (*Config, error) {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnvInt("PORT", 8080),
		DBPath:           getEnvOrDefault("DB_PATH", "paca.db"),
		SchedulerEnabled: getEnvBool("SCHEDULER_ENABLED", true),
		SchedulerTZ:      getEnvOrDefault("SCHEDULER_TZ", "Asia/Seoul"),
		SchedulerHour:    getEnvInt("SCHEDULER_HOUR", 23),
	}

	if cfg.SchedulerHour < 0 || cfg.SchedulerHour > 23 {
		return nil, fmt.Errorf("SCHEDULER_HOUR out of range: %d", cfg.SchedulerHour)
	}
	return cfg, nil
}

// Location resolves the scheduler time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.SchedulerTZ)
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_TZ %q: %w", c.SchedulerTZ, err)
	}
	return loc, nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	default:
		return false
	}
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
