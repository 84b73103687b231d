// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"go.ngs.io/climate-api/internal/domain"
	"go.ngs.io/climate-api/internal/usecase"
)

// Config holds the server configuration.
type Config struct {
	Port    string
	DataDir string

	// Dataset coverage used when a request names no dates.
	DefaultStart time.Time
	DefaultEnd   time.Time

	ClimatologyYears int

	LogLevel  logrus.Level
	LogFormat string

	// AllowedOrigins is empty when every origin is allowed.
	AllowedOrigins []string

	Graph GraphConfig
}

// GraphConfig selects where rendered graphs are published.
type GraphConfig struct {
	Bucket  string
	Region  string
	Dir     string
	BaseURL string
	Retries uint64
}

// Enabled reports whether any graph store is configured.
func (g GraphConfig) Enabled() bool {
	return g.Bucket != "" || g.Dir != ""
}

// Load reads a .env file when present and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("failed to load .env file")
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables alone.
func FromEnv() (*Config, error) {
	defaults := domain.DefaultWindow()
	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		DataDir:   getEnv("DATA_DIR", "./data"),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	var err error
	if cfg.DefaultStart, err = envDate("DEFAULT_START_DATE", defaults.Start); err != nil {
		return nil, err
	}
	if cfg.DefaultEnd, err = envDate("DEFAULT_END_DATE", defaults.End); err != nil {
		return nil, err
	}
	if cfg.DefaultEnd.Before(cfg.DefaultStart) {
		return nil, fmt.Errorf("DEFAULT_END_DATE is before DEFAULT_START_DATE")
	}

	years, err := envInt("CLIMATOLOGY_YEARS", usecase.DefaultClimatologyYears)
	if err != nil {
		return nil, err
	}
	if years < 0 {
		return nil, fmt.Errorf("invalid CLIMATOLOGY_YEARS: must not be negative")
	}
	cfg.ClimatologyYears = years

	if cfg.LogLevel, err = logrus.ParseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: expected text or json", cfg.LogFormat)
	}

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	retries, err := envInt("GRAPH_RETRIES", 3)
	if err != nil {
		return nil, err
	}
	if retries < 0 {
		return nil, fmt.Errorf("invalid GRAPH_RETRIES: must not be negative")
	}
	cfg.Graph = GraphConfig{
		Bucket:  os.Getenv("GRAPH_BUCKET"),
		Region:  getEnv("GRAPH_REGION", getEnv("AWS_REGION", "us-east-1")),
		Dir:     os.Getenv("GRAPH_DIR"),
		BaseURL: getEnv("GRAPH_BASE_URL", "http://localhost:"+cfg.Port+"/graphs"),
		Retries: uint64(retries),
	}

	return cfg, nil
}

// Settings returns the query settings carried by the configuration.
func (c *Config) Settings() usecase.Settings {
	return usecase.Settings{
		Defaults:         domain.Window{Start: c.DefaultStart, End: c.DefaultEnd},
		ClimatologyYears: c.ClimatologyYears,
	}
}

// NewLogger creates a logger with the configured level and format.
func (c *Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(c.LogLevel)
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		})
	}
	return log
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envDate(key string, defaultValue time.Time) (time.Time, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	t, err := domain.ParseDate(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return t, nil
}
