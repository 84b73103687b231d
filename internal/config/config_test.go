package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PORT", "DATA_DIR", "DEFAULT_START_DATE", "DEFAULT_END_DATE", "CLIMATOLOGY_YEARS",
	"LOG_LEVEL", "LOG_FORMAT", "CORS_ALLOWED_ORIGINS", "GRAPH_BUCKET", "GRAPH_REGION",
	"AWS_REGION", "GRAPH_DIR", "GRAPH_BASE_URL", "GRAPH_RETRIES",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, time.Date(1960, 1, 1, 12, 0, 0, 0, time.UTC), cfg.DefaultStart)
	assert.Equal(t, time.Date(2015, 12, 31, 12, 0, 0, 0, time.UTC), cfg.DefaultEnd)
	assert.Equal(t, 20, cfg.ClimatologyYears)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.False(t, cfg.Graph.Enabled())
	assert.Equal(t, "us-east-1", cfg.Graph.Region)
	assert.Equal(t, uint64(3), cfg.Graph.Retries)

	s := cfg.Settings()
	assert.Equal(t, cfg.DefaultStart, s.Defaults.Start)
	assert.Equal(t, 20, s.ClimatologyYears)
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3000")
	t.Setenv("DEFAULT_START_DATE", "1981-01-01")
	t.Setenv("DEFAULT_END_DATE", "2010-12-31")
	t.Setenv("CLIMATOLOGY_YEARS", "30")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("AWS_REGION", "eu-west-2")
	t.Setenv("GRAPH_BUCKET", "graphs")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, time.Date(1981, 1, 1, 12, 0, 0, 0, time.UTC), cfg.DefaultStart)
	assert.Equal(t, 30, cfg.ClimatologyYears)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.Graph.Enabled())
	assert.Equal(t, "eu-west-2", cfg.Graph.Region)
	assert.Equal(t, "http://localhost:3000/graphs", cfg.Graph.BaseURL)

	_, ok := cfg.NewLogger().Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)
}

func TestFromEnvInvalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"DEFAULT_START_DATE", "01/01/1960"},
		{"DEFAULT_END_DATE", "1950-01-01"},
		{"CLIMATOLOGY_YEARS", "twenty"},
		{"CLIMATOLOGY_YEARS", "-1"},
		{"LOG_LEVEL", "loud"},
		{"LOG_FORMAT", "xml"},
		{"GRAPH_RETRIES", "-2"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
