package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"http://localhost:8080"}, cfg.Security.AllowedOrigins)
	assert.True(t, cfg.Security.RateLimit.Enabled)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "C", cfg.Data.CancellationPrefix)
	assert.Equal(t, 0.01, cfg.Data.OutlierLow)
	assert.Equal(t, 0.99, cfg.Data.OutlierHigh)
	assert.Equal(t, "month", cfg.Analysis.DefaultGranularity)
	assert.Equal(t, 10, cfg.Analysis.TopProductsPerCountry)
	assert.Equal(t, 4, cfg.Analysis.RFMMinCustomers)
	assert.Equal(t, 15*time.Minute, cfg.Cache.TTL)
}

func TestLoadFile_Layering(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9000
  read_timeout: 5s
analysis:
  default_granularity: Quarter
  top_products_per_country: 5
cache:
  ttl: 1m
`)

	t.Run("file overrides defaults", func(t *testing.T) {
		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout, "untouched fields keep defaults")
		assert.Equal(t, "quarter", cfg.Analysis.DefaultGranularity)
		assert.Equal(t, 5, cfg.Analysis.TopProductsPerCountry)
		assert.Equal(t, time.Minute, cfg.Cache.TTL)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("RETAIL_SERVER_PORT", "9100")
		t.Setenv("RETAIL_DATA_SOURCE_PATH", "data/online_retail.xlsx")
		t.Setenv("RETAIL_SECURITY_ALLOWED_ORIGINS", "http://a.test,http://b.test")
		t.Setenv("RETAIL_CACHE_ENABLED", "false")

		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, 9100, cfg.Server.Port)
		assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, "data/online_retail.xlsx", cfg.Data.SourcePath)
		assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Security.AllowedOrigins)
		assert.False(t, cfg.Cache.Enabled)
	})
}

func TestLoad_ExplicitConfigEnv(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 7070\n")
	t.Setenv(ConfigFileEnv, path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		wantMsg string
	}{
		{
			name:    "malformed yaml",
			content: "server: [",
			wantMsg: "failed to load config from file",
		},
		{
			name:    "bad env value",
			env:     map[string]string{"RETAIL_SERVER_PORT": "eighty"},
			wantMsg: "failed to load config from env",
		},
		{
			name:    "port out of range",
			content: "server:\n  port: 70000\n",
			wantMsg: "Config.Server.Port",
		},
		{
			name:    "inverted outlier quantiles",
			content: "data:\n  outlier_low: 0.9\n  outlier_high: 0.1\n",
			wantMsg: "Config.Data.OutlierLow",
		},
		{
			name:    "unknown granularity",
			content: "analysis:\n  default_granularity: daily\n",
			wantMsg: "Config.Analysis.DefaultGranularity",
		},
		{
			name:    "rfm needs four customers",
			content: "analysis:\n  rfm_min_customers: 2\n",
			wantMsg: "Config.Analysis.RFMMinCustomers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.content != "" {
				path = writeConfigFile(t, tt.content)
			}
			_, err := LoadFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidate_ReportsEveryViolation(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	cfg.Logging.Level = "verbose"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Config.Server.Port")
	assert.Contains(t, err.Error(), "Config.Logging.Level")
}
