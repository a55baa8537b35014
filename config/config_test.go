package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://text.pollinations.ai/", cfg.Provider.Endpoint)
	assert.Equal(t, "openai", cfg.Provider.Model)
	assert.Equal(t, 60*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 1, cfg.Provider.MaxRetries)
	assert.Equal(t, 5000, cfg.Analysis.MaxTextChars)
	assert.True(t, cfg.RateLimit.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoadLayersOverDefaults(t *testing.T) {
	yaml := `
server:
  port: 9090
provider:
  model: mistral
  timeout: 30s
  max_retries: 0
`
	cfg, err := Load(strings.NewReader(yaml))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "mistral", cfg.Provider.Model)
	assert.Equal(t, 30*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 0, cfg.Provider.MaxRetries)
	// Untouched sections keep defaults
	assert.Equal(t, "https://text.pollinations.ai/", cfg.Provider.Endpoint)
	assert.Equal(t, 5000, cfg.Analysis.MaxTextChars)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	os.Setenv("TEXTREFLEX_TEST_KEY", "secret-token")
	defer os.Unsetenv("TEXTREFLEX_TEST_KEY")

	yaml := `
provider:
  api_key: ${TEXTREFLEX_TEST_KEY}
  endpoint: ${TEXTREFLEX_TEST_ENDPOINT:-https://text.pollinations.ai/}
`
	cfg, err := Load(strings.NewReader(yaml))
	require.NoError(t, err)

	assert.Equal(t, "secret-token", cfg.Provider.APIKey)
	assert.Equal(t, "https://text.pollinations.ai/", cfg.Provider.Endpoint)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 70000 }},
		{"empty endpoint", func(c *Config) { c.Provider.Endpoint = "" }},
		{"non-http endpoint", func(c *Config) { c.Provider.Endpoint = "ftp://example.com" }},
		{"empty model", func(c *Config) { c.Provider.Model = "" }},
		{"zero timeout", func(c *Config) { c.Provider.Timeout = 0 }},
		{"too many retries", func(c *Config) { c.Provider.MaxRetries = 3 }},
		{"zero text bound", func(c *Config) { c.Analysis.MaxTextChars = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"zero breaker threshold", func(c *Config) { c.Provider.Breaker.FailureThreshold = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	_, err := Load(strings.NewReader("server: [not a map"))
	assert.Error(t, err)
}
