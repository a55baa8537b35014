// Package config provides configuration management for the textreflex
// analysis server. It covers the HTTP server, the upstream inference
// provider, analysis input bounds, inbound rate limiting, and logging.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Provider  ProviderConfig  `yaml:"provider"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds server-specific configuration for the HTTP server.
type ServerConfig struct {
	// Port specifies the HTTP server port (default: 8080)
	Port int `yaml:"port"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body (default: 15s)
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of
	// the response. It must exceed the provider timeout or slow upstream
	// calls get cut off mid-response (default: 90s).
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// MaxHeaderBytes controls the maximum number of bytes the server will
	// read parsing request headers (default: 1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// ShutdownTimeout specifies how long to wait for in-flight requests
	// during graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ProviderConfig holds the upstream inference endpoint configuration.
// It is read once at startup and passed to the client as an immutable
// value; there is no runtime reconfiguration of the call path.
type ProviderConfig struct {
	// Endpoint is the text-generation API URL
	// (default: https://text.pollinations.ai/)
	Endpoint string `yaml:"endpoint"`

	// APIKey is an optional bearer token. The default Pollinations
	// endpoint requires none. Use ${TEXTREFLEX_API_KEY} style references
	// for secure configuration.
	APIKey string `yaml:"api_key"`

	// Model is the provider-side model identifier (default: "openai")
	Model string `yaml:"model"`

	// Timeout bounds a single upstream call (default: 60s)
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of additional attempts after a timeout or
	// 5xx response. Only 0 and 1 are valid; the design allows at most one
	// bounded retry (default: 1).
	MaxRetries int `yaml:"max_retries"`

	// MaxContextTokens optionally bounds the composed prompt size in
	// tokens. Zero disables the check.
	MaxContextTokens int `yaml:"max_context_tokens"`

	// Breaker configures the upstream circuit breaker.
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds circuit breaker settings for the upstream call.
type BreakerConfig struct {
	// Enabled turns the breaker on (default: true)
	Enabled bool `yaml:"enabled"`

	// FailureThreshold is the number of consecutive failures that trips
	// the circuit (default: 5)
	FailureThreshold uint32 `yaml:"failure_threshold"`

	// OpenTimeout is how long the circuit stays open before allowing a
	// probe request (default: 30s)
	OpenTimeout time.Duration `yaml:"open_timeout"`

	// MaxHalfOpenRequests is the number of requests allowed through in
	// the half-open state (default: 1)
	MaxHalfOpenRequests uint32 `yaml:"max_half_open_requests"`
}

// AnalysisConfig holds input bounds for the analysis endpoint.
type AnalysisConfig struct {
	// MaxTextChars is the maximum accepted input length after trimming
	// (default: 5000)
	MaxTextChars int `yaml:"max_text_chars"`
}

// RateLimitConfig holds inbound per-IP rate limiting settings.
type RateLimitConfig struct {
	// Enabled turns inbound rate limiting on (default: true)
	Enabled bool `yaml:"enabled"`

	// Requests is the number of requests allowed per window (default: 10)
	Requests int `yaml:"requests"`

	// Window is the limiting window (default: 1m)
	Window time.Duration `yaml:"window"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	// Level sets logging verbosity: debug, info, warn, error
	Level string `yaml:"level"`

	// Format specifies log output format: json or text
	Format string `yaml:"format"`
}

// DefaultConfig returns the configuration used when a field is absent
// from the YAML file. Defaults follow the behavior of the original
// deployment: a free anonymous endpoint with a generous timeout.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    90 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Provider: ProviderConfig{
			Endpoint:   "https://text.pollinations.ai/",
			Model:      "openai",
			Timeout:    60 * time.Second,
			MaxRetries: 1,
			Breaker: BreakerConfig{
				Enabled:             true,
				FailureThreshold:    5,
				OpenTimeout:         30 * time.Second,
				MaxHalfOpenRequests: 1,
			},
		},
		Analysis: AnalysisConfig{
			MaxTextChars: 5000,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 10,
			Window:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadFile loads configuration from a YAML file
func LoadFile(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// expandEnvVars resolves environment variable references in
// configuration strings. It supports standard ${VAR} substitution and
// ${VAR:-default} default-value syntax, and resolves nested references
// until no further substitution is possible.
func expandEnvVars(s string) string {
	result := os.Expand(s, func(key string) string {
		if i := strings.Index(key, ":-"); i >= 0 {
			envKey := key[:i]
			defaultValue := key[i+2:]

			if val := os.Getenv(envKey); val != "" {
				return val
			}
			return defaultValue
		}
		return os.Getenv(key)
	})

	prev := ""
	for prev != result {
		prev = result
		result = os.Expand(result, os.Getenv)
	}

	return result
}

// Load loads configuration from an io.Reader, layering the YAML content
// over DefaultConfig and validating the result.
func Load(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := expandEnvVars(string(data))

	config := DefaultConfig()

	dec := yaml.NewDecoder(strings.NewReader(expanded))
	if err := dec.Decode(config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("negative read timeout: %v", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("negative write timeout: %v", c.Server.WriteTimeout)
	}
	if c.Server.MaxHeaderBytes < 0 {
		return fmt.Errorf("negative max header bytes: %d", c.Server.MaxHeaderBytes)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("negative shutdown timeout: %v", c.Server.ShutdownTimeout)
	}

	if c.Provider.Endpoint == "" {
		return fmt.Errorf("empty provider endpoint")
	}
	if !strings.HasPrefix(c.Provider.Endpoint, "http://") && !strings.HasPrefix(c.Provider.Endpoint, "https://") {
		return fmt.Errorf("provider endpoint must be an http(s) URL: %s", c.Provider.Endpoint)
	}
	if c.Provider.Model == "" {
		return fmt.Errorf("empty provider model")
	}
	if c.Provider.Timeout <= 0 {
		return fmt.Errorf("provider timeout must be positive: %v", c.Provider.Timeout)
	}
	if c.Provider.MaxRetries < 0 || c.Provider.MaxRetries > 1 {
		return fmt.Errorf("provider max_retries must be 0 or 1: %d", c.Provider.MaxRetries)
	}
	if c.Provider.MaxContextTokens < 0 {
		return fmt.Errorf("negative max context tokens: %d", c.Provider.MaxContextTokens)
	}
	if c.Provider.Breaker.Enabled {
		if c.Provider.Breaker.FailureThreshold == 0 {
			return fmt.Errorf("breaker failure threshold must be positive")
		}
		if c.Provider.Breaker.OpenTimeout <= 0 {
			return fmt.Errorf("breaker open timeout must be positive: %v", c.Provider.Breaker.OpenTimeout)
		}
	}

	if c.Analysis.MaxTextChars <= 0 {
		return fmt.Errorf("analysis max_text_chars must be positive: %d", c.Analysis.MaxTextChars)
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Requests <= 0 {
			return fmt.Errorf("rate limit requests must be positive: %d", c.RateLimit.Requests)
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive: %v", c.RateLimit.Window)
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}
