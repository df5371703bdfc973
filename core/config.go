package core

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the vitrine SDK.
// It supports three-layer configuration priority:
//  1. Default values (lowest priority)
//  2. Environment variables (medium priority)
//  3. Functional options (highest priority)
//
// Example usage:
//
//	cfg, err := NewConfig(
//	    WithAPIURL("https://gateway.example.com"),
//	    WithCredentialFile("/var/lib/kiosk/credentials.json"),
//	)
type Config struct {
	// APIURL is the gateway prefix in front of all backend services
	APIURL string `yaml:"api_url" env:"VITRINE_API_URL"`

	// HTTP client configuration
	HTTP HTTPConfig `yaml:"http"`

	// Credentials configuration (durable credential slot)
	Credentials CredentialConfig `yaml:"credentials"`

	// Retry configuration for outbound calls
	Retry RetryConfig `yaml:"retry"`

	// RateLimit configuration protecting the gateway
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Telemetry configuration (optional OpenTelemetry instrumentation)
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Orders configuration (submission pipeline behavior)
	Orders OrderConfig `yaml:"orders"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging"`
}

// HTTPConfig contains HTTP client configuration
type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout" env:"VITRINE_HTTP_TIMEOUT"`
}

// CredentialConfig selects where the durable credential slot lives.
// Supported providers: memory, file, redis.
type CredentialConfig struct {
	Provider string `yaml:"provider" env:"VITRINE_CREDENTIALS_PROVIDER"`
	FilePath string `yaml:"file_path" env:"VITRINE_CREDENTIALS_FILE"`
	RedisURL string `yaml:"redis_url" env:"VITRINE_REDIS_URL,REDIS_URL"`
	RedisKey string `yaml:"redis_key" env:"VITRINE_CREDENTIALS_REDIS_KEY"`
}

// RetryConfig defines retry settings with exponential backoff.
// Formula: delay = min(InitialDelay * (BackoffFactor ^ attempt), MaxDelay)
type RetryConfig struct {
	MaxAttempts   int           `yaml:"max_attempts" env:"VITRINE_RETRY_MAX_ATTEMPTS"`
	InitialDelay  time.Duration `yaml:"initial_delay" env:"VITRINE_RETRY_INITIAL_DELAY"`
	MaxDelay      time.Duration `yaml:"max_delay" env:"VITRINE_RETRY_MAX_DELAY"`
	BackoffFactor float64       `yaml:"backoff_factor"`
}

// RateLimitConfig throttles outbound calls client-side
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" env:"VITRINE_RATE_LIMIT_ENABLED"`
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"VITRINE_RATE_LIMIT_RPS"`
	Burst             int     `yaml:"burst" env:"VITRINE_RATE_LIMIT_BURST"`
}

// TelemetryConfig enables OpenTelemetry instrumentation of the HTTP
// transport. Exporter wiring is left to the host application.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled" env:"VITRINE_TELEMETRY_ENABLED"`
}

// OrderConfig contains order submission pipeline settings.
// ObservationWindow is how long a Succeeded/Failed outcome stays visible
// before the pipeline returns to Idle.
type OrderConfig struct {
	ObservationWindow time.Duration `yaml:"observation_window" env:"VITRINE_ORDER_OBSERVATION_WINDOW"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" env:"VITRINE_LOG_LEVEL"`
}

// Option is a functional option for configuring the SDK.
// Options are applied in order and can return an error if the configuration
// is invalid.
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		APIURL: "http://localhost:1111",
		HTTP: HTTPConfig{
			Timeout: 30 * time.Second,
		},
		Credentials: CredentialConfig{
			Provider: "file",
			FilePath: defaultCredentialPath(),
			RedisKey: "vitrine:credentials",
		},
		Retry: RetryConfig{
			MaxAttempts:   3,
			InitialDelay:  500 * time.Millisecond,
			MaxDelay:      5 * time.Second,
			BackoffFactor: 2.0,
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerSecond: 20,
			Burst:             40,
		},
		Orders: OrderConfig{
			ObservationWindow: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func defaultCredentialPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vitrine/credentials.json"
	}
	return home + "/.vitrine/credentials.json"
}

// NewConfig creates a configuration by layering environment variables and
// functional options over the defaults
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()
	cfg.applyEnvironmentOverrides()

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvironmentOverrides reads well-known environment variables into the
// configuration. Unset or unparsable values leave the current value intact.
func (c *Config) applyEnvironmentOverrides() {
	if v := os.Getenv("VITRINE_API_URL"); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv("VITRINE_HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.HTTP.Timeout = d
		}
	}
	if v := os.Getenv("VITRINE_CREDENTIALS_PROVIDER"); v != "" {
		c.Credentials.Provider = v
	}
	if v := os.Getenv("VITRINE_CREDENTIALS_FILE"); v != "" {
		c.Credentials.FilePath = v
	}
	if v := os.Getenv("VITRINE_REDIS_URL"); v != "" {
		c.Credentials.RedisURL = v
	} else if v := os.Getenv("REDIS_URL"); v != "" {
		c.Credentials.RedisURL = v
	}
	if v := os.Getenv("VITRINE_CREDENTIALS_REDIS_KEY"); v != "" {
		c.Credentials.RedisKey = v
	}
	if v := os.Getenv("VITRINE_RETRY_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Retry.MaxAttempts = n
		}
	}
	if v := os.Getenv("VITRINE_RETRY_INITIAL_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Retry.InitialDelay = d
		}
	}
	if v := os.Getenv("VITRINE_RETRY_MAX_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Retry.MaxDelay = d
		}
	}
	if v := os.Getenv("VITRINE_RATE_LIMIT_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.RateLimit.Enabled = b
		}
	}
	if v := os.Getenv("VITRINE_RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.RateLimit.RequestsPerSecond = f
		}
	}
	if v := os.Getenv("VITRINE_RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.RateLimit.Burst = n
		}
	}
	if v := os.Getenv("VITRINE_TELEMETRY_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Telemetry.Enabled = b
		}
	}
	if v := os.Getenv("VITRINE_ORDER_OBSERVATION_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Orders.ObservationWindow = d
		}
	}
	if v := os.Getenv("VITRINE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("%w: api url is required", ErrInvalidConfiguration)
	}
	switch c.Credentials.Provider {
	case "memory", "file", "redis":
	default:
		return fmt.Errorf("%w: unknown credential provider %q", ErrInvalidConfiguration, c.Credentials.Provider)
	}
	if c.Credentials.Provider == "file" && c.Credentials.FilePath == "" {
		return fmt.Errorf("%w: credential file path is required", ErrInvalidConfiguration)
	}
	if c.Credentials.Provider == "redis" && c.Credentials.RedisURL == "" {
		return fmt.Errorf("%w: redis url is required for the redis credential provider", ErrInvalidConfiguration)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%w: retry max attempts must be at least 1", ErrInvalidConfiguration)
	}
	if c.Orders.ObservationWindow <= 0 {
		return fmt.Errorf("%w: order observation window must be positive", ErrInvalidConfiguration)
	}
	return nil
}

// WithAPIURL sets the gateway prefix
func WithAPIURL(url string) Option {
	return func(c *Config) error {
		if url == "" {
			return fmt.Errorf("%w: api url cannot be empty", ErrInvalidConfiguration)
		}
		c.APIURL = url
		return nil
	}
}

// WithHTTPTimeout sets the per-request timeout of the underlying HTTP client
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: http timeout must be positive", ErrInvalidConfiguration)
		}
		c.HTTP.Timeout = timeout
		return nil
	}
}

// WithMemoryCredentials keeps credentials in process memory only
func WithMemoryCredentials() Option {
	return func(c *Config) error {
		c.Credentials.Provider = "memory"
		return nil
	}
}

// WithCredentialFile stores credentials in a JSON file at the given path
func WithCredentialFile(path string) Option {
	return func(c *Config) error {
		if path == "" {
			return fmt.Errorf("%w: credential file path cannot be empty", ErrInvalidConfiguration)
		}
		c.Credentials.Provider = "file"
		c.Credentials.FilePath = path
		return nil
	}
}

// WithRedisCredentials stores credentials in Redis under the configured key
func WithRedisCredentials(redisURL string) Option {
	return func(c *Config) error {
		if redisURL == "" {
			return fmt.Errorf("%w: redis url cannot be empty", ErrInvalidConfiguration)
		}
		c.Credentials.Provider = "redis"
		c.Credentials.RedisURL = redisURL
		return nil
	}
}

// WithRetry overrides the retry policy for outbound calls
func WithRetry(maxAttempts int, initialDelay time.Duration) Option {
	return func(c *Config) error {
		if maxAttempts < 1 {
			return fmt.Errorf("%w: retry max attempts must be at least 1", ErrInvalidConfiguration)
		}
		c.Retry.MaxAttempts = maxAttempts
		if initialDelay > 0 {
			c.Retry.InitialDelay = initialDelay
		}
		return nil
	}
}

// WithRateLimit enables client-side throttling of outbound calls
func WithRateLimit(requestsPerSecond float64, burst int) Option {
	return func(c *Config) error {
		if requestsPerSecond <= 0 || burst < 1 {
			return fmt.Errorf("%w: rate limit requires positive rps and burst", ErrInvalidConfiguration)
		}
		c.RateLimit.Enabled = true
		c.RateLimit.RequestsPerSecond = requestsPerSecond
		c.RateLimit.Burst = burst
		return nil
	}
}

// WithTelemetry enables OpenTelemetry instrumentation of the HTTP transport
func WithTelemetry() Option {
	return func(c *Config) error {
		c.Telemetry.Enabled = true
		return nil
	}
}

// WithObservationWindow sets how long order outcomes stay visible before
// the pipeline resets to Idle
func WithObservationWindow(window time.Duration) Option {
	return func(c *Config) error {
		if window <= 0 {
			return fmt.Errorf("%w: observation window must be positive", ErrInvalidConfiguration)
		}
		c.Orders.ObservationWindow = window
		return nil
	}
}

// WithConfigFile layers a YAML configuration file over the current values.
// File values sit between environment variables and later options.
func WithConfigFile(path string) Option {
	return func(c *Config) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parsing config file %s: %w", path, err)
		}
		return nil
	}
}

// WithLogLevel sets the logging level
func WithLogLevel(level string) Option {
	return func(c *Config) error {
		c.Logging.Level = level
		return nil
	}
}
