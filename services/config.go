package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/compose-spec/compose-go/v2/dotenv"
)

// EnvProvider abstracts environment variable access for testing
type EnvProvider interface {
	Getenv(key string) string
	UserHomeDir() (string, error)
}

// DefaultEnvProvider implements EnvProvider using real OS functions
type DefaultEnvProvider struct{}

func (p *DefaultEnvProvider) Getenv(key string) string {
	return os.Getenv(key)
}

func (p *DefaultEnvProvider) UserHomeDir() (string, error) {
	return os.UserHomeDir()
}

// GetDefaultDataDir returns the default Berth data directory following the
// XDG Base Directory specification
func GetDefaultDataDir() string {
	return getDefaultDataDirWithEnv(&DefaultEnvProvider{})
}

func getDefaultDataDirWithEnv(env EnvProvider) string {
	// Use XDG_DATA_HOME if set, otherwise fallback to ~/.local/share
	xdgDataHome := env.Getenv("XDG_DATA_HOME")
	if xdgDataHome != "" {
		return filepath.Join(xdgDataHome, "berth")
	}

	homeDir, _ := env.UserHomeDir()
	return filepath.Join(homeDir, ".local", "share", "berth")
}

// Config holds configuration for all services
type Config struct {
	// Core paths
	DataDir      string
	DatabasePath string

	// Logging
	LogLevel     string
	ColorEnabled bool

	// Docker
	DockerHost string

	// HTTP status server
	HTTPHost string
	HTTPPort int

	// Deployment phase timeouts. Exceeding any is a failure of that phase,
	// not a hang.
	PullTimeout  time.Duration
	StopTimeout  time.Duration
	StartTimeout time.Duration
	// StartGracePeriod is waited before the single process-running check
	// when a plan declares no health check.
	StartGracePeriod time.Duration

	// RuntimeRetries bounds retries of runtime-unavailable failures per call
	RuntimeRetries      int
	RuntimeRetryBackoff time.Duration

	// Encryption of the persisted plan snapshot. Optional; plans are stored
	// in the clear when no key is configured.
	EncryptionKey string

	// Environment provider for testing
	env EnvProvider
}

// NewConfigForCLI creates a new configuration for CLI usage with optional data directory override
func NewConfigForCLI(cliDataDir string) (*Config, error) {
	return newConfigWithEnv(&DefaultEnvProvider{}, cliDataDir)
}

// NewConfigForCLIWithEnv creates a new configuration with custom environment provider (for testing)
func NewConfigForCLIWithEnv(env EnvProvider, cliDataDir string) (*Config, error) {
	return newConfigWithEnv(env, cliDataDir)
}

func newConfigWithEnv(env EnvProvider, cliDataDir string) (*Config, error) {
	c := &Config{env: env}

	// Set defaults first
	c.setDefaults()

	// Override with environment variables
	c.loadFromEnv()

	// Override with CLI flags (if provided)
	if cliDataDir != "" {
		c.DataDir = cliDataDir
	}

	// Derive dependent paths
	c.derivePaths()

	// Try to read encryption key from .env file as fallback (after data dir is finalized)
	if c.EncryptionKey == "" {
		if key := c.readEncryptionKeyFromEnvFile(); key != "" {
			c.EncryptionKey = key
		}
	}

	// Validate
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return c, nil
}

// setDefaults sets sensible default values
func (c *Config) setDefaults() {
	c.DataDir = getDefaultDataDirWithEnv(c.env)
	c.LogLevel = "info"
	c.ColorEnabled = true
	c.DockerHost = "unix:///var/run/docker.sock"
	c.HTTPHost = "127.0.0.1"
	c.HTTPPort = 8080
	c.PullTimeout = 5 * time.Minute
	c.StopTimeout = 30 * time.Second
	c.StartTimeout = time.Minute
	c.StartGracePeriod = 3 * time.Second
	c.RuntimeRetries = 3
	c.RuntimeRetryBackoff = 2 * time.Second
	// Don't set a default encryption key - it must be provided explicitly
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if v := c.env.Getenv("BERTH_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := c.env.Getenv("BERTH_DATABASE_PATH"); v != "" {
		c.DatabasePath = v
	}
	if v := c.env.Getenv("BERTH_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := c.env.Getenv("BERTH_COLOR_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.ColorEnabled = enabled
		}
	}
	if v := c.env.Getenv("BERTH_DOCKER_HOST"); v != "" {
		c.DockerHost = v
	}
	if v := c.env.Getenv("BERTH_HTTP_HOST"); v != "" {
		c.HTTPHost = v
	}
	if v := c.env.Getenv("BERTH_HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.HTTPPort = port
		}
	}
	if v := c.env.Getenv("BERTH_PULL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.PullTimeout = d
		}
	}
	if v := c.env.Getenv("BERTH_STOP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.StopTimeout = d
		}
	}
	if v := c.env.Getenv("BERTH_START_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.StartTimeout = d
		}
	}
	if v := c.env.Getenv("BERTH_START_GRACE_PERIOD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.StartGracePeriod = d
		}
	}
	if v := c.env.Getenv("BERTH_RUNTIME_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RuntimeRetries = n
		}
	}
	if v := c.env.Getenv("BERTH_RUNTIME_RETRY_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RuntimeRetryBackoff = d
		}
	}
	if v := c.env.Getenv("BERTH_ENCRYPTION_KEY"); v != "" {
		c.EncryptionKey = v
	}
}

// readEncryptionKeyFromEnvFile attempts to read BERTH_ENCRYPTION_KEY from .env file in data directory
func (c *Config) readEncryptionKeyFromEnvFile() string {
	envFile := filepath.Join(c.DataDir, ".env")

	envVars, err := dotenv.Read(envFile)
	if err != nil {
		// .env file doesn't exist or can't be read, that's okay
		return ""
	}

	return envVars["BERTH_ENCRYPTION_KEY"]
}

// derivePaths calculates dependent paths from the base DataDir
func (c *Config) derivePaths() {
	if c.DatabasePath == "" {
		c.DatabasePath = filepath.Join(c.DataDir, "berth.db")
	}
}

// validate ensures configuration values are valid
func (c *Config) validate() error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warning": true, "error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warning, or error)", c.LogLevel)
	}

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d (must be 1-65535)", c.HTTPPort)
	}

	if c.PullTimeout <= 0 || c.StopTimeout <= 0 || c.StartTimeout <= 0 {
		return fmt.Errorf("phase timeouts must be positive")
	}

	if c.RuntimeRetries < 0 {
		return fmt.Errorf("runtime retries must not be negative")
	}

	return nil
}
