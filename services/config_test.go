package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockEnvProvider implements EnvProvider for testing
type MockEnvProvider struct {
	env     map[string]string
	homeDir string
}

func (p *MockEnvProvider) Getenv(key string) string {
	return p.env[key]
}

func (p *MockEnvProvider) UserHomeDir() (string, error) {
	return p.homeDir, nil
}

func newMockEnv(vars map[string]string) *MockEnvProvider {
	if vars == nil {
		vars = make(map[string]string)
	}
	return &MockEnvProvider{env: vars, homeDir: "/home/tester"}
}

func TestConfig_Defaults(t *testing.T) {
	config, err := NewConfigForCLIWithEnv(newMockEnv(nil), "")
	require.NoError(t, err)

	assert.Equal(t, "/home/tester/.local/share/berth", config.DataDir)
	assert.Equal(t, filepath.Join(config.DataDir, "berth.db"), config.DatabasePath)
	assert.Equal(t, "info", config.LogLevel)
	assert.True(t, config.ColorEnabled)
	assert.Equal(t, "unix:///var/run/docker.sock", config.DockerHost)
	assert.Equal(t, "127.0.0.1", config.HTTPHost)
	assert.Equal(t, 8080, config.HTTPPort)
	assert.Equal(t, 5*time.Minute, config.PullTimeout)
	assert.Equal(t, 30*time.Second, config.StopTimeout)
	assert.Equal(t, time.Minute, config.StartTimeout)
	assert.Equal(t, 3*time.Second, config.StartGracePeriod)
	assert.Equal(t, 3, config.RuntimeRetries)
	assert.Equal(t, 2*time.Second, config.RuntimeRetryBackoff)
	assert.Empty(t, config.EncryptionKey)
}

func TestConfig_XDGDataHome(t *testing.T) {
	env := newMockEnv(map[string]string{
		"XDG_DATA_HOME": "/custom/share",
	})

	config, err := NewConfigForCLIWithEnv(env, "")
	require.NoError(t, err)
	assert.Equal(t, "/custom/share/berth", config.DataDir)
}

func TestConfig_EnvOverrides(t *testing.T) {
	env := newMockEnv(map[string]string{
		"BERTH_DATA_DIR":              "/var/lib/berth",
		"BERTH_LOG_LEVEL":             "debug",
		"BERTH_COLOR_ENABLED":         "false",
		"BERTH_DOCKER_HOST":           "tcp://10.0.0.5:2375",
		"BERTH_HTTP_HOST":             "0.0.0.0",
		"BERTH_HTTP_PORT":             "9090",
		"BERTH_PULL_TIMEOUT":          "10m",
		"BERTH_STOP_TIMEOUT":          "15s",
		"BERTH_START_TIMEOUT":         "20s",
		"BERTH_START_GRACE_PERIOD":    "1s",
		"BERTH_RUNTIME_RETRIES":       "5",
		"BERTH_RUNTIME_RETRY_BACKOFF": "500ms",
		"BERTH_ENCRYPTION_KEY":        "test-key",
	})

	config, err := NewConfigForCLIWithEnv(env, "")
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/berth", config.DataDir)
	assert.Equal(t, "/var/lib/berth/berth.db", config.DatabasePath)
	assert.Equal(t, "debug", config.LogLevel)
	assert.False(t, config.ColorEnabled)
	assert.Equal(t, "tcp://10.0.0.5:2375", config.DockerHost)
	assert.Equal(t, "0.0.0.0", config.HTTPHost)
	assert.Equal(t, 9090, config.HTTPPort)
	assert.Equal(t, 10*time.Minute, config.PullTimeout)
	assert.Equal(t, 15*time.Second, config.StopTimeout)
	assert.Equal(t, 20*time.Second, config.StartTimeout)
	assert.Equal(t, time.Second, config.StartGracePeriod)
	assert.Equal(t, 5, config.RuntimeRetries)
	assert.Equal(t, 500*time.Millisecond, config.RuntimeRetryBackoff)
	assert.Equal(t, "test-key", config.EncryptionKey)
}

func TestConfig_CLIDataDirWinsOverEnv(t *testing.T) {
	env := newMockEnv(map[string]string{
		"BERTH_DATA_DIR": "/from/env",
	})

	config, err := NewConfigForCLIWithEnv(env, "/from/cli")
	require.NoError(t, err)
	assert.Equal(t, "/from/cli", config.DataDir)
	assert.Equal(t, "/from/cli/berth.db", config.DatabasePath)
}

func TestConfig_EncryptionKeyFromEnvFile(t *testing.T) {
	dataDir := t.TempDir()
	envFile := filepath.Join(dataDir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("BERTH_ENCRYPTION_KEY=from-dotenv\n"), 0o600))

	config, err := NewConfigForCLIWithEnv(newMockEnv(nil), dataDir)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", config.EncryptionKey)
}

func TestConfig_ProcessEnvWinsOverEnvFile(t *testing.T) {
	dataDir := t.TempDir()
	envFile := filepath.Join(dataDir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("BERTH_ENCRYPTION_KEY=from-dotenv\n"), 0o600))

	env := newMockEnv(map[string]string{
		"BERTH_ENCRYPTION_KEY": "from-process",
	})

	config, err := NewConfigForCLIWithEnv(env, dataDir)
	require.NoError(t, err)
	assert.Equal(t, "from-process", config.EncryptionKey)
}

func TestConfig_InvalidLogLevel(t *testing.T) {
	env := newMockEnv(map[string]string{
		"BERTH_LOG_LEVEL": "verbose",
	})

	_, err := NewConfigForCLIWithEnv(env, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestConfig_InvalidHTTPPort(t *testing.T) {
	env := newMockEnv(map[string]string{
		"BERTH_HTTP_PORT": "70000",
	})

	_, err := NewConfigForCLIWithEnv(env, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestGetDefaultDataDir(t *testing.T) {
	dir := getDefaultDataDirWithEnv(newMockEnv(nil))
	assert.Equal(t, "/home/tester/.local/share/berth", dir)
}
