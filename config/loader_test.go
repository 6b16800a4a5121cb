// 配置加载器与默认配置测试。
package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- 默认配置测试 ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "http://localhost:2024", cfg.Inbox.DeploymentURL)
	assert.Empty(t, cfg.Inbox.AssistantID)

	assert.Equal(t, 30*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 3, cfg.Client.MaxRetries)
	assert.Zero(t, cfg.Client.RequestsPerSecond)

	assert.Equal(t, 10, cfg.Fetch.DefaultLimit)
	assert.Equal(t, 8, cfg.Fetch.ClassifyConcurrency)

	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 10*time.Minute, cfg.Redis.StateTTL)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, []string{"stderr"}, cfg.Log.OutputPaths)

	assert.Equal(t, "agentinbox", cfg.Metrics.Namespace)
	assert.Equal(t, "agentinbox", cfg.Telemetry.ServiceName)

	assert.NoError(t, cfg.Validate())
}

// --- Loader 测试 ---

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agentinbox.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	path := writeConfig(t, `
inbox:
  name: "support"
  deployment_url: "https://graphs.example.com"
  assistant_id: "agent"

client:
  timeout: 5s
  requests_per_second: 2.5
  burst: 4

fetch:
  default_limit: 25

redis:
  enabled: true
  addr: "redis.example.com:6379"
  state_ttl: 1m

log:
  level: "debug"
  output_paths: ["stdout", "/var/log/agentinbox.log"]
`)

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "support", cfg.Inbox.Name)
	assert.Equal(t, "https://graphs.example.com", cfg.Inbox.DeploymentURL)
	assert.Equal(t, "agent", cfg.Inbox.AssistantID)

	assert.Equal(t, 5*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 2.5, cfg.Client.RequestsPerSecond)
	assert.Equal(t, 4, cfg.Client.Burst)
	// 未出现在文件中的字段保留默认值
	assert.Equal(t, 3, cfg.Client.MaxRetries)

	assert.Equal(t, 25, cfg.Fetch.DefaultLimit)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, time.Minute, cfg.Redis.StateTTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"stdout", "/var/log/agentinbox.log"}, cfg.Log.OutputPaths)
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("AGENTINBOX_INBOX_ASSISTANT_ID", "env-agent")
	t.Setenv("AGENTINBOX_CLIENT_TIMEOUT", "12s")
	t.Setenv("AGENTINBOX_CLIENT_REQUESTS_PER_SECOND", "0.5")
	t.Setenv("AGENTINBOX_FETCH_DEFAULT_LIMIT", "50")
	t.Setenv("AGENTINBOX_REDIS_ENABLED", "true")
	t.Setenv("AGENTINBOX_LOG_OUTPUT_PATHS", "stdout, stderr")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "env-agent", cfg.Inbox.AssistantID)
	assert.Equal(t, 12*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 0.5, cfg.Client.RequestsPerSecond)
	assert.Equal(t, 50, cfg.Fetch.DefaultLimit)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"stdout", "stderr"}, cfg.Log.OutputPaths)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
inbox:
  assistant_id: "yaml-agent"
  deployment_url: "https://yaml.example.com"
`)
	t.Setenv("AGENTINBOX_INBOX_ASSISTANT_ID", "env-agent")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "env-agent", cfg.Inbox.AssistantID)
	assert.Equal(t, "https://yaml.example.com", cfg.Inbox.DeploymentURL)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYINBOX_INBOX_NAME", "custom")
	t.Setenv("AGENTINBOX_INBOX_NAME", "ignored")

	cfg, err := NewLoader().WithEnvPrefix("MYINBOX").Load()
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.Inbox.Name)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("AGENTINBOX_CLIENT_TIMEOUT", "soon")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AGENTINBOX_CLIENT_TIMEOUT")
}

func TestLoader_WithValidator(t *testing.T) {
	t.Setenv("AGENTINBOX_FETCH_DEFAULT_LIMIT", "500")

	_, err := NewLoader().
		WithValidator(func(c *Config) error { return c.Validate() }).
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_limit")
}

func TestLoader_NonExistentFile(t *testing.T) {
	cfg, err := NewLoader().
		WithConfigPath("/non/existent/path/agentinbox.yaml").
		Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Fetch.DefaultLimit)
}

func TestLoader_InvalidYAML(t *testing.T) {
	path := writeConfig(t, `
inbox:
  name: [invalid
  this is not valid yaml
`)

	_, err := NewLoader().WithConfigPath(path).Load()
	assert.Error(t, err)
}

// --- Config 方法测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{name: "valid default config", modify: func(c *Config) {}},
		{
			name:    "missing deployment url",
			modify:  func(c *Config) { c.Inbox.DeploymentURL = "" },
			wantErr: "deployment_url is required",
		},
		{
			name:    "relative deployment url",
			modify:  func(c *Config) { c.Inbox.DeploymentURL = "graphs/local" },
			wantErr: "absolute URL",
		},
		{
			name:    "zero timeout",
			modify:  func(c *Config) { c.Client.Timeout = 0 },
			wantErr: "timeout",
		},
		{
			name:    "negative retries",
			modify:  func(c *Config) { c.Client.MaxRetries = -1 },
			wantErr: "max_retries",
		},
		{
			name:    "limit too small",
			modify:  func(c *Config) { c.Fetch.DefaultLimit = 0 },
			wantErr: "default_limit",
		},
		{
			name:    "limit too large",
			modify:  func(c *Config) { c.Fetch.DefaultLimit = 101 },
			wantErr: "default_limit",
		},
		{
			name:    "redis enabled without addr",
			modify:  func(c *Config) { c.Redis.Enabled = true; c.Redis.Addr = "" },
			wantErr: "redis.addr",
		},
		{
			name:    "sample rate out of range",
			modify:  func(c *Config) { c.Telemetry.SampleRate = 1.5 },
			wantErr: "sample_rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoader_UnknownYAMLField(t *testing.T) {
	path := writeConfig(t, `
inbox:
  deployment_ur: "https://typo.example.com"
`)

	_, err := NewLoader().WithConfigPath(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deployment_ur")
}

func TestLoader_EmptyFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_EmptyEnvValueIgnored(t *testing.T) {
	t.Setenv("AGENTINBOX_CLIENT_TIMEOUT", "")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Client.Timeout, cfg.Client.Timeout)
}

func TestEnvBindings_Keys(t *testing.T) {
	cfg := DefaultConfig()
	keys := map[string]bool{}
	for _, b := range envBindings(reflect.ValueOf(cfg).Elem(), "P") {
		keys[b.key] = true
	}

	for _, want := range []string{
		"P_INBOX_DEPLOYMENT_URL",
		"P_CLIENT_REQUESTS_PER_SECOND",
		"P_REDIS_STATE_TTL",
		"P_LOG_OUTPUT_PATHS",
		"P_TELEMETRY_SAMPLE_RATE",
	} {
		assert.True(t, keys[want], want)
	}
	assert.False(t, keys["P_INBOX"], "sections are not leaves")
}
