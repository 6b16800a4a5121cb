// =============================================================================
// 📦 AgentInbox 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Inbox:     DefaultInboxConfig(),
		Client:    DefaultClientConfig(),
		Fetch:     DefaultFetchConfig(),
		Redis:     DefaultRedisConfig(),
		Log:       DefaultLogConfig(),
		Metrics:   DefaultMetricsConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultInboxConfig 返回默认 inbox 配置（本地开发服务器）
func DefaultInboxConfig() InboxConfig {
	return InboxConfig{
		Name:          "default",
		DeploymentURL: "http://localhost:2024",
	}
}

// DefaultClientConfig 返回默认客户端配置
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:           30 * time.Second,
		MaxRetries:        3,
		RetryInitialDelay: 500 * time.Millisecond,
		RequestsPerSecond: 0,
		Burst:             1,
	}
}

// DefaultFetchConfig 返回默认拉取配置
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		DefaultLimit:        10,
		ClassifyConcurrency: 8,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:      false,
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		StateTTL:     10 * time.Minute,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     false,
		EnableStacktrace: false,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Addr:      ":9091",
		Namespace: "agentinbox",
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "agentinbox",
		SampleRate:   0.1,
	}
}
