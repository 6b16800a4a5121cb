// =============================================================================
// 📦 AgentInbox 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量（AGENTINBOX_<SECTION>_<FIELD>）
// YAML 中的未知字段视为错误
// =============================================================================
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 AgentInbox 的完整配置结构
type Config struct {
	// Inbox 收件箱（部署 + assistant）配置
	Inbox InboxConfig `yaml:"inbox" env:"INBOX"`

	// Client 远程执行服务客户端配置
	Client ClientConfig `yaml:"client" env:"CLIENT"`

	// Fetch 线程列表拉取配置
	Fetch FetchConfig `yaml:"fetch" env:"FETCH"`

	// Redis 线程状态缓存配置
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Metrics Prometheus 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// InboxConfig 一个 inbox 对应一个部署上的一个 assistant
type InboxConfig struct {
	// 显示名称
	Name string `yaml:"name" env:"NAME"`
	// 部署地址
	DeploymentURL string `yaml:"deployment_url" env:"DEPLOYMENT_URL"`
	// Assistant（graph）ID
	AssistantID string `yaml:"assistant_id" env:"ASSISTANT_ID"`
	// API Key（可选）
	APIKey string `yaml:"api_key" env:"API_KEY"`
}

// ClientConfig HTTP 客户端配置
type ClientConfig struct {
	// 请求超时（流式请求不受限）
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 读请求最大重试次数
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
	// 首次重试延迟
	RetryInitialDelay time.Duration `yaml:"retry_initial_delay" env:"RETRY_INITIAL_DELAY"`
	// 每秒请求数，0 表示不限流
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"REQUESTS_PER_SECOND"`
	// 突发容量
	Burst int `yaml:"burst" env:"BURST"`
}

// FetchConfig 列表拉取配置
type FetchConfig struct {
	// 默认每页数量
	DefaultLimit int `yaml:"default_limit" env:"DEFAULT_LIMIT"`
	// 并行分类的最大线程数
	ClassifyConcurrency int `yaml:"classify_concurrency" env:"CLASSIFY_CONCURRENCY"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 是否启用线程状态缓存
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 最小空闲连接
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	// 线程状态缓存 TTL
	StateTTL time.Duration `yaml:"state_ttl" env:"STATE_TTL"`
	// 是否使用 TLS 连接
	TLS bool `yaml:"tls" env:"TLS"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否暴露 /metrics
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 监听地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 按 默认值 → YAML → 环境变量 的顺序构建 Config
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

func NewLoader() *Loader {
	return &Loader{envPrefix: "AGENTINBOX"}
}

// WithConfigPath 设置 YAML 文件路径；文件不存在时忽略
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀，键形如 PREFIX_SECTION_FIELD
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 追加在覆盖完成后执行的校验
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := decodeFile(l.configPath, cfg); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", l.configPath, err)
		}
	}
	for _, b := range envBindings(reflect.ValueOf(cfg).Elem(), l.envPrefix) {
		raw, ok := os.LookupEnv(b.key)
		if !ok || raw == "" {
			continue
		}
		if err := b.set(raw); err != nil {
			return nil, fmt.Errorf("load config env: %s: %w", b.key, err)
		}
	}
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}
	return cfg, nil
}

// decodeFile 严格解码：未知字段报错，空文件保持默认值
func decodeFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// =============================================================================
// 🌱 环境变量绑定
// =============================================================================

// envBinding 一个叶子字段与其环境变量键
type envBinding struct {
	key   string
	field reflect.Value
}

// envBindings 沿 env 标签展开嵌套结构体，返回所有叶子字段
func envBindings(v reflect.Value, prefix string) []envBinding {
	var out []envBinding
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("env")
		if tag == "" || tag == "-" {
			continue
		}
		key := prefix + "_" + tag
		if f := v.Field(i); f.Kind() == reflect.Struct {
			out = append(out, envBindings(f, key)...)
		} else {
			out = append(out, envBinding{key: key, field: f})
		}
	}
	return out
}

var durationType = reflect.TypeOf(time.Duration(0))

func (b envBinding) set(raw string) error {
	f := b.field
	switch {
	case f.Type() == durationType:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		f.SetInt(int64(d))
	case f.Kind() == reflect.String:
		f.SetString(raw)
	case f.Kind() == reflect.Int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		f.SetInt(int64(n))
	case f.Kind() == reflect.Float64:
		x, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		f.SetFloat(x)
	case f.Kind() == reflect.Bool:
		on, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		f.SetBool(on)
	case f.Kind() == reflect.Slice && f.Type().Elem().Kind() == reflect.String:
		// 逗号分隔
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		f.Set(reflect.ValueOf(parts))
	default:
		return fmt.Errorf("unsupported field type %s", f.Type())
	}
	return nil
}

// =============================================================================
// 🔍 校验
// =============================================================================

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	// 部署地址
	if c.Inbox.DeploymentURL == "" {
		errs = append(errs, "inbox.deployment_url is required")
	} else if u, err := url.Parse(c.Inbox.DeploymentURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, "inbox.deployment_url must be an absolute URL")
	}

	// 客户端
	if c.Client.Timeout <= 0 {
		errs = append(errs, "client.timeout must be positive")
	}
	if c.Client.MaxRetries < 0 {
		errs = append(errs, "client.max_retries must not be negative")
	}
	if c.Client.RequestsPerSecond < 0 {
		errs = append(errs, "client.requests_per_second must not be negative")
	}

	// 拉取
	if c.Fetch.DefaultLimit < 1 || c.Fetch.DefaultLimit > 100 {
		errs = append(errs, "fetch.default_limit must be between 1 and 100")
	}
	if c.Fetch.ClassifyConcurrency <= 0 {
		errs = append(errs, "fetch.classify_concurrency must be positive")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, "redis.addr is required when redis is enabled")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, "metrics.addr is required when metrics are enabled")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry.sample_rate must be between 0 and 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
