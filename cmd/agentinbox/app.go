package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/BaSui01/agentinbox/config"
	"github.com/BaSui01/agentinbox/inbox"
	"github.com/BaSui01/agentinbox/internal/cache"
	"github.com/BaSui01/agentinbox/internal/metrics"
	"github.com/BaSui01/agentinbox/internal/telemetry"
	"github.com/BaSui01/agentinbox/langgraph"
	"github.com/BaSui01/agentinbox/notify"
	"github.com/BaSui01/agentinbox/submission"
)

// =============================================================================
// 🧩 组件装配
// =============================================================================

// app 持有一次命令执行所需的全部组件
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	out    io.Writer

	client      *langgraph.Client
	cache       *cache.Manager
	registry    *prometheus.Registry
	metrics     *metrics.Collector
	telemetry   *telemetry.Providers
	notifier    notify.Notifier
	list        *inbox.ThreadList
	coordinator *inbox.Coordinator
	submitter   *submission.Submitter
}

// commonFlags 所有子命令共享的参数
type commonFlags struct {
	configPath string
}

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	common := &commonFlags{}
	fs.StringVar(&common.configPath, "config", "", "Path to config file")
	return fs, common
}

// parseFlags 解析参数，允许位置参数与选项交错出现（submit <id> --edit k=v）
func parseFlags(fs *flag.FlagSet, args []string) error {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return errUsage
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
	// "--" 之后全部视为位置参数
	if err := fs.Parse(append([]string{"--"}, positional...)); err != nil {
		return errUsage
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openApp 加载配置并装配客户端、缓存、指标、遥测与协调器
func openApp(common *commonFlags, stdout, stderr io.Writer) (*app, error) {
	cfg, err := loadConfig(common.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := initLogger(cfg.Log)
	logger.Debug("starting agentinbox",
		zap.String("version", Version),
		zap.String("git_commit", GitCommit),
		zap.String("inbox", cfg.Inbox.Name),
	)

	a := &app{
		cfg:    cfg,
		logger: logger,
		out:    stdout,
	}

	a.telemetry, err = telemetry.Init(cfg.Telemetry, telemetry.Resource{
		Version:       Version,
		InboxName:     cfg.Inbox.Name,
		DeploymentURL: cfg.Inbox.DeploymentURL,
		AssistantID:   cfg.Inbox.AssistantID,
	}, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.NewCollectorWithRegisterer(cfg.Metrics.Namespace, a.registry, logger)

	a.client = langgraph.NewClient(langgraph.Config{
		BaseURL:           cfg.Inbox.DeploymentURL,
		APIKey:            cfg.Inbox.APIKey,
		Timeout:           cfg.Client.Timeout,
		MaxRetries:        cfg.Client.MaxRetries,
		RetryInitialDelay: cfg.Client.RetryInitialDelay,
		RequestsPerSecond: cfg.Client.RequestsPerSecond,
		Burst:             cfg.Client.Burst,
	}, logger)

	a.notifier = notify.Multi(notify.NewWriterNotifier(stderr), notify.NewLogNotifier(logger))
	a.list = inbox.NewThreadList()

	coordOpts := []inbox.CoordinatorOption{
		inbox.WithAssistantID(cfg.Inbox.AssistantID),
		inbox.WithNotifier(a.notifier),
		inbox.WithLogger(logger),
		inbox.WithMetrics(a.metrics),
		inbox.WithClassifyConcurrency(cfg.Fetch.ClassifyConcurrency),
	}
	if cfg.Redis.Enabled {
		if sc := a.openStateCache(); sc != nil {
			coordOpts = append(coordOpts, inbox.WithStateCache(sc))
		}
	}
	a.coordinator = inbox.NewCoordinator(a.client, a.list, coordOpts...)

	a.submitter = submission.NewSubmitter(a.client, a.coordinator, a.list,
		submission.WithAssistantID(cfg.Inbox.AssistantID),
		submission.WithNotifier(a.notifier),
		submission.WithLogger(logger),
		submission.WithMetrics(a.metrics),
	)
	return a, nil
}

// openStateCache 连接 Redis；不可用时降级为无缓存
func (a *app) openStateCache() *cache.StateCache {
	rc := a.cfg.Redis
	cacheCfg := cache.DefaultConfig()
	cacheCfg.Addr = rc.Addr
	cacheCfg.Password = rc.Password
	cacheCfg.DB = rc.DB
	cacheCfg.PoolSize = rc.PoolSize
	cacheCfg.MinIdleConns = rc.MinIdleConns
	cacheCfg.DefaultTTL = rc.StateTTL
	cacheCfg.TLS = rc.TLS

	m, err := cache.NewManager(cacheCfg, a.logger)
	if err != nil {
		a.logger.Warn("redis unavailable, thread state cache disabled", zap.Error(err))
		return nil
	}
	a.cache = m
	return cache.NewStateCache(m, rc.StateTTL, a.logger)
}

// Close 释放缓存连接并刷新遥测数据
func (a *app) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("close cache failed", zap.Error(err))
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// page 返回命令行分页参数，limit 缺省取配置值
func (a *app) page(offset, limit int) inbox.Pagination {
	if limit == 0 {
		limit = a.cfg.Fetch.DefaultLimit
	}
	return inbox.Pagination{Offset: offset, Limit: limit}
}
