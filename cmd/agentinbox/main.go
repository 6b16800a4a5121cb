// =============================================================================
// AgentInbox 主入口
// =============================================================================
// 人工审核收件箱命令行：列出被中断的 agent 线程、查看中断详情、
// 提交人工响应并跟踪恢复后的运行
//
// 使用方法:
//
//	agentinbox list --filter interrupted      # 列出等待人工处理的线程
//	agentinbox show <thread-id>               # 查看中断详情与草稿响应
//	agentinbox submit <thread-id> --edit k=v  # 编辑参数后提交
//	agentinbox submit <thread-id> --respond "..."
//	agentinbox ignore <thread-id>             # 忽略中断
//	agentinbox resolve <thread-id>            # 结束无法解析的线程
//	agentinbox watch --interval 30s           # 周期刷新并暴露 /metrics
//	agentinbox version                        # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/agentinbox/config"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// errUsage 表示参数错误，已输出用法
var errUsage = errors.New("usage error")

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run 分发子命令并返回进程退出码
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}

	var err error
	switch args[0] {
	case "list":
		err = runList(ctx, args[1:], stdout, stderr)
	case "show":
		err = runShow(ctx, args[1:], stdout, stderr)
	case "submit":
		err = runSubmit(ctx, args[1:], stdout, stderr)
	case "ignore":
		err = runIgnore(ctx, args[1:], stdout, stderr)
	case "resolve":
		err = runResolve(ctx, args[1:], stdout, stderr)
	case "watch":
		err = runWatch(ctx, args[1:], stdout, stderr)
	case "version":
		printVersion(stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		return 2
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "AgentInbox %s\n", Version)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `AgentInbox - human review inbox for interrupted agent threads

Usage:
  agentinbox <command> [options]

Commands:
  list      List threads for a filter
  show      Show a thread's interrupts and draft responses
  submit    Resume an interrupted thread and stream the run
  ignore    Resume an interrupted thread with an ignore response
  resolve   Mark a thread with unparsable interrupts as finished
  watch     Refresh the list periodically and serve /metrics
  version   Show version information
  help      Show this help message

Common options:
  --config <path>   Path to configuration file (YAML)

Options for 'list' and 'watch':
  --filter <name>   all, interrupted, idle, busy, error, human_response_needed
  --offset <n>      Page offset
  --limit <n>       Page size (1-100)
  --interval <d>    Refresh interval (watch only)

Options for 'submit':
  --edit key=value  Edit an action argument (repeatable)
  --respond <text>  Reply with free text
  --accept          Submit the action unchanged

Examples:
  agentinbox list --filter interrupted --limit 20
  agentinbox show 3f2b6c1e-0000-4000-8000-000000000001
  agentinbox submit 3f2b6c1e-0000-4000-8000-000000000001 --edit path=/tmp/out
  AGENTINBOX_INBOX_ASSISTANT_ID=agent agentinbox watch --interval 1m`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Format == "console",
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}

	logger, err := zapConfig.Build()
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}
	return logger
}
