package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentinbox/inbox"
	"github.com/BaSui01/agentinbox/interrupt"
	"github.com/BaSui01/agentinbox/internal/server"
	"github.com/BaSui01/agentinbox/submission"
	"github.com/BaSui01/agentinbox/types"
)

// =============================================================================
// 📋 list
// =============================================================================

type listFlags struct {
	filter string
	offset int
	limit  int
}

func (f *listFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.filter, "filter", string(inbox.FilterInterrupted), "Thread filter")
	fs.IntVar(&f.offset, "offset", 0, "Page offset")
	fs.IntVar(&f.limit, "limit", 0, "Page size (defaults to fetch.default_limit)")
}

func runList(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("list", stderr)
	var lf listFlags
	lf.register(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	filter, err := inbox.ParseFilter(lf.filter)
	if err != nil {
		return err
	}

	a, err := openApp(common, stdout, stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	page := a.page(lf.offset, lf.limit)
	if err := a.coordinator.FetchList(ctx, filter, page); err != nil {
		return err
	}
	renderList(stdout, a.list.Snapshot(), a.list.HasMore(), page)
	return nil
}

// =============================================================================
// 🔍 show
// =============================================================================

func runShow(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("show", stderr)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	threadID, err := threadArg(fs)
	if err != nil {
		return err
	}

	a, err := openApp(common, stdout, stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	td, err := a.coordinator.FetchOne(ctx, threadID)
	if err != nil {
		return err
	}
	in, ok := td.(*inbox.Interrupted)
	if !ok {
		renderGeneric(stdout, td)
		return nil
	}
	sess := a.submitter.Open(in, inbox.FilterInterrupted, a.page(0, 0))
	renderDetail(stdout, in, sess.Draft())
	return nil
}

// =============================================================================
// ✅ submit / ignore / resolve
// =============================================================================

// editFlag 收集可重复的 --edit key=value
type editFlag struct {
	keys   []string
	values []string
}

func (e *editFlag) String() string {
	pairs := make([]string, len(e.keys))
	for i := range e.keys {
		pairs[i] = e.keys[i] + "=" + e.values[i]
	}
	return strings.Join(pairs, ",")
}

func (e *editFlag) Set(v string) error {
	k, val, ok := strings.Cut(v, "=")
	if !ok || k == "" {
		return fmt.Errorf("expected key=value, got %q", v)
	}
	e.keys = append(e.keys, k)
	e.values = append(e.values, val)
	return nil
}

func runSubmit(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("submit", stderr)
	var edits editFlag
	fs.Var(&edits, "edit", "Edit an action argument, key=value (repeatable)")
	respond := fs.String("respond", "", "Free-text response")
	accept := fs.Bool("accept", false, "Accept the action unchanged")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	threadID, err := threadArg(fs)
	if err != nil {
		return err
	}

	a, sess, err := openSession(ctx, common, threadID, stdout, stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	draft := sess.Draft()
	if len(edits.keys) > 0 {
		if err := draft.Edit(edits.keys, edits.values).Err(); err != nil {
			return err
		}
	}
	if *respond != "" {
		if err := draft.Respond(*respond).Err(); err != nil {
			return err
		}
	}
	if *accept {
		if err := draft.Select(interrupt.ResponseAccept).Err(); err != nil {
			return err
		}
	}

	fmt.Fprintf(stdout, "Submitting %s response to %s\n", draft.SubmitType(), threadID)
	unsubscribe := a.submitter.Subscribe(traceNodes(threadID, stdout))
	err = sess.Submit(ctx)
	unsubscribe()
	if err != nil {
		return err
	}

	if sess.DetailClosed() {
		fmt.Fprintf(stdout, "Run finished; thread %s is no longer interrupted\n", threadID)
		return nil
	}
	fmt.Fprintln(stdout, "Run interrupted again:")
	renderDetail(stdout, sess.Thread(), sess.Draft())
	return nil
}

func runIgnore(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("ignore", stderr)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	threadID, err := threadArg(fs)
	if err != nil {
		return err
	}

	a, sess, err := openSession(ctx, common, threadID, stdout, stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := sess.Ignore(ctx); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Ignored %s\n", threadID)
	return nil
}

func runResolve(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("resolve", stderr)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	threadID, err := threadArg(fs)
	if err != nil {
		return err
	}

	a, sess, err := openSession(ctx, common, threadID, stdout, stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := sess.Resolve(ctx); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Resolved %s\n", threadID)
	return nil
}

// openSession 拉取线程并打开详情会话；线程必须处于中断状态
func openSession(ctx context.Context, common *commonFlags, threadID string, stdout, stderr io.Writer) (*app, *submission.Session, error) {
	a, err := openApp(common, stdout, stderr)
	if err != nil {
		return nil, nil, err
	}
	td, err := a.coordinator.FetchOne(ctx, threadID)
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	in, ok := td.(*inbox.Interrupted)
	if !ok {
		a.Close()
		return nil, nil, types.NewValidationError("thread %s is %s, not interrupted", threadID, inbox.Kind(td))
	}
	return a, a.submitter.Open(in, inbox.FilterInterrupted, a.page(0, 0)), nil
}

// traceNodes 输出提交期间运行进入的每个节点
func traceNodes(threadID string, w io.Writer) submission.NodeHandler {
	return func(c submission.NodeChange) {
		if c.ThreadID == threadID {
			fmt.Fprintf(w, "  -> %s\n", c.Node)
		}
	}
}

// =============================================================================
// 👀 watch
// =============================================================================

func runWatch(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("watch", stderr)
	var lf listFlags
	lf.register(fs)
	interval := fs.Duration("interval", 30*time.Second, "Refresh interval")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *interval <= 0 {
		return types.NewValidationError("interval must be positive")
	}
	filter, err := inbox.ParseFilter(lf.filter)
	if err != nil {
		return err
	}

	a, err := openApp(common, stdout, stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Metrics.Enabled {
		srvCfg := server.DefaultConfig()
		srvCfg.Addr = a.cfg.Metrics.Addr
		srv := server.NewManager(server.MetricsHandler(a.registry), srvCfg, a.logger)
		if err := srv.Start(); err != nil {
			return err
		}
		defer srv.Shutdown(context.Background())
		fmt.Fprintf(stdout, "Serving metrics on http://%s/metrics\n", srv.Addr())
	}

	page := a.page(lf.offset, lf.limit)
	refresh := func() {
		if err := a.coordinator.FetchList(ctx, filter, page); err != nil {
			a.logger.Debug("refresh failed", zap.Error(err))
			return
		}
		renderSummary(stdout, time.Now(), filter, a.list.Snapshot())
	}

	refresh()
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			refresh()
		}
	}
}

func threadArg(fs *flag.FlagSet) (string, error) {
	if fs.NArg() != 1 {
		fmt.Fprintf(fs.Output(), "Usage: agentinbox %s [options] <thread-id>\n", fs.Name())
		return "", errUsage
	}
	return fs.Arg(0), nil
}
