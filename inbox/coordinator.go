package inbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/agentinbox/internal/metrics"
	"github.com/BaSui01/agentinbox/interrupt"
	"github.com/BaSui01/agentinbox/langgraph"
	"github.com/BaSui01/agentinbox/notify"
	"github.com/BaSui01/agentinbox/types"
)

const instrumentationName = "github.com/BaSui01/agentinbox/inbox"

// Service is the part of the remote execution service the coordinator reads.
type Service interface {
	SearchThreads(ctx context.Context, req langgraph.SearchRequest) ([]langgraph.Thread, error)
	GetThread(ctx context.Context, threadID string) (*langgraph.Thread, error)
	GetThreadState(ctx context.Context, threadID string) (*langgraph.ThreadState, error)
}

// StateCache caches thread state by (thread id, updated_at). Any error is
// treated as a miss.
type StateCache interface {
	GetState(ctx context.Context, threadID string, version time.Time) (*langgraph.ThreadState, error)
	SetState(ctx context.Context, threadID string, version time.Time, state *langgraph.ThreadState) error
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithAssistantID scopes searches to one assistant (graph) id.
func WithAssistantID(id string) CoordinatorOption {
	return func(c *Coordinator) { c.assistantID = id }
}

func WithNotifier(n notify.Notifier) CoordinatorOption {
	return func(c *Coordinator) {
		if n != nil {
			c.notifier = n
		}
	}
}

func WithLogger(logger *zap.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Collector) CoordinatorOption {
	return func(c *Coordinator) { c.metrics = m }
}

// WithStateCache serves the secondary extraction path from cache.
func WithStateCache(sc StateCache) CoordinatorOption {
	return func(c *Coordinator) { c.cache = sc }
}

// WithClassifyConcurrency bounds parallel per-thread classification.
func WithClassifyConcurrency(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// Coordinator fetches, classifies and commits the thread list.
type Coordinator struct {
	svc         Service
	list        *ThreadList
	epoch       *FetchEpoch
	assistantID string
	notifier    notify.Notifier
	logger      *zap.Logger
	metrics     *metrics.Collector
	cache       StateCache
	concurrency int
	tracer      trace.Tracer
}

// NewCoordinator creates a coordinator writing into list.
func NewCoordinator(svc Service, list *ThreadList, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		svc:         svc,
		list:        list,
		epoch:       NewFetchEpoch(),
		notifier:    notify.Nop,
		logger:      zap.NewNop(),
		concurrency: 8,
		tracer:      otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("component", "fetch_coordinator"))
	return c
}

// List returns the list the coordinator commits into.
func (c *Coordinator) List() *ThreadList { return c.list }

// FetchList fetches one page of threads for filter and commits it if no newer
// fetch started meanwhile. A superseded fetch returns nil without touching
// the list.
func (c *Coordinator) FetchList(ctx context.Context, filter Filter, page Pagination) (err error) {
	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	token := c.epoch.Begin(cancel)
	defer c.epoch.Done(token)
	// 当前 fetch 退出时（任意路径）清除 loading；被取代的 fetch 不碰该标志
	defer c.epoch.CommitIf(token, func() { c.list.SetLoading(false) })

	ctx, span := c.tracer.Start(ctx, "inbox.fetch_list", trace.WithAttributes(
		attribute.String("inbox.filter", string(filter)),
		attribute.Int("inbox.offset", page.Offset),
		attribute.Int("inbox.limit", page.Limit),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := page.Validate(); err != nil {
		c.notifier.Notify(notify.Error("Invalid pagination", err.Error()))
		c.metrics.RecordFetch(string(filter), "invalid", time.Since(start))
		return err
	}
	if c.assistantID == "" {
		err := types.NewValidationError("assistant id is not configured")
		c.notifier.Notify(notify.Error("No assistant configured", "Set an assistant id for this inbox before fetching threads."))
		c.metrics.RecordFetch(string(filter), "invalid", time.Since(start))
		return err
	}

	c.list.SetLoading(true)

	threads, err := c.svc.SearchThreads(ctx, langgraph.SearchRequest{
		Offset:   page.Offset,
		Limit:    page.Limit,
		Status:   filter.SearchStatus(),
		Metadata: map[string]any{"assistant_id": c.assistantID},
	})
	if err != nil {
		return c.fetchFailed(token, filter, start, err)
	}

	results := c.classifyAll(ctx, filter, threads)

	committed := c.epoch.CommitIf(token, func() {
		c.list.Commit(results, len(results) == page.Limit)
	})
	if !committed {
		c.metrics.RecordFetch(string(filter), "stale", time.Since(start))
		c.logger.Debug("discarding stale fetch",
			zap.String("filter", string(filter)),
			zap.Stringer("page", page),
		)
		span.SetAttributes(attribute.Bool("inbox.stale", true))
		return nil
	}

	c.metrics.RecordFetch(string(filter), "committed", time.Since(start))
	c.logger.Debug("thread list committed",
		zap.String("filter", string(filter)),
		zap.Int("count", len(results)),
		zap.Duration("latency", time.Since(start)),
	)
	return nil
}

func (c *Coordinator) fetchFailed(token string, filter Filter, start time.Time, err error) error {
	if !c.epoch.IsCurrent(token) {
		c.metrics.RecordFetch(string(filter), "stale", time.Since(start))
		c.logger.Debug("stale fetch failed", zap.Error(err))
		return nil
	}
	c.list.SetLoading(false)
	c.metrics.RecordFetch(string(filter), "failed", time.Since(start))
	c.logger.Warn("thread fetch failed", zap.String("filter", string(filter)), zap.Error(err))
	c.notifier.Notify(notify.Error("Failed to fetch threads", err.Error()))

	if types.IsErrorCode(err, types.ErrNetworkFailure) {
		return err
	}
	return types.NewError(types.ErrNetworkFailure, "fetch threads").WithCause(err)
}

// FetchOne fetches and classifies a single thread as under FilterAll.
func (c *Coordinator) FetchOne(ctx context.Context, threadID string) (ThreadData, error) {
	ctx, span := c.tracer.Start(ctx, "inbox.fetch_one", trace.WithAttributes(
		attribute.String("inbox.thread_id", threadID),
	))
	defer span.End()

	th, err := c.svc.GetThread(ctx, threadID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("fetch thread %s: %w", threadID, err)
	}
	return c.classify(ctx, FilterAll, *th), nil
}

func (c *Coordinator) classifyAll(ctx context.Context, filter Filter, threads []langgraph.Thread) []ThreadData {
	results := make([]ThreadData, len(threads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, th := range threads {
		g.Go(func() error {
			results[i] = c.classify(gctx, filter, th)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// classify never fails: anything unusable degrades to InvalidSchema.
func (c *Coordinator) classify(ctx context.Context, filter Filter, th langgraph.Thread) ThreadData {
	td := c.classifyThread(ctx, filter, th)
	kind := Kind(td)
	c.metrics.RecordClassification(kind)
	if kind == "invalid_schema" {
		c.logger.Debug("malformed interrupt payload", zap.String("thread_id", th.ThreadID))
	}
	return td
}

func (c *Coordinator) classifyThread(ctx context.Context, filter Filter, th langgraph.Thread) ThreadData {
	if filter == FilterHumanResponseNeeded && th.Status != langgraph.ThreadInterrupted {
		return &Generic{Raw: th, Status: StatusHumanResponseNeeded}
	}
	if th.Status != langgraph.ThreadInterrupted {
		return &Generic{Raw: th, Status: Status(th.Status)}
	}

	if his := interrupt.Normalize(th.Interrupts); len(his) > 0 {
		return &Interrupted{Raw: th, Interrupts: his, InvalidSchema: interrupt.InvalidSchema(his)}
	}
	return c.fromState(ctx, th)
}

// fromState is the secondary extraction path: the last interrupt of the
// last task in the thread's execution state.
func (c *Coordinator) fromState(ctx context.Context, th langgraph.Thread) ThreadData {
	state, err := c.threadState(ctx, th)
	if err != nil {
		c.logger.Debug("thread state unavailable",
			zap.String("thread_id", th.ThreadID),
			zap.Error(err),
		)
		return &Interrupted{Raw: th, InvalidSchema: true}
	}

	value := bytes.TrimSpace(state.LastInterruptValue())
	if len(value) == 0 || bytes.Equal(value, []byte("null")) {
		return &Interrupted{Raw: th}
	}
	his, ok := interrupt.FromTaskValue(value)
	if !ok {
		return &Interrupted{Raw: th, InvalidSchema: true}
	}
	return &Interrupted{Raw: th, Interrupts: his, InvalidSchema: interrupt.InvalidSchema(his)}
}

func (c *Coordinator) threadState(ctx context.Context, th langgraph.Thread) (*langgraph.ThreadState, error) {
	if c.cache != nil {
		if state, err := c.cache.GetState(ctx, th.ThreadID, th.UpdatedAt); err == nil && state != nil {
			c.metrics.RecordCacheHit("thread_state")
			return state, nil
		}
		c.metrics.RecordCacheMiss("thread_state")
	}

	state, err := c.svc.GetThreadState(ctx, th.ThreadID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, errors.New("empty thread state")
	}
	if c.cache != nil {
		if err := c.cache.SetState(ctx, th.ThreadID, th.UpdatedAt, state); err != nil {
			c.logger.Warn("cache thread state failed", zap.String("thread_id", th.ThreadID), zap.Error(err))
		}
	}
	return state, nil
}
