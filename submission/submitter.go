package submission

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/agentinbox/compose"
	"github.com/BaSui01/agentinbox/inbox"
	"github.com/BaSui01/agentinbox/internal/metrics"
	"github.com/BaSui01/agentinbox/langgraph"
	"github.com/BaSui01/agentinbox/notify"
	"github.com/BaSui01/agentinbox/types"
)

const instrumentationName = "github.com/BaSui01/agentinbox/submission"

// Service is the write side of the remote execution service.
type Service interface {
	CreateRun(ctx context.Context, threadID string, req langgraph.RunRequest) (*langgraph.Run, error)
	StreamRun(ctx context.Context, threadID string, req langgraph.RunRequest) (<-chan langgraph.StreamEvent, error)
	UpdateThreadState(ctx context.Context, threadID string, req langgraph.UpdateStateRequest) error
}

// Refetcher reconciles local state after a submission. *inbox.Coordinator
// implements it.
type Refetcher interface {
	FetchList(ctx context.Context, filter inbox.Filter, page inbox.Pagination) error
	FetchOne(ctx context.Context, threadID string) (inbox.ThreadData, error)
}

// Option configures a Submitter.
type Option func(*Submitter)

func WithAssistantID(id string) Option {
	return func(s *Submitter) { s.assistantID = id }
}

func WithNotifier(n notify.Notifier) Option {
	return func(s *Submitter) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Submitter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Collector) Option {
	return func(s *Submitter) { s.metrics = m }
}

// NodeChange is published each time a streamed run enters a node, including
// ErrorNode after the first error event.
type NodeChange struct {
	ThreadID string
	Node     string
}

// NodeHandler receives node changes synchronously, in stream order.
type NodeHandler func(NodeChange)

// WithNodeHandler subscribes h for the lifetime of the submitter.
func WithNodeHandler(h NodeHandler) Option {
	return func(s *Submitter) { s.Subscribe(h) }
}

// Submitter opens sessions and owns the per-thread in-flight guard shared
// by all of them.
type Submitter struct {
	svc         Service
	refetch     Refetcher
	list        *inbox.ThreadList
	assistantID string
	notifier    notify.Notifier
	logger      *zap.Logger
	metrics     *metrics.Collector
	tracer      trace.Tracer

	mu       sync.Mutex
	inflight map[string]struct{}

	hmu      sync.RWMutex
	handlers map[uint64]NodeHandler
	nextSub  uint64
}

// NewSubmitter creates a submitter reconciling into list.
func NewSubmitter(svc Service, refetch Refetcher, list *inbox.ThreadList, opts ...Option) *Submitter {
	s := &Submitter{
		svc:      svc,
		refetch:  refetch,
		list:     list,
		notifier: notify.Nop,
		logger:   zap.NewNop(),
		tracer:   otel.Tracer(instrumentationName),
		inflight: make(map[string]struct{}),
		handlers: make(map[uint64]NodeHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "submission"))
	return s
}

// Open starts a detail session on an interrupted thread with a fresh draft.
func (s *Submitter) Open(data *inbox.Interrupted, filter inbox.Filter, page inbox.Pagination) *Session {
	baseline := compose.NewBaseline(s.logger)
	return &Session{
		sub:    s,
		data:   data,
		filter: filter,
		page:   page,
		draft:  compose.NewDraft(data.Interrupts, baseline),
		state:  StateIdle,
	}
}

// Loading reports whether a submission for threadID is in flight.
func (s *Submitter) Loading(threadID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inflight[threadID]
	return ok
}

func (s *Submitter) acquire(threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[threadID]; busy {
		return types.Errorf(types.ErrSubmissionInFlight, "a submission for thread %s is already in flight", threadID)
	}
	s.inflight[threadID] = struct{}{}
	return nil
}

func (s *Submitter) release(threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, threadID)
}

// Subscribe registers h for node changes of every session opened from s.
// The returned func removes it.
func (s *Submitter) Subscribe(h NodeHandler) (unsubscribe func()) {
	if h == nil {
		return func() {}
	}
	s.hmu.Lock()
	id := s.nextSub
	s.nextSub++
	s.handlers[id] = h
	s.hmu.Unlock()

	return func() {
		s.hmu.Lock()
		delete(s.handlers, id)
		s.hmu.Unlock()
	}
}

func (s *Submitter) publishNode(change NodeChange) {
	s.hmu.RLock()
	handlers := make([]NodeHandler, 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}
	s.hmu.RUnlock()

	for _, h := range handlers {
		h(change)
	}
}

// notifyFailure reports a failed remote call. Invalid assistant ids get an
// actionable message.
func (s *Submitter) notifyFailure(title string, err error) {
	if types.IsErrorCode(err, types.ErrInvalidAssistant) {
		s.notifier.Notify(notify.Error(
			"Invalid assistant ID",
			"The deployment does not recognize the configured assistant ID. Check the assistant ID in the inbox settings and try again.",
		))
		return
	}
	s.notifier.Notify(notify.Error(title, err.Error()))
}
