package submission

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/agentinbox/compose"
	"github.com/BaSui01/agentinbox/inbox"
	"github.com/BaSui01/agentinbox/interrupt"
	"github.com/BaSui01/agentinbox/langgraph"
	"github.com/BaSui01/agentinbox/types"
)

// Session is the detail view of one interrupted thread: its draft responses
// and the state of the submission protocol.
type Session struct {
	sub    *Submitter
	filter inbox.Filter
	page   inbox.Pagination

	mu           sync.Mutex
	data         *inbox.Interrupted
	draft        *compose.Draft
	state        State
	currentNode  string
	streaming    bool
	detailClosed bool
}

// ThreadID returns the id of the thread under review.
func (s *Session) ThreadID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Raw.ThreadID
}

// Thread returns the thread data the session currently shows.
func (s *Session) Thread() *inbox.Interrupted {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// Draft returns the current draft. It is replaced when the thread is
// interrupted again after a submission.
func (s *Session) Draft() *compose.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentNode is the graph node the streamed run is in, ErrorNode after a
// stream error, or "" when no stream is active.
func (s *Session) CurrentNode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentNode
}

func (s *Session) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

// Loading reports whether any submission for this thread is in flight.
func (s *Session) Loading() bool {
	return s.sub.Loading(s.ThreadID())
}

// DetailClosed reports whether the thread left the detail view.
func (s *Session) DetailClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detailClosed
}

// =============================================================================
// submit
// =============================================================================

// Submit resumes the thread with the draft response of the current submit
// type and streams the run until it ends.
func (s *Session) Submit(ctx context.Context) (err error) {
	threadID := s.ThreadID()
	if err := s.sub.acquire(threadID); err != nil {
		return err
	}
	defer s.sub.release(threadID)

	start := time.Now()
	ctx, span := s.startSpan(ctx, "submission.submit", threadID)
	defer func() { s.finish(span, "submit", start, err) }()

	draft := s.Draft()
	submitType := draft.SubmitType()
	switch submitType {
	case interrupt.ResponseAccept, interrupt.ResponseEdit, interrupt.ResponseResponse:
	default:
		s.sub.notifier.Notify(notifyNotSubmittable(submitType))
		return types.NewValidationError("cannot submit response type %q", submitType)
	}
	resp, ok := draft.Find(submitType)
	if !ok {
		s.sub.notifier.Notify(notifyNoResponse(submitType))
		return types.Errorf(types.ErrNoResponseFound, "no %s response in draft", submitType)
	}

	if err := s.transition(StateSubmitting); err != nil {
		return err
	}
	if err := s.transition(StateStreaming); err != nil {
		return err
	}
	s.setStreaming(true)

	events, err := s.sub.svc.StreamRun(ctx, threadID, langgraph.RunRequest{
		AssistantID: s.sub.assistantID,
		Command:     &langgraph.Command{Resume: []interrupt.HumanResponse{resp.Response()}},
		StreamMode:  []string{"events"},
	})
	if err != nil {
		s.endStream(StateStreamErrored, "")
		s.sub.logger.Warn("open run stream failed", zap.String("thread_id", threadID), zap.Error(err))
		s.sub.notifyFailure("Failed to submit response", err)
		return err
	}

	errPayload, failed := s.consume(events)
	if ctxErr := ctx.Err(); ctxErr != nil {
		// 超时或取消：按网络失败处理，保留草稿与 baseline 以便重试
		s.endStream(StateStreamErrored, ErrorNode)
		s.sub.logger.Warn("run stream interrupted", zap.String("thread_id", threadID), zap.Error(ctxErr))
		err := types.NewNetworkError("run stream", ctxErr)
		s.sub.notifyFailure("Failed to submit response", err)
		return err
	}
	if failed {
		s.endStream(StateStreamErrored, ErrorNode)
		s.sub.logger.Warn("run stream errored", zap.String("thread_id", threadID), zap.String("payload", errPayload))
		s.sub.notifier.Notify(notifyStreamError(errPayload))
		return types.NewError(types.ErrStreamError, "run stream errored: "+errPayload)
	}

	s.endStream(StateStreamFinished, "")
	draft.Baseline().Clear()
	s.reconcile(ctx, threadID)
	return nil
}

// consume reads every event in order. After the first error event the
// current node stays ErrorNode but the stream is still drained.
func (s *Session) consume(events <-chan langgraph.StreamEvent) (errPayload string, failed bool) {
	for ev := range events {
		s.sub.metrics.RecordStreamEvent(ev.Event)
		if ev.IsError() {
			if !failed {
				failed = true
				errPayload = eventPayload(ev)
			}
			s.enterNode(ErrorNode)
			continue
		}
		if failed || ev.Kind() != langgraph.EventChainStart {
			continue
		}
		if node := ev.Node(); node != "" {
			s.enterNode(node)
		}
	}
	return errPayload, failed
}

// reconcile refreshes the thread after a finished stream: still interrupted
// means replace in place and rebuild the draft, anything else refetches
// the list and closes the detail view.
func (s *Session) reconcile(ctx context.Context, threadID string) {
	td, err := s.sub.refetch.FetchOne(ctx, threadID)
	if err != nil {
		s.sub.logger.Warn("refresh thread after submit failed", zap.String("thread_id", threadID), zap.Error(err))
		s.sub.notifier.Notify(notifyRefreshFailed(err))
		return
	}

	if in, ok := td.(*inbox.Interrupted); ok {
		s.sub.list.ReplaceOrRemove(threadID, in)
		s.mu.Lock()
		baseline := s.draft.Baseline()
		s.data = in
		s.draft = compose.NewDraft(in.Interrupts, baseline)
		s.mu.Unlock()
		return
	}
	s.closeDetail(ctx)
}

// =============================================================================
// ignore / resolve
// =============================================================================

// Ignore resumes the thread with an ignore response without streaming.
func (s *Session) Ignore(ctx context.Context) (err error) {
	threadID := s.ThreadID()
	if err := s.sub.acquire(threadID); err != nil {
		return err
	}
	defer s.sub.release(threadID)

	start := time.Now()
	ctx, span := s.startSpan(ctx, "submission.ignore", threadID)
	defer func() { s.finish(span, "ignore", start, err) }()

	draft := s.Draft()
	resp, ok := draft.Find(interrupt.ResponseIgnore)
	if !ok {
		resp = compose.ResponseWithEdits{Type: interrupt.ResponseIgnore}
	}

	if err := s.transition(StateSubmitting); err != nil {
		return err
	}
	_, err = s.sub.svc.CreateRun(ctx, threadID, langgraph.RunRequest{
		AssistantID: s.sub.assistantID,
		Command:     &langgraph.Command{Resume: []interrupt.HumanResponse{resp.Response()}},
	})
	_ = s.transition(StateIdle)
	if err != nil {
		s.sub.logger.Warn("ignore failed", zap.String("thread_id", threadID), zap.Error(err))
		s.sub.notifyFailure("Failed to ignore thread", err)
		return err
	}

	draft.Baseline().Clear()
	s.closeDetail(ctx)
	return nil
}

// Resolve marks a thread whose interrupts could not be parsed as finished
// by moving its state to the end node.
func (s *Session) Resolve(ctx context.Context) (err error) {
	threadID := s.ThreadID()
	if err := s.sub.acquire(threadID); err != nil {
		return err
	}
	defer s.sub.release(threadID)

	start := time.Now()
	ctx, span := s.startSpan(ctx, "submission.resolve", threadID)
	defer func() { s.finish(span, "resolve", start, err) }()

	if !s.Thread().InvalidSchema {
		return types.NewValidationError("thread %s has valid interrupts; respond to them instead", threadID)
	}

	if err := s.transition(StateSubmitting); err != nil {
		return err
	}
	err = s.sub.svc.UpdateThreadState(ctx, threadID, langgraph.UpdateStateRequest{
		Values: nil,
		AsNode: langgraph.EndNode,
	})
	_ = s.transition(StateIdle)
	if err != nil {
		s.sub.logger.Warn("resolve failed", zap.String("thread_id", threadID), zap.Error(err))
		s.sub.notifyFailure("Failed to resolve thread", err)
		return err
	}

	s.Draft().Baseline().Clear()
	s.closeDetail(ctx)
	return nil
}

// =============================================================================
// 🔧 helpers
// =============================================================================

func (s *Session) closeDetail(ctx context.Context) {
	if err := s.sub.refetch.FetchList(ctx, s.filter, s.page); err != nil {
		s.sub.logger.Warn("refetch thread list failed", zap.Error(err))
	}
	s.mu.Lock()
	s.detailClosed = true
	s.mu.Unlock()
}

func (s *Session) transition(to State) error {
	s.mu.Lock()
	from := s.state
	if !CanTransition(from, to) {
		s.mu.Unlock()
		return types.NewError(types.ErrInvalidTransition, "submission state").
			WithCause(ErrInvalidTransition{From: from, To: to})
	}
	s.state = to
	s.mu.Unlock()

	s.sub.metrics.RecordStateTransition(string(from), string(to))
	s.sub.logger.Debug("submission state changed",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return nil
}

func (s *Session) endStream(to State, node string) {
	_ = s.transition(to)
	s.mu.Lock()
	s.streaming = false
	s.currentNode = node
	s.mu.Unlock()
}

func (s *Session) setStreaming(v bool) {
	s.mu.Lock()
	s.streaming = v
	s.mu.Unlock()
}

// enterNode records node and publishes it when it differs from the current one.
func (s *Session) enterNode(node string) {
	s.mu.Lock()
	changed := s.currentNode != node
	s.currentNode = node
	threadID := s.data.Raw.ThreadID
	s.mu.Unlock()

	if changed {
		s.sub.publishNode(NodeChange{ThreadID: threadID, Node: node})
	}
}

func (s *Session) startSpan(ctx context.Context, name, threadID string) (context.Context, trace.Span) {
	return s.sub.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("inbox.thread_id", threadID),
	))
}

func (s *Session) finish(span trace.Span, kind string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = string(types.GetErrorCode(err))
		if outcome == "" {
			outcome = "error"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.sub.metrics.RecordSubmission(kind, outcome, time.Since(start))
	span.End()
}

func eventPayload(ev langgraph.StreamEvent) string {
	if ev.Err != nil {
		return ev.Err.Error()
	}
	if len(ev.Data) == 0 {
		return fmt.Sprintf("%s event without data", ev.Event)
	}
	return string(ev.Data)
}
