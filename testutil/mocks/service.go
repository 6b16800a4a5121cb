// =============================================================================
// 🛰️ MockService - 远程执行服务模拟实现
// =============================================================================
// 用于测试的 LangGraph 服务模拟，按线程 id 保存线程与状态，
// 记录每次调用，并支持按操作覆盖行为
//
// 使用方法:
//
//	svc := mocks.NewMockService().WithThreads(thread1, thread2)
//	svc.WithStreamEvents(fixtures.ChainStart("review"))
//	threads, _ := svc.SearchThreads(ctx, req)
// =============================================================================
package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/BaSui01/agentinbox/langgraph"
	"github.com/BaSui01/agentinbox/types"
)

// 操作名称
const (
	OpSearch      = "threads.search"
	OpGet         = "threads.get"
	OpGetState    = "threads.getState"
	OpUpdateState = "threads.updateState"
	OpCreateRun   = "runs.create"
	OpStreamRun   = "runs.stream"
)

// MockServiceCall 记录一次调用
type MockServiceCall struct {
	Op       string
	ThreadID string
	Request  any
}

// MockService 是远程执行服务的模拟实现
type MockService struct {
	mu sync.RWMutex

	threads map[string]langgraph.Thread
	states  map[string]*langgraph.ThreadState
	events  []langgraph.StreamEvent

	searchFn      func(ctx context.Context, req langgraph.SearchRequest) ([]langgraph.Thread, error)
	getFn         func(ctx context.Context, threadID string) (*langgraph.Thread, error)
	getStateFn    func(ctx context.Context, threadID string) (*langgraph.ThreadState, error)
	updateStateFn func(ctx context.Context, threadID string, req langgraph.UpdateStateRequest) error
	createRunFn   func(ctx context.Context, threadID string, req langgraph.RunRequest) (*langgraph.Run, error)
	streamFn      func(ctx context.Context, threadID string, req langgraph.RunRequest) (<-chan langgraph.StreamEvent, error)

	calls []MockServiceCall
}

// =============================================================================
// 🔧 构造函数和 Builder 方法
// =============================================================================

// NewMockService 创建新的 MockService
func NewMockService() *MockService {
	return &MockService{
		threads: make(map[string]langgraph.Thread),
		states:  make(map[string]*langgraph.ThreadState),
	}
}

// WithThreads 添加（或覆盖）线程
func (m *MockService) WithThreads(threads ...langgraph.Thread) *MockService {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, th := range threads {
		m.threads[th.ThreadID] = th
	}
	return m
}

// WithThreadState 设置线程的执行状态
func (m *MockService) WithThreadState(threadID string, state *langgraph.ThreadState) *MockService {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[threadID] = state
	return m
}

// WithStreamEvents 设置 runs.stream 默认返回的事件
func (m *MockService) WithStreamEvents(events ...langgraph.StreamEvent) *MockService {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = events
	return m
}

func (m *MockService) WithSearchFunc(fn func(ctx context.Context, req langgraph.SearchRequest) ([]langgraph.Thread, error)) *MockService {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchFn = fn
	return m
}

func (m *MockService) WithGetThreadFunc(fn func(ctx context.Context, threadID string) (*langgraph.Thread, error)) *MockService {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getFn = fn
	return m
}

func (m *MockService) WithGetStateFunc(fn func(ctx context.Context, threadID string) (*langgraph.ThreadState, error)) *MockService {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getStateFn = fn
	return m
}

func (m *MockService) WithUpdateStateFunc(fn func(ctx context.Context, threadID string, req langgraph.UpdateStateRequest) error) *MockService {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateStateFn = fn
	return m
}

func (m *MockService) WithCreateRunFunc(fn func(ctx context.Context, threadID string, req langgraph.RunRequest) (*langgraph.Run, error)) *MockService {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createRunFn = fn
	return m
}

func (m *MockService) WithStreamFunc(fn func(ctx context.Context, threadID string, req langgraph.RunRequest) (<-chan langgraph.StreamEvent, error)) *MockService {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamFn = fn
	return m
}

// =============================================================================
// 🎯 服务接口实现
// =============================================================================

// SearchThreads 按 status 过滤，按 thread_id 排序后分页
func (m *MockService) SearchThreads(ctx context.Context, req langgraph.SearchRequest) ([]langgraph.Thread, error) {
	m.record(OpSearch, "", req)
	if fn := m.searchFunc(); fn != nil {
		return fn(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return nil, types.NewNetworkError(OpSearch, err).WithRetryable(false)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []langgraph.Thread
	for _, th := range m.threads {
		if req.Status == "" || th.Status == req.Status {
			matched = append(matched, th)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ThreadID < matched[j].ThreadID })

	if req.Offset >= len(matched) {
		return []langgraph.Thread{}, nil
	}
	end := len(matched)
	if req.Limit > 0 && req.Offset+req.Limit < end {
		end = req.Offset + req.Limit
	}
	return matched[req.Offset:end], nil
}

// GetThread 返回已保存的线程
func (m *MockService) GetThread(ctx context.Context, threadID string) (*langgraph.Thread, error) {
	m.record(OpGet, threadID, nil)
	m.mu.RLock()
	fn := m.getFn
	th, ok := m.threads[threadID]
	m.mu.RUnlock()

	if fn != nil {
		return fn(ctx, threadID)
	}
	if !ok {
		return nil, types.Errorf(types.ErrNetworkFailure, "thread %s not found", threadID).WithHTTPStatus(404)
	}
	return &th, nil
}

// GetThreadState 返回已保存的线程状态
func (m *MockService) GetThreadState(ctx context.Context, threadID string) (*langgraph.ThreadState, error) {
	m.record(OpGetState, threadID, nil)
	m.mu.RLock()
	fn := m.getStateFn
	state, ok := m.states[threadID]
	m.mu.RUnlock()

	if fn != nil {
		return fn(ctx, threadID)
	}
	if !ok {
		return &langgraph.ThreadState{}, nil
	}
	return state, nil
}

// UpdateThreadState 默认成功
func (m *MockService) UpdateThreadState(ctx context.Context, threadID string, req langgraph.UpdateStateRequest) error {
	m.record(OpUpdateState, threadID, req)
	m.mu.RLock()
	fn := m.updateStateFn
	m.mu.RUnlock()
	if fn != nil {
		return fn(ctx, threadID, req)
	}
	return nil
}

// CreateRun 默认返回一个 pending run
func (m *MockService) CreateRun(ctx context.Context, threadID string, req langgraph.RunRequest) (*langgraph.Run, error) {
	m.record(OpCreateRun, threadID, req)
	m.mu.RLock()
	fn := m.createRunFn
	m.mu.RUnlock()
	if fn != nil {
		return fn(ctx, threadID, req)
	}
	return &langgraph.Run{
		RunID:       fmt.Sprintf("run-%d", m.CallCount(OpCreateRun)),
		ThreadID:    threadID,
		AssistantID: req.AssistantID,
		Status:      "pending",
	}, nil
}

// StreamRun 默认回放 WithStreamEvents 设置的事件
func (m *MockService) StreamRun(ctx context.Context, threadID string, req langgraph.RunRequest) (<-chan langgraph.StreamEvent, error) {
	m.record(OpStreamRun, threadID, req)
	m.mu.RLock()
	fn := m.streamFn
	events := append([]langgraph.StreamEvent(nil), m.events...)
	m.mu.RUnlock()
	if fn != nil {
		return fn(ctx, threadID, req)
	}

	ch := make(chan langgraph.StreamEvent, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

// =============================================================================
// 📊 调用记录
// =============================================================================

// CallCount 返回某个操作的调用次数
func (m *MockService) CallCount(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// LastCall 返回某个操作的最近一次调用
func (m *MockService) LastCall(op string) (MockServiceCall, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.calls) - 1; i >= 0; i-- {
		if m.calls[i].Op == op {
			return m.calls[i], true
		}
	}
	return MockServiceCall{}, false
}

func (m *MockService) record(op, threadID string, req any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockServiceCall{Op: op, ThreadID: threadID, Request: req})
}

func (m *MockService) searchFunc() func(ctx context.Context, req langgraph.SearchRequest) ([]langgraph.Thread, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.searchFn
}
