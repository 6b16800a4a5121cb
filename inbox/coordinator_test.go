package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentinbox/internal/cache"
	"github.com/BaSui01/agentinbox/interrupt"
	"github.com/BaSui01/agentinbox/langgraph"
	"github.com/BaSui01/agentinbox/notify"
	"github.com/BaSui01/agentinbox/testutil"
	"github.com/BaSui01/agentinbox/testutil/fixtures"
	"github.com/BaSui01/agentinbox/testutil/mocks"
	"github.com/BaSui01/agentinbox/types"
)

func newTestCoordinator(svc Service, opts ...CoordinatorOption) (*Coordinator, *notify.Recorder) {
	rec := &notify.Recorder{}
	base := []CoordinatorOption{WithAssistantID("agent"), WithNotifier(rec), WithClassifyConcurrency(4)}
	return NewCoordinator(svc, NewThreadList(), append(base, opts...)...), rec
}

var firstPage = Pagination{Offset: 0, Limit: 10}

func TestCoordinator_ConcreteExample(t *testing.T) {
	svc := mocks.NewMockService().WithThreads(langgraph.Thread{
		ThreadID:   "t1",
		Status:     langgraph.ThreadInterrupted,
		Interrupts: json.RawMessage(`{"abc": [[0, {"value": ` + fixtures.ApproveInterrupt() + `}]]}`),
	})
	c, _ := newTestCoordinator(svc)

	require.NoError(t, c.FetchList(testutil.TestContext(t), FilterAll, firstPage))

	td, ok := c.List().Get("t1")
	require.True(t, ok)
	in, ok := td.(*Interrupted)
	require.True(t, ok)
	require.Len(t, in.Interrupts, 1)
	assert.Equal(t, "approve", in.Interrupts[0].ActionRequest.Action)
	assert.True(t, in.Interrupts[0].Config.AllowAccept)
	assert.True(t, in.Interrupts[0].Config.AllowIgnore)
	assert.False(t, in.InvalidSchema)
}

func TestCoordinator_SearchScoping(t *testing.T) {
	tests := []struct {
		filter     Filter
		wantStatus langgraph.ThreadStatus
	}{
		{FilterAll, ""},
		{FilterHumanResponseNeeded, ""},
		{FilterInterrupted, langgraph.ThreadInterrupted},
		{FilterBusy, langgraph.ThreadBusy},
	}
	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			svc := mocks.NewMockService()
			c, _ := newTestCoordinator(svc)

			require.NoError(t, c.FetchList(testutil.TestContext(t), tt.filter, Pagination{Offset: 20, Limit: 5}))

			call, ok := svc.LastCall(mocks.OpSearch)
			require.True(t, ok)
			req := call.Request.(langgraph.SearchRequest)
			assert.Equal(t, tt.wantStatus, req.Status)
			assert.Equal(t, 20, req.Offset)
			assert.Equal(t, 5, req.Limit)
			assert.Equal(t, map[string]any{"assistant_id": "agent"}, req.Metadata)
		})
	}
}

func TestCoordinator_Classification(t *testing.T) {
	svc := mocks.NewMockService().WithThreads(
		fixtures.InterruptedThread("int", 0, fixtures.InterruptsPayload(fixtures.ApproveInterrupt())),
		fixtures.InterruptedThread("bad", 1, json.RawMessage(`{"x": [{"value": 42}]}`)),
		fixtures.StatusThread("idle", 2, langgraph.ThreadIdle),
		fixtures.StatusThread("err", 3, langgraph.ThreadError),
	)
	c, _ := newTestCoordinator(svc)
	require.NoError(t, c.FetchList(testutil.TestContext(t), FilterAll, firstPage))

	assert.Equal(t, []string{"int", "bad", "idle", "err"}, ids(c.List().Snapshot()))

	td, _ := c.List().Get("bad")
	assert.True(t, td.(*Interrupted).InvalidSchema)
	assert.True(t, interrupt.IsSentinel(td.(*Interrupted).Interrupts[0]))

	td, _ = c.List().Get("idle")
	assert.Equal(t, StatusIdle, td.(*Generic).Status)
	td, _ = c.List().Get("err")
	assert.Equal(t, StatusError, td.(*Generic).Status)
}

func TestCoordinator_HumanResponseNeeded(t *testing.T) {
	svc := mocks.NewMockService().WithThreads(
		fixtures.InterruptedThread("int", 0, fixtures.InterruptsPayload(fixtures.ApproveInterrupt())),
		fixtures.StatusThread("busy", 1, langgraph.ThreadBusy),
	)
	c, _ := newTestCoordinator(svc)
	require.NoError(t, c.FetchList(testutil.TestContext(t), FilterHumanResponseNeeded, firstPage))

	td, _ := c.List().Get("busy")
	assert.Equal(t, StatusHumanResponseNeeded, td.(*Generic).Status)
	td, _ = c.List().Get("int")
	assert.IsType(t, &Interrupted{}, td)
}

func TestCoordinator_HasMore(t *testing.T) {
	svc := mocks.NewMockService()
	for i, id := range []string{"a", "b", "c"} {
		svc.WithThreads(fixtures.StatusThread(id, i, langgraph.ThreadIdle))
	}
	c, _ := newTestCoordinator(svc)

	require.NoError(t, c.FetchList(testutil.TestContext(t), FilterAll, Pagination{Limit: 3}))
	assert.True(t, c.List().HasMore())

	require.NoError(t, c.FetchList(testutil.TestContext(t), FilterAll, Pagination{Limit: 4}))
	assert.False(t, c.List().HasMore())
}

func TestCoordinator_InvalidPagination(t *testing.T) {
	svc := mocks.NewMockService()
	c, rec := newTestCoordinator(svc)

	for _, page := range []Pagination{{Limit: 0}, {Limit: 101}, {Offset: -1, Limit: 10}} {
		err := c.FetchList(testutil.TestContext(t), FilterAll, page)
		assert.True(t, types.IsErrorCode(err, types.ErrValidation), "page=%v", page)
	}
	assert.Equal(t, 0, svc.CallCount(mocks.OpSearch))
	assert.Len(t, rec.Notices(), 3)
	assert.False(t, c.List().Loading())
}

func TestCoordinator_MissingAssistant(t *testing.T) {
	svc := mocks.NewMockService()
	rec := &notify.Recorder{}
	c := NewCoordinator(svc, NewThreadList(), WithNotifier(rec))

	err := c.FetchList(testutil.TestContext(t), FilterAll, firstPage)
	assert.True(t, types.IsErrorCode(err, types.ErrValidation))
	assert.Equal(t, 0, svc.CallCount(mocks.OpSearch))
	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, notify.LevelError, last.Level)
}

func TestCoordinator_FailureLeavesListUntouched(t *testing.T) {
	svc := mocks.NewMockService().WithThreads(fixtures.StatusThread("a", 0, langgraph.ThreadIdle))
	c, rec := newTestCoordinator(svc)
	require.NoError(t, c.FetchList(testutil.TestContext(t), FilterAll, firstPage))
	before := c.List().Snapshot()

	svc.WithSearchFunc(func(context.Context, langgraph.SearchRequest) ([]langgraph.Thread, error) {
		return nil, errors.New("connection refused")
	})
	err := c.FetchList(testutil.TestContext(t), FilterAll, firstPage)

	assert.True(t, types.IsErrorCode(err, types.ErrNetworkFailure))
	assert.Equal(t, before, c.List().Snapshot())
	assert.False(t, c.List().Loading())
	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, "Failed to fetch threads", last.Title)
}

func TestCoordinator_LastWriterWins(t *testing.T) {
	svc := mocks.NewMockService().WithThreads(
		fixtures.StatusThread("idle-1", 0, langgraph.ThreadIdle),
		fixtures.StatusThread("busy-1", 1, langgraph.ThreadBusy),
	)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	svc.WithSearchFunc(func(_ context.Context, req langgraph.SearchRequest) ([]langgraph.Thread, error) {
		if req.Status == langgraph.ThreadIdle {
			// the slow fetch ignores cancellation and answers late
			once.Do(func() { close(started) })
			<-release
			return []langgraph.Thread{fixtures.StatusThread("idle-1", 0, langgraph.ThreadIdle)}, nil
		}
		return []langgraph.Thread{fixtures.StatusThread("busy-1", 1, langgraph.ThreadBusy)}, nil
	})
	c, rec := newTestCoordinator(svc)
	ctx := testutil.TestContext(t)

	slow := make(chan error, 1)
	go func() { slow <- c.FetchList(ctx, FilterIdle, firstPage) }()
	<-started

	require.NoError(t, c.FetchList(ctx, FilterBusy, firstPage))
	close(release)
	require.NoError(t, <-slow)

	assert.Equal(t, []string{"busy-1"}, ids(c.List().Snapshot()))
	assert.Empty(t, rec.Notices())
}

func TestCoordinator_LastWriterWins_EarlierRequestAnswersFirst(t *testing.T) {
	svc := mocks.NewMockService()

	idleStarted, busyStarted := make(chan struct{}), make(chan struct{})
	releaseIdle, releaseBusy := make(chan struct{}), make(chan struct{})
	svc.WithSearchFunc(func(_ context.Context, req langgraph.SearchRequest) ([]langgraph.Thread, error) {
		if req.Status == langgraph.ThreadIdle {
			close(idleStarted)
			<-releaseIdle
			return []langgraph.Thread{fixtures.StatusThread("idle-1", 0, langgraph.ThreadIdle)}, nil
		}
		close(busyStarted)
		<-releaseBusy
		return []langgraph.Thread{fixtures.StatusThread("busy-1", 1, langgraph.ThreadBusy)}, nil
	})
	c, rec := newTestCoordinator(svc)
	ctx := testutil.TestContext(t)

	older := make(chan error, 1)
	go func() { older <- c.FetchList(ctx, FilterIdle, firstPage) }()
	<-idleStarted

	newer := make(chan error, 1)
	go func() { newer <- c.FetchList(ctx, FilterBusy, firstPage) }()
	<-busyStarted

	// the older request answers while the newer one is still current
	close(releaseIdle)
	require.NoError(t, <-older)
	assert.Empty(t, c.List().Snapshot())
	assert.True(t, c.List().Loading())

	close(releaseBusy)
	require.NoError(t, <-newer)

	assert.Equal(t, []string{"busy-1"}, ids(c.List().Snapshot()))
	assert.False(t, c.List().Loading())
	assert.Empty(t, rec.Notices())
}

func TestCoordinator_LoadingClearedWhenNewerFetchIsInvalid(t *testing.T) {
	svc := mocks.NewMockService()
	started := make(chan struct{})
	svc.WithSearchFunc(func(ctx context.Context, _ langgraph.SearchRequest) ([]langgraph.Thread, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	c, rec := newTestCoordinator(svc)
	ctx := testutil.TestContext(t)

	slow := make(chan error, 1)
	go func() { slow <- c.FetchList(ctx, FilterAll, firstPage) }()
	<-started
	require.True(t, c.List().Loading())

	err := c.FetchList(ctx, FilterAll, Pagination{Offset: 0, Limit: 500})
	assert.True(t, types.IsErrorCode(err, types.ErrValidation))
	require.NoError(t, <-slow)

	assert.False(t, c.List().Loading())
	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, "Invalid pagination", last.Title)
}

func TestCoordinator_StaleFailureIsSilent(t *testing.T) {
	svc := mocks.NewMockService().WithThreads(fixtures.StatusThread("busy-1", 0, langgraph.ThreadBusy))
	started := make(chan struct{})
	svc.WithSearchFunc(func(ctx context.Context, req langgraph.SearchRequest) ([]langgraph.Thread, error) {
		if req.Status == langgraph.ThreadIdle {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return []langgraph.Thread{fixtures.StatusThread("busy-1", 0, langgraph.ThreadBusy)}, nil
	})
	c, rec := newTestCoordinator(svc)
	ctx := testutil.TestContext(t)

	slow := make(chan error, 1)
	go func() { slow <- c.FetchList(ctx, FilterIdle, firstPage) }()
	<-started

	require.NoError(t, c.FetchList(ctx, FilterBusy, firstPage))
	require.NoError(t, <-slow)
	assert.Empty(t, rec.Notices())
	assert.Equal(t, []string{"busy-1"}, ids(c.List().Snapshot()))
}

// --- secondary extraction path ---

func TestCoordinator_SecondaryPath(t *testing.T) {
	editable := fixtures.EditableInterrupt("send_email", map[string]any{"to": "ops@example.com"})
	tests := []struct {
		name        string
		state       *langgraph.ThreadState
		stateErr    error
		wantCount   int
		wantInvalid bool
	}{
		{"value present", fixtures.StateWithInterrupt(editable), nil, 1, false},
		{"value array", fixtures.StateWithInterrupt("[" + editable + "," + editable + "]"), nil, 2, false},
		{"no tasks", &langgraph.ThreadState{}, nil, 0, false},
		{"null value", fixtures.StateWithInterrupt("null"), nil, 0, false},
		{"malformed value", fixtures.StateWithInterrupt(`{"foo": 1}`), nil, 0, true},
		{"state fetch fails", nil, errors.New("boom"), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := mocks.NewMockService().
				WithThreads(fixtures.InterruptedThread("t1", 0, nil)).
				WithGetStateFunc(func(context.Context, string) (*langgraph.ThreadState, error) {
					return tt.state, tt.stateErr
				})
			c, _ := newTestCoordinator(svc)
			require.NoError(t, c.FetchList(testutil.TestContext(t), FilterInterrupted, firstPage))

			td, ok := c.List().Get("t1")
			require.True(t, ok)
			in := td.(*Interrupted)
			assert.Len(t, in.Interrupts, tt.wantCount)
			assert.Equal(t, tt.wantInvalid, in.InvalidSchema)
			assert.Equal(t, 1, svc.CallCount(mocks.OpGetState))
		})
	}
}

func TestCoordinator_SecondaryPathUsesStateCache(t *testing.T) {
	mr := miniredis.RunT(t)
	manager, err := cache.NewManager(cache.Config{Addr: mr.Addr(), DefaultTTL: time.Minute}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	th := fixtures.InterruptedThread("t1", 0, json.RawMessage(`{}`))
	svc := mocks.NewMockService().
		WithThreads(th).
		WithThreadState("t1", fixtures.StateWithInterrupt(fixtures.ApproveInterrupt()))
	c, _ := newTestCoordinator(svc, WithStateCache(cache.NewStateCache(manager, 0, nil)))

	for i := 0; i < 2; i++ {
		require.NoError(t, c.FetchList(testutil.TestContext(t), FilterAll, firstPage))
	}
	assert.Equal(t, 1, svc.CallCount(mocks.OpGetState))

	td, _ := c.List().Get("t1")
	require.Len(t, td.(*Interrupted).Interrupts, 1)

	// a newer updated_at bypasses the cached entry
	th.UpdatedAt = th.UpdatedAt.Add(time.Second)
	svc.WithThreads(th)
	require.NoError(t, c.FetchList(testutil.TestContext(t), FilterAll, firstPage))
	assert.Equal(t, 2, svc.CallCount(mocks.OpGetState))
}

func TestCoordinator_FetchOne(t *testing.T) {
	svc := mocks.NewMockService().WithThreads(
		fixtures.InterruptedThread("t1", 0, fixtures.InterruptsPayload(fixtures.ApproveInterrupt())),
		fixtures.StatusThread("t2", 0, langgraph.ThreadIdle),
	)
	c, _ := newTestCoordinator(svc)
	ctx := testutil.TestContext(t)

	td, err := c.FetchOne(ctx, "t1")
	require.NoError(t, err)
	assert.IsType(t, &Interrupted{}, td)

	td, err = c.FetchOne(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, td.(*Generic).Status)

	_, err = c.FetchOne(ctx, "missing")
	assert.True(t, types.IsErrorCode(err, types.ErrNetworkFailure))
}
