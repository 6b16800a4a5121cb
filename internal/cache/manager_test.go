package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentinbox/langgraph"
)

// =============================================================================
// 🧪 Manager 测试
// =============================================================================

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Manager) {
	t.Helper()
	mr := miniredis.RunT(t)

	manager, err := NewManager(Config{Addr: mr.Addr(), DefaultTTL: time.Minute}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	return mr, manager
}

type payload struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestManager_StoreAndLoad(t *testing.T) {
	mr, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Store(ctx, "k", payload{Name: "test", Value: 123}, time.Minute))

	var got payload
	require.NoError(t, manager.Load(ctx, "k", &got))
	assert.Equal(t, payload{Name: "test", Value: 123}, got)

	raw, err := mr.Get("k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"test","value":123}`, raw)
}

func TestManager_LoadMiss(t *testing.T) {
	_, manager := setupTestRedis(t)

	var got payload
	err := manager.Load(context.Background(), "missing", &got)
	assert.True(t, IsCacheMiss(err))
}

func TestManager_EncodingErrors(t *testing.T) {
	mr, manager := setupTestRedis(t)
	ctx := context.Background()

	assert.Error(t, manager.Store(ctx, "bad", make(chan int), 0))
	assert.False(t, mr.Exists("bad"))

	require.NoError(t, mr.Set("corrupt", "not json"))
	var got payload
	err := manager.Load(ctx, "corrupt", &got)
	require.Error(t, err)
	assert.False(t, IsCacheMiss(err))
}

func TestManager_Delete(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Store(ctx, "k", 1, 0))
	require.NoError(t, manager.Delete(ctx, "k"))
	require.NoError(t, manager.Delete(ctx))

	var v int
	assert.True(t, IsCacheMiss(manager.Load(ctx, "k", &v)))
}

func TestManager_TTL(t *testing.T) {
	mr, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Store(ctx, "short", 1, 100*time.Millisecond))
	require.NoError(t, manager.Store(ctx, "default", 1, 0))
	assert.Equal(t, time.Minute, mr.TTL("default"))

	mr.FastForward(200 * time.Millisecond)

	var v int
	assert.True(t, IsCacheMiss(manager.Load(ctx, "short", &v)))
	assert.NoError(t, manager.Load(ctx, "default", &v))
}

func TestManager_Closed(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, manager.Close())
	require.NoError(t, manager.Close())

	var v int
	assert.ErrorIs(t, manager.Load(ctx, "k", &v), ErrClosed)
	assert.ErrorIs(t, manager.Store(ctx, "k", 1, 0), ErrClosed)
	assert.ErrorIs(t, manager.Delete(ctx, "k"), ErrClosed)
	assert.ErrorIs(t, manager.Ping(ctx), ErrClosed)
}

func TestManager_HealthCheckStopsOnClose(t *testing.T) {
	mr := miniredis.RunT(t)
	manager, err := NewManager(Config{Addr: mr.Addr(), HealthCheckInterval: 10 * time.Millisecond}, nil)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, manager.Close())
	assert.ErrorIs(t, manager.Ping(context.Background()), ErrClosed)
}

func TestNewManager_Unreachable(t *testing.T) {
	manager, err := NewManager(Config{Addr: "localhost:1", DialTimeout: time.Second}, zap.NewNop())
	assert.Nil(t, manager)
	assert.Error(t, err)
}

func TestNewManager_TLSAgainstPlainServer(t *testing.T) {
	mr := miniredis.RunT(t)

	manager, err := NewManager(Config{Addr: mr.Addr(), TLS: true, DialTimeout: time.Second}, zap.NewNop())
	assert.Nil(t, manager)
	assert.Error(t, err)
}

func TestManager_ConcurrentOperations(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := fmt.Sprintf("concurrent-%d", id)
			assert.NoError(t, manager.Store(ctx, key, id, time.Minute))
			var got int
			assert.NoError(t, manager.Load(ctx, key, &got))
			assert.Equal(t, id, got)
		}(i)
	}
	wg.Wait()
}

// =============================================================================
// 🧪 StateCache 测试
// =============================================================================

func TestStateCache_KeyedByVersion(t *testing.T) {
	mr, manager := setupTestRedis(t)
	sc := NewStateCache(manager, 5*time.Minute, nil)
	ctx := context.Background()

	v1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	v2 := v1.Add(time.Second)
	state := &langgraph.ThreadState{Tasks: []langgraph.Task{{
		ID:         "task-1",
		Interrupts: []langgraph.TaskInterrupt{{Value: json.RawMessage(`{"x":1}`)}},
	}}}

	_, err := sc.GetState(ctx, "t1", v1)
	assert.True(t, IsCacheMiss(err))

	require.NoError(t, sc.SetState(ctx, "t1", v1, state))
	require.NoError(t, sc.SetState(ctx, "t1", v1, nil))

	got, err := sc.GetState(ctx, "t1", v1)
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1}`, string(got.LastInterruptValue()))

	_, err = sc.GetState(ctx, "t1", v2)
	assert.True(t, IsCacheMiss(err), "a newer updated_at must miss")

	assert.Equal(t, 5*time.Minute, mr.TTL(stateKey("t1", v1)))

	require.NoError(t, sc.Invalidate(ctx, "t1", v1))
	_, err = sc.GetState(ctx, "t1", v1)
	assert.True(t, IsCacheMiss(err))
}
