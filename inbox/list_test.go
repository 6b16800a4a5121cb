package inbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/agentinbox/langgraph"
)

func generic(id string, created time.Time) ThreadData {
	return &Generic{Raw: langgraph.Thread{ThreadID: id, CreatedAt: created}, Status: StatusIdle}
}

func ids(items []ThreadData) []string {
	out := make([]string, len(items))
	for i, td := range items {
		out[i] = ThreadID(td)
	}
	return out
}

func TestThreadList_CommitSortsNewestFirst(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewThreadList()
	l.SetLoading(true)

	l.Commit([]ThreadData{
		generic("old", base),
		generic("new", base.Add(2*time.Hour)),
		generic("mid", base.Add(time.Hour)),
	}, true)

	assert.Equal(t, []string{"new", "mid", "old"}, ids(l.Snapshot()))
	assert.True(t, l.HasMore())
	assert.False(t, l.Loading())
	assert.Equal(t, 3, l.Len())
}

func TestThreadList_ReplaceOrRemove(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewThreadList()
	l.Commit([]ThreadData{generic("a", base.Add(2*time.Hour)), generic("b", base.Add(time.Hour)), generic("c", base)}, false)
	snapshot := l.Snapshot()

	replacement := &Interrupted{Raw: langgraph.Thread{ThreadID: "b", CreatedAt: base.Add(time.Hour)}}
	require.True(t, l.ReplaceOrRemove("b", replacement))
	got, ok := l.Get("b")
	require.True(t, ok)
	assert.Same(t, replacement, got)
	assert.Equal(t, []string{"a", "b", "c"}, ids(l.Snapshot()))

	require.True(t, l.ReplaceOrRemove("a", nil))
	assert.Equal(t, []string{"b", "c"}, ids(l.Snapshot()))
	assert.False(t, l.ReplaceOrRemove("missing", nil))

	// earlier snapshots are unaffected
	assert.Equal(t, []string{"a", "b", "c"}, ids(snapshot))
}

func TestKind(t *testing.T) {
	assert.Equal(t, "interrupted_empty", Kind(&Interrupted{}))
	assert.Equal(t, "invalid_schema", Kind(&Interrupted{InvalidSchema: true}))
	assert.Equal(t, "human_response_needed", Kind(&Generic{Status: StatusHumanResponseNeeded}))
	assert.Equal(t, "unknown", Kind(nil))
	assert.Equal(t, "", ThreadID(nil))
}

func TestFetchEpoch(t *testing.T) {
	e := NewFetchEpoch()

	ctx1, cancel1 := context.WithCancel(context.Background())
	t1 := e.Begin(cancel1)
	assert.True(t, e.IsCurrent(t1))
	assert.Equal(t, 1, e.InFlight())

	ctx2, cancel2 := context.WithCancel(context.Background())
	t2 := e.Begin(cancel2)
	assert.NotEqual(t, t1, t2)
	assert.False(t, e.IsCurrent(t1))
	assert.ErrorIs(t, ctx1.Err(), context.Canceled)
	assert.NoError(t, ctx2.Err())

	assert.False(t, e.CommitIf(t1, func() { t.Fatal("stale commit ran") }))
	ran := false
	assert.True(t, e.CommitIf(t2, func() { ran = true }))
	assert.True(t, ran)

	e.Done(t2)
	assert.Equal(t, 0, e.InFlight())
	assert.ErrorIs(t, ctx2.Err(), context.Canceled)
}
