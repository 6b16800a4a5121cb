package inbox

import (
	"sort"
	"sync"
)

// ThreadList is the shared, ordered list the inbox renders. Every write goes
// through Commit or ReplaceOrRemove.
type ThreadList struct {
	mu      sync.RWMutex
	items   []ThreadData
	hasMore bool
	loading bool
}

// NewThreadList creates an empty list.
func NewThreadList() *ThreadList {
	return &ThreadList{}
}

// Snapshot returns a copy of the current items.
func (l *ThreadList) Snapshot() []ThreadData {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]ThreadData, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of items.
func (l *ThreadList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Get finds a thread by id.
func (l *ThreadList) Get(threadID string) (ThreadData, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i := l.indexOf(threadID); i >= 0 {
		return l.items[i], true
	}
	return nil, false
}

func (l *ThreadList) HasMore() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.hasMore
}

func (l *ThreadList) Loading() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loading
}

func (l *ThreadList) SetLoading(loading bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loading = loading
}

// Commit replaces the whole list, newest first, and clears the loading flag.
func (l *ThreadList) Commit(items []ThreadData, hasMore bool) {
	sorted := make([]ThreadData, len(items))
	copy(sorted, items)
	sortNewestFirst(sorted)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = sorted
	l.hasMore = hasMore
	l.loading = false
}

// ReplaceOrRemove replaces the item with threadID in place, or removes it
// when td is nil. It reports whether the id was present.
func (l *ThreadList) ReplaceOrRemove(threadID string, td ThreadData) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexOf(threadID)
	if i < 0 {
		return false
	}
	if td == nil {
		l.items = append(l.items[:i:i], l.items[i+1:]...)
		return true
	}
	l.items[i] = td
	return true
}

func (l *ThreadList) indexOf(threadID string) int {
	for i, td := range l.items {
		if ThreadID(td) == threadID {
			return i
		}
	}
	return -1
}

func sortNewestFirst(items []ThreadData) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Thread().CreatedAt.After(items[j].Thread().CreatedAt)
	})
}
