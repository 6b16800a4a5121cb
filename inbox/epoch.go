package inbox

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// FetchEpoch tracks the most recent list fetch. Only a fetch holding the
// current token may commit.
type FetchEpoch struct {
	mu       sync.Mutex
	current  string
	inflight map[string]context.CancelFunc
}

func NewFetchEpoch() *FetchEpoch {
	return &FetchEpoch{inflight: make(map[string]context.CancelFunc)}
}

// Begin mints a new current token, cancels every fetch still in flight and
// tracks cancel for the new one.
func (e *FetchEpoch) Begin(cancel context.CancelFunc) string {
	token := uuid.NewString()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = token
	for t, c := range e.inflight {
		c()
		delete(e.inflight, t)
	}
	if cancel != nil {
		e.inflight[token] = cancel
	}
	return token
}

// Done stops tracking token.
func (e *FetchEpoch) Done(token string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.inflight[token]; ok {
		c()
		delete(e.inflight, token)
	}
}

// IsCurrent reports whether token is still the latest.
func (e *FetchEpoch) IsCurrent(token string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return token == e.current
}

// CommitIf runs fn only while token is current; no Begin can interleave.
func (e *FetchEpoch) CommitIf(token string, fn func()) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if token != e.current {
		return false
	}
	fn()
	return true
}

// InFlight returns the number of tracked fetches.
func (e *FetchEpoch) InFlight() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.inflight)
}
