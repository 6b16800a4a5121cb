package compose

import (
	"sync"

	"go.uber.org/zap"
)

// Baseline remembers the first stringified value seen for every edit field so
// that later edits can be diffed against it. It is shared by the composer and
// the submission path, which clears it once a thread is resolved.
type Baseline struct {
	mu     sync.RWMutex
	values map[string]string
	logger *zap.Logger
}

// NewBaseline creates an empty baseline.
func NewBaseline(logger *zap.Logger) *Baseline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Baseline{
		values: make(map[string]string),
		logger: logger.With(zap.String("component", "edit_baseline")),
	}
}

// Record stores value for key unless the key is already known. A differing
// value for a known key is an internal inconsistency and is only logged.
func (b *Baseline) Record(key, value string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.values[key]; ok {
		if existing != value {
			b.logger.Warn("edit baseline already holds a different value",
				zap.String("key", key),
				zap.String("recorded", existing),
				zap.String("incoming", value),
			)
		}
		return
	}
	b.values[key] = value
}

// Value returns the recorded value for key.
func (b *Baseline) Value(key string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[key]
	return v, ok
}

// Len returns the number of recorded keys.
func (b *Baseline) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.values)
}

// Clear forgets every recorded value.
func (b *Baseline) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values = make(map[string]string)
}
