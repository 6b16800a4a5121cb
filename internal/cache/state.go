package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentinbox/langgraph"
)

const stateKeyPrefix = "agentinbox:thread_state:"

// StateCache caches thread execution state for the secondary interrupt
// extraction path. Entries are keyed by thread id and the thread's
// updated_at, so any change on the remote thread is a miss.
type StateCache struct {
	manager *Manager
	ttl     time.Duration
	logger  *zap.Logger
}

// NewStateCache wraps manager. ttl 0 uses the manager's default TTL.
func NewStateCache(manager *Manager, ttl time.Duration, logger *zap.Logger) *StateCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateCache{
		manager: manager,
		ttl:     ttl,
		logger:  logger.With(zap.String("component", "state_cache")),
	}
}

// GetState returns the cached state or ErrCacheMiss.
func (c *StateCache) GetState(ctx context.Context, threadID string, version time.Time) (*langgraph.ThreadState, error) {
	var state langgraph.ThreadState
	if err := c.manager.Load(ctx, stateKey(threadID, version), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// SetState stores state for (threadID, version).
func (c *StateCache) SetState(ctx context.Context, threadID string, version time.Time, state *langgraph.ThreadState) error {
	if state == nil {
		return nil
	}
	if err := c.manager.Store(ctx, stateKey(threadID, version), state, c.ttl); err != nil {
		return err
	}
	c.logger.Debug("thread state cached", zap.String("thread_id", threadID))
	return nil
}

// Invalidate drops the cached state of one thread version.
func (c *StateCache) Invalidate(ctx context.Context, threadID string, version time.Time) error {
	return c.manager.Delete(ctx, stateKey(threadID, version))
}

func stateKey(threadID string, version time.Time) string {
	return fmt.Sprintf("%s%s:%d", stateKeyPrefix, threadID, version.UnixNano())
}
