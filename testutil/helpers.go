package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/BaSui01/agentinbox/langgraph"
)

// TestContext 返回 30s 超时的上下文，测试结束时取消
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// AssertEventuallyTrue 在 timeout 内每 10ms 轮询一次 condition
func AssertEventuallyTrue(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()
	assert.Eventually(t, condition, timeout, 10*time.Millisecond)
}

// SendEventsToChannel 返回一个已写满 events 并关闭的通道，模拟一次完整的 runs.stream
func SendEventsToChannel(events []langgraph.StreamEvent) <-chan langgraph.StreamEvent {
	ch := make(chan langgraph.StreamEvent, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return ch
}
