package langgraph

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/BaSui01/agentinbox/types"
)

// readSSE parses a server-sent event stream into StreamEvents. The channel is
// closed when the body ends or an "end" event arrives; the body is always
// closed. If ctx ends first the last event carries a NETWORK_FAILURE wrapping
// ctx.Err() whenever the consumer has room for it.
func readSSE(ctx context.Context, body io.ReadCloser) <-chan StreamEvent {
	// 预留一个槽位给终止事件
	ch := make(chan StreamEvent, 1)
	go func() {
		defer body.Close()
		defer close(ch)

		interrupted := func() {
			ev := StreamEvent{Err: types.NewNetworkError("run stream interrupted", ctx.Err())}
			select {
			case ch <- ev:
			default:
			}
		}

		send := func(ev StreamEvent) bool {
			select {
			case <-ctx.Done():
				return false
			case ch <- ev:
				return true
			}
		}

		var event string
		var data []string
		flush := func() bool {
			if event == "" && len(data) == 0 {
				return true
			}
			ev := StreamEvent{Event: event, Data: json.RawMessage(strings.Join(data, "\n"))}
			event, data = "", nil
			if ev.Event == EventEnd {
				return false
			}
			if !send(ev) {
				interrupted()
				return false
			}
			return true
		}

		reader := bufio.NewReader(body)
		for {
			line, err := reader.ReadString('\n')
			if len(line) > 0 {
				line = strings.TrimRight(line, "\r\n")
				switch {
				case line == "":
					if !flush() {
						return
					}
				case strings.HasPrefix(line, ":"):
					// comment / keep-alive
				case strings.HasPrefix(line, "event:"):
					event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
				case strings.HasPrefix(line, "data:"):
					data = append(data, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
				}
			}
			if err != nil {
				if !flush() {
					return
				}
				switch {
				case ctx.Err() != nil:
					interrupted()
				case !errors.Is(err, io.EOF):
					send(StreamEvent{Err: types.NewNetworkError("read run stream", err)})
				}
				return
			}
		}
	}()
	return ch
}
