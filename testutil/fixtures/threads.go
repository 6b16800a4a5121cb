// =============================================================================
// 📦 测试数据工厂 - 线程与中断
// =============================================================================
// 提供预定义的线程、中断负载与流式事件，用于测试
// =============================================================================
package fixtures

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/BaSui01/agentinbox/langgraph"
)

// BaseTime 是所有固定线程的基准创建时间
var BaseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// =============================================================================
// 🎯 中断负载
// =============================================================================

// ApproveInterrupt 返回只允许 accept/ignore 的中断对象 JSON
func ApproveInterrupt() string {
	return `{"action_request":{"action":"approve","args":{}},"config":{"allow_ignore":true,"allow_respond":false,"allow_edit":false,"allow_accept":true}}`
}

// EditableInterrupt 返回四种响应都允许的中断对象 JSON
func EditableInterrupt(action string, args map[string]any) string {
	raw, _ := json.Marshal(map[string]any{
		"action_request": map[string]any{"action": action, "args": args},
		"config": map[string]any{
			"allow_ignore":  true,
			"allow_respond": true,
			"allow_edit":    true,
			"allow_accept":  true,
		},
		"description": "Review " + action,
	})
	return string(raw)
}

// InterruptsPayload 将中断对象包装为 thread.interrupts 的嵌套元组格式
func InterruptsPayload(interruptJSON string) json.RawMessage {
	return json.RawMessage(`{"int-1":[[0,{"value":` + interruptJSON + `}]]}`)
}

// =============================================================================
// 🧵 线程工厂
// =============================================================================

// InterruptedThread 返回一个带中断负载的线程，age 越大创建时间越早
func InterruptedThread(id string, age int, interrupts json.RawMessage) langgraph.Thread {
	return langgraph.Thread{
		ThreadID:   id,
		Status:     langgraph.ThreadInterrupted,
		CreatedAt:  BaseTime.Add(-time.Duration(age) * time.Minute),
		UpdatedAt:  BaseTime,
		Metadata:   map[string]any{"assistant_id": "agent"},
		Interrupts: interrupts,
	}
}

// StatusThread 返回一个非中断状态的线程
func StatusThread(id string, age int, status langgraph.ThreadStatus) langgraph.Thread {
	return langgraph.Thread{
		ThreadID:  id,
		Status:    status,
		CreatedAt: BaseTime.Add(-time.Duration(age) * time.Minute),
		UpdatedAt: BaseTime,
		Metadata:  map[string]any{"assistant_id": "agent"},
	}
}

// StateWithInterrupt 返回最后一个任务带有 value 中断的线程状态
func StateWithInterrupt(value string) *langgraph.ThreadState {
	return &langgraph.ThreadState{
		Next: []string{"human_review"},
		Tasks: []langgraph.Task{
			{ID: "task-0", Name: "agent"},
			{ID: "task-1", Name: "human_review", Interrupts: []langgraph.TaskInterrupt{
				{Value: json.RawMessage(value), Resumable: true},
			}},
		},
	}
}

// =============================================================================
// 🌊 流式事件
// =============================================================================

// ChainStart 返回进入 node 的 on_chain_start 事件
func ChainStart(node string) langgraph.StreamEvent {
	return langgraph.StreamEvent{
		Event: "events",
		Data:  json.RawMessage(fmt.Sprintf(`{"event":"on_chain_start","metadata":{"langgraph_node":%q}}`, node)),
	}
}

// ErrorEvent 返回一个 SSE error 事件
func ErrorEvent(message string) langgraph.StreamEvent {
	return langgraph.StreamEvent{
		Event: langgraph.EventError,
		Data:  json.RawMessage(fmt.Sprintf(`{"error":%q}`, message)),
	}
}
