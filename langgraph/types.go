package langgraph

import (
	"encoding/json"
	"time"

	"github.com/BaSui01/agentinbox/interrupt"
)

// ThreadStatus is the remote execution status of a thread.
type ThreadStatus string

const (
	ThreadIdle        ThreadStatus = "idle"
	ThreadBusy        ThreadStatus = "busy"
	ThreadError       ThreadStatus = "error"
	ThreadInterrupted ThreadStatus = "interrupted"
)

// EndNode is the graph node a resolved thread is moved to.
const EndNode = "__end__"

// Thread is the remote record. Values and Interrupts are kept raw: the inbox
// only reads them, and Interrupts changes shape between service versions.
type Thread struct {
	ThreadID   string          `json:"thread_id"`
	Status     ThreadStatus    `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
	Values     json.RawMessage `json:"values,omitempty"`
	Interrupts json.RawMessage `json:"interrupts,omitempty"`
}

// SearchRequest scopes threads.search.
type SearchRequest struct {
	Offset   int            `json:"offset"`
	Limit    int            `json:"limit"`
	Status   ThreadStatus   `json:"status,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ThreadState is the full execution state of a thread.
type ThreadState struct {
	Values json.RawMessage `json:"values,omitempty"`
	Next   []string        `json:"next,omitempty"`
	Tasks  []Task          `json:"tasks"`
}

// Task is one pending graph task.
type Task struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Interrupts []TaskInterrupt `json:"interrupts"`
}

// TaskInterrupt is one interrupt raised by a task.
type TaskInterrupt struct {
	Value     json.RawMessage `json:"value,omitempty"`
	ID        string          `json:"id,omitempty"`
	Resumable bool            `json:"resumable,omitempty"`
}

// LastInterruptValue returns the value of the last interrupt of the last
// task, or nil when there is none.
func (s *ThreadState) LastInterruptValue() json.RawMessage {
	if s == nil || len(s.Tasks) == 0 {
		return nil
	}
	task := s.Tasks[len(s.Tasks)-1]
	if len(task.Interrupts) == 0 {
		return nil
	}
	return task.Interrupts[len(task.Interrupts)-1].Value
}

// UpdateStateRequest moves a thread's state. Values is sent even when nil.
type UpdateStateRequest struct {
	Values any    `json:"values"`
	AsNode string `json:"as_node,omitempty"`
}

// Command resumes a paused execution.
type Command struct {
	Resume []interrupt.HumanResponse `json:"resume"`
}

// RunRequest creates (or streams) a run on a thread.
type RunRequest struct {
	AssistantID string   `json:"assistant_id"`
	Command     *Command `json:"command,omitempty"`
	StreamMode  []string `json:"stream_mode,omitempty"`
}

// Run is the handle returned by a non-streamed run.
type Run struct {
	RunID       string    `json:"run_id"`
	ThreadID    string    `json:"thread_id"`
	AssistantID string    `json:"assistant_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// StreamEvent is one server-sent event of a streamed run. Err is set when the
// transport failed mid-stream; such an event is always the last one.
type StreamEvent struct {
	Event string
	Data  json.RawMessage
	Err   error
}

// Event kinds
const (
	EventError      = "error"
	EventEnd        = "end"
	EventMetadata   = "metadata"
	EventChainStart = "on_chain_start"
)

type eventPayload struct {
	Event    string `json:"event"`
	Metadata struct {
		Node string `json:"langgraph_node"`
	} `json:"metadata"`
}

func (e StreamEvent) payload() eventPayload {
	var p eventPayload
	if len(e.Data) > 0 {
		_ = json.Unmarshal(e.Data, &p)
	}
	return p
}

// Kind returns data.event, e.g. "on_chain_start".
func (e StreamEvent) Kind() string {
	return e.payload().Event
}

// Node returns data.metadata.langgraph_node.
func (e StreamEvent) Node() string {
	return e.payload().Metadata.Node
}

// IsError reports whether the event signals a failed run.
func (e StreamEvent) IsError() bool {
	return e.Err != nil || e.Event == EventError
}
