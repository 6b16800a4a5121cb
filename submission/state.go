package submission

import "fmt"

// State 定义提交状态机的状态
type State string

const (
	StateIdle           State = "idle"
	StateSubmitting     State = "submitting"
	StateStreaming      State = "streaming"
	StateStreamFinished State = "stream_finished"
	StateStreamErrored  State = "stream_errored"
)

// validTransitions 定义合法的状态转换
var validTransitions = map[State][]State{
	StateIdle:           {StateSubmitting},
	StateSubmitting:     {StateStreaming, StateStreamErrored, StateIdle}, // ignore / resolve 直接回到 idle
	StateStreaming:      {StateStreamFinished, StateStreamErrored},
	StateStreamFinished: {StateSubmitting, StateIdle}, // 终态可开始下一次提交
	StateStreamErrored:  {StateSubmitting, StateIdle}, // 支持重试
}

// CanTransition 检查状态转换是否合法
func CanTransition(from, to State) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ErrInvalidTransition 非法状态转换错误
type ErrInvalidTransition struct {
	From State
	To   State
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid state transition: %s -> %s", e.From, e.To)
}

// ErrorNode is the current node reported after a stream error.
const ErrorNode = "__error__"
