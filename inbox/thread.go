package inbox

import (
	"github.com/BaSui01/agentinbox/interrupt"
	"github.com/BaSui01/agentinbox/langgraph"
)

// Status is the display status of a non-interrupted thread.
type Status string

const (
	StatusIdle                Status = "idle"
	StatusBusy                Status = "busy"
	StatusError               Status = "error"
	StatusHumanResponseNeeded Status = "human_response_needed"
)

// ThreadData is a classified thread: either *Interrupted or *Generic.
type ThreadData interface {
	// Thread returns the remote record the classification was made from.
	Thread() langgraph.Thread
	isThreadData()
}

// Interrupted is a thread paused on human input.
type Interrupted struct {
	Raw        langgraph.Thread
	Interrupts []interrupt.HumanInterrupt
	// InvalidSchema is set when interrupts exist but none could be parsed.
	InvalidSchema bool
}

func (d *Interrupted) Thread() langgraph.Thread { return d.Raw }
func (*Interrupted) isThreadData()              {}

// Generic is any other thread.
type Generic struct {
	Raw    langgraph.Thread
	Status Status
}

func (d *Generic) Thread() langgraph.Thread { return d.Raw }
func (*Generic) isThreadData()              {}

// ThreadID returns the id of td, or "" for nil.
func ThreadID(td ThreadData) string {
	if td == nil {
		return ""
	}
	return td.Thread().ThreadID
}

// Kind names the classification of td for logs and metrics.
func Kind(td ThreadData) string {
	switch v := td.(type) {
	case *Interrupted:
		if v.InvalidSchema {
			return "invalid_schema"
		}
		if len(v.Interrupts) == 0 {
			return "interrupted_empty"
		}
		return "interrupted"
	case *Generic:
		return string(v.Status)
	default:
		return "unknown"
	}
}
