package compose

import (
	"sync"

	"github.com/BaSui01/agentinbox/interrupt"
	"github.com/BaSui01/agentinbox/types"
)

// Outcome is the result of a draft update. Failed updates leave the draft
// untouched so callers decide how to message the user.
type Outcome int

const (
	OK Outcome = iota
	NoMatchingResponse
	MismatchedEditShape
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case NoMatchingResponse:
		return "no_matching_response"
	case MismatchedEditShape:
		return "mismatched_edit_shape"
	default:
		return "unknown"
	}
}

// Err converts a failed outcome into a structured error; OK yields nil.
func (o Outcome) Err() error {
	switch o {
	case OK:
		return nil
	case NoMatchingResponse:
		return types.NewError(types.ErrNoMatchingResponse, "no draft response of the requested type")
	case MismatchedEditShape:
		return types.NewError(types.ErrMismatchedEditShape, "edit keys and values do not line up")
	default:
		return types.Errorf(types.ErrValidation, "unknown draft outcome %d", int(o))
	}
}

// Draft is the editable response set a detail view works on.
type Draft struct {
	mu               sync.Mutex
	responses        []ResponseWithEdits
	submitType       interrupt.ResponseType
	hasAccept        bool
	hasAddedResponse bool
	baseline         *Baseline
}

// NewDraft composes interrupts into a draft. A nil baseline gets a private one.
func NewDraft(interrupts []interrupt.HumanInterrupt, baseline *Baseline) *Draft {
	if baseline == nil {
		baseline = NewBaseline(nil)
	}
	res := Compose(interrupts, baseline)
	return &Draft{
		responses:  res.Responses,
		submitType: res.DefaultSubmitType,
		hasAccept:  res.HasAccept,
		baseline:   baseline,
	}
}

// Responses returns a copy of the current draft responses.
func (d *Draft) Responses() []ResponseWithEdits {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]ResponseWithEdits, len(d.responses))
	copy(out, d.responses)
	return out
}

// SubmitType is the response type a submit would send.
func (d *Draft) SubmitType() interrupt.ResponseType {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.submitType
}

// HasAccept reports whether accepting is offered.
func (d *Draft) HasAccept() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hasAccept
}

// Baseline returns the edit baseline backing this draft.
func (d *Draft) Baseline() *Baseline {
	return d.baseline
}

// Find returns the draft response of type t.
func (d *Draft) Find(t interrupt.ResponseType) (ResponseWithEdits, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i := d.indexOf(t); i >= 0 {
		return d.responses[i], true
	}
	return ResponseWithEdits{}, false
}

// Edit sets edit fields keys[i] = values[i] on the edit response and
// recomputes the submit type.
func (d *Draft) Edit(keys, values []string) Outcome {
	if len(keys) == 0 || len(keys) != len(values) {
		return MismatchedEditShape
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.indexOf(interrupt.ResponseEdit)
	if i < 0 {
		return NoMatchingResponse
	}
	resp := d.responses[i]
	ar, ok := resp.Args.(*interrupt.ActionRequest)
	if !ok || ar == nil {
		return MismatchedEditShape
	}

	args := make(map[string]any, len(ar.Args)+len(keys))
	for k, v := range ar.Args {
		args[k] = v
	}
	for j, k := range keys {
		args[k] = values[j]
	}
	resp.Args = &interrupt.ActionRequest{Action: ar.Action, Args: args}
	resp.EditsMade = HasEdits(resp, d.baseline)
	d.responses[i] = resp

	d.submitType = EffectiveSubmitType(resp.EditsMade, resp.AcceptAllowed, d.hasAddedResponse, d.submitType)
	return OK
}

// Respond sets the free-text response and recomputes the submit type.
func (d *Draft) Respond(text string) Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.indexOf(interrupt.ResponseResponse)
	if i < 0 {
		return NoMatchingResponse
	}
	d.responses[i].Args = text
	d.hasAddedResponse = text != ""

	if d.hasAddedResponse {
		d.submitType = interrupt.ResponseResponse
		return OK
	}
	edited, acceptAllowed := false, false
	if j := d.indexOf(interrupt.ResponseEdit); j >= 0 {
		edited = d.responses[j].EditsMade
		acceptAllowed = d.responses[j].AcceptAllowed
	}
	d.submitType = EffectiveSubmitType(edited, acceptAllowed, false, d.submitType)
	return OK
}

// Select picks the response type to submit explicitly.
func (d *Draft) Select(t interrupt.ResponseType) Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !t.Valid() || d.indexOf(t) < 0 {
		return NoMatchingResponse
	}
	d.submitType = t
	return OK
}

func (d *Draft) indexOf(t interrupt.ResponseType) int {
	for i, r := range d.responses {
		if r.Type == t {
			return i
		}
	}
	return -1
}
