package compose

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/BaSui01/agentinbox/interrupt"
)

// ResponseWithEdits is a locally tracked, editable draft of a HumanResponse.
type ResponseWithEdits struct {
	Type          interrupt.ResponseType `json:"type"`
	Args          any                    `json:"args"`
	AcceptAllowed bool                   `json:"acceptAllowed,omitempty"`
	EditsMade     bool                   `json:"editsMade,omitempty"`
}

// Response strips the local tracking fields, leaving the wire payload.
func (r ResponseWithEdits) Response() interrupt.HumanResponse {
	return interrupt.HumanResponse{Type: r.Type, Args: r.Args}
}

// Result is what Compose builds for one set of interrupts.
type Result struct {
	Responses []ResponseWithEdits
	// DefaultSubmitType is empty when nothing can be submitted besides ignore.
	DefaultSubmitType interrupt.ResponseType
	HasAccept         bool
}

// Compose builds the initial editable responses for interrupts. The first
// interrupt's config drives which responses are emitted; accept and ignore
// are also offered when any interrupt allows them. Edit arguments are
// recorded into baseline (first value wins) so later edits can be diffed.
func Compose(interrupts []interrupt.HumanInterrupt, baseline *Baseline) Result {
	if len(interrupts) == 0 {
		return Result{}
	}
	primary := interrupts[0]
	cfg := primary.Config

	var responses []ResponseWithEdits
	if cfg.AllowEdit {
		args := make(map[string]any, len(primary.ActionRequest.Args))
		for k, v := range primary.ActionRequest.Args {
			s := Stringify(v)
			args[k] = s
			if baseline != nil {
				baseline.Record(k, s)
			}
		}
		responses = append(responses, ResponseWithEdits{
			Type:          interrupt.ResponseEdit,
			Args:          &interrupt.ActionRequest{Action: primary.ActionRequest.Action, Args: args},
			AcceptAllowed: cfg.AllowAccept,
		})
	}
	if cfg.AllowRespond {
		responses = append(responses, ResponseWithEdits{Type: interrupt.ResponseResponse, Args: ""})
	}
	if cfg.AllowIgnore {
		responses = append(responses, ResponseWithEdits{Type: interrupt.ResponseIgnore})
	}

	anyAccept := anyAllows(interrupts, func(c interrupt.Config) bool { return c.AllowAccept })
	anyIgnore := anyAllows(interrupts, func(c interrupt.Config) bool { return c.AllowIgnore })

	hasAccept := anyAccept
	for _, r := range responses {
		if r.AcceptAllowed {
			hasAccept = true
		}
	}
	hasResponse := hasType(responses, interrupt.ResponseResponse)
	hasEdit := hasType(responses, interrupt.ResponseEdit)

	var defaultType interrupt.ResponseType
	switch {
	case hasAccept:
		defaultType = interrupt.ResponseAccept
	case hasResponse:
		defaultType = interrupt.ResponseResponse
	case hasEdit:
		defaultType = interrupt.ResponseEdit
	}

	if anyAccept && !hasType(responses, interrupt.ResponseAccept) {
		responses = append(responses, ResponseWithEdits{Type: interrupt.ResponseAccept})
	}
	if anyIgnore && !hasType(responses, interrupt.ResponseIgnore) {
		responses = append(responses, ResponseWithEdits{Type: interrupt.ResponseIgnore})
	}

	return Result{Responses: responses, DefaultSubmitType: defaultType, HasAccept: hasAccept}
}

// HasEdits reports whether any argument of an edit response differs from the
// recorded baseline.
func HasEdits(resp ResponseWithEdits, baseline *Baseline) bool {
	ar, ok := resp.Args.(*interrupt.ActionRequest)
	if !ok || ar == nil || baseline == nil {
		return false
	}
	for k, v := range ar.Args {
		base, known := baseline.Value(k)
		if !known || base != Stringify(v) {
			return true
		}
	}
	return false
}

// EffectiveSubmitType applies the caller precedence while the user types:
// edited wins, then accept, then an added free-text response.
func EffectiveSubmitType(edited, acceptAllowed, hasAddedResponse bool, current interrupt.ResponseType) interrupt.ResponseType {
	switch {
	case edited:
		return interrupt.ResponseEdit
	case acceptAllowed:
		return interrupt.ResponseAccept
	case hasAddedResponse:
		return interrupt.ResponseResponse
	default:
		return current
	}
}

// Stringify renders an argument value the way edit fields show it: strings
// and numbers as-is, everything else as JSON.
func Stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(t)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func anyAllows(interrupts []interrupt.HumanInterrupt, allow func(interrupt.Config) bool) bool {
	for _, hi := range interrupts {
		if allow(hi.Config) {
			return true
		}
	}
	return false
}

func hasType(responses []ResponseWithEdits, t interrupt.ResponseType) bool {
	for _, r := range responses {
		if r.Type == t {
			return true
		}
	}
	return false
}
