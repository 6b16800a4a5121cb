package interrupt

import (
	"encoding/json"
	"fmt"
)

// ImproperSchema is the action name carried by the sentinel interrupt.
const ImproperSchema = "improper_schema"

// ActionRequest is the action an agent asks a human to review.
type ActionRequest struct {
	Action string         `json:"action"`
	Args   map[string]any `json:"args"`
}

// Config declares which human responses an interrupt accepts.
type Config struct {
	AllowIgnore  bool `json:"allow_ignore"`
	AllowRespond bool `json:"allow_respond"`
	AllowEdit    bool `json:"allow_edit"`
	AllowAccept  bool `json:"allow_accept"`
}

// HumanInterrupt is the canonical interrupt shape.
type HumanInterrupt struct {
	ActionRequest ActionRequest `json:"action_request"`
	Config        Config        `json:"config"`
	Description   string        `json:"description,omitempty"`
}

// Sentinel returns the placeholder used whenever raw interrupt data cannot be
// parsed. Only ignore is ever allowed on it.
func Sentinel() HumanInterrupt {
	return HumanInterrupt{
		ActionRequest: ActionRequest{Action: ImproperSchema, Args: map[string]any{}},
		Config:        Config{AllowIgnore: true},
	}
}

// IsSentinel reports whether hi is the improper_schema placeholder.
func IsSentinel(hi HumanInterrupt) bool {
	return hi.ActionRequest.Action == ImproperSchema
}

// ResponseType 人工响应类型
type ResponseType string

const (
	ResponseAccept   ResponseType = "accept"
	ResponseIgnore   ResponseType = "ignore"
	ResponseResponse ResponseType = "response"
	ResponseEdit     ResponseType = "edit"
)

// Valid reports whether t is one of the four wire types.
func (t ResponseType) Valid() bool {
	switch t {
	case ResponseAccept, ResponseIgnore, ResponseResponse, ResponseEdit:
		return true
	}
	return false
}

// HumanResponse is the payload sent to resume a paused execution.
// Args is nil, a string, or an *ActionRequest depending on Type.
type HumanResponse struct {
	Type ResponseType `json:"type"`
	Args any          `json:"args"`
}

// UnmarshalJSON decodes args into the concrete shape its type implies.
func (r *HumanResponse) UnmarshalJSON(data []byte) error {
	var wire struct {
		Type ResponseType    `json:"type"`
		Args json.RawMessage `json:"args"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	r.Type = wire.Type
	r.Args = nil
	if len(wire.Args) == 0 || string(wire.Args) == "null" {
		return nil
	}
	switch wire.Type {
	case ResponseResponse:
		var s string
		if err := json.Unmarshal(wire.Args, &s); err != nil {
			return fmt.Errorf("response args: %w", err)
		}
		r.Args = s
	case ResponseEdit:
		var ar ActionRequest
		if err := json.Unmarshal(wire.Args, &ar); err != nil {
			return fmt.Errorf("edit args: %w", err)
		}
		r.Args = &ar
	default:
		var v any
		if err := json.Unmarshal(wire.Args, &v); err != nil {
			return err
		}
		r.Args = v
	}
	return nil
}
