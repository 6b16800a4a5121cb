package interrupt

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// RawInterruptMap maps an interrupt id to its list of historical entries as
// received on the wire. The entry shape changed across service versions.
type RawInterruptMap map[string]json.RawMessage

// detector recognizes one historical entry shape. It reports false when the
// entry is not in its shape so the next detector can try.
type detector func(entry []any) ([]HumanInterrupt, bool)

// detectors run in priority order; the first match wins.
var detectors = []detector{
	detectNestedTuple,
	detectValueJSONString,
	detectValueObject,
	detectDirect,
}

// Normalize turns a raw thread interrupts payload into canonical interrupts.
// It returns nil when no interrupts are present at all, and a slice holding
// only sentinels when something is present but cannot be parsed. It never
// panics.
func Normalize(raw json.RawMessage) (out []HumanInterrupt) {
	defer func() {
		if r := recover(); r != nil {
			out = sentinelOnly()
		}
	}()

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '[' {
		// Older deployments sent a bare list instead of an id-keyed map.
		return NormalizeMap(RawInterruptMap{"": trimmed})
	}

	var m RawInterruptMap
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return sentinelOnly()
	}
	return NormalizeMap(m)
}

// NormalizeMap is Normalize over an already split payload. Interrupt ids are
// visited in sorted order so repeated calls produce identical output.
func NormalizeMap(raw RawInterruptMap) (out []HumanInterrupt) {
	defer func() {
		if r := recover(); r != nil {
			out = sentinelOnly()
		}
	}()

	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		v, err := decodeJSON(raw[id])
		if err != nil {
			out = append(out, Sentinel())
			continue
		}
		entry := entryOf(v)
		if len(entry) == 0 {
			continue
		}
		out = append(out, parseEntry(entry)...)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// FromTaskValue extracts interrupts from the value of one task interrupt in
// the thread's execution state. It reports false when the value is absent or
// not interrupt-shaped.
func FromTaskValue(value json.RawMessage) (his []HumanInterrupt, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			his, ok = nil, false
		}
	}()

	v, err := decodeJSON(value)
	if err != nil || v == nil {
		return nil, false
	}
	if s, isString := v.(string); isString {
		if v, err = parseJSONString(s); err != nil {
			return nil, false
		}
	}
	return asInterrupts(v)
}

// InvalidSchema reports whether every interrupt is a sentinel or carries no
// action. An empty or nil slice deliberately yields false, not the vacuous
// true: a thread with no interrupt data is Interrupted{InvalidSchema: false}.
func InvalidSchema(interrupts []HumanInterrupt) bool {
	if len(interrupts) == 0 {
		return false
	}
	for _, hi := range interrupts {
		if hi.ActionRequest.Action != "" && !IsSentinel(hi) {
			return false
		}
	}
	return true
}

func parseEntry(entry []any) (out []HumanInterrupt) {
	defer func() {
		if r := recover(); r != nil {
			out = sentinelOnly()
		}
	}()
	for _, detect := range detectors {
		if his, ok := detect(entry); ok {
			return his
		}
	}
	return sentinelOnly()
}

// detectNestedTuple handles [[_, {value}], ...].
func detectNestedTuple(entry []any) ([]HumanInterrupt, bool) {
	tuple, ok := entry[0].([]any)
	if !ok {
		return nil, false
	}
	if len(tuple) < 2 {
		return sentinelOnly(), true
	}
	holder, _ := tuple[1].(map[string]any)
	value, present := holder["value"]
	if !present {
		return sentinelOnly(), true
	}
	if his, ok := asInterrupts(value); ok {
		return his, true
	}
	return sentinelOnly(), true
}

// detectValueJSONString handles [{value: "<json>"}, ...].
func detectValueJSONString(entry []any) ([]HumanInterrupt, bool) {
	el, _ := entry[0].(map[string]any)
	s, ok := el["value"].(string)
	if !ok {
		return nil, false
	}
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") && !strings.HasPrefix(s, "{") {
		return nil, false
	}
	parsed, err := parseJSONString(s)
	if err != nil {
		return nil, false
	}
	return asInterrupts(parsed)
}

// detectValueObject handles [{value: {action_request, config}}, ...].
func detectValueObject(entry []any) ([]HumanInterrupt, bool) {
	el, _ := entry[0].(map[string]any)
	value, present := el["value"]
	if !present {
		return nil, false
	}
	return asInterrupts(value)
}

// detectDirect handles [{action_request, config}, ...].
func detectDirect(entry []any) ([]HumanInterrupt, bool) {
	hi, ok := asInterrupt(entry[0])
	if !ok {
		return nil, false
	}
	return []HumanInterrupt{hi}, true
}

// asInterrupts accepts one interrupt object or a non-empty array of them.
func asInterrupts(v any) ([]HumanInterrupt, bool) {
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return nil, false
		}
		out := make([]HumanInterrupt, 0, len(list))
		for _, item := range list {
			hi, ok := asInterrupt(item)
			if !ok {
				return nil, false
			}
			out = append(out, hi)
		}
		return out, true
	}
	hi, ok := asInterrupt(v)
	if !ok {
		return nil, false
	}
	return []HumanInterrupt{hi}, true
}

func asInterrupt(v any) (HumanInterrupt, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return HumanInterrupt{}, false
	}
	ar, ok := m["action_request"].(map[string]any)
	if !ok {
		return HumanInterrupt{}, false
	}
	cfg, ok := m["config"].(map[string]any)
	if !ok {
		return HumanInterrupt{}, false
	}

	var hi HumanInterrupt
	hi.ActionRequest.Action, _ = ar["action"].(string)
	hi.ActionRequest.Args, _ = ar["args"].(map[string]any)
	if hi.ActionRequest.Args == nil {
		hi.ActionRequest.Args = map[string]any{}
	}
	hi.Config.AllowIgnore, _ = cfg["allow_ignore"].(bool)
	hi.Config.AllowRespond, _ = cfg["allow_respond"].(bool)
	hi.Config.AllowEdit, _ = cfg["allow_edit"].(bool)
	hi.Config.AllowAccept, _ = cfg["allow_accept"].(bool)
	hi.Description, _ = m["description"].(string)
	return hi, true
}

// entryOf treats a lone object as a one-element entry.
func entryOf(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}

// parseJSONString decodes s, falling back to a repaired copy for truncated
// or sloppy JSON written by older agents.
func parseJSONString(s string) (any, error) {
	v, err := decodeJSON([]byte(s))
	if err == nil {
		return v, nil
	}
	repaired, repairErr := jsonrepair.JSONRepair(s)
	if repairErr != nil {
		return nil, err
	}
	return decodeJSON([]byte(repaired))
}

// decodeJSON keeps numbers as json.Number so arguments survive unchanged.
func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func sentinelOnly() []HumanInterrupt {
	return []HumanInterrupt{Sentinel()}
}
