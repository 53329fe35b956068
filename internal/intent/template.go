package intent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Slot names used in templates.
const (
	SlotDuration = "duration"
	SlotText     = "text"
	slotCount    = "count"
	slotParam    = "param"
)

// CountSlot returns the name of the i-th count slot ("count1", "count2", ...).
func CountSlot(i int) string { return slotCount + strconv.Itoa(i) }

// Param binds one slot of an action to a placeholder.
type Param struct {
	Name  string
	Value Placeholder
}

// ActionStep is one action of a template with its slots in order.
type ActionStep struct {
	Action string
	Params []Param
}

// Template is an ordered, value-free action sequence: one sentence shape.
type Template []ActionStep

// Clone returns a deep copy.
func (t Template) Clone() Template {
	if t == nil {
		return nil
	}
	out := make(Template, len(t))
	for i, step := range t {
		out[i] = ActionStep{Action: step.Action, Params: append([]Param(nil), step.Params...)}
	}
	return out
}

// Equal reports structural equality.
func (t Template) Equal(o Template) bool {
	if len(t) != len(o) {
		return false
	}
	for i := range t {
		if t[i].Action != o[i].Action || len(t[i].Params) != len(o[i].Params) {
			return false
		}
		for j := range t[i].Params {
			if t[i].Params[j] != o[i].Params[j] {
				return false
			}
		}
	}
	return true
}

// Slots counts the numbered slots the template will try to fill.
func (t Template) Slots() int {
	n := 0
	for _, step := range t {
		for _, p := range step.Params {
			if !p.Value.IsText() {
				n++
			}
		}
	}
	return n
}

func (t Template) String() string {
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Sprintf("template(%d steps)", len(t))
	}
	return string(b)
}

// MarshalJSON writes {"action": ..., "parameters": {...}} keeping slot order.
func (s ActionStep) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"action":`)
	name, err := json.Marshal(s.Action)
	if err != nil {
		return nil, err
	}
	buf.Write(name)
	buf.WriteString(`,"parameters":{`)
	for i, p := range s.Params {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(p.Value.String())
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts the classifier wire shape. JSON objects carry no
// order, so slots are ordered by name: duration, text, count1..N, param1..N,
// then anything else alphabetically.
func (s *ActionStep) UnmarshalJSON(data []byte) error {
	var wire struct {
		Action     string                 `json:"action"`
		Parameters map[string]Placeholder `json:"parameters"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if strings.TrimSpace(wire.Action) == "" {
		return fmt.Errorf("action step without action name")
	}
	params := make([]Param, 0, len(wire.Parameters))
	for name, ph := range wire.Parameters {
		params = append(params, Param{Name: name, Value: ph})
	}
	sort.Slice(params, func(i, j int) bool {
		ri, ni := slotRank(params[i].Name)
		rj, nj := slotRank(params[j].Name)
		if ri != rj {
			return ri < rj
		}
		if ni != nj {
			return ni < nj
		}
		return params[i].Name < params[j].Name
	})
	s.Action = strings.ToLower(strings.TrimSpace(wire.Action))
	s.Params = params
	return nil
}

func slotRank(name string) (int, int) {
	switch {
	case name == SlotDuration:
		return 0, 0
	case name == SlotText:
		return 1, 0
	case strings.HasPrefix(name, slotCount):
		if n, err := strconv.Atoi(name[len(slotCount):]); err == nil {
			return 2, n
		}
	case strings.HasPrefix(name, slotParam):
		if n, err := strconv.Atoi(name[len(slotParam):]); err == nil {
			return 3, n
		}
	}
	return 4, 0
}

// Validate checks a template against the action set: every action must be
// known, free-text actions carry only the text placeholder and other actions
// only numbered placeholders.
func (t Template) Validate(actions *ActionSet) error {
	for i, step := range t {
		action, ok := actions.Lookup(step.Action)
		if !ok {
			return fmt.Errorf("%w: step %d: unknown action %q", ErrMalformedTemplate, i, step.Action)
		}
		seen := make(map[string]struct{}, len(step.Params))
		for _, p := range step.Params {
			if p.Name == "" {
				return fmt.Errorf("%w: step %d (%s): empty slot name", ErrMalformedTemplate, i, step.Action)
			}
			if _, dup := seen[p.Name]; dup {
				return fmt.Errorf("%w: step %d (%s): duplicate slot %s", ErrMalformedTemplate, i, step.Action, p.Name)
			}
			seen[p.Name] = struct{}{}
			if (action.Class == ClassFreeText) != p.Value.IsText() {
				return fmt.Errorf("%w: step %d (%s): slot %s cannot hold %s", ErrMalformedTemplate, i, step.Action, p.Name, p.Value)
			}
		}
	}
	return nil
}
