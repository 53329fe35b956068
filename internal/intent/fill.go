package intent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DefaultDuration is used for duration slots when no default is configured.
const DefaultDuration = 5

// Defaults supplies values for slots the request did not provide.
type Defaults struct {
	Duration int            `yaml:"duration" json:"duration"`
	Counts   map[string]int `yaml:"counts,omitempty" json:"counts,omitempty"`
}

// DefaultDefaults returns {duration: 5}; count slots fall back to 1.
func DefaultDefaults() Defaults {
	return Defaults{Duration: DefaultDuration}
}

// ForSlot returns the fallback value for a slot name.
func (d Defaults) ForSlot(name string) int {
	switch {
	case name == SlotDuration:
		if d.Duration > 0 {
			return d.Duration
		}
		return DefaultDuration
	case strings.HasPrefix(name, slotCount):
		if v, ok := d.Counts[name]; ok {
			return v
		}
		return 1
	default:
		return 1
	}
}

// FilledParam is a slot bound to a concrete value (int or string).
type FilledParam struct {
	Name  string
	Value any
}

// FilledAction is one executable action with concrete parameters.
type FilledAction struct {
	Action string
	Params []FilledParam
}

// Param returns the value bound to name.
func (a FilledAction) Param(name string) (any, bool) {
	for _, p := range a.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

// MarshalJSON writes {"action": ..., "parameters": {...}} keeping slot order.
func (a FilledAction) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	name, err := json.Marshal(a.Action)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`{"action":`)
	buf.Write(name)
	buf.WriteString(`,"parameters":{`)
	for i, p := range a.Params {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the MarshalJSON form back, keeping parameter order.
// Integral numbers decode as int.
func (a *FilledAction) UnmarshalJSON(data []byte) error {
	var wire struct {
		Action     string          `json:"action"`
		Parameters json.RawMessage `json:"parameters"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	a.Action = wire.Action
	a.Params = nil
	if len(wire.Parameters) == 0 || string(wire.Parameters) == "null" {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(wire.Parameters))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("parameters must be an object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return err
		}
		if n, ok := v.(json.Number); ok {
			if i, err := strconv.Atoi(n.String()); err == nil {
				v = i
			} else {
				v = n.String()
			}
		}
		a.Params = append(a.Params, FilledParam{Name: name, Value: v})
	}
	return nil
}

// Fill binds concrete values to a template. A single cursor walks values
// across the whole template, so the i-th numbered slot in template order gets
// values[i]. Text slots take text and do not consume values. Slots left over
// once values run out get defaults. tpl is not modified.
func Fill(tpl Template, values []int, text string, defaults Defaults) []FilledAction {
	out := make([]FilledAction, 0, len(tpl))
	cursor := 0
	for _, step := range tpl {
		filled := FilledAction{Action: step.Action, Params: make([]FilledParam, 0, len(step.Params))}
		for _, p := range step.Params {
			var v any
			switch {
			case p.Name == SlotText || p.Value.IsText():
				v = text
			case cursor < len(values):
				v = values[cursor]
				cursor++
			default:
				v = defaults.ForSlot(p.Name)
			}
			filled.Params = append(filled.Params, FilledParam{Name: p.Name, Value: v})
		}
		out = append(out, filled)
	}
	return out
}
