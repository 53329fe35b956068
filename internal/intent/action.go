package intent

import (
	"fmt"
	"sort"
	"strings"
)

// ParamClass tags a canonical action with the shape of its parameter slots.
type ParamClass int

const (
	ClassUnrecognized ParamClass = iota
	ClassTimed
	ClassCounted
	ClassFreeText
)

func (c ParamClass) String() string {
	switch c {
	case ClassTimed:
		return "timed"
	case ClassCounted:
		return "counted"
	case ClassFreeText:
		return "free_text"
	default:
		return "unrecognized"
	}
}

// ParseParamClass converts a configuration value into a ParamClass.
func ParseParamClass(s string) (ParamClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "timed":
		return ClassTimed, nil
	case "counted":
		return ClassCounted, nil
	case "free_text", "freetext", "text":
		return ClassFreeText, nil
	default:
		return ClassUnrecognized, fmt.Errorf("unknown parameter class: %q", s)
	}
}

// Action is one canonical robot operation.
type Action struct {
	Name  string
	Class ParamClass
}

// ActionSpec is the configuration form of an Action.
type ActionSpec struct {
	Name  string `yaml:"name" json:"name"`
	Class string `yaml:"class" json:"class"`
}

// SayAction is the free-text action whose argument is captured from the raw input.
const SayAction = "say"

// DefaultActionSpecs is the stock PiDog vocabulary.
func DefaultActionSpecs() []ActionSpec {
	return []ActionSpec{
		{Name: "sit", Class: "timed"},
		{Name: "bark", Class: "timed"},
		{Name: "shake_paw", Class: "counted"},
		{Name: "wag_tail", Class: "counted"},
		{Name: "led", Class: "timed"},
		{Name: "spin", Class: "counted"},
		{Name: "lie", Class: "timed"},
		{Name: "howl", Class: "timed"},
		{Name: "scratch", Class: "counted"},
		{Name: "scratch_head", Class: "counted"},
		{Name: "walk", Class: "timed"},
		{Name: "turn", Class: "counted"},
		{Name: "say", Class: "free_text"},
	}
}

// ActionSet is the closed, ordered vocabulary of canonical actions.
type ActionSet struct {
	actions []Action
	byName  map[string]Action
	// longest names first, so "scratch_head" wins over "scratch"
	byLength []string
	freeText string
}

// NewActionSet validates specs and builds an ActionSet.
func NewActionSet(specs []ActionSpec) (*ActionSet, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("action set is empty")
	}
	s := &ActionSet{byName: make(map[string]Action, len(specs))}
	for _, spec := range specs {
		name := strings.ToLower(strings.TrimSpace(spec.Name))
		if name == "" {
			return nil, fmt.Errorf("action name is required")
		}
		if strings.ContainsAny(name, " \t\n") {
			return nil, fmt.Errorf("action %q must be a single token", name)
		}
		if _, dup := s.byName[name]; dup {
			return nil, fmt.Errorf("duplicate action: %s", name)
		}
		class, err := ParseParamClass(spec.Class)
		if err != nil {
			return nil, fmt.Errorf("action %s: %w", name, err)
		}
		if class == ClassFreeText {
			if s.freeText != "" {
				return nil, fmt.Errorf("only one free_text action is supported, got %s and %s", s.freeText, name)
			}
			s.freeText = name
		}
		a := Action{Name: name, Class: class}
		s.actions = append(s.actions, a)
		s.byName[name] = a
		s.byLength = append(s.byLength, name)
	}
	sort.SliceStable(s.byLength, func(i, j int) bool {
		if len(s.byLength[i]) != len(s.byLength[j]) {
			return len(s.byLength[i]) > len(s.byLength[j])
		}
		return s.byLength[i] < s.byLength[j]
	})
	return s, nil
}

// MustDefaultActionSet returns the stock vocabulary.
func MustDefaultActionSet() *ActionSet {
	s, err := NewActionSet(DefaultActionSpecs())
	if err != nil {
		panic(err)
	}
	return s
}

// Lookup returns the action with the given name.
func (s *ActionSet) Lookup(name string) (Action, bool) {
	a, ok := s.byName[name]
	return a, ok
}

// FreeTextAction returns the action whose argument is captured speech.
func (s *ActionSet) FreeTextAction() (string, bool) {
	return s.freeText, s.freeText != ""
}

// Names returns action names in configuration order.
func (s *ActionSet) Names() []string {
	names := make([]string, len(s.actions))
	for i, a := range s.actions {
		names[i] = a.Name
	}
	return names
}

// Actions returns a copy of the configured actions.
func (s *ActionSet) Actions() []Action {
	out := make([]Action, len(s.actions))
	copy(out, s.actions)
	return out
}

// MatchPrefix identifies the action a fragment starts with. A fragment that
// starts with no known action yields an Action of class ClassUnrecognized.
func (s *ActionSet) MatchPrefix(fragment string) Action {
	for _, name := range s.byLength {
		if !strings.HasPrefix(fragment, name) {
			continue
		}
		rest := fragment[len(name):]
		if rest == "" || !isWordByte(rest[0]) {
			return s.byName[name]
		}
	}
	return Action{Class: ClassUnrecognized}
}

func (s *ActionSet) longestFirst() []string {
	return s.byLength
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
