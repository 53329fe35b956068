package intent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kayz/dogcmd/internal/logger"
)

// UnknownPolicy decides what happens to fragments that match no action.
type UnknownPolicy int

const (
	// PolicyDrop discards unrecognized fragments.
	PolicyDrop UnknownPolicy = iota
	// PolicyReport discards them from the template but returns them as warnings.
	PolicyReport
)

// ParseUnknownPolicy converts a configuration value into an UnknownPolicy.
func ParseUnknownPolicy(s string) (UnknownPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop":
		return PolicyDrop, nil
	case "report", "warn":
		return PolicyReport, nil
	default:
		return PolicyDrop, fmt.Errorf("unknown fragment policy: %q", s)
	}
}

func (p UnknownPolicy) String() string {
	if p == PolicyReport {
		return "report"
	}
	return "drop"
}

const fragmentBoundary = "\x00"

var placeholderRe = regexp.MustCompile(`<VAR\d+>`)

// BuildResult is a rule-built template plus the fragments that matched no action.
type BuildResult struct {
	Template     Template
	Unrecognized []string
}

// Builder segments abstracted text into an ordered template.
type Builder struct {
	actions  *ActionSet
	policy   UnknownPolicy
	keywords *regexp.Regexp
}

// NewBuilder creates a rule-based template builder.
func NewBuilder(actions *ActionSet, policy UnknownPolicy) *Builder {
	names := actions.longestFirst()
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = regexp.QuoteMeta(name)
	}
	return &Builder{
		actions:  actions,
		policy:   policy,
		keywords: regexp.MustCompile(`\b(` + strings.Join(quoted, "|") + `)\b`),
	}
}

// Build turns a template key into a template. Fragment order is sentence
// order, which is the order actions are executed in.
func (b *Builder) Build(key string) BuildResult {
	marked := b.keywords.ReplaceAllString(key, fragmentBoundary+"$1")

	var res BuildResult
	res.Template = Template{}
	for _, fragment := range strings.Split(marked, fragmentBoundary) {
		fragment = strings.TrimSpace(fragment)
		if fragment == "" {
			continue
		}
		action := b.actions.MatchPrefix(fragment)
		if action.Class == ClassUnrecognized {
			logger.Debug("[Builder] Unrecognized fragment %q (policy=%s)", fragment, b.policy)
			if b.policy == PolicyReport {
				res.Unrecognized = append(res.Unrecognized, fragment)
			}
			continue
		}
		res.Template = append(res.Template, buildStep(action, fragment))
	}
	return res
}

func buildStep(action Action, fragment string) ActionStep {
	step := ActionStep{Action: action.Name}
	if action.Class == ClassFreeText {
		step.Params = []Param{{Name: SlotText, Value: FreeText}}
		return step
	}
	for i, token := range placeholderRe.FindAllString(fragment, -1) {
		ph, err := ParsePlaceholder(token)
		if err != nil {
			continue
		}
		var name string
		switch {
		case action.Class == ClassTimed && i == 0:
			name = SlotDuration
		case action.Class == ClassTimed:
			name = CountSlot(i)
		default:
			name = CountSlot(i + 1)
		}
		step.Params = append(step.Params, Param{Name: name, Value: ph})
	}
	return step
}
