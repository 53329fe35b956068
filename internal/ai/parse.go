package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kayz/dogcmd/internal/intent"
)

// ParseTemplate decodes a model response into a validated template. It
// accepts a bare JSON array or an object wrapping it under "template",
// "actions" or "intents", optionally inside a markdown code fence.
func ParseTemplate(raw string, actions *intent.ActionSet) (intent.Template, error) {
	body := stripCodeFence(raw)
	start := strings.IndexAny(body, "[{")
	if start < 0 {
		return nil, fmt.Errorf("%w: no JSON in response: %q", intent.ErrMalformedTemplate, truncate(raw, 120))
	}
	// decode only the first JSON value; models like to add trailing chatter
	var first json.RawMessage
	if err := json.NewDecoder(strings.NewReader(body[start:])).Decode(&first); err != nil {
		return nil, fmt.Errorf("%w: %v", intent.ErrMalformedTemplate, err)
	}

	var tpl intent.Template
	if first[0] == '{' {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(first, &wrapper); err != nil {
			return nil, fmt.Errorf("%w: %v", intent.ErrMalformedTemplate, err)
		}
		inner, ok := firstField(wrapper, "template", "actions", "intents")
		if !ok {
			return nil, fmt.Errorf("%w: object without template field", intent.ErrMalformedTemplate)
		}
		first = inner
	}
	if err := json.Unmarshal(first, &tpl); err != nil {
		return nil, fmt.Errorf("%w: %v", intent.ErrMalformedTemplate, err)
	}
	// only an explicit [] means "no recognized actions"
	if tpl == nil {
		return nil, fmt.Errorf("%w: null template", intent.ErrMalformedTemplate)
	}
	if err := tpl.Validate(actions); err != nil {
		return nil, err
	}
	return tpl, nil
}

func firstField(m map[string]json.RawMessage, names ...string) (json.RawMessage, bool) {
	for _, n := range names {
		if v, ok := m[n]; ok {
			return v, true
		}
	}
	return nil, false
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
