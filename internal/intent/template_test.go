package intent

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestTemplateJSONShape(t *testing.T) {
	b, err := json.Marshal(sampleTemplate())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `[{"action":"sit","parameters":{"duration":"<VAR1>"}},{"action":"say","parameters":{"text":"<TEXT>"}}]`
	if string(b) != want {
		t.Fatalf("unexpected json: %s", b)
	}
}

func TestTemplateUnmarshalOrdersSlots(t *testing.T) {
	raw := `[{"action":"Walk","parameters":{"count2":"<VAR3>","count1":"<VAR2>","duration":"<VAR1>"}}]`
	var tpl Template
	if err := json.Unmarshal([]byte(raw), &tpl); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := Template{step("walk",
		Param{SlotDuration, Numbered(1)},
		Param{"count1", Numbered(2)},
		Param{"count2", Numbered(3)},
	)}
	if !tpl.Equal(want) {
		t.Fatalf("unexpected template: %s", tpl)
	}
}

func TestTemplateUnmarshalRejectsBadPlaceholder(t *testing.T) {
	var tpl Template
	if err := json.Unmarshal([]byte(`[{"action":"sit","parameters":{"duration":"10"}}]`), &tpl); err == nil {
		t.Fatalf("expected error for literal value")
	}
}

func TestTemplateValidate(t *testing.T) {
	actions := MustDefaultActionSet()
	if err := sampleTemplate().Validate(actions); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := []Template{
		{step("dance")},
		{step("say", Param{SlotText, Numbered(1)})},
		{step("sit", Param{SlotDuration, FreeText})},
		{step("sit", Param{SlotDuration, Numbered(1)}, Param{SlotDuration, Numbered(2)})},
	}
	for i, tpl := range bad {
		if err := tpl.Validate(actions); !errors.Is(err, ErrMalformedTemplate) {
			t.Fatalf("case %d: expected ErrMalformedTemplate, got %v", i, err)
		}
	}
}

func TestParsePlaceholder(t *testing.T) {
	for _, s := range []string{"<VAR0>", "<VAR>", "VAR1", "<var1>", "<TEXT"} {
		if _, err := ParsePlaceholder(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
	p, err := ParsePlaceholder("<VAR12>")
	if err != nil || p.Index() != 12 || p.IsText() {
		t.Fatalf("unexpected placeholder %v (%v)", p, err)
	}
}
