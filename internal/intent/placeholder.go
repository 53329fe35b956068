package intent

import (
	"fmt"
	"strconv"
	"strings"
)

// TextToken is the wire form of the free-text placeholder.
const TextToken = "<TEXT>"

// Placeholder stands in for one volatile value. A zero index means the
// free-text placeholder; indexes start at 1 for numbered placeholders.
type Placeholder struct {
	index int
}

// FreeText is the placeholder for captured speech.
var FreeText = Placeholder{}

// Numbered returns the k-th numbered placeholder (k >= 1).
func Numbered(k int) Placeholder {
	if k < 1 {
		panic(fmt.Sprintf("intent: invalid placeholder index %d", k))
	}
	return Placeholder{index: k}
}

// IsText reports whether p is the free-text placeholder.
func (p Placeholder) IsText() bool { return p.index == 0 }

// Index returns the 1-based position of a numbered placeholder, or 0 for text.
func (p Placeholder) Index() int { return p.index }

func (p Placeholder) String() string {
	if p.IsText() {
		return TextToken
	}
	return "<VAR" + strconv.Itoa(p.index) + ">"
}

// ParsePlaceholder parses "<VARk>" or "<TEXT>".
func ParsePlaceholder(s string) (Placeholder, error) {
	s = strings.TrimSpace(s)
	if s == TextToken {
		return FreeText, nil
	}
	if !strings.HasPrefix(s, "<VAR") || !strings.HasSuffix(s, ">") {
		return Placeholder{}, fmt.Errorf("invalid placeholder: %q", s)
	}
	k, err := strconv.Atoi(s[len("<VAR") : len(s)-1])
	if err != nil || k < 1 {
		return Placeholder{}, fmt.Errorf("invalid placeholder: %q", s)
	}
	return Placeholder{index: k}, nil
}

func (p Placeholder) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Placeholder) UnmarshalText(b []byte) error {
	parsed, err := ParsePlaceholder(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
