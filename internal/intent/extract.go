package intent

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	numberRe = regexp.MustCompile(`(\d+)(?:\s*(seconds|second|secs|sec|minutes|minute|mins|min|times|time)\b)?`)

	// raw words end where Normalize keeps a separator
	rawWordRe = regexp.MustCompile(`[^\s.!?]+`)
)

// Extraction is the per-request result of abstracting volatile content.
// It is never cached.
type Extraction struct {
	// Key is the placeholder-abstracted normalized text.
	Key    string `json:"key"`
	Values []int  `json:"values,omitempty"`
	// Units lists the unit words consumed after numbers, in order.
	Units   []string `json:"units,omitempty"`
	Text    string   `json:"text,omitempty"`
	HasText bool     `json:"has_text"`
}

// ExtractNumbers replaces every number (and an optional unit word after it)
// with <VAR1>, <VAR2>, ... in order of appearance. values[i] belongs to the
// placeholder <VAR{i+1}>.
func ExtractNumbers(text string) (string, []int) {
	key, values, _ := extractNumbers(text, false)
	return key, values
}

func extractNumbers(text string, minutesToSeconds bool) (string, []int, []string) {
	var values []int
	var units []string
	key := numberRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := numberRe.FindStringSubmatch(m)
		v := parseBounded(sub[1])
		if unit := sub[2]; unit != "" {
			units = append(units, unit)
			if minutesToSeconds && strings.HasPrefix(unit, "min") {
				if v > math.MaxInt32/60 {
					v = math.MaxInt32
				} else {
					v *= 60
				}
			}
		}
		values = append(values, v)
		return Numbered(len(values)).String()
	})
	return key, values, units
}

// parseBounded parses a digit run, saturating instead of failing so that a
// literal can never leak into the key.
func parseBounded(digits string) int {
	v, err := strconv.Atoi(digits)
	if err != nil || v > math.MaxInt32 {
		return math.MaxInt32
	}
	return v
}

// SplitFreeText normalizes raw and, if it contains the free-text action
// token, captures everything after that token from the raw text with its
// original casing and punctuation. The normalized result then ends in
// "<token> <TEXT>" so different spoken content yields the same key.
func (n *Normalizer) SplitFreeText(raw, token string) (normalized, text string, found bool) {
	if token != "" {
		for _, loc := range rawWordRe.FindAllStringIndex(raw, -1) {
			if n.Normalize(raw[loc[0]:loc[1]]) != token {
				continue
			}
			prefix := n.Normalize(raw[:loc[0]])
			normalized = token + " " + TextToken
			if prefix != "" {
				normalized = prefix + " " + normalized
			}
			return normalized, strings.TrimSpace(raw[loc[1]:]), true
		}
	}
	return n.Normalize(raw), "", false
}
