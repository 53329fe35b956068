package intent

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// DefaultSynonyms folds spoken phrasing into canonical action tokens.
func DefaultSynonyms() map[string]string {
	return map[string]string{
		"woof":              "bark",
		"shake the paw":     "shake_paw",
		"shake your paw":    "shake_paw",
		"wag your tail":     "wag_tail",
		"wag tail":          "wag_tail",
		"spin around":       "spin",
		"light":             "led",
		"colour":            "color",
		"lie down":          "lie",
		"scratch your head": "scratch_head",
		"turn around":       "turn",
	}
}

var whitespaceRe = regexp.MustCompile(`\s+`)

type phraseRule struct {
	phrase      string
	pattern     *regexp.Regexp
	replacement string
}

// Normalizer lowercases text, strips punctuation other than sentence
// delimiters and folds synonym phrases into canonical tokens.
type Normalizer struct {
	rules []phraseRule
}

// NewNormalizer compiles a synonym table. Phrases are applied longest first.
// A replacement may not itself contain a phrase. A multi-word phrase must
// fold to fewer words and a single word to a single word, so every fold
// either removes a word gap or retires a foldable word and Normalize always
// reaches a fixpoint.
func NewNormalizer(synonyms map[string]string) (*Normalizer, error) {
	n := &Normalizer{}
	for phrase, canonical := range synonyms {
		p := collapse(strings.ToLower(phrase))
		c := collapse(strings.ToLower(canonical))
		if p == "" || c == "" {
			return nil, fmt.Errorf("synonym %q -> %q: empty phrase or replacement", phrase, canonical)
		}
		pw, cw := len(strings.Fields(p)), len(strings.Fields(c))
		if (pw == 1 && cw != 1) || (pw > 1 && cw >= pw) {
			return nil, fmt.Errorf("synonym %q -> %q: replacement must be shorter than the phrase", phrase, canonical)
		}
		n.rules = append(n.rules, phraseRule{
			phrase:      p,
			pattern:     regexp.MustCompile(`\b` + regexp.QuoteMeta(p) + `\b`),
			replacement: c,
		})
	}
	sort.Slice(n.rules, func(i, j int) bool {
		if len(n.rules[i].phrase) != len(n.rules[j].phrase) {
			return len(n.rules[i].phrase) > len(n.rules[j].phrase)
		}
		return n.rules[i].phrase < n.rules[j].phrase
	})
	for _, r := range n.rules {
		for _, other := range n.rules {
			if other.pattern.MatchString(r.replacement) {
				return nil, fmt.Errorf("synonym replacement %q contains phrase %q", r.replacement, other.phrase)
			}
		}
	}
	return n, nil
}

// MustNormalizer is NewNormalizer for static tables.
func MustNormalizer(synonyms map[string]string) *Normalizer {
	n, err := NewNormalizer(synonyms)
	if err != nil {
		panic(err)
	}
	return n
}

// Normalize is pure and idempotent: Normalize(Normalize(x)) == Normalize(x).
// Folding repeats until a pass changes nothing.
func (n *Normalizer) Normalize(raw string) string {
	text := collapse(stripPunctuation(strings.ToLower(raw)))
	for {
		folded := text
		for _, r := range n.rules {
			folded = r.pattern.ReplaceAllLiteralString(folded, r.replacement)
		}
		folded = collapse(folded)
		if folded == text {
			break
		}
		text = folded
	}
	return text
}

// stripPunctuation also folds every decimal digit to ASCII so numbers in any
// script are extracted into placeholders.
func stripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r <= unicode.MaxASCII && unicode.IsDigit(r):
			return r
		case unicode.IsDigit(r):
			if v, ok := digitValue(r); ok {
				return '0' + rune(v)
			}
			return r
		case unicode.IsLetter(r), unicode.IsSpace(r):
			return r
		case r == '_', r == '.', r == '!', r == '?':
			return r
		default:
			return -1
		}
	}, s)
}

// digitValue returns the value of a decimal digit. Every Nd range in the
// Unicode tables is a run of complete 0-9 blocks, so the offset from the
// range start gives the value.
func digitValue(r rune) (int, bool) {
	for _, rg := range unicode.Nd.R16 {
		if r >= rune(rg.Lo) && r <= rune(rg.Hi) {
			return int(r-rune(rg.Lo)) % 10, true
		}
	}
	for _, rg := range unicode.Nd.R32 {
		if r >= rune(rg.Lo) && r <= rune(rg.Hi) {
			return int(r-rune(rg.Lo)) % 10, true
		}
	}
	return 0, false
}

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
