package guardrail

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldMarks decomposes to NFKD, drops combining marks, then recomposes, so
// "météo", "météo" and fullwidth variants all compare equal.
var foldMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, strips diacritics and removes characters commonly
// used to smuggle text past pattern checks (zero-width, bidi overrides,
// soft hyphens, tag characters). Classification never relies on exact byte
// match of the input.
func Normalize(text string) string {
	folded, _, err := transform.String(foldMarks, text)
	if err != nil {
		folded = text
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if isSmugglingRune(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

func isSmugglingRune(r rune) bool {
	switch {
	case r >= 0x200B && r <= 0x200F: // zero-width space/joiners, directional marks
		return true
	case r >= 0x202A && r <= 0x202E: // bidi embedding and overrides
		return true
	case r >= 0x2060 && r <= 0x2064: // word joiner, invisible operators
		return true
	case r >= 0xE0000 && r <= 0xE007F: // tag characters
		return true
	case r == 0xFEFF || r == 0x00AD:
		return true
	default:
		return false
	}
}
