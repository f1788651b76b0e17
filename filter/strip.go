package filter

import (
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// stripSet is the Unicode Strip Set from spec.md §4.2: zero-width and
// bidi-control codepoints that agents can use to smuggle hidden
// instructions past a casual read of the rendered message.
var stripSet = runes.Predicate(func(r rune) bool {
	switch {
	case r >= 0x200B && r <= 0x200D: // ZERO WIDTH SPACE..ZERO WIDTH JOINER
		return true
	case r == 0x2060: // WORD JOINER
		return true
	case r == 0xFEFF: // ZERO WIDTH NO-BREAK SPACE / BOM
		return true
	case r >= 0x2066 && r <= 0x2069: // isolates
		return true
	case r >= 0x202A && r <= 0x202E: // embedding/override
		return true
	case r >= 0xE0001 && r <= 0xE007F: // tag characters (supplementary plane)
		return true
	case r >= 0xFE00 && r <= 0xFE0F: // variation selectors
		return true
	case r == 0x00AD: // SOFT HYPHEN
		return true
	case r >= 0x2028 && r <= 0x2029: // line/paragraph separator
		return true
	case r == 0x061C: // ARABIC LETTER MARK
		return true
	case r == 0x180E: // MONGOLIAN VOWEL SEPARATOR
		return true
	default:
		return false
	}
})

// stripInvisible removes every codepoint in the Strip Set. Each call
// builds a transformer with runes.Remove, the idiomatic x/text way to
// express a precomputed rune predicate as a transform.Transformer.
func stripInvisible(s string) string {
	out, _, err := transform.String(runes.Remove(stripSet), s)
	if err != nil {
		return s
	}
	return out
}
