package views

import (
	"strings"
	"unicode/utf8"

	"github.com/rivo/tview"
)

// displayText prepares daemon-provided text (push names, tenant ids) for a
// tview cell: it drops codepoints tcell renders badly and escapes color tags.
func displayText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !isProblematicRune(r) {
			b.WriteRune(r)
		}
		i += size
	}
	return tview.Escape(b.String())
}

// isProblematicRune matches emoji modifiers that break cell width math:
// skin tones, zero width joiner and variation selectors.
func isProblematicRune(r rune) bool {
	switch {
	case r >= 0x1F3FB && r <= 0x1F3FF:
		return true
	case r == 0x200D:
		return true
	case r >= 0xFE00 && r <= 0xFE0F:
		return true
	case r >= 0xE0100 && r <= 0xE01EF:
		return true
	default:
		return false
	}
}
