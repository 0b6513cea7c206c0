package views

import (
	"strings"
	"unicode"
)

// sanitizeForTerminal cleans peer-supplied text before it reaches tview.
// Control characters are dropped (newlines and tabs become spaces), as are
// emoji modifiers that tcell draws with the wrong width: skin tones, the
// zero width joiner and variation selectors.
func sanitizeForTerminal(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return ' '
		case unicode.IsControl(r), isProblematicRune(r):
			return -1
		default:
			return r
		}
	}, s)
}

func isProblematicRune(r rune) bool {
	switch {
	case r >= 0x1F3FB && r <= 0x1F3FF: // skin tone modifiers
		return true
	case r == 0x200D: // zero width joiner
		return true
	case r >= 0xFE00 && r <= 0xFE0F: // variation selectors
		return true
	case r >= 0xE0100 && r <= 0xE01EF: // variation selectors supplement
		return true
	default:
		return false
	}
}
