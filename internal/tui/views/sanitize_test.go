package views

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeForTerminal(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello mesh", "hello mesh"},
		{"escape sequence", "\x1b[31mred", "[31mred"},
		{"newline", "two\nlines", "two lines"},
		{"skin tone", "\U0001F44D\U0001F3FB", "\U0001F44D"},
		{"joiner", "a\u200db", "ab"},
		{"variation selector", "\u2764\ufe0f", "\u2764"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, sanitizeForTerminal(tc.in))
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "--:--", formatTimestamp(0))
}
