package resolver

import (
	"strings"
	"unicode"
)

var quoteReplacer = strings.NewReplacer(
	"“", `"`,
	"”", `"`,
	"‘", `"`,
	"’", `"`,
)

// Sanitize normalizes a song title or artist name before it is placed in a catalog query.
//
// Curly quotes become straight double quotes, then trailing dots and surrounding whitespace
// are removed. Dots and whitespace are stripped together until neither remains at the end,
// so Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(s string) string {
	s = quoteReplacer.Replace(s)
	s = strings.TrimRightFunc(s, func(r rune) bool {
		return r == '.' || unicode.IsSpace(r)
	})
	return strings.TrimLeftFunc(s, unicode.IsSpace)
}
