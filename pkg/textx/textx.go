// Package textx provides small text utilities used across the project.
package textx

import "strings"

// SanitizeText strips control characters (keeping tab, newline and carriage
// return) and trims surrounding whitespace. Prompts pass through this
// before validation and persistence.
func SanitizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteRune(r)
		case r >= 32 && r != 127:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// Snippet truncates s to at most n bytes for log output, appending an
// ellipsis when anything was cut.
func Snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
