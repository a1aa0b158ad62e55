// Package reply shapes model output before it is sent to the chat.
package reply

import "strings"

// Ellipsis marks a reply that was cut short.
const Ellipsis = "..."

// Truncate cuts text to at most limit characters (Unicode code points). Text
// that already fits is returned unchanged; longer text keeps its first
// limit-3 characters followed by Ellipsis. The cut ignores word and sentence
// boundaries.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	marker := len([]rune(Ellipsis))
	if limit < marker {
		return string(runes[:limit])
	}
	return string(runes[:limit-marker]) + Ellipsis
}

// Finish trims surrounding whitespace and truncates. The boolean is false
// when nothing printable is left.
func Finish(text string, limit int) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	return Truncate(text, limit), true
}
