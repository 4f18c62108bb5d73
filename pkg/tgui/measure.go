package tgui

import (
	"html"
	"strings"
	"unicode/utf8"
)

// Visible returns what a client displays for h: tags removed and entities
// decoded. Telegram applies its length limits to this text.
func Visible(h string) string {
	var b strings.Builder
	inTag := false
	for _, r := range h {
		switch {
		case r == '<':
			inTag = true
		case r == '>' && inTag:
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return html.UnescapeString(b.String())
}

func VisibleLen(h string) int { return utf8.RuneCountInString(Visible(h)) }

// Clip keeps the first n runes of s and marks the cut with "…".
func Clip(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	kept := 0
	for i := range s {
		if kept == n {
			return s[:i] + "…"
		}
		kept++
	}
	return s
}
